package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/logger"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

var (
	newUser struct {
		username  string
		password  string
		email     string
		firstName string
		lastName  string
		role      string
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			lg.Info("schema applied", zap.Int("statements", len(database.Statements())))
			return nil
		},
	}

	createUserCmd = &cobra.Command{
		Use:   "create-user",
		Short: "Create a user with the given role",
		Long:  `create-user creates a login account.  The password may be passed with --password or the STUDIO_USER_PASSWORD variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := model.ParseRole(newUser.role)
			if err != nil {
				return err
			}
			password := newUser.password
			if password == "" {
				password = os.Getenv("STUDIO_USER_PASSWORD")
			}

			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			accounts := service.Accounts{Users: repository.NewUserRepo(db), BcryptCost: cfg.BcryptCost}
			u, err := accounts.CreateAccount(cmd.Context(), service.NewAccount{
				Username:  newUser.username,
				Password:  password,
				Email:     newUser.email,
				FirstName: newUser.firstName,
				LastName:  newUser.lastName,
				Role:      role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id=%d, role=%s)\n", u.Username, u.ID, u.Profile.Role)
			return nil
		},
	}

	consumeEventsCmd = &cobra.Command{
		Use:   "consume-events",
		Short: "Append domain events from RabbitMQ to the event log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()

			if err := os.MkdirAll(filepath.Dir(cfg.EventLogPath), 0o755); err != nil {
				return err
			}
			out := logger.RotatingFile(cfg.EventLogPath, cfg.Log.MaxSize, cfg.Log.MaxBackups, cfg.Log.MaxAge, cfg.Log.Compress)
			defer out.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			lg.Info("consuming events", zap.String("queue", queue.QueueName), zap.String("file", cfg.EventLogPath))
			c := &queue.Consumer{URL: cfg.RabbitURL, Out: out, Log: lg}
			return c.Run(ctx)
		},
	}

	backfillCmd = &cobra.Command{
		Use:   "backfill-sessions",
		Short: "Fill booked_datetime for sessions that only have the legacy date and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := repository.NewBookedSessionRepo(db).Backfill(cmd.Context())
			if err != nil {
				return err
			}
			lg.Info("backfilled booked sessions", zap.Int64("rows", n))
			fmt.Fprintf(cmd.OutOrStdout(), "backfilled %d booked sessions\n", n)
			return nil
		},
	}
)

func init() {
	f := createUserCmd.Flags()
	f.StringVar(&newUser.username, "username", "", "login name (required)")
	f.StringVar(&newUser.password, "password", "", "password, at least 8 characters")
	f.StringVar(&newUser.email, "email", "", "email address")
	f.StringVar(&newUser.firstName, "first-name", "", "first name")
	f.StringVar(&newUser.lastName, "last-name", "", "last name")
	f.StringVar(&newUser.role, "role", "public", "public, member, operator or admin")
	_ = createUserCmd.MarkFlagRequired("username")
}
