package main // Entry point package

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/config" // Internal config loader
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of studio",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("studio version %s\n", version)
		},
	}

	rootCmd = &cobra.Command{
		Use:           "studio",
		Short:         "Recording studio booking site",
		Long:          `studio serves the booking site and its admin console and runs maintenance tasks against its database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
)

func init() {
	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, createUserCmd, consumeEventsCmd, backfillCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("studio: %v", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger shared by every
// command.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	lg, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, lg.With(zap.String("env", cfg.Env)), nil
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	return database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
}
