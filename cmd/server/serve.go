package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/metrics"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/router" // Internal router setup
	"github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/session"
	"github.com/iliyamo/studio-booking/internal/view"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	cfg, lg, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		lg.Error("database connection failed", zap.Error(err))
		return err
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		lg.Error("redis connection failed", zap.Error(err))
		return err
	}
	defer rdb.Close()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub = queue.NewAMQPPublisher(cfg.RabbitURL)
	}
	defer pub.Close()

	renderer, err := view.New()
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	e := router.New(router.Deps{
		Cfg:         cfg,
		Log:         lg,
		Metrics:     m,
		Renderer:    renderer,
		Sessions:    session.NewStore(rdb, cfg.SessionSecret, cfg.SessionTTL),
		Users:       users,
		Accounts:    service.Accounts{Users: users, BcryptCost: cfg.BcryptCost},
		Memberships: repository.NewMembershipRepo(db),
		Invites:     repository.NewInviteRepo(db),
		Plans:       repository.NewPlanRepo(db),
		Requests:    repository.NewSessionRequestRepo(db),
		Booked:      repository.NewBookedSessionRepo(db),
		Events:      queue.NewNotifier(pub, lg, m),
		Checks: map[string]handler.Pinger{
			"mysql": db,
			"redis": handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			lg.Warn("shutdown failed", zap.Error(err))
		}
	}()

	lg.Info("listening",
		zap.String("addr", cfg.Addr()),
		zap.String("admin_path", cfg.AdminPath),
		zap.Bool("events", cfg.EventsEnabled),
		zap.Bool("metrics", cfg.MetricsEnabled))
	if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
