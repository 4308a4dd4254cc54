package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/auth"
	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/config"
	apphttp "budget/internal/http"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/snapshot"
)

const (
	maxSessions     = 10000
	janitorInterval = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	opts := []ledger.Option{ledger.WithLogger(logger)}
	if client := cli.OpenAMQP(logger, cfg); client != nil {
		defer client.Close()
		opts = append(opts, ledger.WithPublisher(client))
	}
	service := ledger.NewService(res.Store, opts...)

	deps := apphttp.Deps{
		Service:  service,
		SignIn:   newSignIn(logger, cfg),
		Sessions: auth.NewSessions(cfg.SessionTTL, maxSessions, cfg.SessionCookieSecure),
		Limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMin}),
		Logger:   logger,
		Currency: cfg.Currency,
	}
	if p, ok := res.Store.(backend.Pinger); ok {
		deps.Pinger = p
	}
	if cfg.SnapshotDir != "" {
		snapshots, err := snapshot.New(cfg.SnapshotDir)
		if err != nil {
			logger.Error("Failed to open snapshot directory",
				"dir", cfg.SnapshotDir, log.FieldErrorType, log.ErrorTypeConfiguration, log.FieldError, err)
			os.Exit(1)
		}
		deps.Snapshots = snapshots
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	janitor := cache.NewJanitor(janitorInterval, func(removed int) {
		logger.Debug("Cache cleanup completed", "entries_removed", removed)
	})
	for _, c := range deps.Sessions.Caches() {
		janitor.Register(c)
	}
	for _, c := range srv.Caches() {
		janitor.Register(c)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget server", log.FieldOperation, log.OpStartup,
			"port", cfg.Port, log.FieldBackend, cfg.DataBackend, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error { return deps.Limiter.Run(gctx, 5*time.Minute) })

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func newSignIn(logger *log.Logger, cfg *config.Config) auth.SignIn {
	if cfg.AuthMode == "google" {
		return auth.NewGoogleSignIn(cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, cfg.GoogleOAuthRedirectURL)
	}
	logger.Warn("Using dev sign-in, every visitor is signed in as the same user", log.FieldUserID, cfg.DevUserID)
	return auth.NewDevSignIn(cfg.DevUserID)
}
