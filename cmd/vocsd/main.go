package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ov-vocsdb/vocsdb/internal/auth"
	"github.com/ov-vocsdb/vocsdb/internal/authz"
	"github.com/ov-vocsdb/vocsdb/internal/config"
	"github.com/ov-vocsdb/vocsdb/internal/dispatch"
	"github.com/ov-vocsdb/vocsdb/internal/event"
	"github.com/ov-vocsdb/vocsdb/internal/ldapimport"
	"github.com/ov-vocsdb/vocsdb/internal/persistence"
	"github.com/ov-vocsdb/vocsdb/internal/stateplane"
	"github.com/ov-vocsdb/vocsdb/internal/store"
	"github.com/ov-vocsdb/vocsdb/internal/transport/httpapi"
	"github.com/ov-vocsdb/vocsdb/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kdf := auth.KDFParams{
		Workfactor: cfg.PasswordWorkfactor,
		Blocksize:  cfg.PasswordBlocksize,
		Parallel:   cfg.PasswordParallel,
		Length:     cfg.PasswordLength,
	}
	s := store.New(store.Config{LockTimeout: cfg.ThreadLockTimeout, KDF: kdf})
	plane := stateplane.New(s)
	az := authz.NewEngine(s)

	sessions := dispatch.NewSessionStore(auth.NewSessionManager(auth.SessionConfig{
		SecretKey: cfg.JWTSecretKey,
		TTL:       auth.DefaultSessionConfig().TTL,
		Issuer:    auth.DefaultSessionConfig().Issuer,
	}))

	var publisher event.Publisher
	if cfg.IsDevelopment() {
		publisher = event.NewLoggingPublisher(logger)
	} else {
		publisher = event.NewMultiPublisher(event.NewBroker(), event.NewLoggingPublisher(logger))
	}
	defer publisher.Close()

	importer := ldapimport.New(s, publisher, cfg.LDAPBindHost, logger)

	var backend persistence.Backend
	var err error
	if cfg.DatabaseURL != "" {
		logger.Info("connecting to snapshot database")
		pgBackend, pgErr := persistence.NewPostgresBackend(ctx, cfg.DatabaseURL)
		if pgErr != nil {
			return fmt.Errorf("connect snapshot database: %w", pgErr)
		}
		defer pgBackend.Close()
		backend = pgBackend
	} else {
		backend = persistence.NewFileBackend(cfg.Path)
	}
	bridge := persistence.NewBridge(s, plane, backend, persistence.ClusterConfig{
		Enabled: cfg.ClusterManager,
		Socket:  cfg.ClusterSocket,
	}, logger)

	logger.Info("loading snapshot")
	if loadErr := bridge.Load(ctx); loadErr != nil {
		logger.Warn("snapshot load failed, starting from an empty store", "error", loadErr)
	}
	bridge.StartTimers(ctx, cfg.AuthSnapshotInterval, cfg.StateSnapshotInterval, logger)

	disp := dispatch.New(
		dispatch.Config{LDAPEnabled: cfg.LDAPEnabled, LDAPTimeout: cfg.LDAPRequestTimeout},
		s, plane, az, sessions, publisher, importer, importer, bridge, logger,
	)

	errChan := make(chan error, 2)

	wsServer := ws.NewServer(disp, logger)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.WSPort)
		logger.Info("starting websocket server", "addr", addr)
		if err := wsServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("websocket server: %w", err)
		}
	}()

	adminServer := httpapi.NewServer(s, bridge, cfg.AdminAuthToken, logger)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.AdminHTTPPort)
		logger.Info("starting admin HTTP server", "addr", addr)
		if err := adminServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("admin HTTP server: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err = <-errChan:
		logger.Error("server error", "error", err)
		return err
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("websocket server shutdown error", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin HTTP server shutdown error", "error", err)
	}

	logger.Info("saving final snapshot")
	if err := bridge.Save(shutdownCtx); err != nil {
		logger.Error("final snapshot save failed", "error", err)
	}

	cancel()

	logger.Info("shutdown complete")
	return nil
}
