// Package main runs backofficed, the RBAC back-office REST service the
// boctl console talks to.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app"
	"github.com/opsdeck/backoffice/internal/app/httpapi"
	"github.com/opsdeck/backoffice/internal/app/services/auth"
	"github.com/opsdeck/backoffice/internal/app/storage/postgres"
	"github.com/opsdeck/backoffice/internal/config"
	"github.com/opsdeck/backoffice/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dbURL := flag.String("db", "", "PostgreSQL URL (overrides config; empty selects the in-memory store)")
	logLevel := flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.New("backofficed", "info", false)
		fallback.Fatal().Err(err).Msg("load configuration")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbURL != "" {
		cfg.Database.URL = *dbURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log := logging.New("backofficed", cfg.Log.Level, cfg.Log.Pretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("backofficed exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UsingDevSecret() {
		log.Warn().Msg("no JWT secret configured; using the development secret")
	}

	var stores app.Stores
	if cfg.Database.URL != "" {
		store, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		if cfg.Database.Migrate {
			if err := store.Migrate(); err != nil {
				return err
			}
			log.Info().Msg("database migrations applied")
		}
		stores = app.Stores{
			Users: store, Roles: store, Menus: store, Apis: store,
			Depts: store, AuditLogs: store, Catalog: store,
		}
		log.Info().Msg("using postgres store")
	} else {
		log.Warn().Msg("no database configured; state is in memory and lost on exit")
	}

	var blacklist auth.Blacklist
	if cfg.Redis.Addr != "" {
		rb, err := auth.NewRedisBlacklist(ctx, cfg.Redis.URL())
		if err != nil {
			return err
		}
		defer rb.Close()
		blacklist = rb
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token blacklist on redis")
	}

	application, err := app.New(app.Options{
		Stores: stores,
		Auth: auth.Config{
			Secret:     []byte(cfg.Auth.JWTSecret),
			AccessTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTTL: cfg.Auth.RefreshTokenTTL,
		},
		Blacklist: blacklist,
		UploadDir: cfg.Upload.Dir,
		MaxUpload: cfg.Upload.MaxBytes,
	}, log)
	if err != nil {
		return err
	}

	handler, err := httpapi.New(application, httpapi.Config{
		AllowedOrigins: cfg.Server.CORSOrigins,
		RateLimit:      int(cfg.Server.RateLimitRPS),
		RateBurst:      cfg.Server.RateLimitBurst,
	}, log)
	if err != nil {
		return err
	}

	if err := application.Start(ctx); err != nil {
		return err
	}

	if err := httpapi.Seed(ctx, application, handler.LiveApis(), log); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("application shutdown")
	}
	log.Info().Msg("backofficed stopped")
	return nil
}
