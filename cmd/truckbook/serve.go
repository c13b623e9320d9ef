package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ryan-Har/truckbook"
	"github.com/Ryan-Har/truckbook/internal/config"
	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/internal/observability"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/Ryan-Har/truckbook/pkg/store"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the account pages",
		Long: `Serve /signup, /login, /logout and /home, plus the JSON API when a
token secret is configured. Metrics and health probes are served on a
separate listener.`,
		RunE: runServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, logCloser, err := logutil.New(logutil.Config{
		Format:     cfg.Log.Format,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Stdout:     cmd.OutOrStdout(),
	})
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "build logger").Wrap(err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbOpt, closeDB, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	hasher, err := passwd.New(cfg.Password.Scheme, cfg.Password.BcryptCost)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("scheme", cfg.Password.Scheme).Wrap(err)
	}

	tp, shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return err
	}
	defer stopWithTimeout(logger, "tracing", shutdownTracing)

	var obs *observability.Server
	opts := []truckbook.Option{
		dbOpt,
		truckbook.WithLogger(logger),
		truckbook.WithHasher(hasher),
		truckbook.WithTracerProvider(tp),
		truckbook.WithSessionBackend(store.SessionBackend(cfg.Session.Store), cfg.Session.BoltPath),
		truckbook.WithSessionTTL(cfg.Session.TTL, cfg.Session.CleanupInterval),
		truckbook.WithCookies(cfg.Session.CookieName, cfg.HTTP.SecureCookies),
	}
	if cfg.APIEnabled() {
		opts = append(opts, truckbook.WithAPITokens(cfg.Token.Secret, cfg.Token.TTL))
	}

	var tb *truckbook.TruckBook
	if cfg.Metrics.Addr != "" {
		obs = observability.NewServer(cfg.Metrics.Addr, logger, func(ctx context.Context) error {
			if tb == nil {
				return errors.New("starting")
			}
			return tb.Store.Ping(ctx)
		})
		opts = append(opts, truckbook.WithObserver(obs.Metrics()))
	}

	tb, err = truckbook.New(opts...)
	if err != nil {
		return oops.Code("STARTUP_FAILED").Wrap(err)
	}
	defer tb.Close()

	var obsErrs <-chan error
	if obs != nil {
		if obsErrs, err = obs.Start(); err != nil {
			return err
		}
		defer stopWithTimeout(logger, "observability", obs.Stop)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           tb.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrs := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErrs <- err
		}
		close(srvErrs)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErrs:
		if err != nil {
			return oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
		}
	case err := <-obsErrs:
		if err != nil {
			return oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(err)
		}
	}

	stopWithTimeout(logger, "http", srv.Shutdown)
	return nil
}

// openDatabase returns the truckbook option for cfg and a func closing the
// handle it opened.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (truckbook.Option, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).Wrap(err)
		}
		return truckbook.WithPostgresPool(pool, cfg.DSN), pool.Close, nil
	default:
		db, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).Wrap(err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).Wrap(err)
		}
		return truckbook.WithSqliteDB(db), func() { db.Close() }, nil
	}
}

func stopWithTimeout(logger *slog.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Error("graceful shutdown failed", "server", name, "err", err)
	}
}
