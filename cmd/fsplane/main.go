package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsplane/internal/domain/backup"
	"github.com/GriffinCanCode/fsplane/internal/domain/controlplane"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/config"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsplane/internal/infrastructure/server"
	"github.com/GriffinCanCode/fsplane/internal/providers/ledger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML or TOML config file")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	if err := run(*configPath, *dev); err != nil {
		fmt.Fprintf(os.Stderr, "fsplane: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, dev bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.FromConfig(cfg.Logging, dev))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	sink, sinkCloser, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	store, err := backup.OpenBadgerStore(cfg.Backup.Dir, cfg.Backup.Compress)
	if err != nil {
		_ = sinkCloser.Close()
		return fmt.Errorf("backup store: %w", err)
	}

	closers := []io.Closer{store, sinkCloser}
	plane, err := controlplane.New(controlplane.Options{
		Config:  cfg,
		Logger:  log.Component("controlplane"),
		Metrics: metrics,
		Ledger:  sink,
		Store:   store,
		Closers: closers,
	})
	if err != nil {
		return errors.Join(err, closeAll(closers))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := start(ctx, plane, closers); err != nil {
		return err
	}

	var srv *server.Server
	errCh := make(chan error, 1)
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server, plane, metrics, log.Component("admin"))
		go func() {
			log.Info("Admin listener starting", zap.String("addr", cfg.Server.Addr))
			errCh <- srv.Run()
		}()
	}

	watched, _ := plane.WatchedRoots()
	log.Info("Control plane ready",
		zap.Strings("watched", watched),
		zap.String("ledger", cfg.Ledger.Sink),
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error("Admin listener failed", zap.Error(runErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Admin listener shutdown", zap.Error(err))
		}
	}
	if err := plane.Shutdown(shutdownCtx); err != nil {
		log.Error("Control plane shutdown", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

type initializer interface {
	Initialize(ctx context.Context) error
}

// start initializes the plane. A plane that never became ready does not
// own its closers yet, so they are closed here instead of by Shutdown.
func start(ctx context.Context, plane initializer, closers []io.Closer) error {
	if err := plane.Initialize(ctx); err != nil {
		return errors.Join(fmt.Errorf("initialize: %w", err), closeAll(closers))
	}
	return nil
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
