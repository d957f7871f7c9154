package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/bundlekeeper/internal/config"
	httpserver "github.com/dropDatabas3/bundlekeeper/internal/http"
	"github.com/dropDatabas3/bundlekeeper/internal/metrics"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
	"github.com/dropDatabas3/bundlekeeper/internal/util"
)

func main() {
	// .env opcional; el entorno del sistema manda igual
	envErr := godotenv.Load()

	cfgPath := flag.String("config", envOr("CONFIG_PATH", "configs/bundled.yaml"), "ruta del config YAML")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Node.ID == "" {
		cfg.Node.ID = uuid.NewString()
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "bundled",
		NodeID:      cfg.Node.ID,
	})
	defer logger.Sync()
	log := logger.L()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("cannot load .env", logger.Err(envErr))
	}

	if err := run(cfg, *cfgPath); err != nil {
		log.Error("bundled stopped with error", logger.Err(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, cfgPath string) error {
	log := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.dispatcher.Close(); err != nil {
			log.Warn("replication close", logger.Err(err))
		}
	}()

	srv := httpserver.NewServer(cfg.Server.Addr, a.handler)
	errc, err := srv.Start()
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	log.Info("bundled ready",
		logger.String("addr", cfg.Server.Addr),
		logger.String("replication", cfg.Replication.Mode),
		logger.String("current_dir", cfg.Bundle.CurrentDir),
		logger.String("admin_api_key", util.MaskSecret(cfg.Admin.APIKey)),
	)

	go a.orchestrator.RunPeriodic(ctx, cfg.Bundle.CheckInterval)
	go watchLogLevel(ctx, cfgPath)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errc:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchLogLevel relee el nivel de log del config en cada SIGHUP.
func watchLogLevel(ctx context.Context, cfgPath string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.L().Warn("config reload failed, keeping log level", logger.Err(err))
				continue
			}
			logger.SetLevel(cfg.App.LogLevel)
			logger.L().Info("log level reloaded", logger.String("level", cfg.App.LogLevel))
		}
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
