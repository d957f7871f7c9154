package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/apply"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/config"
	"github.com/dropDatabas3/bundlekeeper/internal/http/controllers/health"
	"github.com/dropDatabas3/bundlekeeper/internal/http/router"
	"github.com/dropDatabas3/bundlekeeper/internal/lifecycle"
	"github.com/dropDatabas3/bundlekeeper/internal/replication"
	"github.com/dropDatabas3/bundlekeeper/internal/source"
	"github.com/dropDatabas3/bundlekeeper/internal/status"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

// app agrupa los componentes armados a partir de la config.
type app struct {
	orchestrator *lifecycle.Orchestrator
	dispatcher   *replication.Dispatcher
	handler      http.Handler
}

func newTransport(cfg *config.Config, nodeID string, log *zap.Logger) (replication.Transport, http.Handler, error) {
	rc := cfg.Replication
	switch rc.Mode {
	case config.ReplicationRedis:
		t, err := replication.NewRedis(replication.RedisConfig{
			Addr:     rc.Redis.Addr,
			Password: rc.Redis.Password,
			DB:       rc.Redis.DB,
			Channel:  rc.Channel,
		}, log.Named("replication.redis"))
		if err != nil {
			return nil, nil, err
		}
		return t, nil, nil
	case config.ReplicationHTTP:
		t, err := replication.NewHTTP(replication.HTTPConfig{
			NodeID:  nodeID,
			Peers:   rc.HTTP.Peers,
			Secret:  []byte(rc.HTTP.Secret),
			Timeout: rc.HTTP.Timeout,
		}, nil, log.Named("replication.http"))
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil
	default:
		// memory: una sola réplica por proceso
		return replication.NewBus(cfg.Replication.QueueSize).Endpoint(), nil, nil
	}
}

func newApplier(cfg *config.Config, log *zap.Logger) lifecycle.ApplyMechanism {
	if len(cfg.Apply.ReloadCommand) == 0 && len(cfg.Apply.RestartCommand) == 0 {
		log.Warn("no apply commands configured, reloads and restarts are only logged")
		return apply.Noop{Log: log.Named("apply")}
	}
	return apply.NewCommand(apply.CommandConfig{
		ReloadCommand:  cfg.Apply.ReloadCommand,
		RestartCommand: cfg.Apply.RestartCommand,
		Timeout:        cfg.Apply.Timeout,
	}, log.Named("apply"))
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	nodeID := cfg.Node.ID

	tr, trHandler, err := newTransport(cfg, nodeID, log)
	if err != nil {
		return nil, fmt.Errorf("replication transport: %w", err)
	}

	cache := compare.NewCache(0)
	state := status.New(cache, log.Named("status"))

	reg := replication.NewRegistry()
	status.RegisterHandlers(reg, state)
	disp := replication.NewDispatcher(tr, reg, replication.Options{
		NodeID:    nodeID,
		QueueSize: cfg.Replication.QueueSize,
		Logger:    log.Named("replication"),
	})
	if err := disp.Start(ctx); err != nil {
		_ = disp.Close()
		return nil, fmt.Errorf("replication start: %w", err)
	}

	store, err := updatelog.Open(cfg.Bundle.UpdateLogDir, cfg.Bundle.Retention, log.Named("updatelog"))
	if err != nil {
		_ = disp.Close()
		return nil, err
	}
	src := source.NewFS(cfg.Bundle.CurrentDir, cfg.Bundle.IncomingDir, log.Named("source"))
	pipeline := validation.DefaultPipeline(log.Named("validation"))

	orch, err := lifecycle.New(lifecycle.Deps{
		Source:   src,
		Pipeline: pipeline,
		Apply:    newApplier(cfg, log),
		Log:      store,
		State:    state,
		Mutator:  status.NewReplicated(state, disp, log.Named("status")),
		Cache:    cache,
		Logger:   log.Named("lifecycle"),
	}, lifecycle.Timing{
		AutomaticReload:  cfg.Timing.AutomaticReload,
		AutomaticRestart: cfg.Timing.AutomaticRestart,
		SkipNewVersions:  cfg.Timing.SkipNewVersions,
		RejectWarnings:   cfg.Timing.RejectWarnings,
		CanSkip:          cfg.CanSkip(),
	})
	if err != nil {
		_ = disp.Close()
		return nil, err
	}

	h := router.New(router.Deps{
		NodeID:      nodeID,
		Bundle:      orch,
		Validator:   pipeline,
		Replication: trHandler,
		ReadyChecks: map[string]health.Check{
			"current-bundle": func() error {
				_, err := src.LoadCurrent(context.Background())
				return err
			},
		},
		APIKey: cfg.Admin.APIKey,
		Logger: log.Named("http"),
	})

	return &app{orchestrator: orch, dispatcher: disp, handler: h}, nil
}
