package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storesync/core/config"
	"storesync/core/logger"
	"storesync/core/metrics"
	"storesync/core/record"
	"storesync/core/replication"
	"storesync/core/storage"
	"storesync/core/store"
	"storesync/feature/memory"
	"storesync/feature/objectstore"
	"storesync/feature/sqlstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Store kinds accepted in sync.stores[].kind.
const (
	KindMemory = "memory"
	KindSQL    = "sql"
	KindObject = "object"
)

// runtime is the engine assembled from configuration.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	schema   *record.Schema
	registry *replication.Registry
	gatherer *prometheus.Registry
}

// loadRuntime loads configuration from path and builds the runtime.
func loadRuntime(ctx context.Context, path string) (*runtime, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return newRuntime(ctx, cfg, logg)
}

// newRuntime builds the schema, the stores and the replication registry
// declared by cfg. Stores are not connected.
func newRuntime(ctx context.Context, cfg *config.Config, logg *zap.Logger) (*runtime, error) {
	if len(cfg.Sync.Stores) == 0 {
		return nil, errors.New("no stores configured (sync.stores)")
	}

	schema, err := record.BuildSchema(cfg.Sync.Types)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}

	builder := store.NewBuilder(schema)
	builder.Register(KindMemory, memory.Factory(logg))
	builder.Register(KindSQL, sqlstore.Factory(cfg.Database, logg))
	builder.Register(KindObject, objectFactory(cfg.Storage, logg))

	stores, err := builder.BuildAll(ctx, cfg.Sync.Stores)
	if err != nil {
		return nil, err
	}

	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := replication.NewRegistry(logg, metrics.New(gatherer), stores...)
	registry.SetCount(cfg.Sync.Count)

	return &runtime{
		cfg:      cfg,
		logger:   logg,
		schema:   schema,
		registry: registry,
		gatherer: gatherer,
	}, nil
}

// objectFactory creates the storage client on first use, so configurations
// without object stores need no storage endpoint.
func objectFactory(cfg storage.Config, logg *zap.Logger) store.Factory {
	client := sync.OnceValues(func() (storage.Client, error) {
		return storage.NewClient(cfg)
	})
	return func(ctx context.Context, spec store.Spec, types []*record.Type) (*store.Store, error) {
		c, err := client()
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		return objectstore.Factory(c, cfg, logg)(ctx, spec, types)
	}
}

// syncOptions resolves type and store names against the runtime.
func (rt *runtime) syncOptions(types, sources, targets []string, count int) (replication.SyncOptions, error) {
	opts := replication.SyncOptions{Count: count}

	var err error
	if opts.Sources, err = rt.registry.Lookup(sources...); err != nil {
		return opts, err
	}
	if opts.Targets, err = rt.registry.Lookup(targets...); err != nil {
		return opts, err
	}
	if opts.Types, err = rt.schema.Lookup(types...); err != nil {
		return opts, err
	}
	return opts, nil
}

// interval returns the configured periodic synchronization delay.
func (rt *runtime) interval() time.Duration {
	return time.Duration(rt.cfg.Sync.IntervalSeconds) * time.Second
}

// close disconnects every store and flushes the logger.
func (rt *runtime) close(ctx context.Context) {
	if err := rt.registry.Disconnect(ctx); err != nil {
		rt.logger.Warn("Failed to disconnect stores", zap.Error(err))
	}
	_ = rt.logger.Sync()
}
