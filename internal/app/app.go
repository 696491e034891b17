// Package app initializes and holds the long-lived backend providers,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	artifactgcs "github.com/JakeFAU/site-cloner/internal/artifact/gcs"
	artifactlocal "github.com/JakeFAU/site-cloner/internal/artifact/local"
	artifactmemory "github.com/JakeFAU/site-cloner/internal/artifact/memory"
	"github.com/JakeFAU/site-cloner/internal/clone"
	"github.com/JakeFAU/site-cloner/internal/config"
	publishermemory "github.com/JakeFAU/site-cloner/internal/publisher/memory"
	publisherpubsub "github.com/JakeFAU/site-cloner/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/site-cloner/internal/queue/memory"
	queueredis "github.com/JakeFAU/site-cloner/internal/queue/redis"
	storememory "github.com/JakeFAU/site-cloner/internal/store/memory"
	storepostgres "github.com/JakeFAU/site-cloner/internal/store/postgres"
	storeredis "github.com/JakeFAU/site-cloner/internal/store/redis"
)

// App holds the provider-backed services shared across the API server and
// the worker pool. It is built once at startup from the loaded config and
// closed on shutdown.
type App struct {
	logger    *zap.Logger
	jobStore  clone.JobStore
	queue     clone.Queue
	artifacts clone.ArtifactStore
	publisher clone.Publisher

	closers []func() error
}

// JobStore returns the configured job store backend.
func (a *App) JobStore() clone.JobStore {
	return a.jobStore
}

// Queue returns the configured task queue.
func (a *App) Queue() clone.Queue {
	return a.queue
}

// Artifacts returns the configured artifact store.
func (a *App) Artifacts() clone.ArtifactStore {
	return a.artifacts
}

// Publisher returns the configured terminal-event publisher.
func (a *App) Publisher() clone.Publisher {
	return a.publisher
}

// New instantiates every provider named in the config. It fails fast: any
// backend that cannot be reached at startup aborts initialization, and
// providers built before the failure are closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}

	if err := a.initJobStore(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initQueue(cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initArtifacts(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Provider),
		zap.String("queue", cfg.Queue.Provider),
		zap.String("artifacts", cfg.Artifacts.Provider),
		zap.String("publisher", cfg.Publisher.Provider),
	)
	return a, nil
}

func (a *App) initJobStore(ctx context.Context, cfg config.Config) error {
	switch cfg.Store.Provider {
	case "memory":
		a.jobStore = storememory.NewJobStore()
	case "redis":
		store := storeredis.NewJobStore(storeredis.Config{
			Addr: cfg.Store.Redis.Addr,
			DB:   cfg.Store.Redis.DB,
			TTL:  time.Duration(cfg.Store.Redis.TTLHours) * time.Hour,
		})
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("redis job store unreachable: %w", err)
		}
		a.jobStore = store
		a.closers = append(a.closers, store.Close)
	case "postgres":
		store, err := storepostgres.NewJobStore(ctx, storepostgres.Config{
			DSN:      cfg.Store.Postgres.DSN,
			Table:    cfg.Store.Postgres.Table,
			MaxConns: cfg.Store.Postgres.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("initialize postgres job store: %w", err)
		}
		a.jobStore = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
	default:
		return fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
	return nil
}

func (a *App) initQueue(cfg config.Config) error {
	switch cfg.Queue.Provider {
	case "memory":
		q := queuememory.NewQueue(cfg.Queue.Depth)
		a.queue = q
		a.closers = append(a.closers, func() error {
			q.Close()
			return nil
		})
	case "redis":
		q, err := queueredis.NewQueue(queueredis.Config{
			Addr: cfg.Queue.Redis.Addr,
			DB:   cfg.Queue.Redis.DB,
			Key:  cfg.Queue.Redis.Key,
		})
		if err != nil {
			return fmt.Errorf("initialize redis queue: %w", err)
		}
		a.queue = q
		a.closers = append(a.closers, q.Close)
	default:
		return fmt.Errorf("unknown queue provider %q", cfg.Queue.Provider)
	}
	return nil
}

func (a *App) initArtifacts(ctx context.Context, cfg config.Config) error {
	switch cfg.Artifacts.Provider {
	case "memory":
		a.artifacts = artifactmemory.NewStore()
	case "local":
		store, err := artifactlocal.New(artifactlocal.Config{BaseDir: cfg.Artifacts.BaseDir})
		if err != nil {
			return fmt.Errorf("initialize local artifact store: %w", err)
		}
		a.artifacts = store
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create GCS client: %w", err)
		}
		store, err := artifactgcs.New(client, artifactgcs.Config{Bucket: cfg.Artifacts.Bucket})
		if err != nil {
			client.Close()
			return fmt.Errorf("initialize GCS artifact store: %w", err)
		}
		a.artifacts = store
		a.closers = append(a.closers, client.Close)
	default:
		return fmt.Errorf("unknown artifacts provider %q", cfg.Artifacts.Provider)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context, cfg config.Config) error {
	switch cfg.Publisher.Provider {
	case "memory":
		a.publisher = publishermemory.NewPublisher()
	case "pubsub":
		pub, err := publisherpubsub.New(ctx, publisherpubsub.Config{
			ProjectID: cfg.Publisher.ProjectID,
			Topic:     cfg.Publisher.Topic,
		})
		if err != nil {
			return fmt.Errorf("initialize pubsub publisher: %w", err)
		}
		a.publisher = pub
		a.closers = append(a.closers, pub.Close)
	default:
		return fmt.Errorf("unknown publisher provider %q", cfg.Publisher.Provider)
	}
	return nil
}

// Close shuts down providers in reverse initialization order. Safe to call
// on a partially initialized App.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("provider close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
