package app

import (
	"context"
	"fmt"

	"github.com/content-dashboard/internal/cache"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/metrics"
	"github.com/content-dashboard/internal/service"
	"github.com/rs/zerolog"
)

// Application wires configuration to the content client, the query cache
// and the services. The server and the CLI share it.
type Application struct {
	Config   *config.Config
	Client   *client.Client
	Cache    *cache.QueryCache
	Metrics  *metrics.Metrics
	Services *service.Services
	Log      zerolog.Logger
}

// New builds the application from a validated configuration
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	m := metrics.New("content_dashboard")

	contentClient, err := client.New(&cfg.ContentAPI, log)
	if err != nil {
		return nil, err
	}

	store := cache.Open(ctx, &cfg.Cache, log)
	queryCache := cache.NewQueryCache(store, log,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithMetrics(m),
	)

	services, err := service.NewServices(service.Dependencies{
		Store:   contentClient,
		Cache:   queryCache,
		Metrics: m,
		Config:  cfg,
		Log:     log,
	})
	if err != nil {
		queryCache.Close()
		return nil, fmt.Errorf("failed to create services: %w", err)
	}

	return &Application{
		Config:   cfg,
		Client:   contentClient,
		Cache:    queryCache,
		Metrics:  m,
		Services: services,
		Log:      log,
	}, nil
}

// Close stops background work and releases the cache and staged files
func (a *Application) Close() error {
	err := a.Services.Close()
	if cerr := a.Cache.Close(); err == nil {
		err = cerr
	}
	return err
}
