package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/core/dispatch"
	"github.com/docgate/docgate/internal/core/engine"
	"github.com/docgate/docgate/internal/core/registry"
	"github.com/docgate/docgate/internal/core/store"
	"github.com/docgate/docgate/internal/observability"
)

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if cfg == nil {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// gateway is the process-wide submission stack: one limiter shared by every
// caller, the registry transport, and the dispatcher around them.
type gateway struct {
	limiter    *engine.RateLimiter
	dispatcher *dispatch.Dispatcher
	journal    *store.Store
}

func newGateway(ctx context.Context, cfg *config.Config) (*gateway, error) {
	limiter, err := engine.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.Limit)
	if err != nil {
		return nil, err
	}

	transport := &registry.HTTPTransport{
		Client:           &http.Client{Timeout: cfg.Registry.Timeout},
		BaseURL:          cfg.Registry.BaseURL,
		UserAgent:        cfg.Registry.UserAgent,
		MaxResponseBytes: cfg.Registry.MaxResponseBytes,
	}

	g := &gateway{
		limiter: limiter,
		dispatcher: &dispatch.Dispatcher{
			Submitter: &registry.Submitter{
				Limiter:   limiter,
				Transport: transport,
				Endpoint:  cfg.Registry.CreatePath,
			},
			Logger: observability.Logger(),
		},
	}

	if cfg.Journal.Enabled {
		db, err := openStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open attempt journal: %w", err)
		}
		g.journal = db
		g.dispatcher.Journal = db
	}

	return g, nil
}

func (g *gateway) Close() error {
	if g == nil || g.journal == nil {
		return nil
	}
	return g.journal.Close()
}
