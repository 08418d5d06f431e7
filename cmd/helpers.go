package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voyago/curator-cli/internal/enrich"
	"github.com/voyago/curator-cli/internal/graph"
	"github.com/voyago/curator-cli/internal/store"
	anthropicpkg "github.com/voyago/curator-cli/pkg/anthropic"
	"github.com/voyago/curator-cli/pkg/tavily"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "curator.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initGraph(ctx context.Context) (graph.Querier, error) {
	return graph.NewQuerier(ctx, graph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	})
}

func initEnrichService(st store.Store) (*enrich.Service, error) {
	if cfg.Tavily.Key == "" {
		return nil, eris.New("tavily API key is required (CURATOR_TAVILY_KEY)")
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (CURATOR_ANTHROPIC_KEY)")
	}

	searchClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	return enrich.NewService(st, searchClient, aiClient, cfg.Anthropic.Model, zap.L().Named("enrich")), nil
}

func enrichOptions(batchSize int, destination string) enrich.Options {
	if batchSize <= 0 {
		batchSize = cfg.Enrich.BatchSize
	}
	return enrich.Options{
		BatchSize:         batchSize,
		MaxResults:        cfg.Tavily.MaxResults,
		SearchDepth:       cfg.Tavily.SearchDepth,
		DestinationFilter: destination,
		RefreshDays:       cfg.Enrich.RefreshDays,
		Budget:            time.Duration(cfg.Enrich.BudgetMinutes) * time.Minute,
	}
}
