package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/config"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/store"
)

// openSink builds the destination sink for the configured or
// flag-selected destination.
func openSink(ctx context.Context, cfg *config.Config, destination string) (store.Sink, error) {
	if destination == "" {
		destination = cfg.Store.Destination
	}
	switch destination {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url required for postgres destination")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown destination %q (want sqlite or postgres)", destination)
	}
}
