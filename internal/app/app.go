// Package app wires configuration into a running autocomplete service.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kumarlokesh/autocomplete/internal/config"
	"github.com/kumarlokesh/autocomplete/internal/normalize"
	"github.com/kumarlokesh/autocomplete/internal/service"
	"github.com/kumarlokesh/autocomplete/internal/store"
	"github.com/kumarlokesh/autocomplete/internal/trie"
)

// App owns the store and the service built on it.
type App struct {
	Store   store.Store
	Service *service.Service
}

// New opens the configured store, builds the index and loads every stored
// word into it.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	mode, err := normalize.ParseMode(cfg.Index.Normalization)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}

	idx := trie.New(trie.WithMaxWordLength(cfg.Index.MaxWordLength))
	svc, err := service.New(idx, st, service.Options{
		Normalization: mode,
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		CacheSize:     cfg.Search.CacheSize,
	}, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	if err := svc.Load(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &App{Store: st, Service: svc}, nil
}

// Compact rewrites the store to its live contents when the backend supports it.
func (a *App) Compact(ctx context.Context) error {
	c, ok := a.Store.(store.Compactor)
	if !ok {
		return fmt.Errorf("store does not support compaction")
	}
	return c.Compact(ctx)
}

// Close closes the store.
func (a *App) Close() error {
	return a.Store.Close()
}
