package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fenwick-labs/corpusengine/internal/config"
	"github.com/fenwick-labs/corpusengine/internal/embedder"
	"github.com/fenwick-labs/corpusengine/internal/ingest"
	"github.com/fenwick-labs/corpusengine/internal/loader"
	"github.com/fenwick-labs/corpusengine/internal/query"
	"github.com/fenwick-labs/corpusengine/internal/store"
)

// app bundles the components every command needs, built the way the
// teacher's runIndex/runMCP wire up storage, embedding provider, and
// domain components before doing any real work.
type app struct {
	cfg         *config.Config
	store       *store.Store
	embedder    embedder.Embedder
	planner     *query.Planner
	coordinator *ingest.Coordinator
}

func newApp(ctx context.Context) (*app, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, fmt.Errorf("cli: resolve project root: %w", err)
	}
	cfg, err := config.LoadFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("cli: load configuration: %w", err)
	}

	storePath := cfg.Store.Path
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(root, storePath)
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("cli: create store directory: %w", err)
	}

	s, err := store.Open(ctx, storePath, store.Options{
		Dimension:    cfg.Embedding.Dimension,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		BusyTimeout:  cfg.Store.BusyTimeout,
		NodeID:       cfg.Store.NodeID,
	})
	if err != nil {
		return nil, fmt.Errorf("cli: open store: %w", err)
	}

	var emb embedder.Embedder = embedder.NewMock(cfg.Embedding.Dimension, cfg.Embedding.MaxTokens)
	if cfg.Embedding.CacheSize > 0 {
		cached, err := embedder.NewCaching(emb, cfg.Embedding.CacheSize)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("cli: wrap embedder with cache: %w", err)
		}
		emb = cached
	}

	ld, err := loader.New(cfg.Loader.AllowPatterns)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("cli: build loader: %w", err)
	}

	return &app{
		cfg:         cfg,
		store:       s,
		embedder:    emb,
		planner:     query.New(s, emb),
		coordinator: ingest.New(ld, emb, s),
	}, nil
}

func (a *app) Close() error {
	if c, ok := a.embedder.(*embedder.Caching); ok {
		c.Close()
	}
	return a.store.Close()
}
