package cmd

import (
	"context"
	"fmt"

	"github.com/localrag/ragmcp/internal/chunk"
	"github.com/localrag/ragmcp/internal/config"
	"github.com/localrag/ragmcp/internal/embed"
	"github.com/localrag/ragmcp/internal/rag"
	"github.com/localrag/ragmcp/internal/store"
	"github.com/localrag/ragmcp/pkg/searcher"
)

// app bundles the long-lived components every subcommand needs: the
// composed handlers behind the store/embedder/chunker/parser they drive,
// and the loaded configuration.
type app struct {
	cfg      config.Config
	store    *store.Store
	embedder embed.Embedder
	handlers *rag.Handlers
}

// buildApp wires the four leaf components into one Handlers instance:
// config is loaded first, then the store is opened (running schema
// migration if needed), then a lazily-initialized embedder is wrapped
// around whichever provider the environment selects, and finally the
// chunker/parser/store/embedder are composed into rag.Handlers.
func buildApp(cfg config.Config) (*app, error) {
	st, err := store.Open(store.StoreConfig{
		Dir:          cfg.DBDir,
		Dimensions:   embed.StaticDimensions384,
		HybridWeight: cfg.HybridWeight,
		MaxDistance:  cfg.MaxDistance,
		Grouping:     searcher.GroupingMode(cfg.Grouping),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	embedder := embed.NewLazyEmbedder(cfg.ModelCacheDir, func(ctx context.Context) (embed.Embedder, error) {
		return embed.NewEmbedder(ctx, embed.ProviderOllama, cfg.ModelID)
	})

	chunker := chunk.NewRecursiveSplitterWithOptions(chunk.SplitterOptions{
		TargetChars:  cfg.ChunkSize,
		OverlapChars: cfg.ChunkOverlap,
		MinChars:     chunk.MinChunkChars,
	})
	parser := chunk.NewFileParser(cfg.RootDir)

	handlers := rag.NewHandlers(st, embedder, chunker, parser)

	return &app{cfg: cfg, store: st, embedder: embedder, handlers: handlers}, nil
}

// Close releases the store. The embedder's lazy backend, if ever built,
// is closed alongside it.
func (a *app) Close() error {
	var errs []error
	if err := a.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing app: %v", errs)
	}
	return nil
}

// loadConfig loads effective configuration from defaults, user and
// project YAML files, and environment overrides.
func loadConfig() (config.Config, error) {
	return config.Load()
}
