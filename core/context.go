package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/locatehq/locate/core/debugserver"
	"github.com/locatehq/locate/embed"
	"github.com/locatehq/locate/embed/cache"
	"github.com/locatehq/locate/promote"
	"github.com/locatehq/locate/rank"
	"github.com/locatehq/locate/session"
)

// CoreContext is the process-wide handle spec.md §9 calls for: the
// shared embedding cache, promotion store, ranker weights, and
// environment knobs, created once per process. Model weights (the
// embedder) and the embedding cache get lazy double-checked init on the
// first Embedder call, mirroring the teacher's package-level Default
// generator pattern; the ranker, promotion store and session manager are
// built eagerly in New since they're cheap.
type CoreContext struct {
	Config   Config
	Cache    *cache.Cache
	Promote  *promote.Store
	Sessions *session.Manager
	Ranker   *rank.Ranker
	Logger   *slog.Logger

	embedOnce sync.Once
	embedder  embed.Embedder
	embedErr  error
}

// New builds a CoreContext from cfg, opening the promotion store eagerly
// (a cheap local open) but deferring embedder and cache construction
// until the first Embedder call.
func New(cfg Config, vocab *rank.Vocabulary, logger *slog.Logger) (*CoreContext, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	ranker, err := rank.New(rank.Config{Alpha: cfg.Alpha, Beta: cfg.Beta, Gamma: cfg.Gamma}, vocab)
	if err != nil {
		return nil, fmt.Errorf("core: ranker config: %w", err)
	}

	store, err := promote.Open(promote.Config{
		Path:   filepath.Join(cfg.CacheDir, "promotions.db"),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("core: open promotion store: %w", err)
	}

	cc := &CoreContext{
		Config:   cfg,
		Promote:  store,
		Sessions: session.New(session.Config{SnapKeep: cfg.SnapKeep, Logger: logger}),
		Ranker:   ranker,
		Logger:   logger,
	}
	return cc, nil
}

// Embedder returns the process's embedder, constructing it on first call.
// Construction is lazy because it may dial an external model server;
// every CoreContext method that needs embeddings goes through this
// accessor rather than touching a field directly.
func (cc *CoreContext) Embedder() (embed.Embedder, error) {
	cc.embedOnce.Do(func() {
		cc.embedder = embed.New(embed.Config{Logger: cc.Logger})
		cc.Cache, cc.embedErr = cache.Open(cache.Config{
			Embedder: cc.embedder,
			MemCap:   cc.Config.MemCap,
			DiskCap:  cc.Config.DiskCap,
			DiskPath: filepath.Join(cc.Config.CacheDir, "vectors.db"),
			Logger:   cc.Logger,
			Workers:  cc.Config.EmbedWorkers,
		})
	})
	return cc.embedder, cc.embedErr
}

// DebugDeps builds the debugserver.Deps this CoreContext backs, wiring
// cache and promotion-store introspection without exposing either
// directly.
func (cc *CoreContext) DebugDeps() debugserver.Deps {
	return debugserver.Deps{
		CacheStats: func() debugserver.CacheStats {
			if cc.Cache == nil {
				return debugserver.CacheStats{}
			}
			return cc.Cache.Stats()
		},
		PromotionStats: func(ctx context.Context) (debugserver.PromotionStats, error) {
			n, err := cc.Promote.CountEntries(ctx)
			if err != nil {
				return debugserver.PromotionStats{}, err
			}
			return debugserver.PromotionStats{TotalEntries: n}, nil
		},
		SessionStats: func() []debugserver.SessionStats {
			return cc.Sessions.Stats()
		},
	}
}

// Close releases the promotion store, vector cache, and any other
// process-wide resources.
func (cc *CoreContext) Close() error {
	if cc.Cache != nil {
		if err := cc.Cache.Close(); err != nil {
			return err
		}
	}
	return cc.Promote.Close()
}
