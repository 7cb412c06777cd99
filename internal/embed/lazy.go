package embed

import (
	"context"
	"sync"

	ragerrors "github.com/localrag/ragmcp/internal/errors"
)

// LazyEmbedder defers building the underlying Embedder until first use,
// so the MCP server can start and answer "status" before any model is
// downloaded or any Ollama connection is attempted.
//
// Initialization is single-flight: concurrent callers block on the same
// attempt rather than racing to build duplicate embedders. A failed attempt
// does not latch permanently: the next call retries, but a circuit
// breaker fails fast once initialization has failed repeatedly, rather than
// hanging every caller on the same doomed dial/download.
type LazyEmbedder struct {
	modelCacheDir string
	build         func(ctx context.Context) (Embedder, error)
	breaker       *ragerrors.CircuitBreaker

	mu    sync.Mutex
	inFlight chan struct{}
	built Embedder
	err   error
}

// NewLazyEmbedder wraps build in single-flight, circuit-broken lazy init.
// modelCacheDir is named in EmbeddingError messages and suggestions.
func NewLazyEmbedder(modelCacheDir string, build func(ctx context.Context) (Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{
		modelCacheDir: modelCacheDir,
		build:         build,
		breaker: ragerrors.NewCircuitBreaker("embedder-init",
			ragerrors.WithMaxFailures(3),
		),
	}
}

// current returns the built embedder if initialization has already
// succeeded, or nil otherwise. Used by GetInfo to unwrap the decorator
// without forcing initialization.
func (l *LazyEmbedder) current() Embedder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.built
}

// ensure performs single-flight initialization: the first caller builds,
// concurrent callers wait on the same attempt, and a failed attempt is
// retried (not latched) by the next caller unless the breaker is open.
func (l *LazyEmbedder) ensure(ctx context.Context) (Embedder, error) {
	l.mu.Lock()
	if l.built != nil {
		b := l.built
		l.mu.Unlock()
		return b, nil
	}
	if l.inFlight != nil {
		ch := l.inFlight
		l.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return l.ensure(ctx)
	}

	if !l.breaker.Allow() {
		l.mu.Unlock()
		return nil, l.initError(ragerrors.ErrCircuitOpen)
	}

	ch := make(chan struct{})
	l.inFlight = ch
	l.mu.Unlock()

	embedder, err := l.build(ctx)

	l.mu.Lock()
	l.inFlight = nil
	if err != nil {
		l.breaker.RecordFailure()
		l.mu.Unlock()
		close(ch)
		return nil, l.initError(err)
	}
	l.breaker.RecordSuccess()
	l.built = embedder
	l.mu.Unlock()
	close(ch)
	return embedder, nil
}

// initError wraps a build failure into an EmbeddingError: it names the
// model cache directory and enumerates the likely causes plus recommended
// actions.
func (l *LazyEmbedder) initError(cause error) *ragerrors.RAGError {
	e := ragerrors.NewEmbeddingError(ragerrors.ErrCodeEmbeddingInit,
		"embedder initialization failed", cause)
	e.WithDetail("model_cache_dir", l.modelCacheDir)
	return e.WithSuggestion(
		"check network connectivity to the embedding backend, verify free disk space in " +
			l.modelCacheDir + ", or delete that directory if the cache may be corrupted, then retry")
}

func (l *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := l.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, text)
}

func (l *LazyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return e.EmbedBatch(ctx, texts)
}

// Dimensions returns the fixed embedding dimension without forcing init.
func (l *LazyEmbedder) Dimensions() int {
	if e := l.current(); e != nil {
		return e.Dimensions()
	}
	return StaticDimensions384
}

// ModelName returns the configured model name without forcing init.
func (l *LazyEmbedder) ModelName() string {
	if e := l.current(); e != nil {
		return e.ModelName()
	}
	return "uninitialized"
}

// Available reports whether the embedder is already built and ready. It
// never forces initialization, since "status" calls this on the hot path.
func (l *LazyEmbedder) Available(ctx context.Context) bool {
	e := l.current()
	if e == nil {
		return false
	}
	return e.Available(ctx)
}

func (l *LazyEmbedder) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.built == nil {
		return nil
	}
	return l.built.Close()
}
