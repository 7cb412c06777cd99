// Package store is the persistence layer: a chunk-row table (SQLite),
// a lexical BM25-via-FTS5 index, and a dense HNSW vector index, composed
// by Store into the hybrid retrieval engine.
package store

import (
	"context"
	"fmt"
)

// Document represents a text document to be indexed in the lexical index.
type Document struct {
	ID      string // Chunk row ID
	Content string // Text content
}

// BM25Result represents a single lexical search result.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about the lexical index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index provides keyword search scored by BM25 over indexed documents.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Delete(ctx context.Context, docIDs []string) error
	AllIDs() ([]string, error)
	Stats() *IndexStats
	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config configures the lexical index.
type BM25Config struct {
	K1             float64
	B              float64
	StopWords      []string
	MinTokenLength int
}

// DefaultBM25Config returns default lexical-index configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      nil,
		MinTokenLength: 2,
	}
}

// VectorResult represents a single dense-search result.
type VectorResult struct {
	ID       string  // Chunk row ID
	Distance float32 // Lower is more similar (0-2 for cosine/dot-product)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the dense vector index.
type VectorStoreConfig struct {
	// Dimensions is the fixed vector dimension; Store.Open uses 384 when
	// StoreConfig.Dimensions is 0.
	Dimensions int

	Metric         string // "cos" (dot-product distance)
	M              int    // HNSW max connections per layer
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns sensible defaults for the given dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides dense nearest-neighbor search.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs() []string
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates an embedding's dimension doesn't match the
// store's fixed configured dimension. This
// is refused rather than silently re-embedded.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// CurrentSchemaVersion identifies the chunk-row schema this Store writes;
// no code stores or reads it. A table missing any of rowSchemaColumns is
// migrated on open; see RowTable.migrate in rows.go.
const CurrentSchemaVersion = 2
