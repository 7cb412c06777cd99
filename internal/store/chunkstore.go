package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localrag/ragmcp/pkg/searcher"
)

// Store is the persisted chunk-row table, a lexical BM25-via-FTS5 index,
// and a dense HNSW index, composed into a single hybrid retrieval engine.
type Store struct {
	mu sync.RWMutex

	rows    *RowTable
	lexical BM25Index
	dense   VectorStore

	dir string

	ftsAvailable bool
	hybridWeight float64
	maxDistance  float64
	grouping     searcher.GroupingMode

	startedAt time.Time
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Dir is the directory the store persists its files under. Empty means
	// in-memory (tests).
	Dir string

	Dimensions   int
	HybridWeight float64
	MaxDistance  float64
	Grouping     searcher.GroupingMode
}

// Open creates or opens a Store at cfg.Dir, running schema migration and
// best-effort FTS index preparation.
func Open(cfg StoreConfig) (*Store, error) {
	var rowsPath, lexPath, densePath string
	if cfg.Dir != "" {
		rowsPath = filepath.Join(cfg.Dir, "chunks.sqlite")
		lexPath = filepath.Join(cfg.Dir, "fts.sqlite")
		densePath = filepath.Join(cfg.Dir, "vectors.hnsw")
	}

	rows, err := NewRowTable(rowsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk row table: %w", err)
	}

	ftsAvailable := true
	var lexical BM25Index
	lexicalImpl, err := NewSQLiteBM25Index(lexPath, DefaultBM25Config())
	if err != nil {
		slog.Warn("fts_index_unavailable_disabling_hybrid_mode", slog.String("error", err.Error()))
		ftsAvailable = false
	} else {
		lexical = lexicalImpl
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = 384
	}
	dense, err := NewHNSWStore(DefaultVectorStoreConfig(dims))
	if err != nil {
		rows.Close()
		if lexical != nil {
			lexical.Close()
		}
		return nil, fmt.Errorf("failed to initialize dense index: %w", err)
	}
	if densePath != "" {
		if err := dense.Load(densePath); err != nil {
			slog.Debug("dense_index_load_skipped_starting_empty", slog.String("error", err.Error()))
		}
	}

	hybridWeight := cfg.HybridWeight
	if hybridWeight == 0 {
		hybridWeight = 0.6
	}

	s := &Store{
		rows:         rows,
		lexical:      lexical,
		dense:        dense,
		dir:          cfg.Dir,
		ftsAvailable: ftsAvailable,
		hybridWeight: hybridWeight,
		maxDistance:  cfg.MaxDistance,
		grouping:     cfg.Grouping,
		startedAt:    time.Now(),
	}

	if err := s.checkConsistency(context.Background()); err != nil {
		slog.Warn("store_consistency_check_failed", slog.String("error", err.Error()))
	}

	return s, nil
}

// checkConsistency warns (but never fails) when the dense index holds
// chunk IDs that have no row in the row table, e.g. after a process
// crash mid-write; rows without a dense vector are not detected. Runs as
// a one-shot post-migration helper rather than a background
// reconciler (no background daemon exists in this system).
func (s *Store) checkConsistency(ctx context.Context) error {
	rowIDs, err := s.rows.AllIDs(ctx)
	if err != nil {
		return err
	}
	denseIDs := s.dense.AllIDs()

	rowSet := make(map[string]struct{}, len(rowIDs))
	for _, id := range rowIDs {
		rowSet[id] = struct{}{}
	}
	var orphaned int
	for _, id := range denseIDs {
		if _, ok := rowSet[id]; !ok {
			orphaned++
		}
	}
	if orphaned > 0 {
		return fmt.Errorf("%d dense vectors have no matching chunk row", orphaned)
	}
	return nil
}

// chunkID deterministically keys a row for the lexical/dense indexes.
func chunkID(r *ChunkRow) string {
	if r.ID == "" {
		return fmt.Sprintf("%s#%d", r.FilePath, r.ChunkIndex)
	}
	return r.ID
}

// Insert adds rows (each carrying its own Vector), writing the row table,
// the dense index, and requesting a lexical rebuild.
func (s *Store) Insert(ctx context.Context, rows []*ChunkRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(ctx, rows)
}

func (s *Store) rebuildLexical(ctx context.Context, rows []*ChunkRow, ids []string) {
	if !s.ftsAvailable || s.lexical == nil {
		return
	}
	docs := make([]*Document, len(rows))
	for i, r := range rows {
		docs[i] = &Document{ID: ids[i], Content: r.Text}
	}
	if err := s.lexical.Index(ctx, docs); err != nil {
		slog.Warn("fts_index_rebuild_failed", slog.String("error", err.Error()))
	}
}

func (s *Store) persistDense() {
	if s.dir == "" {
		return
	}
	path := filepath.Join(s.dir, "vectors.hnsw")
	if err := s.dense.Save(path); err != nil {
		slog.Warn("dense_index_snapshot_failed", slog.String("error", err.Error()))
	}
}

// DeleteByPath removes every row for filePath from all three sub-indexes.
// Missing rows are not an error.
func (s *Store) DeleteByPath(ctx context.Context, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByPathLocked(ctx, filePath)
}

func (s *Store) deleteByPathLocked(ctx context.Context, filePath string) error {
	existing, err := s.rows.ByPath(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to read existing rows for %s: %w", filePath, err)
	}

	if err := s.rows.DeleteByPath(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete rows for %s: %w", filePath, err)
	}

	if len(existing) > 0 {
		ids := make([]string, len(existing))
		for i, r := range existing {
			ids[i] = chunkID(r)
		}
		if err := s.dense.Delete(ctx, ids); err != nil {
			slog.Warn("dense_index_delete_failed", slog.String("error", err.Error()))
		}
		if s.ftsAvailable && s.lexical != nil {
			if err := s.lexical.Delete(ctx, ids); err != nil {
				slog.Warn("fts_index_delete_failed", slog.String("error", err.Error()))
			}
		}
	}

	s.persistDense()
	return nil
}

// Replace atomically swaps filePath's row-set for newRows, restoring the
// prior row-set (vectors included, since ChunkRow carries its own Vector)
// on insert failure. This is the transactional core of
// ingest_file/memorize_text/update_memory: snapshot, delete, insert, and
// on insert failure reinsert the snapshot, surfacing a
// composite RollbackFailure if the reinsert also fails.
func (s *Store) Replace(ctx context.Context, filePath string, newRows []*ChunkRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup, err := s.rows.ByPath(ctx, filePath)
	if err != nil {
		slog.Warn("replace_backup_snapshot_failed", slog.String("file_path", filePath), slog.String("error", err.Error()))
		backup = nil
	}

	if err := s.deleteByPathLocked(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete prior row-set for %s: %w", filePath, err)
	}

	if err := s.insertLocked(ctx, newRows); err != nil {
		if len(backup) == 0 {
			return fmt.Errorf("insert failed for %s and no backup exists to restore: %w", filePath, err)
		}
		if restoreErr := s.insertLocked(ctx, backup); restoreErr != nil {
			return &RollbackFailure{Original: err, RollbackCause: restoreErr}
		}
		return fmt.Errorf("insert failed for %s, prior version restored: %w", filePath, err)
	}

	return nil
}

func (s *Store) insertLocked(ctx context.Context, rows []*ChunkRow) error {
	if err := s.rows.Insert(ctx, rows); err != nil {
		return fmt.Errorf("failed to insert chunk rows: %w", err)
	}

	ids := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	for i, r := range rows {
		ids[i] = chunkID(r)
		vectors[i] = r.Vector
	}
	if err := s.dense.Add(ctx, ids, vectors); err != nil {
		// The row table write already committed; undo it so no partial
		// (row without a dense vector) state is left visible.
		seen := make(map[string]struct{})
		for _, r := range rows {
			if _, ok := seen[r.FilePath]; ok {
				continue
			}
			seen[r.FilePath] = struct{}{}
			_ = s.rows.DeleteByPath(ctx, r.FilePath)
		}
		return fmt.Errorf("failed to insert dense vectors: %w", err)
	}

	s.rebuildLexical(ctx, rows, ids)
	s.persistDense()
	return nil
}

// RollbackFailure is the composite error returned when a replace's insert
// fails and the subsequent rollback also fails.
type RollbackFailure struct {
	Original      error
	RollbackCause error
}

func (e *RollbackFailure) Error() string {
	return fmt.Sprintf("insert failed (%v) and rollback also failed (%v)", e.Original, e.RollbackCause)
}

func (e *RollbackFailure) Unwrap() []error {
	return []error{e.Original, e.RollbackCause}
}

// SearchFilter holds the optional filters applied during search.
type SearchFilter struct {
	QueryText string
	Limit     int
	Type      string // "all" | "file" | "memory"
	Tags      []string
	Project   string
	MinScore  float64 // distance threshold; 0 means unset (unless caller means "exact 0")
	HasMinScore bool
}

// SearchResult is one row of the pipeline's output.
type SearchResult struct {
	ID           string
	FilePath     string
	ChunkIndex   int
	Text         string
	Score        float64
	MatchedTerms []string
}

// Search runs the five-step hybrid pipeline: candidate generation
// (parallel lexical+dense over-fetch), fusion, metadata
// filtering, grouping, and truncation.
func (s *Store) Search(ctx context.Context, queryVector []float32, filter SearchFilter) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	hybrid := s.ftsAvailable && s.lexical != nil && filter.QueryText != "" && s.hybridWeight > 0

	var lexicalCandidates []*BM25Result
	var denseCandidates []*VectorResult

	if hybrid {
		overFetch := limit * 4
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := s.lexical.Search(gctx, filter.QueryText, overFetch)
			if err != nil {
				slog.Warn("lexical_candidate_generation_failed", slog.String("error", err.Error()))
				return nil
			}
			lexicalCandidates = res
			return nil
		})
		g.Go(func() error {
			res, err := s.dense.Search(gctx, queryVector, overFetch)
			if err != nil {
				return fmt.Errorf("dense candidate generation failed: %w", err)
			}
			denseCandidates = res
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		overFetch := limit * 3
		res, err := s.dense.Search(ctx, queryVector, overFetch)
		if err != nil {
			return nil, fmt.Errorf("dense candidate generation failed: %w", err)
		}
		denseCandidates = res
	}

	lexical := make([]searcher.LexicalCandidate, len(lexicalCandidates))
	for i, c := range lexicalCandidates {
		lexical[i] = searcher.LexicalCandidate{ID: c.DocID, Rank: i, MatchedTerms: c.MatchedTerms}
	}
	dense := make([]searcher.DenseCandidate, len(denseCandidates))
	for i, c := range denseCandidates {
		dense[i] = searcher.DenseCandidate{ID: c.ID, Distance: c.Distance}
	}

	fused := searcher.Fuse(lexical, dense, searcher.FusionConfig{HybridWeight: s.hybridWeight})

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	rows, err := s.rowsByChunkID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk rows for search results: %w", err)
	}

	filtered := make([]searcher.Result, 0, len(fused))
	keptRows := make(map[string]*ChunkRow, len(rows))
	for id, r := range rows {
		keptRows[id] = r
	}
	for _, f := range fused {
		row, ok := keptRows[f.ID]
		if !ok {
			continue
		}
		if !matchesType(row.FilePath, filter.Type) {
			continue
		}
		if len(filter.Tags) > 0 && !containsAllTags(row.Metadata.Tags, filter.Tags) {
			continue
		}
		if filter.Project != "" && row.Metadata.Project != filter.Project {
			continue
		}
		if filter.HasMinScore && f.Distance > filter.MinScore {
			continue
		}
		filtered = append(filtered, f)
	}

	if s.maxDistance > 0 {
		filtered = searcher.FilterByDistance(filtered, s.maxDistance)
	}
	filtered = searcher.Group(filtered, s.grouping)
	filtered = searcher.Truncate(filtered, limit)

	out := make([]SearchResult, 0, len(filtered))
	for _, f := range filtered {
		row := keptRows[f.ID]
		out = append(out, SearchResult{
			ID:           f.ID,
			FilePath:     row.FilePath,
			ChunkIndex:   row.ChunkIndex,
			Text:         row.Text,
			Score:        f.Score,
			MatchedTerms: f.MatchedTerms,
		})
	}
	return out, nil
}

func (s *Store) rowsByChunkID(ctx context.Context, ids []string) (map[string]*ChunkRow, error) {
	rows, err := s.rows.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*ChunkRow, len(rows))
	for _, r := range rows {
		out[chunkID(r)] = r
	}
	return out, nil
}

// ListFiles groups chunk rows by filePath.
func (s *Store) ListFiles(ctx context.Context, filter ListFilter) ([]FileGroupedStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.ListFiles(ctx, filter)
}

// ByLabel returns all rows for memory://label, sorted by chunk index.
func (s *Store) ByLabel(ctx context.Context, label string) ([]*ChunkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.ByPath(ctx, "memory://"+label)
}

// ByPath returns all rows for filePath, sorted by chunk index.
func (s *Store) ByPath(ctx context.Context, filePath string) ([]*ChunkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.ByPath(ctx, filePath)
}

// CleanupExpired deletes every source whose expiresAt has passed, returning
// the count of distinct sources deleted.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := s.rows.Expired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to scan for expired rows: %w", err)
	}

	for _, p := range paths {
		if err := s.deleteByPathLocked(ctx, p); err != nil {
			return 0, fmt.Errorf("failed to delete expired source %s: %w", p, err)
		}
	}
	return len(paths), nil
}

// Status is the aggregate status response.
type Status struct {
	DocumentCount  int
	ChunkCount     int
	MemoryUsageMB  float64
	UptimeSeconds  float64
	FTSIndexLive   bool
	SearchMode     string // "hybrid" | "vector-only"
}

func (s *Store) Status(ctx context.Context) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources, chunks, err := s.rows.Stats(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read store stats: %w", err)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	mode := "vector-only"
	if s.ftsAvailable {
		mode = "hybrid"
	}

	return Status{
		DocumentCount: sources,
		ChunkCount:    chunks,
		MemoryUsageMB: float64(mem.Alloc) / (1024 * 1024),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		FTSIndexLive:  s.ftsAvailable,
		SearchMode:    mode,
	}, nil
}

// Close releases every sub-component's resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.rows.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.lexical != nil {
		if err := s.lexical.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.dense != nil {
		if err := s.dense.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing store: %v", errs)
	}
	return nil
}
