package rag

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/localrag/ragmcp/internal/chunk"
	"github.com/localrag/ragmcp/internal/embed"
	ragerrors "github.com/localrag/ragmcp/internal/errors"
	"github.com/localrag/ragmcp/internal/store"
)

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Handlers implements the eight tool operations over a Store, Embedder,
// Chunker, and Parser. Each method validates its input, drives the
// pipeline, and returns a result shaped exactly like the wire schema the
// transport layer serializes.
type Handlers struct {
	store    *store.Store
	embedder embed.Embedder
	chunker  chunk.Chunker
	parser   chunk.Parser
	logger   *slog.Logger
}

func NewHandlers(st *store.Store, embedder embed.Embedder, chunker chunk.Chunker, parser chunk.Parser) *Handlers {
	return &Handlers{
		store:    st,
		embedder: embedder,
		chunker:  chunker,
		parser:   parser,
		logger:   slog.Default(),
	}
}

// logDone logs a request-id and duration completion entry for a handler
// call.
func (h *Handlers) logDone(op, requestID string, start time.Time, err error) {
	duration := time.Since(start)
	if err != nil {
		h.logger.Error(op+" failed",
			slog.String("request_id", requestID), slog.Duration("duration", duration), slog.String("error", err.Error()))
		return
	}
	h.logger.Info(op+" completed",
		slog.String("request_id", requestID), slog.Duration("duration", duration))
}

func fileTypeFor(filePath string) string {
	if strings.HasPrefix(filePath, "memory://") {
		return "text-snippet"
	}
	ext := filepath.Ext(filePath)
	if ext == "" {
		return "unknown"
	}
	return strings.TrimPrefix(ext, ".")
}

// embedPieces batch-embeds chunker output, in the order produced, so
// pieces[i] corresponds to vectors[i].
func (h *Handlers) embedPieces(ctx context.Context, pieces []chunk.Piece) ([][]float32, error) {
	if len(pieces) == 0 {
		return nil, nil
	}
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}
	vectors, err := h.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, ragerrors.NewEmbeddingError(ragerrors.ErrCodeEmbeddingInference,
			"failed to embed chunk text", err)
	}
	return vectors, nil
}

func buildRows(filePath string, pieces []chunk.Piece, vectors [][]float32, meta store.Metadata) []*store.ChunkRow {
	rows := make([]*store.ChunkRow, len(pieces))
	for i, p := range pieces {
		rows[i] = &store.ChunkRow{
			FilePath:   filePath,
			ChunkIndex: p.Index,
			Text:       p.Text,
			Vector:     vectors[i],
			Timestamp:  meta.UpdatedAt,
			Metadata:   meta,
		}
	}
	return rows
}

// QueryDocuments embeds the query string and runs the hybrid search
// pipeline, returning relevance-ranked passages.
func (h *Handlers) QueryDocuments(ctx context.Context, in QueryDocumentsInput) (QueryDocumentsOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(in.Query) == "" {
		return QueryDocumentsOutput{}, ragerrors.NewValidationError(ragerrors.ErrCodeInvalidArgShape,
			"query must not be empty", nil)
	}
	limit, err := resolveQueryLimit(in.Limit)
	if err != nil {
		return QueryDocumentsOutput{}, err
	}
	if err := validateSourceType(in.Type); err != nil {
		return QueryDocumentsOutput{}, err
	}
	if err := validateMinScore(in.MinScore); err != nil {
		return QueryDocumentsOutput{}, err
	}

	h.logger.Info("query_documents started", slog.String("request_id", requestID), slog.String("query", in.Query))

	vector, err := h.embedder.Embed(ctx, in.Query)
	if err != nil {
		err = ragerrors.NewEmbeddingError(ragerrors.ErrCodeEmbeddingInference, "failed to embed query", err)
		h.logDone("query_documents", requestID, start, err)
		return QueryDocumentsOutput{}, err
	}

	filter := store.SearchFilter{
		QueryText: in.Query,
		Limit:     limit,
		Type:      in.Type,
		Tags:      in.Tags,
		Project:   in.Project,
	}
	if in.MinScore != nil {
		filter.MinScore = *in.MinScore
		filter.HasMinScore = true
	}

	results, err := h.store.Search(ctx, vector, filter)
	if err != nil {
		err = ragerrors.NewDatabaseError(ragerrors.ErrCodeDatabaseRead, "search failed", err)
		h.logDone("query_documents", requestID, start, err)
		return QueryDocumentsOutput{}, err
	}

	out := QueryDocumentsOutput{Results: make([]QueryResult, len(results))}
	for i, r := range results {
		out.Results[i] = QueryResult{FilePath: r.FilePath, ChunkIndex: r.ChunkIndex, Text: r.Text, Score: r.Score}
	}
	h.logDone("query_documents", requestID, start, nil)
	return out, nil
}

// IngestFile parses, chunks, embeds, and transactionally replaces the row
// set for a file on disk.
func (h *Handlers) IngestFile(ctx context.Context, in IngestFileInput) (IngestFileOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if err := h.parser.Validate(in.FilePath); err != nil {
		return IngestFileOutput{}, ragerrors.NewValidationError(ragerrors.ErrCodeInvalidPath, err.Error(), err)
	}
	tags, err := cleanTags(in.Tags)
	if err != nil {
		return IngestFileOutput{}, err
	}

	h.logger.Info("ingest_file started", slog.String("request_id", requestID), slog.String("file_path", in.FilePath))

	parsed, err := h.parser.Parse(in.FilePath)
	if err != nil {
		err = ragerrors.NewParseError(ragerrors.ErrCodeFileUnreadable, fmt.Sprintf("failed to parse %q", in.FilePath), err)
		h.logDone("ingest_file", requestID, start, err)
		return IngestFileOutput{}, err
	}

	pieces, err := h.chunker.Chunk(parsed.Text)
	if err != nil {
		h.logDone("ingest_file", requestID, start, err)
		return IngestFileOutput{}, err
	}

	vectors, err := h.embedPieces(ctx, pieces)
	if err != nil {
		h.logDone("ingest_file", requestID, start, err)
		return IngestFileOutput{}, err
	}

	project := in.Project
	if in.Global {
		project = ""
	}
	now := time.Now().UTC()
	rows := buildRows(in.FilePath, pieces, vectors, store.Metadata{
		FileName:   filepath.Base(in.FilePath),
		FileSize:   int64(len(parsed.Text)),
		FileType:   fileTypeFor(in.FilePath),
		Language:   parsed.Language,
		MemoryType: "file",
		Tags:       tags,
		Project:    project,
		CreatedAt:  now,
		UpdatedAt:  now,
	})

	if err := h.store.Replace(ctx, in.FilePath, rows); err != nil {
		err = mapStoreError(err)
		h.logDone("ingest_file", requestID, start, err)
		return IngestFileOutput{}, err
	}

	h.logDone("ingest_file", requestID, start, nil)
	return IngestFileOutput{FilePath: in.FilePath, ChunkCount: len(rows), Timestamp: now}, nil
}

// MemorizeText is ingest_file's counterpart for text that has no backing
// file: the label becomes a memory:// pseudo path.
func (h *Handlers) MemorizeText(ctx context.Context, in MemorizeTextInput) (MemorizeTextOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	label := in.Label
	if label == "" {
		label = fmt.Sprintf("snippet-%d", time.Now().UnixMilli())
	}
	filePath := "memory://" + label
	if err := h.parser.Validate(filePath); err != nil {
		return MemorizeTextOutput{}, ragerrors.NewValidationError(ragerrors.ErrCodeInvalidPath, err.Error(), err)
	}
	if err := validateMemoryType(in.Type); err != nil {
		return MemorizeTextOutput{}, err
	}
	tags, err := cleanTags(in.Tags)
	if err != nil {
		return MemorizeTextOutput{}, err
	}

	now := time.Now().UTC()
	expiresAt, err := ParseTTL(in.TTL, now)
	if err != nil {
		return MemorizeTextOutput{}, err
	}

	h.logger.Info("memorize_text started", slog.String("request_id", requestID), slog.String("label", label))

	pieces, err := h.chunker.Chunk(in.Text)
	if err != nil {
		h.logDone("memorize_text", requestID, start, err)
		return MemorizeTextOutput{}, err
	}

	vectors, err := h.embedPieces(ctx, pieces)
	if err != nil {
		h.logDone("memorize_text", requestID, start, err)
		return MemorizeTextOutput{}, err
	}

	memType := in.Type
	if memType == "" {
		memType = "memory"
	}
	project := in.Project
	if in.Global {
		project = ""
	}
	rows := buildRows(filePath, pieces, vectors, store.Metadata{
		FileName:   label,
		FileSize:   int64(len(in.Text)),
		FileType:   "text-snippet",
		Language:   in.Language,
		MemoryType: memType,
		Tags:       tags,
		Project:    project,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	})

	if err := h.store.Replace(ctx, filePath, rows); err != nil {
		err = mapStoreError(err)
		h.logDone("memorize_text", requestID, start, err)
		return MemorizeTextOutput{}, err
	}

	h.logDone("memorize_text", requestID, start, nil)
	return MemorizeTextOutput{
		FilePath: filePath, Label: label, ChunkCount: len(rows), Timestamp: now, ExpiresAt: expiresAt,
	}, nil
}

// UpdateMemory requires the memory to already exist, reconstructs its text,
// applies the requested mode and tag changes, then re-chunks and re-embeds.
func (h *Handlers) UpdateMemory(ctx context.Context, in UpdateMemoryInput) (UpdateMemoryOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if err := validateUpdateMode(in.Mode); err != nil {
		return UpdateMemoryOutput{}, err
	}
	mode := in.Mode
	if mode == "" {
		mode = "replace"
	}

	filePath := "memory://" + in.Label
	existing, err := h.store.ByLabel(ctx, in.Label)
	if err != nil {
		return UpdateMemoryOutput{}, ragerrors.NewDatabaseError(ragerrors.ErrCodeDatabaseRead, "failed to read memory", err)
	}
	if len(existing) == 0 {
		return UpdateMemoryOutput{}, ragerrors.NewNotFoundError(
			fmt.Sprintf("memory %q not found", in.Label), nil)
	}

	h.logger.Info("update_memory started", slog.String("request_id", requestID), slog.String("label", in.Label))

	sort.Slice(existing, func(i, j int) bool { return existing[i].ChunkIndex < existing[j].ChunkIndex })
	storedTexts := make([]string, len(existing))
	for i, r := range existing {
		storedTexts[i] = r.Text
	}
	current := strings.Join(storedTexts, "\n")

	var newText string
	switch mode {
	case "append":
		newText = current + "\n" + in.Text
	case "prepend":
		newText = in.Text + "\n" + current
	default:
		newText = in.Text
	}

	tags, err := resolveUpdatedTags(existing[0].Metadata.Tags, in.Tags, in.AddTags, in.RemoveTags)
	if err != nil {
		return UpdateMemoryOutput{}, err
	}

	pieces, err := h.chunker.Chunk(newText)
	if err != nil {
		h.logDone("update_memory", requestID, start, err)
		return UpdateMemoryOutput{}, err
	}
	vectors, err := h.embedPieces(ctx, pieces)
	if err != nil {
		h.logDone("update_memory", requestID, start, err)
		return UpdateMemoryOutput{}, err
	}

	now := time.Now().UTC()
	meta := existing[0].Metadata
	meta.Tags = tags
	meta.UpdatedAt = now
	rows := buildRows(filePath, pieces, vectors, meta)

	if err := h.store.Replace(ctx, filePath, rows); err != nil {
		err = mapStoreError(err)
		h.logDone("update_memory", requestID, start, err)
		return UpdateMemoryOutput{}, err
	}

	h.logDone("update_memory", requestID, start, nil)
	return UpdateMemoryOutput{
		FilePath: filePath, Label: in.Label, ChunkCount: len(rows), Timestamp: now, Tags: tags,
	}, nil
}

// resolveUpdatedTags implements the tag-change rule: an explicit tags
// list replaces the set outright; otherwise addTags/removeTags apply as a
// union-merge and exact-match removal over the existing set.
func resolveUpdatedTags(existing []string, tags, addTags, removeTags []string) ([]string, error) {
	if tags != nil {
		return cleanTags(tags)
	}

	add, err := cleanTags(addTags)
	if err != nil {
		return nil, err
	}
	remove, err := cleanTags(removeTags)
	if err != nil {
		return nil, err
	}

	removeSet := make(map[string]bool, len(remove))
	for _, r := range remove {
		removeSet[r] = true
	}

	seen := make(map[string]bool, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, t := range existing {
		if removeSet[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range add {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// DeleteFile validates the path and issues an idempotent store delete.
func (h *Handlers) DeleteFile(ctx context.Context, in DeleteFileInput) (DeleteFileOutput, error) {
	if err := h.parser.Validate(in.FilePath); err != nil {
		return DeleteFileOutput{}, ragerrors.NewValidationError(ragerrors.ErrCodeInvalidPath, err.Error(), err)
	}
	if err := h.store.DeleteByPath(ctx, in.FilePath); err != nil {
		return DeleteFileOutput{}, mapStoreError(err)
	}
	return DeleteFileOutput{FilePath: in.FilePath, Deleted: true, Timestamp: time.Now().UTC()}, nil
}

// ListFiles is a thin wrapper over the store's grouped listing.
func (h *Handlers) ListFiles(ctx context.Context, in ListFilesInput) (ListFilesOutput, error) {
	if err := validateSourceType(in.Type); err != nil {
		return ListFilesOutput{}, err
	}
	groups, err := h.store.ListFiles(ctx, store.ListFilter{
		Type:    in.Type,
		Tags:    in.Tags,
		Project: in.Project,
		Search:  in.Search,
		Limit:   resolveListLimit(in.Limit),
	})
	if err != nil {
		return ListFilesOutput{}, ragerrors.NewDatabaseError(ragerrors.ErrCodeDatabaseRead, "failed to list files", err)
	}

	out := ListFilesOutput{Files: make([]ListedFile, len(groups))}
	for i, g := range groups {
		out.Files[i] = ListedFile{
			FilePath:   g.FilePath,
			ChunkCount: g.ChunkCount,
			Timestamp:  g.Timestamp,
			Metadata:   metadataToMap(g.Metadata),
		}
	}
	return out, nil
}

func metadataToMap(m store.Metadata) map[string]string {
	out := map[string]string{
		"fileName": m.FileName,
		"fileType": m.FileType,
	}
	if m.Language != "" {
		out["language"] = m.Language
	}
	if m.MemoryType != "" {
		out["memoryType"] = m.MemoryType
	}
	if m.Project != "" {
		out["project"] = m.Project
	}
	return out
}

// CleanupExpired is a thin wrapper over the store's expiry sweep.
func (h *Handlers) CleanupExpired(ctx context.Context, _ CleanupExpiredInput) (CleanupExpiredOutput, error) {
	count, err := h.store.CleanupExpired(ctx)
	if err != nil {
		return CleanupExpiredOutput{}, ragerrors.NewDatabaseError(ragerrors.ErrCodeDatabaseWrite, "cleanup failed", err)
	}
	return CleanupExpiredOutput{DeletedCount: count, Timestamp: time.Now().UTC()}, nil
}

// Status is a thin wrapper over the store's diagnostics.
func (h *Handlers) Status(ctx context.Context, _ StatusInput) (StatusOutput, error) {
	st, err := h.store.Status(ctx)
	if err != nil {
		return StatusOutput{}, ragerrors.NewDatabaseError(ragerrors.ErrCodeDatabaseRead, "failed to read status", err)
	}
	return StatusOutput{
		DocumentCount:   st.DocumentCount,
		ChunkCount:      st.ChunkCount,
		MemoryUsageMB:   st.MemoryUsageMB,
		UptimeSeconds:   st.UptimeSeconds,
		FTSIndexEnabled: st.FTSIndexLive,
		SearchMode:      st.SearchMode,
	}, nil
}

// mapStoreError wraps a store.RollbackFailure into the RollbackFailure
// taxonomy and everything else into a DatabaseError. store.DeleteByPath
// already treats a missing path as success, so a not-found condition never
// reaches here.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var rb *store.RollbackFailure
	if asRollback(err, &rb) {
		return ragerrors.NewRollbackError(rb.Error(), rb.Original, rb.RollbackCause)
	}
	return ragerrors.NewDatabaseError(ragerrors.ErrCodeDatabaseWrite, err.Error(), err)
}

func asRollback(err error, target **store.RollbackFailure) bool {
	rb, ok := err.(*store.RollbackFailure)
	if !ok {
		return false
	}
	*target = rb
	return true
}
