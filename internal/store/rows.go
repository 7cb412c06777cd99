package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Metadata is the nested record attached to every chunk row in a
// filePath's row-set. All rows for one filePath carry identical Metadata.
type Metadata struct {
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	FileType   string    `json:"fileType"`
	Language   string    `json:"language,omitempty"`
	MemoryType string    `json:"memoryType,omitempty"`
	Tags       []string  `json:"tags"`
	Project    string    `json:"project,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ChunkRow is the only persisted entity. Vector is stored
// alongside the row (not just in the dense index) so a replace's rollback
// can restore a byte-identical prior version without re-embedding.
type ChunkRow struct {
	ID         string
	FilePath   string
	ChunkIndex int
	Text       string
	Vector     []float32
	Timestamp  time.Time
	Metadata   Metadata
}

// FileGroupedStats is listFiles's per-source summary.
type FileGroupedStats struct {
	FilePath   string
	ChunkCount int
	Timestamp  time.Time
	Metadata   Metadata
}

// rowSchemaColumns are the columns the current schema requires; their
// absence in an opened table triggers the migration described in
// search.
var rowSchemaColumns = []string{"created_at", "updated_at", "memory_type", "tags"}

// RowTable is the chunk-row table backing the metadata/full-row half of
// the Vector Store. It owns schema creation, migration, and CRUD; the
// lexical and dense indexes are separate sub-components composed by Store.
type RowTable struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewRowTable opens (creating if absent) the chunk-row table at path, pure
// Go via modernc.org/sqlite, WAL mode for concurrent readers. If path is
// empty an in-memory database is used (tests).
func NewRowTable(path string) (*RowTable, error) {
	dsn := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open row table: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	t := &RowTable{db: db, path: path}
	if err := t.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *RowTable) initialize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	exists, err := t.tableExists()
	if err != nil {
		return err
	}
	if !exists {
		return t.createTable()
	}

	missing, err := t.missingColumns()
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	slog.Warn("chunk_rows_schema_migration_needed",
		slog.Any("missing_columns", missing))
	return t.migrate()
}

func (t *RowTable) tableExists() (bool, error) {
	var name string
	err := t.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='chunk_rows'`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check chunk_rows existence: %w", err)
	}
	return true, nil
}

func (t *RowTable) missingColumns() ([]string, error) {
	rows, err := t.db.Query(`PRAGMA table_info(chunk_rows)`)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk_rows schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		present[name] = true
	}

	var missing []string
	for _, col := range rowSchemaColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

const createChunkRowsSQL = `
CREATE TABLE chunk_rows (
	id          TEXT PRIMARY KEY,
	file_path   TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	vector      BLOB NOT NULL,
	timestamp   TEXT NOT NULL,
	file_name   TEXT NOT NULL,
	file_size   INTEGER NOT NULL,
	file_type   TEXT NOT NULL,
	language    TEXT NOT NULL DEFAULT '',
	memory_type TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	project     TEXT NOT NULL DEFAULT '',
	expires_at  TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX idx_chunk_rows_path_index ON chunk_rows(file_path, chunk_index);
CREATE INDEX idx_chunk_rows_path ON chunk_rows(file_path);
CREATE INDEX idx_chunk_rows_expires ON chunk_rows(expires_at);
`

func (t *RowTable) createTable() error {
	if _, err := t.db.Exec(createChunkRowsSQL); err != nil {
		return fmt.Errorf("failed to create chunk_rows table: %w", err)
	}
	return nil
}

// migrate performs schema migration: read all rows under
// the legacy schema, synthesize missing fields, drop, recreate, reinsert.
// An empty legacy table is dropped and recreated with the current schema,
// with nothing to reinsert.
func (t *RowTable) migrate() error {
	legacyRows, err := t.readLegacyRows()
	if err != nil {
		return fmt.Errorf("failed to read legacy chunk_rows for migration: %w", err)
	}

	if _, err := t.db.Exec(`DROP TABLE chunk_rows`); err != nil {
		return fmt.Errorf("failed to drop legacy chunk_rows table: %w", err)
	}

	if err := t.createTable(); err != nil {
		return err
	}

	if len(legacyRows) == 0 {
		return nil
	}

	return t.insertRows(legacyRows)
}

// readLegacyRows reads every row with the columns guaranteed to exist
// under any prior schema variant, synthesizing the fields §4.4 requires
// default values for.
func (t *RowTable) readLegacyRows() ([]*ChunkRow, error) {
	rows, err := t.db.Query(
		`SELECT id, file_path, chunk_index, text, vector, timestamp, file_name, file_size, file_type FROM chunk_rows`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ChunkRow
	for rows.Next() {
		var r ChunkRow
		var ts string
		var vecBlob []byte
		if err := rows.Scan(&r.ID, &r.FilePath, &r.ChunkIndex, &r.Text, &vecBlob, &ts,
			&r.Metadata.FileName, &r.Metadata.FileSize, &r.Metadata.FileType); err != nil {
			return nil, err
		}
		r.Vector = decodeVector(vecBlob)
		r.Timestamp = parseTimeOrNow(ts)
		r.Metadata.Tags = []string{}
		r.Metadata.CreatedAt = r.Timestamp
		r.Metadata.UpdatedAt = r.Timestamp
		out = append(out, &r)
	}
	return out, rows.Err()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func parseTimeOrNow(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Now().UTC()
}

// Insert adds rows, assigning IDs for any row that doesn't already carry
// one. Creates the table first if it does not exist.
func (t *RowTable) Insert(ctx context.Context, rows []*ChunkRow) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	exists, err := t.tableExists()
	if err != nil {
		return err
	}
	if !exists {
		if err := t.createTable(); err != nil {
			return err
		}
	}

	for _, r := range rows {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
	}
	return t.insertRows(rows)
}

func (t *RowTable) insertRows(rows []*ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunk_rows
		(id, file_path, chunk_index, text, vector, timestamp, file_name, file_size,
		 file_type, language, memory_type, tags, project, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		tagsJSON, err := json.Marshal(r.Metadata.Tags)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal tags: %w", err)
		}

		var expiresAt any
		if r.Metadata.ExpiresAt != nil {
			expiresAt = r.Metadata.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}

		if _, err := stmt.Exec(
			r.ID, r.FilePath, r.ChunkIndex, r.Text, encodeVector(r.Vector), r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Metadata.FileName, r.Metadata.FileSize, r.Metadata.FileType, r.Metadata.Language,
			r.Metadata.MemoryType, string(tagsJSON), r.Metadata.Project, expiresAt,
			r.Metadata.CreatedAt.UTC().Format(time.RFC3339Nano), r.Metadata.UpdatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert chunk row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert transaction: %w", err)
	}
	return nil
}

// DeleteByPath removes every row with matching filePath. Missing rows are
// not an error.
func (t *RowTable) DeleteByPath(ctx context.Context, filePath string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	exists, err := t.tableExists()
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if _, err := t.db.Exec(`DELETE FROM chunk_rows WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("failed to delete rows for %s: %w", filePath, err)
	}
	return nil
}

// ByPath returns all rows for filePath, sorted by chunk_index.
func (t *RowTable) ByPath(ctx context.Context, filePath string) ([]*ChunkRow, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exists, err := t.tableExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := t.db.Query(`
		SELECT id, file_path, chunk_index, text, vector, timestamp, file_name, file_size,
		       file_type, language, memory_type, tags, project, expires_at, created_at, updated_at
		FROM chunk_rows WHERE file_path = ? ORDER BY chunk_index ASC
	`, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows for %s: %w", filePath, err)
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

// ByIDs returns rows for the given IDs, in no particular order.
func (t *RowTable) ByIDs(ctx context.Context, ids []string) ([]*ChunkRow, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(ids) == 0 {
		return nil, nil
	}

	exists, err := t.tableExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := t.db.Query(fmt.Sprintf(`
		SELECT id, file_path, chunk_index, text, vector, timestamp, file_name, file_size,
		       file_type, language, memory_type, tags, project, expires_at, created_at, updated_at
		FROM chunk_rows WHERE id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows by id: %w", err)
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

// AllIDs returns every row's ID, used for cross-index consistency checks.
func (t *RowTable) AllIDs(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exists, err := t.tableExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := t.db.Query(`SELECT id FROM chunk_rows`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFiles groups rows by file_path, applying the optional filters §4.4
// describes for listFiles.
type ListFilter struct {
	Type    string // "all" | "file" | "memory"
	Tags    []string
	Project string
	Search  string // case-insensitive substring match against filePath or fileName
	Limit   int    // 0 = unlimited
}

func (t *RowTable) ListFiles(ctx context.Context, filter ListFilter) ([]FileGroupedStats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exists, err := t.tableExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := t.db.Query(`
		SELECT id, file_path, chunk_index, text, vector, timestamp, file_name, file_size,
		       file_type, language, memory_type, tags, project, expires_at, created_at, updated_at
		FROM chunk_rows
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	all, err := scanChunkRows(rows)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*FileGroupedStats)
	for _, r := range all {
		g, ok := grouped[r.FilePath]
		if !ok {
			g = &FileGroupedStats{FilePath: r.FilePath}
			grouped[r.FilePath] = g
		}
		g.ChunkCount++
		if r.Timestamp.After(g.Timestamp) {
			g.Timestamp = r.Timestamp
			g.Metadata = r.Metadata
		}
	}

	out := make([]FileGroupedStats, 0, len(grouped))
	for _, g := range grouped {
		if !matchesListFilter(*g, filter) {
			continue
		}
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesListFilter(g FileGroupedStats, f ListFilter) bool {
	if !matchesType(g.FilePath, f.Type) {
		return false
	}
	if len(f.Tags) > 0 && !containsAllTags(g.Metadata.Tags, f.Tags) {
		return false
	}
	if f.Project != "" && g.Metadata.Project != f.Project {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(g.FilePath), needle) &&
			!strings.Contains(strings.ToLower(g.Metadata.FileName), needle) {
			return false
		}
	}
	return true
}

func matchesType(filePath, typ string) bool {
	isMemory := strings.HasPrefix(filePath, "memory://")
	switch typ {
	case "memory":
		return isMemory
	case "file":
		return !isMemory
	default:
		return true
	}
}

func containsAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// Expired returns the file paths whose expiresAt is non-null and before
// cutoff.
func (t *RowTable) Expired(ctx context.Context, cutoff time.Time) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exists, err := t.tableExists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := t.db.Query(
		`SELECT DISTINCT file_path FROM chunk_rows WHERE expires_at IS NOT NULL AND expires_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired rows: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Stats returns distinct source count and total row count.
func (t *RowTable) Stats(ctx context.Context) (sources int, chunks int, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exists, existErr := t.tableExists()
	if existErr != nil {
		return 0, 0, existErr
	}
	if !exists {
		return 0, 0, nil
	}

	if scanErr := t.db.QueryRow(`SELECT COUNT(DISTINCT file_path), COUNT(*) FROM chunk_rows`).
		Scan(&sources, &chunks); scanErr != nil {
		return 0, 0, fmt.Errorf("failed to read row counts: %w", scanErr)
	}
	return sources, chunks, nil
}

func scanChunkRows(rows *sql.Rows) ([]*ChunkRow, error) {
	var out []*ChunkRow
	for rows.Next() {
		var r ChunkRow
		var ts, createdAt, updatedAt string
		var expiresAt sql.NullString
		var tagsJSON string
		var vecBlob []byte
		if err := rows.Scan(&r.ID, &r.FilePath, &r.ChunkIndex, &r.Text, &vecBlob, &ts,
			&r.Metadata.FileName, &r.Metadata.FileSize, &r.Metadata.FileType,
			&r.Metadata.Language, &r.Metadata.MemoryType, &tagsJSON, &r.Metadata.Project,
			&expiresAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}

		r.Vector = decodeVector(vecBlob)
		r.Timestamp = parseTimeOrNow(ts)
		r.Metadata.CreatedAt = parseTimeOrNow(createdAt)
		r.Metadata.UpdatedAt = parseTimeOrNow(updatedAt)
		if expiresAt.Valid {
			if when, err := time.Parse(time.RFC3339Nano, expiresAt.String); err == nil {
				r.Metadata.ExpiresAt = &when
			}
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Metadata.Tags); err != nil {
			r.Metadata.Tags = []string{}
		}

		out = append(out, &r)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (t *RowTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.db.Close()
}
