// Package rag implements the eight request handlers of the retrieval
// backend: validating tool arguments, driving the chunk/embed/store
// pipeline, and owning re-ingest atomicity. Transport concerns (stdio
// JSON-RPC framing, tool schema registration) live in internal/mcp, which
// calls into these handlers and formats their results.
package rag

import "time"

// QueryDocumentsInput is the query_documents tool's argument shape.
type QueryDocumentsInput struct {
	Query    string   `json:"query" jsonschema:"the natural-language query to search for"`
	Limit    *int     `json:"limit,omitempty" jsonschema:"maximum number of results, 1-20, default 10"`
	Type     string   `json:"type,omitempty" jsonschema:"restrict to all, file, or memory sources, default all"`
	Tags     []string `json:"tags,omitempty" jsonschema:"keep only rows carrying every listed tag"`
	Project  string   `json:"project,omitempty" jsonschema:"restrict to an exact project match"`
	MinScore *float64 `json:"minScore,omitempty" jsonschema:"keep only rows with distance <= this threshold, 0-2"`
}

// QueryResult is one row of query_documents's result array.
type QueryResult struct {
	FilePath   string  `json:"filePath"`
	ChunkIndex int     `json:"chunkIndex"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// QueryDocumentsOutput wraps query_documents's result array so it can be
// returned as a single MCP tool output value.
type QueryDocumentsOutput struct {
	Results []QueryResult `json:"results"`
}

// IngestFileInput is the ingest_file tool's argument shape.
type IngestFileInput struct {
	FilePath string   `json:"filePath" jsonschema:"absolute path of the file to ingest"`
	Tags     []string `json:"tags,omitempty" jsonschema:"tags to attach to every chunk of this file"`
	Project  string   `json:"project,omitempty" jsonschema:"project label to attach, ignored when global is true"`
	Global   bool     `json:"global,omitempty" jsonschema:"when true, no project is attached even if one is given"`
}

// IngestFileOutput is ingest_file's result.
type IngestFileOutput struct {
	FilePath   string    `json:"filePath"`
	ChunkCount int       `json:"chunkCount"`
	Timestamp  time.Time `json:"timestamp"`
}

// MemorizeTextInput is the memorize_text tool's argument shape.
type MemorizeTextInput struct {
	Text     string   `json:"text" jsonschema:"the free-form text to remember"`
	Label    string   `json:"label,omitempty" jsonschema:"stable label identifying this snippet, default snippet-<epoch-ms>"`
	Language string   `json:"language,omitempty" jsonschema:"optional language hint"`
	Tags     []string `json:"tags,omitempty" jsonschema:"tags to attach"`
	Type     string   `json:"type,omitempty" jsonschema:"memory, lesson, or note, default memory"`
	TTL      string   `json:"ttl,omitempty" jsonschema:"permanent or a duration like 30d, 6m, 1y"`
	Project  string   `json:"project,omitempty" jsonschema:"project label to attach, ignored when global is true"`
	Global   bool     `json:"global,omitempty" jsonschema:"when true, no project is attached even if one is given"`
}

// MemorizeTextOutput is memorize_text's result.
type MemorizeTextOutput struct {
	FilePath   string     `json:"filePath"`
	Label      string     `json:"label"`
	ChunkCount int        `json:"chunkCount"`
	Timestamp  time.Time  `json:"timestamp"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// UpdateMemoryInput is the update_memory tool's argument shape.
type UpdateMemoryInput struct {
	Label      string   `json:"label" jsonschema:"label of the existing memory to update"`
	Mode       string   `json:"mode,omitempty" jsonschema:"replace, append, or prepend, default replace"`
	Text       string   `json:"text,omitempty" jsonschema:"replacement or additional text"`
	Tags       []string `json:"tags,omitempty" jsonschema:"replaces the full tag set when provided"`
	AddTags    []string `json:"addTags,omitempty" jsonschema:"tags to union-merge into the existing set"`
	RemoveTags []string `json:"removeTags,omitempty" jsonschema:"tags to remove by exact match"`
}

// UpdateMemoryOutput is update_memory's result.
type UpdateMemoryOutput struct {
	FilePath   string    `json:"filePath"`
	Label      string    `json:"label"`
	ChunkCount int       `json:"chunkCount"`
	Timestamp  time.Time `json:"timestamp"`
	Tags       []string  `json:"tags"`
}

// DeleteFileInput is the delete_file tool's argument shape.
type DeleteFileInput struct {
	FilePath string `json:"filePath" jsonschema:"filePath or memory:// label to delete"`
}

// DeleteFileOutput is delete_file's result.
type DeleteFileOutput struct {
	FilePath  string    `json:"filePath"`
	Deleted   bool      `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

// ListFilesInput is the list_files tool's argument shape.
type ListFilesInput struct {
	Type    string   `json:"type,omitempty" jsonschema:"all, file, or memory, default all"`
	Tags    []string `json:"tags,omitempty" jsonschema:"keep only sources carrying every listed tag"`
	Project string   `json:"project,omitempty" jsonschema:"restrict to an exact project match"`
	Search  string   `json:"search,omitempty" jsonschema:"case-insensitive substring match on path or file name"`
	Limit   *int     `json:"limit,omitempty" jsonschema:"maximum sources to return, 0 means unlimited, default 50"`
}

// ListedFile is one entry of list_files's result array.
type ListedFile struct {
	FilePath   string            `json:"filePath"`
	ChunkCount int               `json:"chunkCount"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ListFilesOutput wraps list_files's result array.
type ListFilesOutput struct {
	Files []ListedFile `json:"files"`
}

// CleanupExpiredInput is the cleanup_expired tool's (empty) argument shape.
type CleanupExpiredInput struct{}

// CleanupExpiredOutput is cleanup_expired's result.
type CleanupExpiredOutput struct {
	DeletedCount int       `json:"deletedCount"`
	Timestamp    time.Time `json:"timestamp"`
}

// StatusInput is the status tool's (empty) argument shape.
type StatusInput struct{}

// StatusOutput is status's result.
type StatusOutput struct {
	DocumentCount   int     `json:"documentCount"`
	ChunkCount      int     `json:"chunkCount"`
	MemoryUsageMB   float64 `json:"memoryUsage"`
	UptimeSeconds   float64 `json:"uptime"`
	FTSIndexEnabled bool    `json:"ftsIndexEnabled"`
	SearchMode      string  `json:"searchMode"`
}
