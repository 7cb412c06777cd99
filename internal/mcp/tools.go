package mcp

// ToolInfo describes a registered tool for introspection (status
// reporting, tests) without going through the MCP SDK's own tool-list
// call.
type ToolInfo struct {
	Name        string
	Description string
}

// toolDescriptions is the single source of truth for each tool's
// human-facing description, shared between registerTools and ListTools so
// the two can never drift apart.
var toolDescriptions = []ToolInfo{
	{
		Name: "query_documents",
		Description: "Search ingested files and memorized text with hybrid lexical+semantic " +
			"retrieval. Returns the most relevant passages ranked by fused score.",
	},
	{
		Name: "ingest_file",
		Description: "Read a file from disk, split it into overlapping chunks, embed them, " +
			"and (re)index it. Re-ingesting a path transactionally replaces its prior chunks.",
	},
	{
		Name: "memorize_text",
		Description: "Store a free-form snippet of text as a labeled, searchable memory, " +
			"optionally with a TTL after which it is eligible for cleanup.",
	},
	{
		Name: "update_memory",
		Description: "Replace, append to, or prepend to an existing memory's text and/or " +
			"adjust its tags, then re-embed and re-index it.",
	},
	{
		Name:        "delete_file",
		Description: "Remove every chunk indexed under a file path or memory:// label. Safe to call on a path that isn't indexed.",
	},
	{
		Name:        "list_files",
		Description: "List indexed sources (files and memories) with chunk counts and metadata, optionally filtered by type, tag, project, or a substring search.",
	},
	{
		Name:        "cleanup_expired",
		Description: "Delete every memory whose TTL has passed. Returns the count of sources removed.",
	},
	{
		Name:        "status",
		Description: "Report store diagnostics: document/chunk counts, approximate memory usage, uptime, and whether the lexical index is live.",
	},
}
