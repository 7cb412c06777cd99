// Package cmd provides the CLI commands for ragmcp.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localrag/ragmcp/pkg/version"
)

// Debug logging flag, shared by every subcommand via a persistent flag.
var debugMode bool

// NewRootCmd creates the root command for the ragmcp CLI. ragmcp has no
// CLI-driven indexing step: ingest/memorize/query are MCP tools invoked by
// a connected client, not terminal commands. The CLI surface here is
// limited to running the server, operator-facing status/cleanup commands
// that wrap the same handlers the MCP tools call, a log viewer, and
// version output.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragmcp",
		Short: "Local-first retrieval-augmented-generation MCP server",
		Long: `ragmcp is a single-user, fully local retrieval-augmented-generation
backend exposed over the Model Context Protocol.

Run 'ragmcp serve' to start the stdio MCP server that AI clients (Claude
Code, Cursor, and others) connect to for ingest_file, memorize_text,
query_documents, and the rest of the tool surface.`,
		Version: version.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("ragmcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to the ragmcp log file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		return fmt.Errorf("ragmcp: %w", err)
	}
	return nil
}
