package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/localrag/ragmcp/internal/logging"
	ragmcp "github.com/localrag/ragmcp/internal/mcp"
)

// newServeCmd creates the serve command: the only command that actually
// speaks the MCP protocol. Everything else in this CLI is an
// operator-facing wrapper over the same handlers the MCP tools call.
func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP stdio server",
		Long: `Start the MCP server, listening for JSON-RPC tool calls on stdin/stdout.

This is what an MCP client (Claude Code, Cursor) launches as a subprocess.
It must never write anything but framed JSON-RPC to stdout: all status and
debug output goes to the ragmcp log file instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "transport to serve on (only stdio is supported)")

	return cmd
}

// runServe wires up the application and serves until ctx is canceled.
// MCP mode must never write to stdout/stderr before or during protocol
// operation, so logging is redirected to file before anything else happens.
func runServe(ctx context.Context, transport string) error {
	cleanup, err := setupServeLogging()
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer cleanup()

	if err := verifyStdinForMCP(); err != nil {
		// Not fatal: some MCP clients pipe stdin in ways isatty can't
		// detect reliably. Logged for diagnostics only.
		slog.Warn("stdin_terminal_check", slog.String("error", err.Error()))
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := buildApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	server, err := ragmcp.NewServer(application.handlers)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	return server.Serve(ctx, transport)
}

// setupServeLogging redirects all logging to file in MCP mode (never
// stdout/stderr, which would corrupt the JSON-RPC stream). Both branches log
// at debug level.
func setupServeLogging() (func(), error) {
	if debugMode {
		return logging.SetupMCPModeWithLevel("debug")
	}
	return logging.SetupMCPMode()
}

// verifyStdinForMCP warns when stdin looks like an interactive terminal
// rather than a client-driven pipe, since that almost always means the
// operator launched 'ragmcp serve' directly instead of letting an MCP
// client spawn it.
func verifyStdinForMCP() error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("stdin is a terminal, not a pipe: ragmcp serve expects to be launched by an MCP client")
	}
	return nil
}
