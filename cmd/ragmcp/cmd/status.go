package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localrag/ragmcp/internal/rag"
)

// newStatusCmd creates the status command, an operator-facing wrapper over
// the same rag.Handlers.Status the "status" MCP tool calls.
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print vector store status",
		Long:  `Print document/chunk counts, memory usage, uptime, and search mode.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			application, err := buildApp(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer application.Close()

			out, err := application.handlers.Status(cmd.Context(), rag.StatusInput{})
			if err != nil {
				return fmt.Errorf("status failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	return cmd
}
