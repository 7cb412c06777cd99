package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localrag/ragmcp/internal/rag"
)

// newCleanupCmd creates the cleanup command, an operator-facing wrapper
// over rag.Handlers.CleanupExpired, the same operation the "cleanup_expired"
// MCP tool calls.
func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired sources",
		Long:  `Scan the store for sources whose expiresAt has passed and delete them.`,
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

			out, err := application.handlers.CleanupExpired(cmd.Context(), rag.CleanupExpiredInput{})
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	return cmd
}
