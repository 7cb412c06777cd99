package cmd

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/localrag/ragmcp/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		path    string
		level   string
		pattern string
		noColor bool
		lines   int
		follow  bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the ragmcp server log",
		Long: `View the log file written by "ragmcp serve --debug". Shows the most
recent entries by default; use --follow to stream new entries as they arrive.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), logsOptions{
				path:    path,
				level:   level,
				pattern: pattern,
				noColor: noColor,
				lines:   lines,
				follow:  follow,
			}, cmd)
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "path to a specific log file (defaults to the ragmcp server log)")
	cmd.Flags().StringVar(&level, "level", "", "minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&pattern, "grep", "", "only show lines matching this regular expression")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors in output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new log entries as they are written")

	return cmd
}

type logsOptions struct {
	path    string
	level   string
	pattern string
	noColor bool
	lines   int
	follow  bool
}

func runLogs(ctx context.Context, opts logsOptions, cmd *cobra.Command) error {
	logPath, err := logging.FindLogFile(opts.path)
	if err != nil {
		return err
	}

	var pat *regexp.Regexp
	if opts.pattern != "" {
		pat, err = regexp.Compile(opts.pattern)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pat,
		NoColor: opts.noColor || os.Getenv("NO_COLOR") != "",
	}, cmd.OutOrStdout())

	entries, err := viewer.Tail(logPath, opts.lines)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	stream := make(chan logging.LogEntry, 64)
	done := make(chan error, 1)
	go func() {
		done <- viewer.Follow(ctx, logPath, stream)
	}()

	for {
		select {
		case entry, ok := <-stream:
			if !ok {
				return <-done
			}
			viewer.Print([]logging.LogEntry{entry})
		case <-ctx.Done():
			return nil
		case err := <-done:
			return err
		}
	}
}
