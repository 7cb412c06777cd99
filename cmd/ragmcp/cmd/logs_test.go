package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLogFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLogsCmd_TailsExplicitFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "server.log")
	writeLogFile(t, logPath,
		`{"time":"2026-07-31T00:00:00Z","level":"INFO","msg":"ready"}`,
		`{"time":"2026-07-31T00:00:01Z","level":"ERROR","msg":"boom"}`,
	)

	cmd := newLogsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--file", logPath, "--no-color"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "ready")
	assert.Contains(t, output, "boom")
}

func TestLogsCmd_FiltersByLevel(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "server.log")
	writeLogFile(t, logPath,
		`{"time":"2026-07-31T00:00:00Z","level":"DEBUG","msg":"chatty"}`,
		`{"time":"2026-07-31T00:00:01Z","level":"ERROR","msg":"boom"}`,
	)

	cmd := newLogsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--file", logPath, "--level", "error", "--no-color"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "chatty")
	assert.Contains(t, output, "boom")
}

func TestLogsCmd_FiltersByGrepPattern(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "server.log")
	writeLogFile(t, logPath,
		`{"time":"2026-07-31T00:00:00Z","level":"INFO","msg":"ingest_file done"}`,
		`{"time":"2026-07-31T00:00:01Z","level":"INFO","msg":"query_documents done"}`,
	)

	cmd := newLogsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--file", logPath, "--grep", "query_documents", "--no-color"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "ingest_file")
	assert.Contains(t, output, "query_documents")
}

func TestLogsCmd_MissingFileReturnsError(t *testing.T) {
	cmd := newLogsCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--file", filepath.Join(t.TempDir(), "nope.log")})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestLogsCmd_Name(t *testing.T) {
	cmd := newLogsCmd()
	assert.Equal(t, "logs", cmd.Name())
}
