package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_OutputsJSONStatus(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RAGMCP_DB_DIR", filepath.Join(tmpDir, "db"))
	t.Setenv("RAGMCP_MODEL_CACHE_DIR", filepath.Join(tmpDir, "models"))
	t.Setenv("RAGMCP_EMBEDDER", "static")

	cmd := newStatusCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Contains(t, out, "documentCount")
	assert.Contains(t, out, "chunkCount")
}

func TestStatusCmd_Name(t *testing.T) {
	cmd := newStatusCmd()
	assert.Equal(t, "status", cmd.Name())
}
