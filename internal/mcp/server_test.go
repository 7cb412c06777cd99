package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrag/ragmcp/internal/chunk"
	"github.com/localrag/ragmcp/internal/rag"
	"github.com/localrag/ragmcp/internal/store"
)

// stubEmbedder is a minimal embed.Embedder for exercising the transport
// layer without a real model.
type stubEmbedder struct{ dims int }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, s.dims)
	for i, r := range text {
		v[i%s.dims] += float32(r)
	}
	return v, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := s.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int                  { return s.dims }
func (s *stubEmbedder) ModelName() string                { return "stub" }
func (s *stubEmbedder) Available(_ context.Context) bool { return true }
func (s *stubEmbedder) Close() error                     { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(store.StoreConfig{Dimensions: 4, HybridWeight: 0.6})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// Root the parser at the system temp dir so files a test creates in its
	// own t.TempDir() are inside it.
	h := rag.NewHandlers(st, &stubEmbedder{dims: 4}, chunk.NewRecursiveSplitter(), chunk.NewFileParser(os.TempDir()))
	srv, err := NewServer(h)
	require.NoError(t, err)
	return srv
}

func TestNewServer_RejectsNilHandlers(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestNewServer_RegistersEightTools(t *testing.T) {
	srv := newTestServer(t)
	assert.Len(t, srv.ListTools(), 8)
}

func TestServer_Info(t *testing.T) {
	srv := newTestServer(t)
	name, _ := srv.Info()
	assert.Equal(t, "ragmcp", name)
}

func TestServer_MemorizeThenQueryRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, out, err := srv.mcpMemorizeText(ctx, nil, rag.MemorizeTextInput{Text: "the launch window opens at dawn", Label: "launch"})
	require.NoError(t, err)
	assert.Equal(t, "memory://launch", out.FilePath)

	_, results, err := srv.mcpQueryDocuments(ctx, nil, rag.QueryDocumentsInput{Query: "the launch window opens at dawn"})
	require.NoError(t, err)
	require.NotEmpty(t, results.Results)
	assert.Equal(t, "memory://launch", results.Results[0].FilePath)
}

func TestServer_IngestThenDeleteRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("some ingested content"), 0o644))

	_, ingestOut, err := srv.mcpIngestFile(ctx, nil, rag.IngestFileInput{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, path, ingestOut.FilePath)

	_, deleteOut, err := srv.mcpDeleteFile(ctx, nil, rag.DeleteFileInput{FilePath: path})
	require.NoError(t, err)
	assert.True(t, deleteOut.Deleted)
}

func TestServer_QueryDocuments_InvalidArgsMapsToMCPError(t *testing.T) {
	srv := newTestServer(t)
	zero := 0
	_, _, err := srv.mcpQueryDocuments(context.Background(), nil, rag.QueryDocumentsInput{Query: "x", Limit: &zero})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServer_Status(t *testing.T) {
	srv := newTestServer(t)
	_, out, err := srv.mcpStatus(context.Background(), nil, rag.StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "hybrid", out.SearchMode)
}

func TestServer_Serve_UnknownTransportErrors(t *testing.T) {
	srv := newTestServer(t)
	err := srv.Serve(context.Background(), "carrier-pigeon")
	assert.Error(t, err)
}
