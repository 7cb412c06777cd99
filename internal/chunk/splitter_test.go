package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveSplitter_EmptyInputYieldsEmptySlice(t *testing.T) {
	s := NewRecursiveSplitter()
	pieces, err := s.Chunk("   \n\t  ")
	require.NoError(t, err)
	assert.NotNil(t, pieces)
	assert.Empty(t, pieces)
}

func TestRecursiveSplitter_ShortInputYieldsOnePiece(t *testing.T) {
	s := NewRecursiveSplitter()
	pieces, err := s.Chunk("a short note")
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, 0, pieces[0].Index)
	assert.Equal(t, "a short note", pieces[0].Text)
}

func TestRecursiveSplitter_ContiguousIndexing(t *testing.T) {
	s := NewRecursiveSplitterWithOptions(SplitterOptions{TargetChars: 40, OverlapChars: 5, MinChars: 5})
	paragraphs := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		paragraphs = append(paragraphs, strings.Repeat("word ", 8))
	}
	text := strings.Join(paragraphs, "\n\n")

	pieces, err := s.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)
	for i, p := range pieces {
		assert.Equal(t, i, p.Index)
	}
}

func TestRecursiveSplitter_DropsTinyTrailingWindow(t *testing.T) {
	s := NewRecursiveSplitterWithOptions(SplitterOptions{TargetChars: 30, OverlapChars: 0, MinChars: 20})
	text := strings.Repeat("x", 30) + "\n\n" + "tiny"

	pieces, err := s.Chunk(text)
	require.NoError(t, err)
	for _, p := range pieces {
		assert.GreaterOrEqual(t, len(strings.TrimSpace(p.Text)), 4, "tiny trailing text should be folded, not dropped entirely")
	}
	// folded into the previous window rather than standing alone
	assert.Contains(t, pieces[len(pieces)-1].Text, "tiny")
}

func TestRecursiveSplitter_HardSlicesUnsplittableLongWord(t *testing.T) {
	s := NewRecursiveSplitterWithOptions(SplitterOptions{TargetChars: 10, OverlapChars: 0, MinChars: 1})
	text := strings.Repeat("a", 55)

	pieces, err := s.Chunk(text)
	require.NoError(t, err)
	require.NotEmpty(t, pieces)

	var rebuilt strings.Builder
	for _, p := range pieces {
		rebuilt.WriteString(p.Text)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestRecursiveSplitter_OverlapCarriesTrailingContext(t *testing.T) {
	s := NewRecursiveSplitterWithOptions(SplitterOptions{TargetChars: 20, OverlapChars: 8, MinChars: 1})
	text := strings.Join([]string{
		strings.Repeat("p", 20),
		strings.Repeat("q", 20),
	}, "\n\n")

	pieces, err := s.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)
	assert.True(t, strings.HasPrefix(pieces[1].Text, strings.Repeat("p", 8)),
		"second window should carry the first window's trailing overlap")
}

func TestRecursiveSplitter_DefaultsFillZeroOptions(t *testing.T) {
	s := NewRecursiveSplitterWithOptions(SplitterOptions{})
	pieces, err := s.Chunk("hello world")
	require.NoError(t, err)
	require.Len(t, pieces, 1)
}
