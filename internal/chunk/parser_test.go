package chunk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileParser_Validate_AcceptsPathsUnderRoot(t *testing.T) {
	root := t.TempDir()
	p := NewFileParser(root)
	assert.NoError(t, p.Validate(filepath.Join(root, "docs", "readme.md")))
}

func TestFileParser_Validate_RejectsEscapingRoot(t *testing.T) {
	root := t.TempDir()
	p := NewFileParser(root)
	err := p.Validate(filepath.Join(root, "..", "outside.txt"))
	assert.Error(t, err)
}

func TestFileParser_Validate_RejectsForbiddenCharacters(t *testing.T) {
	root := t.TempDir()
	p := NewFileParser(root)

	for _, bad := range []string{
		filepath.Join(root, "a'b.txt"),
		filepath.Join(root, `a"b.txt`),
		filepath.Join(root, "a`b.txt"),
		filepath.Join(root, "a;b.txt"),
		filepath.Join(root, "a\\b.txt"),
		filepath.Join(root, "a\x01b.txt"),
	} {
		assert.Error(t, p.Validate(bad), "expected rejection for %q", bad)
	}
}

func TestFileParser_Validate_MemoryLabel(t *testing.T) {
	p := NewFileParser(t.TempDir())
	assert.NoError(t, p.Validate("memory://doc-1_v2.final"))
	assert.Error(t, p.Validate("memory://"))
	assert.Error(t, p.Validate("memory://has space"))
	assert.Error(t, p.Validate("memory://../escape"))
}

func TestFileParser_Parse_ExtractsTextAndLanguageHint(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	p := NewFileParser(root)
	parsed, err := p.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", parsed.Text)
	assert.Equal(t, "go", parsed.Language)
}

func TestFileParser_Parse_NoLanguageHintForUnknownExtension(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some notes"), 0o644))

	p := NewFileParser(root)
	parsed, err := p.Parse(path)
	require.NoError(t, err)
	assert.Empty(t, parsed.Language)
}

func TestFileParser_Parse_RejectsBinaryContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "image.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0x0D, 0x0A}, 0o644))

	p := NewFileParser(root)
	_, err := p.Parse(path)
	assert.Error(t, err)
}

func TestFileParser_Parse_MissingFilePropagatesError(t *testing.T) {
	p := NewFileParser(t.TempDir())
	_, err := p.Parse("/does/not/exist.txt")
	assert.Error(t, err)
}
