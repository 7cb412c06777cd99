package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// rejectedPathChars are characters that could be interpreted by the store's
// filter language if they reached a query unescaped.
const rejectedPathChars = `'"` + "`" + `\;`

var memoryLabelPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// extensionLanguages maps a recognized source extension to the language
// hint attached to its chunks. Anything absent from this table (plain
// text, config, unknown extensions) simply carries no language hint.
var extensionLanguages = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".py":   "python",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".md":   "markdown",
	".mdx":  "markdown",
}

// FileParser implements Parser: it validates paths against a configured
// root and reads/text-extracts by extension.
type FileParser struct {
	root string
}

func NewFileParser(root string) *FileParser {
	return &FileParser{root: root}
}

// Validate rejects paths that escape root, carry a character from
// rejectedPathChars or any control character, or, for memory:// pseudo
// paths, carry a malformed label.
func (p *FileParser) Validate(path string) error {
	if path == "" {
		return fmt.Errorf("path must not be empty")
	}

	if label, ok := strings.CutPrefix(path, "memory://"); ok {
		if !memoryLabelPattern.MatchString(label) {
			return fmt.Errorf("invalid memory label %q: must match [A-Za-z0-9_.-]+", label)
		}
		return nil
	}

	if err := checkForbiddenChars(path); err != nil {
		return err
	}

	if p.root != "" {
		absRoot, err := filepath.Abs(p.root)
		if err != nil {
			return fmt.Errorf("failed to resolve root directory: %w", err)
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("path %q escapes the configured root directory", path)
		}
	}

	return nil
}

func checkForbiddenChars(path string) error {
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("path %q contains a control character", path)
		}
		if strings.ContainsRune(rejectedPathChars, r) {
			return fmt.Errorf("path %q contains a disallowed character %q", path, r)
		}
	}
	return nil
}

// Parse reads path from disk and text-extracts its content. Extraction
// dispatches on extension: recognized source/text extensions are read as
// UTF-8 text; anything else is still read as text. Content with a NUL byte
// in its first 8KB is rejected as binary. No size limit is applied.
func (p *FileParser) Parse(path string) (ParsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParsedFile{}, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if !isLikelyText(data) {
		return ParsedFile{}, fmt.Errorf("failed to extract text from %q: file appears to be binary", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	return ParsedFile{
		Text:     string(data),
		Language: extensionLanguages[ext],
	}, nil
}

// isLikelyText rejects content containing a NUL byte within the first 8KB,
// the same heuristic git and most text editors use to flag binary files.
func isLikelyText(data []byte) bool {
	probe := data
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	for _, b := range probe {
		if b == 0 {
			return false
		}
	}
	return true
}
