package chunk

// Chunk size defaults. MinChunkChars is the floor on viable windows; a
// split smaller than this is folded into a neighbor rather than
// kept as its own piece.
const (
	DefaultTargetChars  = 1000
	DefaultOverlapChars = 200
	MinChunkChars       = 50
)

// Piece is one unit produced by a Chunker: a contiguous window of text and
// its position among the other pieces a single input was split into.
type Piece struct {
	Index int
	Text  string
}

// Chunker splits text into contiguous, size-bounded, contiguously-numbered
// pieces. Implementations never reorder input: Piece.Index always increases
// with the piece's position in the source text.
type Chunker interface {
	// Chunk splits text into pieces. An empty or whitespace-only text
	// yields an empty, non-nil slice. Errors are reserved for malformed
	// configuration, never for the shape of the input text.
	Chunk(text string) ([]Piece, error)
}

// ParsedFile is what a Parser produces from a path: the extracted text and,
// when the extension appears in the parser's language table (source
// languages and markdown), a hint used for chunk metadata. Language is
// empty for any other extension.
type ParsedFile struct {
	Text     string
	Language string
}

// Parser turns a path into readable content. Paths come in two forms: a
// filesystem path rooted under some project directory, or a memory://<label>
// pseudo-path naming a stored snippet that has no backing file.
type Parser interface {
	// Validate rejects paths that escape the configured root, carry
	// characters forbidden by the store's path rules, or name a
	// memory:// pseudo-path with a malformed label. It does not touch
	// the filesystem.
	Validate(path string) error

	// Parse reads and decodes path's content from disk. It is never
	// called for memory:// paths: those carry their text inline at the
	// call site, since there is no file to read.
	Parse(path string) (ParsedFile, error)
}
