package chunk

import "strings"

// splitSeparators are tried from coarsest to finest: paragraph breaks, line
// breaks, sentence boundaries, then individual words. Anything still over
// target after a word-level split is sliced at a hard character boundary.
var splitSeparators = []string{"\n\n", "\n", ". ", " "}

// SplitterOptions configures RecursiveSplitter's window size and overlap.
type SplitterOptions struct {
	TargetChars  int
	OverlapChars int
	MinChars     int
}

// DefaultSplitterOptions returns the 1000/200/50 character defaults.
func DefaultSplitterOptions() SplitterOptions {
	return SplitterOptions{
		TargetChars:  DefaultTargetChars,
		OverlapChars: DefaultOverlapChars,
		MinChars:     MinChunkChars,
	}
}

// RecursiveSplitter implements Chunker by recursively dividing text on
// successively finer boundaries until every fragment fits the target size,
// reassembling fragments into overlapping windows, and folding any later
// window shorter than MinChars into the window before it. Short windows
// are merged, not discarded: a text shorter than MinChars still yields
// one piece.
type RecursiveSplitter struct {
	opts SplitterOptions
}

func NewRecursiveSplitter() *RecursiveSplitter {
	return NewRecursiveSplitterWithOptions(DefaultSplitterOptions())
}

func NewRecursiveSplitterWithOptions(opts SplitterOptions) *RecursiveSplitter {
	if opts.TargetChars <= 0 {
		opts.TargetChars = DefaultTargetChars
	}
	if opts.OverlapChars < 0 || opts.OverlapChars >= opts.TargetChars {
		opts.OverlapChars = DefaultOverlapChars
	}
	if opts.MinChars <= 0 {
		opts.MinChars = MinChunkChars
	}
	return &RecursiveSplitter{opts: opts}
}

func (s *RecursiveSplitter) Chunk(text string) ([]Piece, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Piece{}, nil
	}

	fragments := splitFragment(text, splitSeparators, s.opts.TargetChars)
	windows := assembleWindows(fragments, s.opts.TargetChars, s.opts.OverlapChars)
	windows = dropTiny(windows, s.opts.MinChars)

	pieces := make([]Piece, len(windows))
	for i, w := range windows {
		pieces[i] = Piece{Index: i, Text: w}
	}
	return pieces, nil
}

// splitFragment divides text on the first separator that yields more than
// one part, recursing into any part still over target with the remaining,
// finer separators. A part that survives every separator oversized is cut
// at a hard character boundary so splitting always terminates.
func splitFragment(text string, seps []string, target int) []string {
	if len(text) <= target {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSlice(text, target)
	}

	parts := strings.Split(text, seps[0])
	if len(parts) <= 1 {
		return splitFragment(text, seps[1:], target)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if len(p) > target {
			out = append(out, splitFragment(p, seps[1:], target)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

func hardSlice(text string, target int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += target {
		end := i + target
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// assembleWindows accumulates fragments into target-sized windows, carrying
// the trailing overlapChars of each finished window forward as the start of
// the next. This is the same accumulate-then-flush shape a paragraph-based
// chunker uses, generalized to arbitrary fragment sizes.
func assembleWindows(fragments []string, target, overlap int) []string {
	var windows []string
	var current strings.Builder
	addedNew := false

	flush := func() {
		if !addedNew {
			return
		}
		full := current.String()
		windows = append(windows, full)

		carry := ""
		switch {
		case overlap <= 0:
			carry = ""
		case len(full) > overlap:
			carry = full[len(full)-overlap:]
		default:
			carry = full
		}
		current.Reset()
		current.WriteString(carry)
		addedNew = false
	}

	for _, frag := range fragments {
		if current.Len() > 0 && current.Len()+len(frag) > target {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(frag)
		addedNew = true
	}
	if addedNew {
		windows = append(windows, current.String())
	}
	return windows
}

// dropTiny folds any window below minChars into its predecessor so no text
// is discarded outright, only its standing as a separate piece. The
// first window always survives: text shorter than minChars still yields
// exactly one piece rather than zero.
func dropTiny(windows []string, minChars int) []string {
	if len(windows) <= 1 {
		return windows
	}
	out := make([]string, 0, len(windows))
	for i, w := range windows {
		if i > 0 && len(strings.TrimSpace(w)) < minChars {
			out[len(out)-1] = out[len(out)-1] + "\n\n" + w
			continue
		}
		out = append(out, w)
	}
	return out
}
