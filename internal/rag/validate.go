package rag

import (
	"fmt"
	"strings"

	ragerrors "github.com/localrag/ragmcp/internal/errors"
)

var validSourceTypes = map[string]bool{"": true, "all": true, "file": true, "memory": true}
var validMemoryTypes = map[string]bool{"": true, "memory": true, "lesson": true, "note": true}
var validUpdateModes = map[string]bool{"": true, "replace": true, "append": true, "prepend": true}

// cleanTags trims every tag and rejects empty-after-trim elements. The
// non-list / non-string rejection is enforced one layer up, at
// JSON-unmarshal time, since tags arrives here already typed
// as []string by the transport layer.
func cleanTags(tags []string) ([]string, error) {
	if tags == nil {
		return []string{}, nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil, ragerrors.NewValidationError(ragerrors.ErrCodeInvalidTag,
				"tags must be non-empty strings", nil)
		}
		out[i] = trimmed
	}
	return out, nil
}

func validateSourceType(t string) error {
	if !validSourceTypes[t] {
		return ragerrors.NewValidationError(ragerrors.ErrCodeUnknownEnum,
			fmt.Sprintf("unknown type %q: expected all, file, or memory", t), nil)
	}
	return nil
}

func validateMemoryType(t string) error {
	if !validMemoryTypes[t] {
		return ragerrors.NewValidationError(ragerrors.ErrCodeUnknownEnum,
			fmt.Sprintf("unknown type %q: expected memory, lesson, or note", t), nil)
	}
	return nil
}

func validateUpdateMode(m string) error {
	if !validUpdateModes[m] {
		return ragerrors.NewValidationError(ragerrors.ErrCodeUnknownEnum,
			fmt.Sprintf("unknown mode %q: expected replace, append, or prepend", m), nil)
	}
	return nil
}

// resolveQueryLimit applies query_documents's limit rules: omitted means the
// default of 10; an explicit 0 is rejected; anything outside [1, 20] is
// rejected.
func resolveQueryLimit(limit *int) (int, error) {
	if limit == nil {
		return 10, nil
	}
	if *limit < 1 || *limit > 20 {
		return 0, ragerrors.NewValidationError(ragerrors.ErrCodeLimitOutOfRange,
			fmt.Sprintf("limit %d out of range: must be 1-20", *limit), nil)
	}
	return *limit, nil
}

// resolveListLimit applies list_files's limit rules: omitted means the
// default of 50; an explicit 0 means unlimited (passed through as 0).
func resolveListLimit(limit *int) int {
	if limit == nil {
		return 50
	}
	return *limit
}

// validateMinScore applies the minScore range rule. A nil pointer means no
// filtering was requested.
func validateMinScore(minScore *float64) error {
	if minScore == nil {
		return nil
	}
	if *minScore < 0 || *minScore > 2 {
		return ragerrors.NewValidationError(ragerrors.ErrCodeScoreOutOfRange,
			fmt.Sprintf("minScore %v out of range: must be 0-2", *minScore), nil)
	}
	return nil
}
