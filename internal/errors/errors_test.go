package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRAGError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with RAGError
	ragErr := New(ErrCodeDatabaseRead, "failed to read chunk row", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, ragErr)
	assert.Equal(t, originalErr, errors.Unwrap(ragErr))
	assert.True(t, errors.Is(ragErr, originalErr))
}

func TestRAGError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "validation error",
			code:     ErrCodeInvalidTTL,
			message:  "invalid ttl string",
			expected: "[ERR_102_INVALID_TTL] invalid ttl string",
		},
		{
			name:     "not found error",
			code:     ErrCodeMemoryNotFound,
			message:  "memory abc123 not found",
			expected: "[ERR_201_MEMORY_NOT_FOUND] memory abc123 not found",
		},
		{
			name:     "embedding error",
			code:     ErrCodeEmbeddingInference,
			message:  "embedding request failed",
			expected: "[ERR_302_EMBEDDING_INFERENCE] embedding request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestRAGError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeMemoryNotFound, "memory A not found", nil)
	err2 := New(ErrCodeMemoryNotFound, "memory B not found", nil)

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
}

func TestRAGError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	// Given: two errors with different codes
	err1 := New(ErrCodeMemoryNotFound, "not found", nil)
	err2 := New(ErrCodeInvalidTTL, "bad ttl", nil)

	// Then: they don't match
	assert.False(t, errors.Is(err1, err2))
}

func TestRAGError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeInvalidPath, "path escapes workspace", nil)

	// When: adding details
	err = err.WithDetail("path", "/foo/../../etc/passwd")
	err = err.WithDetail("workspace", "/foo")

	// Then: details are available
	assert.Equal(t, "/foo/../../etc/passwd", err.Details["path"])
	assert.Equal(t, "/foo", err.Details["workspace"])
}

func TestRAGError_WithSuggestion_AddsSuggestion(t *testing.T) {
	// Given: an embedding error
	err := New(ErrCodeEmbeddingInit, "embedder unavailable", nil)

	// When: adding suggestion
	err = err.WithSuggestion("Start the local embedding server and retry")

	// Then: suggestion is available
	assert.Equal(t, "Start the local embedding server and retry", err.Suggestion)
}

func TestRAGError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeUnknownEnum, CategoryValidation},
		{ErrCodeInvalidTTL, CategoryValidation},
		{ErrCodeMemoryNotFound, CategoryNotFound},
		{ErrCodeEmbeddingInit, CategoryEmbedding},
		{ErrCodeDimensionMismatch, CategoryEmbedding},
		{ErrCodeDatabaseWrite, CategoryDatabase},
		{ErrCodeUnsupportedExt, CategoryParse},
		{ErrCodeRollbackFailure, CategoryRollback},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestRAGError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeUnsupportedSchema, SeverityFatal},
		{ErrCodeRollbackFailure, SeverityFatal},
		{ErrCodeMemoryNotFound, SeverityError},
		{ErrCodeEmbeddingInit, SeverityWarning}, // Retryable, so warning
		{ErrCodeEmbeddingInference, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestRAGError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeEmbeddingInit, true},
		{ErrCodeEmbeddingInference, true},
		{ErrCodeMemoryNotFound, false},
		{ErrCodeInvalidTTL, false},
		{ErrCodeRollbackFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesRAGErrorFromError(t *testing.T) {
	// Given: a standard error
	originalErr := errors.New("something went wrong")

	// When: wrapping with a code
	ragErr := Wrap(ErrCodeInternal, originalErr)

	// Then: creates proper RAGError
	require.NotNil(t, ragErr)
	assert.Equal(t, ErrCodeInternal, ragErr.Code)
	assert.Equal(t, "something went wrong", ragErr.Message)
	assert.Equal(t, originalErr, ragErr.Cause)
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestNewValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := NewValidationError(ErrCodeScoreOutOfRange, "min_score must be in [0, 2]", nil)

	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, ErrCodeScoreOutOfRange, err.Code)
}

func TestNewNotFoundError_CreatesNotFoundCategoryError(t *testing.T) {
	err := NewNotFoundError("memory deadbeef not found", nil)

	assert.Equal(t, CategoryNotFound, err.Category)
}

func TestNewEmbeddingError_CreatesRetryableError(t *testing.T) {
	err := NewEmbeddingError(ErrCodeEmbeddingInit, "embedder init failed", nil)

	assert.Equal(t, CategoryEmbedding, err.Category)
	assert.True(t, err.Retryable)
}

func TestNewDatabaseError_CreatesDatabaseCategoryError(t *testing.T) {
	err := NewDatabaseError(ErrCodeDatabaseWrite, "insert failed", nil)

	assert.Equal(t, CategoryDatabase, err.Category)
}

func TestNewParseError_CreatesParseCategoryError(t *testing.T) {
	err := NewParseError(ErrCodeUnsupportedExt, "unsupported extension .bin", nil)

	assert.Equal(t, CategoryParse, err.Category)
}

func TestNewRollbackError_ComposesOriginalAndRollbackCause(t *testing.T) {
	original := errors.New("insert failed")
	rollbackCause := errors.New("restore from backup failed")

	err := NewRollbackError("replace could not be rolled back", original, rollbackCause)

	assert.Equal(t, CategoryRollback, err.Category)
	assert.Equal(t, SeverityFatal, err.Severity)
	assert.Equal(t, rollbackCause, err.Cause)
	assert.Equal(t, "insert failed", err.Details["original_error"])
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable RAGError",
			err:      New(ErrCodeEmbeddingInit, "init failed", nil),
			expected: true,
		},
		{
			name:     "non-retryable RAGError",
			err:      New(ErrCodeMemoryNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeEmbeddingInference, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "unsupported schema is fatal",
			err:      New(ErrCodeUnsupportedSchema, "schema too old", nil),
			expected: true,
		},
		{
			name:     "rollback failure is fatal",
			err:      New(ErrCodeRollbackFailure, "rollback failed", nil),
			expected: true,
		},
		{
			name:     "not found is non-fatal",
			err:      New(ErrCodeMemoryNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestGetCode_ExtractsCode(t *testing.T) {
	err := New(ErrCodeInvalidTag, "bad tag", nil)
	assert.Equal(t, ErrCodeInvalidTag, GetCode(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestGetCategory_ExtractsCategory(t *testing.T) {
	err := New(ErrCodeDatabaseRead, "read failed", nil)
	assert.Equal(t, CategoryDatabase, GetCategory(err))
	assert.Equal(t, Category(""), GetCategory(errors.New("plain")))
}
