package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolDescriptions_AllEightToolsPresent(t *testing.T) {
	want := []string{
		"query_documents", "ingest_file", "memorize_text", "update_memory",
		"delete_file", "list_files", "cleanup_expired", "status",
	}
	var got []string
	for _, t := range toolDescriptions {
		got = append(got, t.Name)
	}
	assert.ElementsMatch(t, want, got)
}

func TestToolDescriptions_NoneAreEmpty(t *testing.T) {
	for _, tool := range toolDescriptions {
		assert.NotEmpty(t, tool.Description, "tool %q has no description", tool.Name)
	}
}

func TestDescriptionFor_UnknownNameReturnsEmpty(t *testing.T) {
	assert.Empty(t, descriptionFor("nonexistent"))
}
