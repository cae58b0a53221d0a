package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_ThroughEmbeddingAndWrapping(t *testing.T) {
	err := NewSearchError("graphs", 502, io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("explorer: %w", err)

	assert.True(t, IsErrorType(err, ErrorTypeSearch))
	assert.True(t, IsErrorType(wrapped, ErrorTypeSearch))
	assert.False(t, IsErrorType(wrapped, ErrorTypeData))
	assert.True(t, errors.Is(wrapped, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "status 502")

	var se *ErrSearchFailed
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "graphs", se.Query)
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("search: %w", ErrNoResults)
	assert.True(t, errors.Is(err, ErrNoResults))
	assert.False(t, errors.Is(err, ErrStale))
	assert.True(t, IsErrorType(ErrStale, ErrorTypeCondition))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "No matching articles or categories", UserMessage(ErrNoResults))
	assert.Equal(t, "Search is unavailable right now", UserMessage(NewSearchError("q", 0, io.EOF)))
	assert.Equal(t, "Could not load the knowledge graph", UserMessage(NewDataError("file", io.EOF)))
	assert.Equal(t, "Something went wrong", UserMessage(io.EOF))
}
