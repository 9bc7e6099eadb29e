// Package llm provides the structured-extraction service boundary: a chat
// completion client that returns JSON text.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the service answers without any content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is one completion call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// JSON asks the service to return a single JSON object.
	JSON bool
}

// Client completes a prompt and returns the model's text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
