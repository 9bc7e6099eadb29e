package llm

import (
	"context"
	"sync"
)

// MockClient is a deterministic Client for tests. Respond decides the answer
// for each request; when nil, Response/Err are returned for every call.
type MockClient struct {
	Respond  func(ctx context.Context, req Request) (string, error)
	Response string
	Err      error

	mu    sync.Mutex
	calls []Request
}

// Complete records req and returns the scripted answer.
func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.Respond != nil {
		return m.Respond(ctx, req)
	}
	return m.Response, m.Err
}

// Calls returns a copy of the requests seen so far.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}
