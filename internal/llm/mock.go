package llm

import (
	"context"
	"sync"
)

// Call records one Complete invocation on a MockClient.
type Call struct {
	System string
	User   string
}

// MockClient answers prompts with a caller-supplied function and records every call.
type MockClient struct {
	mu      sync.Mutex
	respond func(system, user string) (string, error)
	calls   []Call
}

var _ Client = (*MockClient)(nil)

// NewMockClient returns a client that delegates to respond.
func NewMockClient(respond func(system, user string) (string, error)) *MockClient {
	return &MockClient{respond: respond}
}

// NewStaticClient returns a client that always answers text.
func NewStaticClient(text string) *MockClient {
	return NewMockClient(func(string, string) (string, error) { return text, nil })
}

// Complete records the call and returns respond's result.
func (m *MockClient) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{System: system, User: user})
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.respond(system, user)
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
