// File: internal/llmclient/mock.go
package llmclient

import (
	"context"
	"sync"
)

// DefaultMockAnswer is what MockTransport returns once its script runs out.
const DefaultMockAnswer = `{"continuation_prompt": "continue", "continuation_prompt_risk": 0.1, "task_complete": false, "task_complete_reason": null}`

// MockStep is one scripted reply: either an answer or an error.
type MockStep struct {
	Answer string
	Err    error
}

// MockTransport replays a fixed script and records every request. It is the
// deterministic backend selected by LOOPAUTOMA_BACKEND=fake.
type MockTransport struct {
	mu       sync.Mutex
	script   []MockStep
	requests []*Request
}

// NewMockTransport creates a transport that replays steps in order.
func NewMockTransport(steps ...MockStep) *MockTransport {
	return &MockTransport{script: steps}
}

func (m *MockTransport) Name() string { return "mock" }

func (m *MockTransport) Complete(ctx context.Context, req *Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *req
	clone.Parts = append([]Part(nil), req.Parts...)
	m.requests = append(m.requests, &clone)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(m.script) == 0 {
		return DefaultMockAnswer, nil
	}
	step := m.script[0]
	m.script = m.script[1:]
	return step.Answer, step.Err
}

// Requests returns the requests received so far.
func (m *MockTransport) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}

// Calls returns how many requests were received.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
