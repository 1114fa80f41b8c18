package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/decalflow/core"
)

// MockModel is a scripted in-memory Model useful for tests & examples.
//
// Responses are served in this order: a queued entry (Enqueue/EnqueueError),
// the handler (SetHandler), a canned response keyed by the prompt text
// (AddResponse), and finally an echo of the prompt.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	queue     []mockResult
	handler   func(ctx context.Context, req Request) (*Response, error)
	responses map[string]string
	requests  []Request
}

type mockResult struct {
	resp *Response
	err  error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// Enqueue appends responses returned by subsequent Generate calls.
func (m *MockModel) Enqueue(resps ...*Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range resps {
		m.queue = append(m.queue, mockResult{resp: r})
	}
	return m
}

// EnqueueError makes the next unconsumed Generate call fail with err.
func (m *MockModel) EnqueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{err: err})
	return m
}

// SetHandler installs a function computing responses from the request.
func (m *MockModel) SetHandler(fn func(ctx context.Context, req Request) (*Response, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Calls returns the number of Generate invocations so far.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or false when none arrived.
func (m *MockModel) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var next *mockResult
	if len(m.queue) > 0 {
		next = &m.queue[0]
		m.queue = m.queue[1:]
	}
	handler := m.handler
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if next != nil {
		return next.resp, next.err
	}
	if handler != nil {
		return handler(ctx, req)
	}

	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("no contents provided")
	}
	inputText := req.Contents[len(req.Contents)-1].Text()

	m.mu.Lock()
	full := m.responses[inputText]
	m.mu.Unlock()
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}

	return &Response{
		Content:      core.NewTextContent(core.RoleAssistant, full),
		FinishReason: FinishStop,
	}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
