package blink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockExecutor implements Executor for testing. Responses are registered per
// URL; every call is recorded.
type MockExecutor struct {
	mu        sync.Mutex
	calls     []mockCall
	responses map[string]mockResponse
}

type mockCall struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
	HasDL   bool
}

type mockResponse struct {
	body any
	err  error
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{responses: make(map[string]mockResponse)}
}

// Respond registers the value decoded into out for requests to url.
func (m *MockExecutor) Respond(url string, body any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = mockResponse{body: body}
}

// Fail registers an error for requests to url.
func (m *MockExecutor) Fail(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = mockResponse{err: err}
}

func (m *MockExecutor) Get(ctx context.Context, url string, headers map[string]string, out any) error {
	return m.record(ctx, "GET", url, headers, nil, out)
}

func (m *MockExecutor) Post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	return m.record(ctx, "POST", url, headers, body, out)
}

func (m *MockExecutor) record(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	_, hasDeadline := ctx.Deadline()

	m.mu.Lock()
	m.calls = append(m.calls, mockCall{Method: method, URL: url, Headers: headers, Body: body, HasDL: hasDeadline})
	resp, ok := m.responses[url]
	m.mu.Unlock()

	if !ok {
		return &Error{Kind: KindTransport, StatusCode: 404, Err: fmt.Errorf("no response registered for %s", url)}
	}
	if resp.err != nil {
		return resp.err
	}
	if out == nil || resp.body == nil {
		return nil
	}
	// Round-trip through JSON, as the real executor does.
	data, err := json.Marshal(resp.body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (m *MockExecutor) Calls() []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the calls made to url.
func (m *MockExecutor) CallsTo(url string) []mockCall {
	var out []mockCall
	for _, c := range m.Calls() {
		if c.URL == url {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
