package brain

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// ReplyFunc is called when Reply is invoked.
	// If nil, echoes the request text.
	ReplyFunc func(ctx context.Context, text, extra string) (string, error)

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Extra  string
	Time   time.Time
}

// NewMock creates a mock that echoes the request text.
func NewMock() *Mock {
	return &Mock{
		ReplyFunc: func(ctx context.Context, text, extra string) (string, error) {
			return "echo: " + text, nil
		},
	}
}

// MockWithError returns a mock whose Reply always fails.
func MockWithError(err error) *Mock {
	return &Mock{
		ReplyFunc: func(ctx context.Context, text, extra string) (string, error) {
			return "", err
		},
	}
}

// Reply calls ReplyFunc and records the call.
func (m *Mock) Reply(ctx context.Context, text, extra string) (string, error) {
	m.recordCall("Reply", text, extra)
	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, text, extra)
	}
	return "echo: " + text, nil
}

// Name identifies the backend.
func (m *Mock) Name() string {
	return "mock"
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", "", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method, text, extra string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Text:   text,
		Extra:  extra,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
