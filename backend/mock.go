package backend

import (
	"context"
	"sync"
)

// MockProvider is a scripted provider for tests and local development.
// Responses and errors are consumed in order; the last entry repeats once
// the script runs out.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

// NewMockProvider creates a mock that replies with the given responses in
// order. Pair it with FailWith to script failures between successes.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses}
}

// FailWith schedules errs before the scripted responses: call n returns
// errs[n] while errors remain, then responses resume.
func (m *MockProvider) FailWith(errs ...error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
	return m
}

// Calls reports how many times Generate ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name implements Provider.
func (*MockProvider) Name() string { return "mock" }

// Generate implements Provider.
func (m *MockProvider) Generate(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++

	if call < len(m.errs) {
		if err := m.errs[call]; err != nil {
			return "", err
		}
	}

	idx := call - len(m.errs)
	if idx < 0 {
		idx = 0
	}
	if len(m.responses) == 0 {
		return "", ErrNoText
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}
