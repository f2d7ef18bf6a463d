package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZaguanLabs/gotlm"
)

// MockProvider translates from a fixed table. Unknown texts come back
// wrapped in the target locale, e.g. "[fr] Hello".
type MockProvider struct {
	Translations map[string]string

	mu          sync.Mutex
	calls       int
	lastRequest *gotlm.TranslateRequest
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Translations: map[string]string{}}
}

func (m *MockProvider) Translate(_ context.Context, req gotlm.TranslateRequest) (map[string]string, error) {
	m.mu.Lock()
	m.calls++
	m.lastRequest = &req
	m.mu.Unlock()

	out := make(map[string]string, len(req.Texts))
	for _, text := range req.Texts {
		if t, ok := m.Translations[text]; ok {
			out[text] = t
			continue
		}
		out[text] = fmt.Sprintf("[%s] %s", req.TargetLocale, text)
	}
	return out, nil
}

// Calls returns how many times Translate ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *gotlm.TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

var _ gotlm.MachineTranslator = (*MockProvider)(nil)
