package testutils

import (
	"context"
	"sync"
)

// MockSummarizer returns a canned response and records prompts.
type MockSummarizer struct {
	mu sync.Mutex

	Response string
	Err      error
	Prompts  []string
}

func NewMockSummarizer(response string) *MockSummarizer {
	return &MockSummarizer{Response: response}
}

func (m *MockSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// LastPrompt returns the most recent prompt, or "" if none was sent.
func (m *MockSummarizer) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
