// Package testutils provides deterministic test doubles and sample
// data for the annotation pipeline.
package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// MockCompletionClient implements the CompletionClient interface with
// deterministic, scripted responses for reliable pipeline testing.
// Responses can be matched by prompt substring or scripted in call
// order; errors can be injected per call to exercise retry and
// fallback paths.
type MockCompletionClient struct {
	mu sync.Mutex

	model string

	// patterns maps prompt substrings to canned responses.
	patterns map[string]string

	// script is consumed one entry per call when non-empty, taking
	// precedence over pattern matching.
	script []ScriptedCall

	// defaultResponse is returned when nothing else matches.
	defaultResponse string

	// calls records every prompt received, in order.
	calls []string
}

// ScriptedCall is one pre-programmed completion outcome.
type ScriptedCall struct {
	// Response is the reply text returned when Err is nil.
	Response string
	// Err is returned instead of a response when set.
	Err error
	// Usage is the token usage reported with the response.
	Usage domain.TokenUsage
}

// NewMockCompletionClient creates a mock bound to the given model
// identifier, with a well-formed high-confidence JSON reply as its
// default response.
func NewMockCompletionClient(model string) *MockCompletionClient {
	return &MockCompletionClient{
		model:    model,
		patterns: make(map[string]string),
		defaultResponse: `{"verdict": "high", "confidence": 0.95, ` +
			`"reason": "The statement matches well-established facts."}`,
	}
}

var _ ports.CompletionClient = (*MockCompletionClient)(nil)

// AddPattern registers a canned response for prompts containing the
// given substring.
func (m *MockCompletionClient) AddPattern(substring, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns[substring] = response
}

// Script replaces the call script. Each completion call consumes one
// entry; when the script is exhausted the mock falls back to pattern
// matching.
func (m *MockCompletionClient) Script(calls ...ScriptedCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = calls
}

// SetDefaultResponse overrides the reply used when no script entry or
// pattern applies.
func (m *MockCompletionClient) SetDefaultResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = response
}

// Calls returns a copy of every prompt received so far.
func (m *MockCompletionClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of completion calls received.
func (m *MockCompletionClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Complete returns the scripted or pattern-matched response for the
// prompt.
func (m *MockCompletionClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, err := m.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage returns the scripted or pattern-matched response
// along with its token usage.
func (m *MockCompletionClient) CompleteWithUsage(ctx context.Context, prompt string, _ map[string]any) (string, domain.TokenUsage, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.TokenUsage{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, prompt)

	if len(m.script) > 0 {
		call := m.script[0]
		m.script = m.script[1:]
		if call.Err != nil {
			return "", domain.TokenUsage{}, call.Err
		}
		return call.Response, call.Usage, nil
	}

	for substring, response := range m.patterns {
		if strings.Contains(prompt, substring) {
			return response, mockUsage(prompt, response), nil
		}
	}
	return m.defaultResponse, mockUsage(prompt, m.defaultResponse), nil
}

// EstimateTokens approximates token count at four characters per
// token.
func (m *MockCompletionClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("text cannot be empty")
	}
	return (len(text) + 3) / 4, nil
}

// GetModel returns the mock model identifier.
func (m *MockCompletionClient) GetModel() string { return m.model }

func mockUsage(prompt, response string) domain.TokenUsage {
	in := (len(prompt) + 3) / 4
	out := (len(response) + 3) / 4
	return domain.TokenUsage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}
