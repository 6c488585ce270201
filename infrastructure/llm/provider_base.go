package llm

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Parameter bounds shared across providers.
const (
	// DefaultMaxTokens is used when a request does not set max_tokens.
	// Sized to hold a complete JSON evaluation including the reason.
	DefaultMaxTokens = 1500

	// MinTimeout and MaxTimeout bound configured request timeouts.
	MinTimeout = 1 * time.Second
	MaxTimeout = 10 * time.Minute
)

// BaseProvider provides common, thread-safe model-name handling for
// provider implementations.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the model currently configured for the provider.
// Safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name. Safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the standardized set of request parameters shared
// by all providers.
type RequestOptions struct {
	// Model is the model identifier for this request.
	Model string
	// MaxTokens limits the generated reply length.
	MaxTokens int
	// Temperature controls output randomness; nil uses the provider default.
	Temperature *float64
	// TopP is the nucleus sampling parameter; nil uses the provider default.
	TopP *float64
}

// ParseRequestOptions extracts and validates request parameters from an
// options map, falling back to defaults for missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		Model:     extractString(opts, "model", defaultModel),
		MaxTokens: extractInt(opts, "max_tokens", DefaultMaxTokens),
	}
	if temp, ok := extractFloat(opts, "temperature"); ok && temp >= 0.0 && temp <= 2.0 {
		options.Temperature = &temp
	}
	if topP, ok := extractFloat(opts, "top_p"); ok && topP >= 0.0 && topP <= 1.0 {
		options.TopP = &topP
	}
	return options
}

func extractString(opts map[string]any, key, defaultVal string) string {
	if val, ok := opts[key].(string); ok && val != "" {
		return val
	}
	return defaultVal
}

func extractInt(opts map[string]any, key string, defaultVal int) int {
	if val, ok := opts[key].(int); ok && val > 0 {
		return val
	}
	return defaultVal
}

func extractFloat(opts map[string]any, key string) (float64, bool) {
	switch val := opts[key].(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}

// ValidateBaseURL validates and normalizes a base URL string. An empty
// string is valid and selects the provider's default endpoint.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsed.String(), nil
}

// ValidateTimeout clamps a configured timeout into [MinTimeout,
// MaxTimeout]. Zero or negative means the system default.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// ClampFloat64 clamps val into [min, max].
func ClampFloat64(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// TokenCounter estimates token counts from text when a provider does
// not report exact usage.
type TokenCounter struct {
	// CharactersPerToken is the assumed average characters per token.
	CharactersPerToken float64
}

// NewTokenCounter creates a TokenCounter with a ratio suited to mixed
// English/CJK annotation text.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens returns an estimated token count for the text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount returns the actual count when the provider reported
// one, otherwise an estimate from the text.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}
