// Package llm provides the completion-client stack for the annotation
// pipeline. It abstracts multiple LLM providers (OpenAI-compatible,
// Anthropic, Google) behind a common interface and layers cross-cutting
// concerns (timeouts, rate limiting, metrics, tracing) through a
// middleware chain.
//
// Architecture:
//   - Core client implementation with middleware chain composition
//   - Provider implementations abstracted through the CoreLLM interface
//   - Pluggable middleware for timeouts, rate limiting, metrics, tracing
//   - Factory registry for provider creation
//
// Retry deliberately does not live here: the annotator owns the retry
// policy so transport attempts and judgment attempts stay in one place.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("DASHSCOPE_API_KEY"),
//	    Model:  "qwen-turbo",
//	})
//	reply, err := client.Complete(ctx, prompt, nil)
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// CoreLLM defines the minimal interface that LLM providers implement.
// The middleware system wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the reply
	// text plus input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM implementation to add cross-cutting
// functionality without modifying provider logic.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds all options for creating a completion client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the default model identifier for requests.
	Model string

	// BaseURL overrides the provider's default endpoint. This is how
	// OpenAI-compatible services (DashScope, ModelScope) are reached.
	BaseURL string

	// Timeout bounds individual requests. Zero means no client-side
	// timeout beyond what TimeoutMiddleware enforces.
	Timeout time.Duration

	// TokenEstimator provides custom token counting logic.
	// If nil, a character-based estimator is used.
	TokenEstimator TokenEstimator

	// Middleware is applied in the order given, first entry outermost.
	Middleware []Middleware
}

// TokenEstimator provides pluggable token estimation strategies for
// cost estimation when exact counts are not available.
type TokenEstimator interface {
	// EstimateTokens returns an approximate token count for the text.
	EstimateTokens(text string) int
}

// Client implements ports.CompletionClient by delegating to a wrapped
// provider chain.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.CompletionClient = (*Client)(nil)

// NewClient creates a completion client for the named provider type,
// assembling the middleware chain and validating configuration.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first entry is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = NewTokenCounter()
	}

	return &Client{core: core, estimator: estimator}, nil
}

// Complete sends a prompt and returns the reply text, discarding usage
// information for callers that do not track cost.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and returns the reply together with
// provider-reported token usage for cost accounting.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, domain.TokenUsage, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, options)
	usage := domain.TokenUsage{
		InputTokens:  tokensIn,
		OutputTokens: tokensOut,
		TotalTokens:  tokensIn + tokensOut,
	}
	if err != nil {
		return response, usage, ports.NewLLMError(c.core.GetModel(), "complete", err)
	}
	return response, usage, nil
}

// EstimateTokens returns an approximate token count for the text using
// the configured estimator.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the configured model name of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

// providerFactories registers provider constructors by type name.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a custom provider factory,
// enabling extension without modifying this package.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
