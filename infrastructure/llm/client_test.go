package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ahrav/go-verdict/internal/ports"
)

// fakeCore is a scriptable CoreLLM for middleware and client tests.
type fakeCore struct {
	mu       sync.Mutex
	model    string
	response string
	err      error
	calls    int
	lastCtx  context.Context
}

func (f *fakeCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	f.mu.Lock()
	f.calls++
	f.lastCtx = ctx
	f.mu.Unlock()
	if f.err != nil {
		return "", 0, 0, f.err
	}
	return f.response, 10, 5, nil
}

func (f *fakeCore) GetModel() string  { return f.model }
func (f *fakeCore) SetModel(m string) { f.model = m }

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		config      ClientConfig
		expectError bool
	}{
		{
			name:     "valid openai client",
			provider: "openai",
			config: ClientConfig{
				APIKey: "test-api-key",
				Model:  "gpt-4o-mini",
			},
			expectError: false,
		},
		{
			name:     "valid anthropic client",
			provider: "anthropic",
			config: ClientConfig{
				APIKey: "test-api-key",
				Model:  "claude-3-5-sonnet-20241022",
			},
			expectError: false,
		},
		{
			name:     "valid google client",
			provider: "google",
			config: ClientConfig{
				APIKey: "test-api-key",
				Model:  "gemini-2.0-flash-exp",
			},
			expectError: false,
		},
		{
			name:     "openai compatible endpoint",
			provider: "openai",
			config: ClientConfig{
				APIKey:  "test-api-key",
				Model:   "qwen-turbo",
				BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
			},
			expectError: false,
		},
		{
			name:     "missing api key",
			provider: "openai",
			config: ClientConfig{
				Model: "gpt-4o-mini",
			},
			expectError: true,
		},
		{
			name:     "missing model",
			provider: "openai",
			config: ClientConfig{
				APIKey: "test-api-key",
			},
			expectError: true,
		},
		{
			name:     "unknown provider",
			provider: "mystery",
			config: ClientConfig{
				APIKey: "test-key",
				Model:  "some-model",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if client == nil {
				t.Errorf("expected client but got nil")
			}
		})
	}
}

func TestClientWithRegisteredFactory(t *testing.T) {
	core := &fakeCore{model: "fake-model", response: "fake reply"}
	RegisterProviderFactory("fake-test-provider", func(ClientConfig) (CoreLLM, error) {
		return core, nil
	})

	client, err := NewClient("fake-test-provider", ClientConfig{
		APIKey: "key",
		Model:  "fake-model",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, usage, err := client.CompleteWithUsage(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response != "fake reply" {
		t.Errorf("expected %q, got %q", "fake reply", response)
	}
	if usage.InputTokens != 10 || usage.OutputTokens != 5 || usage.TotalTokens != 15 {
		t.Errorf("unexpected usage: %+v", usage)
	}
	if got := client.GetModel(); got != "fake-model" {
		t.Errorf("expected model fake-model, got %q", got)
	}
}

func TestClientMiddlewareOrdering(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &taggedCore{next: next, name: name, order: &order}
		}
	}

	core := &fakeCore{model: "m", response: "ok"}
	RegisterProviderFactory("ordering-test-provider", func(ClientConfig) (CoreLLM, error) {
		return core, nil
	})

	client, err := NewClient("ordering-test-provider", ClientConfig{
		APIKey:     "key",
		Model:      "m",
		Middleware: []Middleware{tag("outer"), tag("inner")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Complete(context.Background(), "prompt", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer", "inner"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected %v, got %v", want, order)
			break
		}
	}
}

type taggedCore struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (c *taggedCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*c.order = append(*c.order, c.name)
	return c.next.DoRequest(ctx, prompt, opts)
}

func (c *taggedCore) GetModel() string  { return c.next.GetModel() }
func (c *taggedCore) SetModel(m string) { c.next.SetModel(m) }

func TestClientEstimateTokens(t *testing.T) {
	core := &fakeCore{model: "m", response: "ok"}
	RegisterProviderFactory("estimate-test-provider", func(ClientConfig) (CoreLLM, error) {
		return core, nil
	})

	client, err := NewClient("estimate-test-provider", ClientConfig{APIKey: "key", Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := client.EstimateTokens("this is roughly twenty characters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count <= 0 {
		t.Errorf("expected positive token estimate, got %d", count)
	}
}

func TestClientPropagatesProviderError(t *testing.T) {
	core := &fakeCore{model: "m", err: errors.New("backend down")}
	RegisterProviderFactory("error-test-provider", func(ClientConfig) (CoreLLM, error) {
		return core, nil
	})

	client, err := NewClient("error-test-provider", ClientConfig{APIKey: "key", Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Complete(context.Background(), "prompt", nil)
	if err == nil {
		t.Fatalf("expected error but got none")
	}

	var llmErr *ports.LLMError
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *ports.LLMError, got %T", err)
	}
	if llmErr.Model != "m" {
		t.Errorf("expected model %q, got %q", "m", llmErr.Model)
	}
	if !errors.Is(err, core.err) {
		t.Errorf("expected wrapped error to unwrap to the provider error")
	}

	core.err = NewProviderError("fake", ErrorTypeRateLimit, 429, "slow down", nil)
	_, err = client.Complete(context.Background(), "prompt", nil)
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *ports.LLMError, got %T", err)
	}
	if !llmErr.IsRetryable() {
		t.Errorf("expected rate-limit error to classify as retryable")
	}
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	core := &fakeCore{model: "m", response: "ok"}
	wrapped := TimeoutMiddleware(250 * time.Millisecond)(core)

	if _, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline, ok := core.lastCtx.Deadline()
	if !ok {
		t.Fatal("expected a deadline on the request context")
	}
	if remaining := time.Until(deadline); remaining > 250*time.Millisecond {
		t.Errorf("deadline too far out: %v", remaining)
	}
}

func TestRateLimitMiddlewareCancelledContext(t *testing.T) {
	core := &fakeCore{model: "m", response: "ok"}
	wrapped := RateLimitMiddleware(1, 1)(core)

	ctx, cancel := context.WithCancel(context.Background())

	// First call consumes the burst.
	if _, _, _, err := wrapped.DoRequest(ctx, "prompt", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()
	if _, _, _, err := wrapped.DoRequest(ctx, "prompt", nil); err == nil {
		t.Errorf("expected error from cancelled wait")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	collector := newMockMetricsCollector()
	core := &fakeCore{model: "qwen-turbo", response: "ok"}
	wrapped := MetricsMiddleware(collector)(core)

	if _, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := collector.counters["completion_requests_total:success"]; got != 1 {
		t.Errorf("expected 1 successful request, got %v", got)
	}
	if got := collector.counters["completion_tokens_total:success"]; got != 15 {
		t.Errorf("expected 15 tokens recorded, got %v", got)
	}
	if _, ok := collector.histograms["completion_request:success"]; !ok {
		t.Errorf("expected latency recorded for successful request")
	}

	core.err = errors.New("boom")
	if _, _, _, err := wrapped.DoRequest(context.Background(), "prompt", nil); err == nil {
		t.Fatal("expected error")
	}
	if got := collector.counters["completion_requests_total:error"]; got != 1 {
		t.Errorf("expected 1 failed request, got %v", got)
	}
}

// mockMetricsCollector keys metrics by name and status label.
type mockMetricsCollector struct {
	histograms map[string]float64
	counters   map[string]float64
	gauges     map[string]float64
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		histograms: make(map[string]float64),
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
	}
}

func (m *mockMetricsCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	m.histograms[fmt.Sprintf("%s:%s", operation, labels["status"])] = duration.Seconds()
}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	m.counters[fmt.Sprintf("%s:%s", metric, labels["status"])] += value
}

func (m *mockMetricsCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	m.gauges[fmt.Sprintf("%s:%s", metric, labels["status"])] = value
}
