package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-verdict/internal/ports"
)

// metricsLLM collects request latency, token usage, and error rates
// for operational monitoring of the completion backend.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that records completion request
// metrics through the given collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

// DoRequest executes the request while recording latency, request
// counts, and token usage labeled by model and outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	labels := map[string]string{
		"model":  m.next.GetModel(),
		"status": "success",
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			labels["status"] = "timeout"
		} else {
			labels["status"] = "error"
		}
	}

	if m.collector != nil {
		m.collector.RecordLatency("completion_request", time.Since(start), labels)
		m.collector.RecordCounter("completion_requests_total", 1, labels)
		if err == nil {
			labels["direction"] = "input"
			m.collector.RecordCounter("completion_tokens_total", float64(tokensIn), labels)
			labels["direction"] = "output"
			m.collector.RecordCounter("completion_tokens_total", float64(tokensOut), labels)
		}
	}

	return response, tokensIn, tokensOut, err
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
