// Package ports defines the interfaces that form the contract between
// the annotation core and the infrastructure layer.
// These interfaces enable dependency inversion and make the pipeline testable.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-verdict/internal/domain"
)

// CompletionClient defines the interface for submitting prompts to a
// Large Language Model backend.
// Implementations handle provider-specific details like authentication,
// request formatting, and response parsing; the core only depends on
// the uniform complete-or-fail capability.
type CompletionClient interface {
	// Complete sends a prompt to the model and returns the raw reply text.
	// The options map carries model parameters without widening the
	// interface per provider. Recognized keys:
	//   - "model": string (overrides the client's default model)
	//   - "temperature": float64
	//   - "top_p": float64
	//   - "max_tokens": int
	// Implementations must fail fast rather than hang; timeouts are
	// enforced inside the client, retries are owned by the caller.
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// CompleteWithUsage is Complete plus the provider-reported token
	// usage, for cost accounting. Usage fields are zero when the
	// provider did not report them.
	CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, domain.TokenUsage, error)

	// EstimateTokens calculates the approximate token count for a text.
	EstimateTokens(text string) (int, error)

	// GetModel returns the default model identifier of this client.
	GetModel() string
}

// RecordStore reads and writes annotation records. The canonical
// implementation is line-delimited JSON on the filesystem; checkpoint
// snapshots are a single JSON array under a derived sibling name.
type RecordStore interface {
	// ReadAll loads every decodable record in input order. Undecodable
	// lines are counted and skipped, never fatal; the count of dropped
	// lines is returned alongside the records.
	ReadAll(ctx context.Context) ([]domain.Record, int, error)

	// WriteAll atomically replaces the store contents with the given
	// records, preserving their order.
	WriteAll(ctx context.Context, records []domain.Record) error

	// WriteCheckpoint persists a full snapshot of in-progress records to
	// the checkpoint location. Snapshots overwrite each other; two
	// checkpoint writes never interleave.
	WriteCheckpoint(ctx context.Context, records []domain.Record) error
}

// MetricsCollector defines the interface for collecting operational
// metrics from the pipeline and the completion client stack.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)
}
