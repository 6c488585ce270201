package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// Default annotator configuration values.
const (
	// DefaultMaxRetries is the number of completion attempts per
	// statement before producing a fallback result.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the fixed pause between attempts, so that
	// repeated failures do not hammer the backend.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// TextAnnotator annotates one statement and returns a normalized
// result. Implementations never fail on judgment problems; every
// failure mode degrades to a fallback result. The only returned error
// is context cancellation.
type TextAnnotator interface {
	Annotate(ctx context.Context, text string) (domain.AnnotationResult, error)
}

// AnnotatorConfig defines the retry policy for the single-call
// annotation primitive.
type AnnotatorConfig struct {
	// MaxRetries is the number of completion attempts for transport
	// failures. Parse failures and errors classified as non-retryable
	// are never retried.
	MaxRetries int `yaml:"max_retries" json:"max_retries" validate:"min=1,max=10"`

	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" validate:"min=0"`
}

// DefaultAnnotatorConfig returns the standard retry policy.
func DefaultAnnotatorConfig() AnnotatorConfig {
	return AnnotatorConfig{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Annotator orchestrates one record's judgment: build the prompt, call
// the completion backend, parse and validate the reply, gate on
// confidence, and degrade to a fallback result when no real judgment
// can be obtained. It owns the retry policy. Stateless and safe for
// concurrent use.
type Annotator struct {
	client  ports.CompletionClient
	builder *PromptBuilder
	config  AnnotatorConfig
	tracer  trace.Tracer
}

// NewAnnotator creates an Annotator over the given completion client
// and prompt builder.
func NewAnnotator(client ports.CompletionClient, builder *PromptBuilder, config AnnotatorConfig) (*Annotator, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client cannot be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("prompt builder cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &Annotator{
		client:  client,
		builder: builder,
		config:  config,
		tracer:  otel.Tracer("annotator"),
	}, nil
}

// AnnotateOne judges a single statement with the given model
// parameters. Transport failures are retried up to the configured
// limit and then converted to a fallback result; malformed model
// output is converted immediately. The returned error is non-nil only
// when the context ended or the text is blank.
func (a *Annotator) AnnotateOne(ctx context.Context, text string, model domain.ModelConfig) (domain.AnnotationResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.AnnotationResult{}, domain.ErrEmptyText
	}

	ctx, span := a.tracer.Start(ctx, "Annotator.AnnotateOne",
		trace.WithAttributes(
			attribute.String("annotate.model", model.Model),
			attribute.String("annotate.variant", a.builder.Variant().Name),
			attribute.Int("annotate.text_length", len(text)),
		),
	)
	defer span.End()

	prompt, err := a.builder.Build(text)
	if err != nil {
		span.RecordError(err)
		return fallbackResult(model.Model, fmt.Sprintf("prompt construction failed: %v", err)), nil
	}

	options := map[string]any{
		"model":       model.Model,
		"temperature": model.Temperature,
		"top_p":       model.TopP,
		"max_tokens":  model.MaxTokens,
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= a.config.MaxRetries; attempt++ {
		attempts = attempt
		reply, usage, err := a.client.CompleteWithUsage(ctx, prompt, options)
		if err != nil {
			if ctx.Err() != nil {
				return domain.AnnotationResult{}, ctx.Err()
			}
			lastErr = err
			span.RecordError(err)
			var classified *ports.LLMError
			if errors.As(err, &classified) && !classified.IsRetryable() {
				break
			}
			if attempt < a.config.MaxRetries {
				if err := sleepCtx(ctx, a.config.RetryDelay); err != nil {
					return domain.AnnotationResult{}, err
				}
			}
			continue
		}

		result := a.normalize(reply, model)
		result.Usage = usage
		span.SetAttributes(
			attribute.String("annotate.verdict", result.Verdict),
			attribute.Float64("annotate.confidence", result.Confidence),
			attribute.Bool("annotate.fallback", result.Fallback),
			attribute.Int("annotate.attempts", attempt),
		)
		return result, nil
	}

	span.SetAttributes(attribute.Bool("annotate.fallback", true))
	reason := fmt.Sprintf("completion call failed after %d attempts: %v", attempts, lastErr)
	return fallbackResult(model.Model, reason), nil
}

// normalize turns a raw model reply into a validated AnnotationResult.
// Parse failures yield a fallback distinct from retry exhaustion; an
// out-of-vocabulary verdict and a sub-threshold confidence each coerce
// the verdict to unknown with an annotated reason.
func (a *Annotator) normalize(reply string, model domain.ModelConfig) domain.AnnotationResult {
	parsed, err := ParseEvalResponse(reply)
	if err != nil {
		result := fallbackResult(model.Model, "model output format anomaly, could not parse JSON")
		result.RawResponse = domain.TruncateRawResponse(reply)
		return result
	}

	verdict, ok := NormalizeVerdict(parsed.Verdict)
	reason := parsed.Reason
	if !ok {
		reason = fmt.Sprintf("model returned out-of-vocabulary verdict %q; flagged for manual review. %s", parsed.Verdict, reason)
	}

	if parsed.Confidence < model.ConfidenceThreshold {
		verdict = domain.VerdictUnknown
		reason = fmt.Sprintf("confidence %.2f below threshold %.2f; automatic judgment suppressed for human review. %s",
			parsed.Confidence, model.ConfidenceThreshold, reason)
	}

	return domain.AnnotationResult{
		Verdict:     verdict,
		Confidence:  parsed.Confidence,
		Reason:      domain.TruncateReason(reason),
		Dimensions:  parsed.Dimensions,
		RawResponse: domain.TruncateRawResponse(reply),
		Model:       model.Model,
	}
}

// fallbackResult builds the synthetic unknown result used when no real
// judgment could be obtained or parsed.
func fallbackResult(model, reason string) domain.AnnotationResult {
	return domain.AnnotationResult{
		Verdict:    domain.VerdictUnknown,
		Confidence: 0.0,
		Reason:     domain.TruncateReason(reason),
		Model:      model,
		Fallback:   true,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SingleStage binds an Annotator to one fixed model configuration,
// satisfying TextAnnotator for batches that do not escalate.
type SingleStage struct {
	annotator *Annotator
	model     domain.ModelConfig
}

// NewSingleStage creates a TextAnnotator that always uses one model
// configuration.
func NewSingleStage(annotator *Annotator, model domain.ModelConfig) *SingleStage {
	return &SingleStage{annotator: annotator, model: model}
}

// Annotate judges the statement with the bound model configuration.
func (s *SingleStage) Annotate(ctx context.Context, text string) (domain.AnnotationResult, error) {
	return s.annotator.AnnotateOne(ctx, text, s.model)
}
