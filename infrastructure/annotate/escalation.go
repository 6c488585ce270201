package annotate

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-verdict/internal/domain"
)

// DefaultAcceptConfidence is the confidence bar a cheap-stage result
// must clear to be accepted without escalation.
const DefaultAcceptConfidence = 0.8

// EscalationPolicy describes the two-stage cost ladder: a cheap model
// tried first and a strong model consulted when the cheap result is
// not trustworthy enough.
type EscalationPolicy struct {
	// Stage1 is the cheap model tried on every statement.
	Stage1 domain.ModelConfig `yaml:"stage1" json:"stage1"`

	// Stage2 is the strong model used when stage one does not clear
	// the acceptance bar.
	Stage2 domain.ModelConfig `yaml:"stage2" json:"stage2"`

	// AcceptConfidence is the exclusive lower bound a stage-one
	// confidence must exceed for its verdict to stand.
	AcceptConfidence float64 `yaml:"accept_confidence" json:"accept_confidence" validate:"gte=0,lte=1"`
}

// EscalatingAnnotator runs the two-stage policy. A stage-one result is
// accepted when its verdict is decisive and its confidence strictly
// exceeds the acceptance bar; otherwise the statement is re-judged by
// stage two and that result is returned unconditionally, even when it
// is unknown or a fallback.
type EscalatingAnnotator struct {
	annotator *Annotator
	policy    EscalationPolicy
	tracer    trace.Tracer
}

// NewEscalatingAnnotator creates a two-stage annotator over the given
// single-call primitive.
func NewEscalatingAnnotator(annotator *Annotator, policy EscalationPolicy) (*EscalatingAnnotator, error) {
	if annotator == nil {
		return nil, fmt.Errorf("annotator cannot be nil")
	}
	if err := validate.Struct(policy); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}
	if policy.Stage1.Model == "" || policy.Stage2.Model == "" {
		return nil, fmt.Errorf("both stage models must be set")
	}

	return &EscalatingAnnotator{
		annotator: annotator,
		policy:    policy,
		tracer:    otel.Tracer("escalating-annotator"),
	}, nil
}

// Annotate judges the statement, escalating to the strong model when
// the cheap result is indecisive or under-confident.
func (e *EscalatingAnnotator) Annotate(ctx context.Context, text string) (domain.AnnotationResult, error) {
	ctx, span := e.tracer.Start(ctx, "EscalatingAnnotator.Annotate",
		trace.WithAttributes(
			attribute.String("escalate.stage1_model", e.policy.Stage1.Model),
			attribute.String("escalate.stage2_model", e.policy.Stage2.Model),
		),
	)
	defer span.End()

	first, err := e.annotator.AnnotateOne(ctx, text, e.policy.Stage1)
	if err != nil {
		return domain.AnnotationResult{}, err
	}

	if e.accepted(first) {
		span.SetAttributes(attribute.Bool("escalate.escalated", false))
		return first, nil
	}

	span.SetAttributes(attribute.Bool("escalate.escalated", true))
	second, err := e.annotator.AnnotateOne(ctx, text, e.policy.Stage2)
	if err != nil {
		return domain.AnnotationResult{}, err
	}
	return second, nil
}

// accepted reports whether a stage-one result stands on its own.
func (e *EscalatingAnnotator) accepted(result domain.AnnotationResult) bool {
	return !result.Fallback &&
		result.Verdict != domain.VerdictUnknown &&
		result.Confidence > e.policy.AcceptConfidence
}
