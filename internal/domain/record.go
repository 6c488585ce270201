// Package domain contains pure, dependency-free domain models and types
// for the annotation pipeline.
package domain

// Verdicts and labels produced by the pipeline. A record's evaluation
// result is always one of these values; anything else the model emits
// is coerced to VerdictUnknown during validation.
const (
	// VerdictHigh marks a statement judged factually sound and valuable.
	VerdictHigh = "high"

	// VerdictLow marks a statement judged wrong or low value.
	VerdictLow = "low"

	// VerdictUnknown marks a statement the pipeline could not judge,
	// either because the model abstained, confidence was too low, or a
	// fallback result was produced.
	VerdictUnknown = "unknown"
)

const (
	// MaxReasonLength caps the persisted justification text.
	// Longer reasons are truncated prefix-first.
	MaxReasonLength = 500

	// MaxRawResponseLength caps the raw model reply retained on an
	// AnnotationResult for diagnostics.
	MaxRawResponseLength = 1000
)

// Record is one text unit under evaluation. Records round-trip through
// line-delimited JSON; the field names match the persisted schema.
type Record struct {
	// ID uniquely identifies this record within a batch.
	ID string `json:"id"`

	// Text is the statement being judged. It may itself carry encoded
	// content (for example base64) that the model is instructed to
	// decode before judging.
	Text string `json:"text"`

	// LLMEvalResult is the pipeline-assigned verdict. Empty until the
	// record has been annotated.
	LLMEvalResult string `json:"llm_eval_result"`

	// LLMEvalReason is the pipeline-assigned justification, capped at
	// MaxReasonLength characters.
	LLMEvalReason string `json:"llm_eval_reason"`

	// HumanAnnotatedResult is optional ground truth. Once present it is
	// immutable; the pipeline never overwrites it.
	HumanAnnotatedResult string `json:"human_annotated_result"`

	// HumanAnnotatedReason is the ground-truth justification.
	HumanAnnotatedReason string `json:"human_annotated_reason"`
}

// HasHumanAnnotation reports whether ground truth is present, which
// makes the record eligible for skipping during batch annotation.
func (r *Record) HasHumanAnnotation() bool { return r.HumanAnnotatedResult != "" }

// ModelConfig holds the immutable per-call parameters for one model
// tier. Configs are passed by value; a call never mutates its config.
type ModelConfig struct {
	// Model is the provider-side model identifier.
	Model string `json:"model" yaml:"model"`

	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// TopP is the nucleus sampling parameter.
	TopP float64 `json:"top_p" yaml:"top_p"`

	// MaxTokens limits the reply length. Must leave room for the full
	// JSON answer including the reason text.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// ConfidenceThreshold is the minimum self-reported certainty in
	// [0,1]. Verdicts below it are downgraded to VerdictUnknown no
	// matter what the model claimed.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
}

// TokenUsage reports token consumption for a single completion call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// AnnotationResult is the transient outcome of annotating one text.
// It is produced fresh per call and never mutated after construction;
// the batch runner merges it into the Record.
type AnnotationResult struct {
	// Verdict is the validated evaluation outcome.
	Verdict string `json:"verdict"`

	// Confidence is the model's self-reported certainty, 0.0 when
	// absent or unparseable.
	Confidence float64 `json:"confidence"`

	// Reason is the justification, already capped at MaxReasonLength.
	Reason string `json:"reason"`

	// Dimensions holds per-dimension quality scores (1-5) when the
	// prompt variant requests them.
	Dimensions map[string]int `json:"dimensions,omitempty"`

	// RawResponse retains the model reply (capped at
	// MaxRawResponseLength) for diagnostics.
	RawResponse string `json:"raw_response,omitempty"`

	// Model is the model identifier that produced this result.
	Model string `json:"model,omitempty"`

	// Usage reports token consumption when the provider returned it.
	Usage TokenUsage `json:"usage,omitempty"`

	// Fallback marks a synthetic result produced when no real judgment
	// could be obtained or parsed.
	Fallback bool `json:"fallback,omitempty"`
}

// TruncateReason caps a justification at MaxReasonLength characters,
// preserving the prefix.
func TruncateReason(reason string) string {
	return truncate(reason, MaxReasonLength)
}

// TruncateRawResponse caps a raw model reply at MaxRawResponseLength
// characters, preserving the prefix.
func TruncateRawResponse(raw string) string {
	return truncate(raw, MaxRawResponseLength)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back up to a rune boundary so multibyte text is never split.
	cut := limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
