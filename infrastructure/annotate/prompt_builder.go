// Package annotate contains the annotation units of the pipeline:
// prompt construction, response parsing, the retrying annotator, and
// the two-stage escalation policy.
package annotate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// PromptVariant parameterizes prompt construction. Variants differ in
// their quality dimensions, their label-derivation rule, and whether
// encoded content must be decoded before judgment; the differences are
// carried as data so every variant flows through one builder.
type PromptVariant struct {
	// Name identifies the variant in configuration.
	Name string

	// Dimensions lists the quality dimensions the model scores on a
	// 1-5 integer scale. Empty for the plain fact-check variant.
	Dimensions []string

	// LabelRule is the explicit derivation rule, stated in the prompt,
	// by which the model computes the final label from its fact check
	// and dimension scores. The pipeline never recomputes the label;
	// it only parses and sanity-checks the model's answer.
	LabelRule string

	// DecodeEncoded instructs the model to decode base64 or otherwise
	// encoded content to its raw form before judging it.
	DecodeEncoded bool
}

// Built-in prompt variants. Each preserves its exact scoring rule as
// variant data rather than builder branches.
var (
	// VariantBasic asks for a direct fact-check label with no
	// dimension scoring.
	VariantBasic = PromptVariant{
		Name: "basic",
		LabelRule: `- "high" if the statement is factually correct
- "low" if the statement contains errors or falsehoods
- "unknown" if correctness cannot be determined or information is insufficient`,
	}

	// VariantThreeDimensions scores reliability, practicality, and
	// systematicity alongside the fact check.
	VariantThreeDimensions = PromptVariant{
		Name:       "three_dimensions",
		Dimensions: []string{"reliability", "practicality", "systematic"},
		LabelRule: `- "high" if the fact check is not "wrong" AND (at least 2 dimensions score >= 4 OR reliability scores >= 4)
- "low" if the fact check is "wrong" OR at least 2 dimensions score <= 2 OR reliability scores <= 2
- "unknown" otherwise`,
	}

	// VariantFourDimensions adds novelty and requires encoded content
	// to be decoded before judgment.
	VariantFourDimensions = PromptVariant{
		Name:       "four_dimensions",
		Dimensions: []string{"reliability", "practicality", "systematic", "novelty"},
		LabelRule: `- "high" if the fact check is not "wrong" AND (at least 2 dimensions score >= 4 OR reliability scores >= 4)
- "low" if the fact check is "wrong" OR at least 2 dimensions score <= 2 OR reliability scores <= 2
- "unknown" otherwise`,
		DecodeEncoded: true,
	}
)

// VariantByName resolves a configured variant name.
func VariantByName(name string) (PromptVariant, error) {
	switch name {
	case "", VariantBasic.Name:
		return VariantBasic, nil
	case VariantThreeDimensions.Name:
		return VariantThreeDimensions, nil
	case VariantFourDimensions.Name:
		return VariantFourDimensions, nil
	default:
		return PromptVariant{}, fmt.Errorf("unknown prompt variant: %s", name)
	}
}

// promptTemplate is the fixed instruction set wrapped around the text
// under evaluation. The model is asked to fact-check, optionally score
// quality dimensions, derive the final label via the variant's rule,
// and reply with a single fenced JSON object.
const promptTemplate = `You are a text quality assessment expert. Evaluate the factual accuracy of the following statement.

Statement:
"""
{{.Text}}
"""
{{if .DecodeEncoded}}
If the statement contains encoded content such as base64, first decode it to raw bytes, interpret those bytes as ASCII or UTF-8 text, and judge the decoded content. All text in your reply must be valid UTF-8.
{{end}}
Step 1 - Fact check:
Judge the statement against publicly verifiable knowledge (scientific facts, historical events, statistics). Treat subjective, predictive, or unverifiable claims as undetermined.
{{if .Dimensions}}
Step 2 - Quality assessment:
Score each dimension on an integer scale from 1 to 5, where 5 is best:
{{range $i, $d := .Dimensions}}{{inc $i}}. {{$d}}
{{end}}
Step 3 - Label derivation:
Derive the final label from the rule:
{{.LabelRule}}
{{else}}
Step 2 - Label derivation:
Derive the final label from the rule:
{{.LabelRule}}
{{end}}
Step {{if .Dimensions}}4{{else}}3{{end}} - Output:
Reply with exactly one JSON object and nothing else, in a fenced code block:
` + "```json" + `
{
  "verdict": "high/low/unknown",
  "confidence": <number between 0.0 and 1.0>,
  "reason": "<specific justification, at least 50 characters>"{{if .Dimensions}},
  "dimensions": { {{range $i, $d := .Dimensions}}{{if $i}}, {{end}}"{{$d}}": <1-5>{{end}} }{{end}}
}
` + "```" + `

Requirements:
1. Base the judgment on objective facts, not opinion.
2. Prefer "unknown" for ambiguous or contested statements.
3. The reason must be concrete and logical.`

// PromptBuilder renders evaluation prompts for one variant. It is a
// pure function of the input text: deterministic, no side effects,
// no I/O. Safe for concurrent use.
type PromptBuilder struct {
	variant PromptVariant
	tmpl    *template.Template
}

// NewPromptBuilder compiles the prompt template for the given variant.
func NewPromptBuilder(variant PromptVariant) (*PromptBuilder, error) {
	tmpl, err := template.New("annotationPrompt").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &PromptBuilder{variant: variant, tmpl: tmpl}, nil
}

// Variant returns the variant this builder renders.
func (pb *PromptBuilder) Variant() PromptVariant { return pb.variant }

// Build renders the evaluation prompt with the statement embedded
// verbatim.
func (pb *PromptBuilder) Build(text string) (string, error) {
	data := struct {
		Text string
		PromptVariant
	}{Text: text, PromptVariant: pb.variant}

	var buf bytes.Buffer
	if err := pb.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
