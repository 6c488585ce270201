package annotate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-verdict/internal/domain"
)

// foldCaser is a package-level Unicode case folder for verdict
// comparison. Shared to avoid creating a caser per parse.
var foldCaser = cases.Fold()

// EvalResponse is the decoded JSON reply the model is instructed to
// produce for each statement.
type EvalResponse struct {
	// Verdict is the raw label claimed by the model, prior to
	// normalization against the allowed vocabulary.
	Verdict string `json:"verdict"`

	// Confidence is the self-reported certainty, already coerced to a
	// float in [0,1]; 0.0 when absent or unparseable.
	Confidence float64 `json:"confidence"`

	// Reason is the model's justification.
	Reason string `json:"reason"`

	// Dimensions holds 1-5 quality scores when the variant requests
	// them. Out-of-range scores are dropped during validation.
	Dimensions map[string]int `json:"dimensions,omitempty"`
}

// rawEvalResponse tolerates the schema drift real models produce:
// confidence arrives as a number, a quoted number, or not at all.
type rawEvalResponse struct {
	Verdict    string          `json:"verdict"`
	Confidence json.RawMessage `json:"confidence"`
	Reason     string          `json:"reason"`
	Dimensions map[string]int  `json:"dimensions"`
}

// ExtractJSON extracts the JSON payload from a model reply that may
// wrap it in markdown fences or surrounding prose. Preference order:
// a fenced block tagged json, any fenced block opening with "{", the
// first balanced top-level object, and finally the trimmed raw reply
// so the caller's decode fails with the original content in hand.
// Purely syntactic; no semantic validation happens here.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		// Skip a language identifier on the fence line.
		if nl := strings.Index(response[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(response[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	if span := balancedObject(response); span != "" {
		return span
	}

	return response
}

// balancedObject returns the first top-level {...} span, tracking
// strings and escapes so braces inside values don't break matching.
func balancedObject(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(response); i++ {
		char := response[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				return response[start : i+1]
			}
		}
	}

	return ""
}

// ParseEvalResponse extracts and decodes the evaluation JSON from a raw
// model reply. A decode failure is the caller's signal to take the
// malformed-output fallback path; it is never worth a retry because the
// model already answered.
func ParseEvalResponse(response string) (EvalResponse, error) {
	jsonStr := ExtractJSON(response)

	var raw rawEvalResponse
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return EvalResponse{}, fmt.Errorf("failed to decode evaluation JSON (%d chars): %w", len(jsonStr), err)
	}

	resp := EvalResponse{
		Verdict:    strings.TrimSpace(raw.Verdict),
		Confidence: coerceConfidence(raw.Confidence),
		Reason:     raw.Reason,
	}

	// Keep only dimension scores inside the instructed 1-5 scale.
	for name, score := range raw.Dimensions {
		if score < 1 || score > 5 {
			continue
		}
		if resp.Dimensions == nil {
			resp.Dimensions = make(map[string]int, len(raw.Dimensions))
		}
		resp.Dimensions[name] = score
	}

	return resp, nil
}

// coerceConfidence converts whatever the model put in the confidence
// field to a float in [0,1], defaulting to 0.0.
func coerceConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0.0
	}

	var val float64
	if err := json.Unmarshal(raw, &val); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0.0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0.0
		}
		val = parsed
	}

	if val < 0.0 {
		return 0.0
	}
	if val > 1.0 {
		return 1.0
	}
	return val
}

// verdictSynonyms maps legacy vocabulary onto the canonical verdict
// set. Earlier record schemas carried the fact-check outcome in
// Chinese; those values still normalize cleanly.
var verdictSynonyms = map[string]string{
	"正确":  domain.VerdictHigh,
	"错误":  domain.VerdictLow,
	"不确定": domain.VerdictUnknown,
}

// canonicalVerdicts is the closed set every verdict must land in.
var canonicalVerdicts = []string{domain.VerdictHigh, domain.VerdictLow, domain.VerdictUnknown}

// NormalizeVerdict maps a raw model verdict onto the canonical set.
// Matching is case-insensitive (Unicode folded) and repairs one-edit
// typos; legacy synonym vocabularies are accepted. The second return
// is false when the verdict is outside the vocabulary and the caller
// must coerce to unknown.
func NormalizeVerdict(raw string) (string, bool) {
	verdict := strings.Trim(strings.TrimSpace(raw), `"'`)
	if verdict == "" {
		return domain.VerdictUnknown, false
	}

	if canonical, ok := verdictSynonyms[verdict]; ok {
		return canonical, true
	}

	folded := foldCaser.String(verdict)
	for _, canonical := range canonicalVerdicts {
		if folded == canonical {
			return canonical, true
		}
	}

	// Repair near-miss spellings ("hgh", "unkown") but never let a
	// short token drift across verdicts.
	for _, canonical := range canonicalVerdicts {
		if len(folded) > 2 && levenshtein.ComputeDistance(folded, canonical) <= 1 {
			return canonical, true
		}
	}

	return domain.VerdictUnknown, false
}
