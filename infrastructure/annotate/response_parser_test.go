package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verdict/internal/domain"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "fenced json block",
			response: "Here is my answer:\n```json\n{\"verdict\": \"high\"}\n```\nDone.",
			want:     `{"verdict": "high"}`,
		},
		{
			name:     "generic fence with object",
			response: "```\n{\"verdict\": \"low\"}\n```",
			want:     `{"verdict": "low"}`,
		},
		{
			name:     "bare object surrounded by prose",
			response: "Sure. {\"verdict\": \"high\", \"reason\": \"ok\"} Hope that helps!",
			want:     `{"verdict": "high", "reason": "ok"}`,
		},
		{
			name:     "braces inside string values",
			response: `{"verdict": "high", "reason": "formula {x} holds"}`,
			want:     `{"verdict": "high", "reason": "formula {x} holds"}`,
		},
		{
			name:     "nested object",
			response: `prefix {"verdict": "high", "dimensions": {"reliability": 4}} suffix`,
			want:     `{"verdict": "high", "dimensions": {"reliability": 4}}`,
		},
		{
			name:     "no json returns trimmed raw",
			response: "  I cannot answer that.  ",
			want:     "I cannot answer that.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.response))
		})
	}
}

func TestParseEvalResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
		verify   func(t *testing.T, resp EvalResponse)
	}{
		{
			name:     "well formed fenced reply",
			response: "```json\n{\"verdict\": \"high\", \"confidence\": 0.92, \"reason\": \"matches established physics\"}\n```",
			verify: func(t *testing.T, resp EvalResponse) {
				assert.Equal(t, "high", resp.Verdict)
				assert.InDelta(t, 0.92, resp.Confidence, 1e-9)
				assert.Equal(t, "matches established physics", resp.Reason)
			},
		},
		{
			name:     "confidence as quoted number",
			response: `{"verdict": "low", "confidence": "0.4", "reason": "r"}`,
			verify: func(t *testing.T, resp EvalResponse) {
				assert.InDelta(t, 0.4, resp.Confidence, 1e-9)
			},
		},
		{
			name:     "missing confidence defaults to zero",
			response: `{"verdict": "high", "reason": "r"}`,
			verify: func(t *testing.T, resp EvalResponse) {
				assert.Zero(t, resp.Confidence)
			},
		},
		{
			name:     "confidence above one clamps",
			response: `{"verdict": "high", "confidence": 1.7, "reason": "r"}`,
			verify: func(t *testing.T, resp EvalResponse) {
				assert.InDelta(t, 1.0, resp.Confidence, 1e-9)
			},
		},
		{
			name:     "out of range dimension scores dropped",
			response: `{"verdict": "high", "confidence": 0.9, "reason": "r", "dimensions": {"reliability": 4, "novelty": 9, "systematic": 0}}`,
			verify: func(t *testing.T, resp EvalResponse) {
				assert.Equal(t, map[string]int{"reliability": 4}, resp.Dimensions)
			},
		},
		{
			name:     "truncated json is an error",
			response: `{"verdict": "hi`,
			wantErr:  true,
		},
		{
			name:     "prose without json is an error",
			response: "I refuse to answer in the requested format.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseEvalResponse(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.verify(t, resp)
		})
	}
}

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "canonical high", raw: "high", want: domain.VerdictHigh, ok: true},
		{name: "canonical low", raw: "low", want: domain.VerdictLow, ok: true},
		{name: "canonical unknown", raw: "unknown", want: domain.VerdictUnknown, ok: true},
		{name: "uppercase folded", raw: "HIGH", want: domain.VerdictHigh, ok: true},
		{name: "surrounding quotes stripped", raw: `"low"`, want: domain.VerdictLow, ok: true},
		{name: "one edit typo repaired", raw: "hgh", want: domain.VerdictHigh, ok: true},
		{name: "dropped letter in unknown", raw: "unkown", want: domain.VerdictUnknown, ok: true},
		{name: "legacy chinese correct", raw: "正确", want: domain.VerdictHigh, ok: true},
		{name: "legacy chinese wrong", raw: "错误", want: domain.VerdictLow, ok: true},
		{name: "legacy chinese undetermined", raw: "不确定", want: domain.VerdictUnknown, ok: true},
		{name: "short token never drifts", raw: "lo", want: domain.VerdictUnknown, ok: false},
		{name: "empty coerces to unknown", raw: "", want: domain.VerdictUnknown, ok: false},
		{name: "out of vocabulary", raw: "maybe", want: domain.VerdictUnknown, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeVerdict(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
