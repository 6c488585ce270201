package annotate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
	"github.com/ahrav/go-verdict/internal/testutils"
)

func testModelConfig() domain.ModelConfig {
	return domain.ModelConfig{
		Model:               "qwen-turbo",
		Temperature:         0.1,
		TopP:                0.9,
		MaxTokens:           1500,
		ConfidenceThreshold: 0.6,
	}
}

func fastRetryConfig() AnnotatorConfig {
	return AnnotatorConfig{MaxRetries: 3, RetryDelay: time.Millisecond}
}

func newTestAnnotator(t *testing.T, client *testutils.MockCompletionClient) *Annotator {
	t.Helper()
	builder, err := NewPromptBuilder(VariantBasic)
	require.NoError(t, err)
	annotator, err := NewAnnotator(client, builder, fastRetryConfig())
	require.NoError(t, err)
	return annotator
}

func TestNewAnnotator(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	builder, err := NewPromptBuilder(VariantBasic)
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() (*Annotator, error)
		wantErr bool
	}{
		{
			name:    "valid",
			run:     func() (*Annotator, error) { return NewAnnotator(client, builder, DefaultAnnotatorConfig()) },
			wantErr: false,
		},
		{
			name:    "nil client",
			run:     func() (*Annotator, error) { return NewAnnotator(nil, builder, DefaultAnnotatorConfig()) },
			wantErr: true,
		},
		{
			name:    "nil builder",
			run:     func() (*Annotator, error) { return NewAnnotator(client, nil, DefaultAnnotatorConfig()) },
			wantErr: true,
		},
		{
			name: "retry budget out of range",
			run: func() (*Annotator, error) {
				return NewAnnotator(client, builder, AnnotatorConfig{MaxRetries: 99})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			annotator, err := tt.run()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, annotator)
		})
	}
}

func TestAnnotateOneSuccess(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	client.SetDefaultResponse("```json\n" +
		`{"verdict": "high", "confidence": 0.95, "reason": "well documented physical fact"}` +
		"\n```")
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "water boils at 100C at sea level", testModelConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictHigh, result.Verdict)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, "well documented physical fact", result.Reason)
	assert.Equal(t, "qwen-turbo", result.Model)
	assert.False(t, result.Fallback)
	assert.Positive(t, result.Usage.TotalTokens)
	assert.Equal(t, 1, client.CallCount())
}

func TestAnnotateOneConfidenceGating(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	client.SetDefaultResponse(`{"verdict": "high", "confidence": 0.4, "reason": "weak sources"}`)
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "contested claim", testModelConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictUnknown, result.Verdict)
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
	assert.Contains(t, result.Reason, "below threshold")
	assert.Contains(t, result.Reason, "weak sources")
	assert.False(t, result.Fallback)
}

func TestAnnotateOneOutOfVocabularyVerdict(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	client.SetDefaultResponse(`{"verdict": "probably", "confidence": 0.9, "reason": "hedging"}`)
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "some claim", testModelConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictUnknown, result.Verdict)
	assert.Contains(t, result.Reason, `"probably"`)
	assert.Contains(t, result.Reason, "manual review")
	assert.False(t, result.Fallback)
}

func TestAnnotateOneMalformedReplyNoRetry(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	client.SetDefaultResponse("I'm sorry, I can't produce JSON today.")
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "some claim", testModelConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictUnknown, result.Verdict)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Reason, "could not parse JSON")
	assert.Contains(t, result.RawResponse, "can't produce JSON")
	// The model answered; a second call would not fix its formatting.
	assert.Equal(t, 1, client.CallCount())
}

func TestAnnotateOneRetryExhaustion(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	boom := errors.New("connection reset")
	client.Script(
		testutils.ScriptedCall{Err: boom},
		testutils.ScriptedCall{Err: boom},
		testutils.ScriptedCall{Err: boom},
	)
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "some claim", testModelConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictUnknown, result.Verdict)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Reason, "failed after 3 attempts")
	assert.Contains(t, result.Reason, "connection reset")
	assert.Equal(t, 3, client.CallCount())
}

func TestAnnotateOneEmptyText(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	annotator := newTestAnnotator(t, client)

	_, err := annotator.AnnotateOne(context.Background(), "   ", testModelConfig())
	require.ErrorIs(t, err, domain.ErrEmptyText)
	assert.Equal(t, 0, client.CallCount())
}

func TestAnnotateOneNonRetryableError(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	denied := ports.NewLLMError("qwen-turbo", "complete", errors.New("invalid API key"))
	client.Script(
		testutils.ScriptedCall{Err: denied},
		testutils.ScriptedCall{Err: denied},
		testutils.ScriptedCall{Err: denied},
	)
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "some claim", testModelConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictUnknown, result.Verdict)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.Reason, "failed after 1 attempts")
	assert.Contains(t, result.Reason, "invalid API key")
	// Retrying an authentication failure cannot succeed.
	assert.Equal(t, 1, client.CallCount())
}

func TestAnnotateOneRetryThenSuccess(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	client.Script(
		testutils.ScriptedCall{Err: errors.New("rate limited")},
		testutils.ScriptedCall{Err: errors.New("rate limited")},
		testutils.ScriptedCall{Response: `{"verdict": "low", "confidence": 0.85, "reason": "contradicts records"}`},
	)
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "some claim", testModelConfig())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictLow, result.Verdict)
	assert.False(t, result.Fallback)
	assert.Equal(t, 3, client.CallCount())
}

func TestAnnotateOneContextCancellation(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	annotator := newTestAnnotator(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := annotator.AnnotateOne(ctx, "some claim", testModelConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnnotateOneTruncatesLongReason(t *testing.T) {
	client := testutils.NewMockCompletionClient("qwen-turbo")
	long := ""
	for len(long) < domain.MaxReasonLength+200 {
		long += "a very long justification segment "
	}
	client.SetDefaultResponse(`{"verdict": "high", "confidence": 0.9, "reason": "` + long + `"}`)
	annotator := newTestAnnotator(t, client)

	result, err := annotator.AnnotateOne(context.Background(), "some claim", testModelConfig())
	require.NoError(t, err)

	assert.Len(t, result.Reason, domain.MaxReasonLength)
}
