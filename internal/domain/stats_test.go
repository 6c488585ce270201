package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatsAutomationRate(t *testing.T) {
	assert.Zero(t, RunStats{}.AutomationRate())

	stats := RunStats{Total: 10, AutoAnnotated: 7}
	assert.InDelta(t, 0.7, stats.AutomationRate(), 1e-9)
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{ID: "a", LLMEvalResult: VerdictHigh},
		{ID: "b", LLMEvalResult: VerdictHigh},
		{ID: "c", LLMEvalResult: VerdictLow},
		{ID: "d", LLMEvalResult: VerdictUnknown},
		{ID: "e"}, // never annotated
	}
	results := []AnnotationResult{
		{Verdict: VerdictHigh, Dimensions: map[string]int{"reliability": 5, "practicality": 3}},
		{Verdict: VerdictHigh, Dimensions: map[string]int{"reliability": 3}},
		{Verdict: VerdictLow},
	}
	stats := RunStats{Total: 5, Processed: 4, Skipped: 1}

	summary := Summarize(stats, records, results)

	assert.Equal(t, stats, summary.Stats)
	assert.Equal(t, map[string]int{
		VerdictHigh:    2,
		VerdictLow:     1,
		VerdictUnknown: 1,
	}, summary.VerdictCounts)
	assert.InDelta(t, 4.0, summary.DimensionMeans["reliability"], 1e-9)
	assert.InDelta(t, 3.0, summary.DimensionMeans["practicality"], 1e-9)
}

func TestSummarizeWithoutDimensions(t *testing.T) {
	records := []Record{{ID: "a", LLMEvalResult: VerdictHigh}}
	summary := Summarize(RunStats{Total: 1, Processed: 1}, records, []AnnotationResult{{Verdict: VerdictHigh}})

	assert.Nil(t, summary.DimensionMeans)
	assert.Equal(t, 1, summary.VerdictCounts[VerdictHigh])
}
