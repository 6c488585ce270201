package domain

// RunStats accumulates counters over one batch annotation run. A stats
// value is created at batch start, updated once per record, and
// surfaced in the run report; it is never persisted as its own entity.
type RunStats struct {
	// Total is the number of records read from the input store.
	Total int `json:"total"`

	// Processed counts records that went through the annotator.
	Processed int `json:"processed"`

	// Skipped counts records bypassed because ground truth was present.
	Skipped int `json:"skipped"`

	// AutoAnnotated counts processed records that received a non-empty
	// verdict (including unknown).
	AutoAnnotated int `json:"auto_annotated"`

	// UnknownCount counts processed records whose verdict is unknown.
	UnknownCount int `json:"unknown_count"`

	// CostEstimate is the approximate spend in account currency units,
	// accrued from the per-model cost table. A placeholder, not billed
	// truth.
	CostEstimate float64 `json:"cost_estimate"`
}

// AutomationRate returns the fraction of all records that received an
// automated verdict. Zero when the batch was empty.
func (s RunStats) AutomationRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.AutoAnnotated) / float64(s.Total)
}

// BatchSummary describes the outcome distribution of a completed run.
type BatchSummary struct {
	// Stats holds the raw run counters.
	Stats RunStats `json:"stats"`

	// VerdictCounts maps each verdict value to its frequency among
	// processed records.
	VerdictCounts map[string]int `json:"verdict_counts"`

	// DimensionMeans maps each quality dimension to its mean score
	// across records where the model reported it.
	DimensionMeans map[string]float64 `json:"dimension_means,omitempty"`
}

// Summarize builds a BatchSummary from the annotated records and the
// per-dimension scores gathered during the run.
func Summarize(stats RunStats, records []Record, dimensions []AnnotationResult) BatchSummary {
	summary := BatchSummary{
		Stats:         stats,
		VerdictCounts: make(map[string]int),
	}

	for i := range records {
		if v := records[i].LLMEvalResult; v != "" {
			summary.VerdictCounts[v]++
		}
	}

	sums := make(map[string]int)
	counts := make(map[string]int)
	for i := range dimensions {
		for name, score := range dimensions[i].Dimensions {
			sums[name] += score
			counts[name]++
		}
	}
	if len(sums) > 0 {
		summary.DimensionMeans = make(map[string]float64, len(sums))
		for name, sum := range sums {
			summary.DimensionMeans[name] = float64(sum) / float64(counts[name])
		}
	}

	return summary
}
