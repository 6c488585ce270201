package domain

// Scoring weights for grading automated annotations against human
// ground truth. Abstentions are partially rewarded because they avoid
// confidently wrong answers, but never as much as a correct verdict.
const (
	// UnknownCredit is the partial credit an unknown verdict earns
	// toward effective accuracy.
	UnknownCredit = 0.3

	// AccuracyWeight is the share of the final score carried by
	// effective accuracy.
	AccuracyWeight = 0.7

	// AutomationWeight is the share of the final score carried by the
	// automation rate.
	AutomationWeight = 0.3
)

// ScoreReport is the read-only output of scoring a prediction set
// against ground truth.
type ScoreReport struct {
	// EffectiveAccuracy is (NCorrect + UnknownCredit*NUnknown) / NTotal.
	EffectiveAccuracy float64 `json:"effective_accuracy"`

	// AutomationRate is NLLM / NTotal.
	AutomationRate float64 `json:"automation_rate"`

	// FinalScore blends accuracy and automation:
	// AccuracyWeight*EffectiveAccuracy + AutomationWeight*AutomationRate.
	FinalScore float64 `json:"final_score"`

	// NCorrect counts exact verdict matches against ground truth.
	NCorrect int `json:"n_correct"`

	// NUnknown counts predictions that abstained with unknown.
	NUnknown int `json:"n_unknown"`

	// NLLM counts predictions carrying any automated verdict.
	NLLM int `json:"n_llm"`

	// NTotal counts ground-truth records considered.
	NTotal int `json:"n_total"`
}

// Score joins predictions against ground truth by record ID and grades
// them. Only truth records with a human verdict participate; a
// prediction without a matching truth ID is ignored, as is a truth
// record with no prediction. An empty truth set yields an all-zero
// report.
func Score(truth, predictions []Record) ScoreReport {
	predByID := make(map[string]string, len(predictions))
	for i := range predictions {
		predByID[predictions[i].ID] = predictions[i].LLMEvalResult
	}

	var report ScoreReport
	for i := range truth {
		if !truth[i].HasHumanAnnotation() {
			continue
		}
		report.NTotal++

		pred, ok := predByID[truth[i].ID]
		if !ok {
			continue
		}

		if pred != "" {
			report.NLLM++
		}
		if pred == truth[i].HumanAnnotatedResult {
			report.NCorrect++
		}
		if pred == VerdictUnknown {
			report.NUnknown++
		}
	}

	if report.NTotal == 0 {
		return report
	}

	report.EffectiveAccuracy = (float64(report.NCorrect) + UnknownCredit*float64(report.NUnknown)) / float64(report.NTotal)
	report.AutomationRate = float64(report.NLLM) / float64(report.NTotal)
	report.FinalScore = AccuracyWeight*report.EffectiveAccuracy + AutomationWeight*report.AutomationRate
	return report
}
