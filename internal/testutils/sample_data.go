package testutils

import (
	"fmt"

	"github.com/ahrav/go-verdict/internal/domain"
)

// sampleStatements are factual claims of varying truthfulness used to
// exercise the pipeline end to end. Several are deliberately false or
// contested so a run produces a mix of verdicts.
var sampleStatements = []string{
	"地球是太阳系中最大的行星。",
	"水的沸点在标准大气压下是100摄氏度。",
	"秦始皇统一六国后建立了唐朝。",
	"光在真空中的传播速度是每秒30万公里。",
	"人类可以在火星表面不穿宇航服生存。",
	"珠穆朗玛峰是世界最高峰。",
	"大熊猫是肉食性动物。",
	"COVID-19病毒可以通过空气传播。",
	"月亮本身会发光。",
	"中国的首都是上海。",
}

// SampleRecords generates n unannotated records with deterministic
// IDs, cycling through the built-in statement fixtures.
func SampleRecords(n int) []domain.Record {
	records := make([]domain.Record, n)
	for i := range records {
		text := fmt.Sprintf("测试文本 %d", i+1)
		if i < len(sampleStatements) {
			text = sampleStatements[i%len(sampleStatements)]
		}
		records[i] = domain.Record{
			ID:   fmt.Sprintf("sample_%04d", i+1),
			Text: text,
		}
	}
	return records
}

// AnnotatedRecord builds a record that already carries an automated
// verdict, for scoring and summary tests.
func AnnotatedRecord(id, text, verdict, reason string) domain.Record {
	return domain.Record{
		ID:            id,
		Text:          text,
		LLMEvalResult: verdict,
		LLMEvalReason: reason,
	}
}

// GroundTruthRecord builds a record carrying a human verdict, for
// scoring and skip-logic tests.
func GroundTruthRecord(id, text, verdict string) domain.Record {
	return domain.Record{
		ID:                   id,
		Text:                 text,
		HumanAnnotatedResult: verdict,
		HumanAnnotatedReason: "验证后的人工标注",
	}
}
