// Command score compares annotated predictions against ground truth
// and prints the weighted quality score.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/ahrav/go-verdict/infrastructure/storage"
	"github.com/ahrav/go-verdict/internal/domain"
)

func main() {
	var (
		truthPath = flag.String("truth", "", "Ground truth JSONL file")
		predPath  = flag.String("predictions", "", "Annotated predictions JSONL file")
	)
	flag.Parse()

	if *truthPath == "" || *predPath == "" {
		flag.Usage()
		log.Fatal("both -truth and -predictions are required")
	}

	ctx := context.Background()
	truth := loadRecords(ctx, *truthPath)
	predictions := loadRecords(ctx, *predPath)

	report := domain.Score(truth, predictions)

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Score report:")
	fmt.Printf("Effective accuracy: %.4f\n", report.EffectiveAccuracy)
	fmt.Printf("Automation rate:    %.4f\n", report.AutomationRate)
	fmt.Printf("Final score:        %.4f\n", report.FinalScore)
	fmt.Printf("Correct:            %d/%d\n", report.NCorrect, report.NTotal)
	fmt.Printf("Unknown:            %d\n", report.NUnknown)
	fmt.Printf("Auto-annotated:     %d\n", report.NLLM)
	fmt.Println(strings.Repeat("=", 50))
}

func loadRecords(ctx context.Context, path string) []domain.Record {
	store, err := storage.NewJSONLStore(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	records, dropped, err := store.ReadAll(ctx)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	if dropped > 0 {
		log.Printf("Warning: skipped %d malformed line(s) in %s", dropped, path)
	}
	return records
}
