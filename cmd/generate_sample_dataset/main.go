// Command generate_sample_dataset writes a synthetic JSONL record
// file for exercising the annotation pipeline end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahrav/go-verdict/infrastructure/storage"
	"github.com/ahrav/go-verdict/internal/testutils"
)

func main() {
	var (
		size       = flag.Int("size", 10, "Number of records to generate")
		outputPath = flag.String("output", "testdata/sample_dataset.jsonl", "Output file path")
	)
	flag.Parse()

	store, err := storage.NewJSONLStore(*outputPath)
	if err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}

	records := testutils.SampleRecords(*size)
	if err := store.WriteAll(context.Background(), records); err != nil {
		log.Fatalf("Failed to write dataset: %v", err)
	}

	fmt.Printf("Generated sample dataset:\n")
	fmt.Printf("- Path: %s\n", *outputPath)
	fmt.Printf("- Records: %d\n", len(records))
}
