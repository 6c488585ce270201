// Command annotate runs batch fact-check annotation over a JSONL
// record file using the configured LLM backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-verdict/infrastructure/middleware"
	"github.com/ahrav/go-verdict/infrastructure/storage"
	"github.com/ahrav/go-verdict/internal/application"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "Run configuration file")
		inputPath   = flag.String("input", "", "Input JSONL record file")
		outputPath  = flag.String("output", "", "Output JSONL record file")
		metricsAddr = flag.String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (empty disables)")
	)
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		flag.Usage()
		log.Fatal("both -input and -output are required")
	}

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := storage.NewJSONLStorePair(*inputPath, *outputPath)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}

	metrics := middleware.NewPrometheusMetrics()
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Printf("Warning: metrics endpoint failed: %v", err)
			}
		}()
	}

	runner, err := application.BuildRunner(cfg, store, metrics)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := runner.Run(ctx)
	if runErr != nil && report == nil {
		log.Fatalf("Annotation run failed: %v", runErr)
	}

	printReport(report, *outputPath)
	if runErr != nil {
		log.Fatalf("Run interrupted: %v (partial results written)", runErr)
	}
}

func printReport(report *application.RunReport, outputPath string) {
	stats := report.Summary.Stats
	fmt.Printf("Annotation run complete:\n")
	fmt.Printf("- Output: %s\n", outputPath)
	fmt.Printf("- Total records: %d\n", stats.Total)
	fmt.Printf("- Processed: %d\n", stats.Processed)
	fmt.Printf("- Skipped: %d\n", stats.Skipped)
	fmt.Printf("- Auto-annotated: %d\n", stats.AutoAnnotated)
	fmt.Printf("- Unknown: %d\n", stats.UnknownCount)
	fmt.Printf("- Automation rate: %.2f%%\n", stats.AutomationRate()*100)
	fmt.Printf("- Estimated cost: $%.4f\n", stats.CostEstimate)

	if len(report.Summary.VerdictCounts) > 0 {
		fmt.Printf("\nVerdict distribution:\n")
		verdicts := make([]string, 0, len(report.Summary.VerdictCounts))
		for v := range report.Summary.VerdictCounts {
			verdicts = append(verdicts, v)
		}
		sort.Strings(verdicts)
		for _, v := range verdicts {
			fmt.Printf("- %s: %d\n", v, report.Summary.VerdictCounts[v])
		}
	}

	if len(report.Summary.DimensionMeans) > 0 {
		fmt.Printf("\nDimension means:\n")
		dims := make([]string, 0, len(report.Summary.DimensionMeans))
		for d := range report.Summary.DimensionMeans {
			dims = append(dims, d)
		}
		sort.Strings(dims)
		for _, d := range dims {
			fmt.Printf("- %s: %.2f\n", d, report.Summary.DimensionMeans[d])
		}
	}
}
