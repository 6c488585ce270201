package application

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-verdict/infrastructure/annotate"
	"github.com/ahrav/go-verdict/internal/domain"
	"github.com/ahrav/go-verdict/internal/ports"
)

// CostEstimator returns the approximate spend for producing one
// annotation result.
type CostEstimator func(domain.AnnotationResult) float64

// BatchOptions controls one batch run.
type BatchOptions struct {
	// SkipHumanAnnotated leaves records with ground truth untouched.
	SkipHumanAnnotated bool

	// MaxSamples caps the number of records annotated; 0 means all.
	MaxSamples int

	// CheckpointInterval is the number of annotated records between
	// checkpoint snapshots.
	CheckpointInterval int

	// MaxConcurrency is the number of records judged in parallel.
	MaxConcurrency int

	// EstimateCost accrues the run's cost estimate. Optional.
	EstimateCost CostEstimator
}

// RunReport is the outcome of one batch run. Records preserves the
// input order and count exactly; Results holds the transient
// annotation outcomes for records that were processed, indexed in
// record order with zero values for skipped records.
type RunReport struct {
	Records []domain.Record
	Results []domain.AnnotationResult
	Summary domain.BatchSummary
}

// BatchRunner walks an input record file, annotates each eligible
// record, and persists the annotated set. Per-record judgment failures
// degrade to fallback records and never abort the run; only context
// cancellation stops a batch, and a checkpoint is written before
// returning in that case.
type BatchRunner struct {
	annotator annotate.TextAnnotator
	store     ports.RecordStore
	metrics   ports.MetricsCollector
	opts      BatchOptions
}

// NewBatchRunner creates a runner over the given annotator and store.
// metrics may be nil.
func NewBatchRunner(
	annotator annotate.TextAnnotator,
	store ports.RecordStore,
	metrics ports.MetricsCollector,
	opts BatchOptions,
) (*BatchRunner, error) {
	if annotator == nil {
		return nil, fmt.Errorf("annotator cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &BatchRunner{
		annotator: annotator,
		store:     store,
		metrics:   metrics,
		opts:      opts,
	}, nil
}

// Run loads the input records, annotates them, and writes the full set
// back through the store. The returned report always reflects whatever
// progress was made, including on cancellation.
func (r *BatchRunner) Run(ctx context.Context) (*RunReport, error) {
	records, dropped, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load input records: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNoRecords
	}
	if dropped > 0 {
		log.Printf("warning: skipped %d malformed input line(s)", dropped)
	}

	report, runErr := r.annotateAll(ctx, records)

	// The final write must survive the cancellation that ended the
	// run, so it uses a fresh context.
	writeCtx := ctx
	if runErr != nil {
		writeCtx = context.WithoutCancel(ctx)
	}
	if err := r.store.WriteAll(writeCtx, report.Records); err != nil {
		if runErr != nil {
			return report, fmt.Errorf("run aborted (%v) and final write failed: %w", runErr, err)
		}
		return report, fmt.Errorf("failed to write annotated records: %w", err)
	}
	return report, runErr
}

func (r *BatchRunner) annotateAll(ctx context.Context, records []domain.Record) (*RunReport, error) {
	out := make([]domain.Record, len(records))
	copy(out, records)
	results := make([]domain.AnnotationResult, len(records))

	stats := domain.RunStats{Total: len(records)}

	var (
		mu              sync.Mutex
		sinceCheckpoint int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxConcurrency)

	budget := r.opts.MaxSamples
	for i := range out {
		if r.opts.SkipHumanAnnotated && out[i].HasHumanAnnotation() {
			stats.Skipped++
			continue
		}
		if strings.TrimSpace(out[i].Text) == "" {
			log.Printf("warning: record %s has no text, skipping", out[i].ID)
			stats.Skipped++
			continue
		}
		if r.opts.MaxSamples > 0 && budget == 0 {
			stats.Skipped++
			continue
		}
		budget--

		idx := i
		g.Go(func() error {
			result, err := r.annotator.Annotate(gctx, out[idx].Text)
			if err != nil {
				return err
			}
			// Record fields are written under the mutex so a
			// concurrent checkpoint never snapshots a half-written
			// record.
			mu.Lock()
			defer mu.Unlock()
			results[idx] = result
			out[idx].LLMEvalResult = result.Verdict
			out[idx].LLMEvalReason = result.Reason

			r.accrue(&stats, result)
			sinceCheckpoint++
			if sinceCheckpoint >= r.opts.CheckpointInterval {
				sinceCheckpoint = 0
				if err := r.store.WriteCheckpoint(gctx, out); err != nil {
					log.Printf("warning: checkpoint write failed: %v", err)
				}
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		// Snapshot progress before surfacing the cancellation.
		if err := r.store.WriteCheckpoint(context.WithoutCancel(ctx), out); err != nil {
			log.Printf("warning: checkpoint write failed: %v", err)
		}
	}

	r.gauge("annotation_run_processed", float64(stats.Processed))
	r.gauge("annotation_run_cost_estimate", stats.CostEstimate)

	return &RunReport{
		Records: out,
		Results: results,
		Summary: domain.Summarize(stats, out, results),
	}, runErr
}

// accrue updates run counters for one completed annotation. Caller
// holds the stats mutex.
func (r *BatchRunner) accrue(stats *domain.RunStats, result domain.AnnotationResult) {
	stats.Processed++
	if result.Verdict != "" {
		stats.AutoAnnotated++
	}
	if result.Verdict == domain.VerdictUnknown {
		stats.UnknownCount++
	}
	if r.opts.EstimateCost != nil {
		stats.CostEstimate += r.opts.EstimateCost(result)
	}
	if r.metrics != nil {
		r.metrics.RecordCounter("annotations_total", 1, map[string]string{
			"verdict":  result.Verdict,
			"fallback": strconv.FormatBool(result.Fallback),
		})
	}
}

func (r *BatchRunner) gauge(name string, value float64) {
	if r.metrics != nil {
		r.metrics.RecordGauge(name, value, nil)
	}
}

// StageCostEstimator builds a CostEstimator from the run configuration:
// a result produced by the stage-two model costs both stages, since
// escalation always spends the cheap call first.
func StageCostEstimator(cfg *Config) CostEstimator {
	stage2 := cfg.Annotation.Stage2.Model
	return func(result domain.AnnotationResult) float64 {
		if stage2 != "" && result.Model == stage2 {
			return cfg.Costs.Stage1PerCall + cfg.Costs.Stage2PerCall
		}
		return cfg.Costs.Stage1PerCall
	}
}
