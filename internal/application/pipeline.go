package application

import (
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-verdict/infrastructure/annotate"
	"github.com/ahrav/go-verdict/infrastructure/llm"
	"github.com/ahrav/go-verdict/internal/ports"
)

// BuildAnnotator assembles the annotation chain described by the
// configuration: completion client with middleware, prompt builder,
// the retrying annotator, and the escalation wrapper when a stage-two
// model is configured. metrics may be nil.
func BuildAnnotator(cfg *Config, metrics ports.MetricsCollector) (annotate.TextAnnotator, error) {
	apiKey := os.Getenv(cfg.Provider.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable %s is not set", cfg.Provider.APIKeyEnv)
	}

	middleware := []llm.Middleware{
		llm.TimeoutMiddleware(cfg.Timeout()),
	}
	if cfg.Provider.RequestsPerSecond > 0 {
		burst := cfg.Provider.Burst
		if burst <= 0 {
			burst = 1
		}
		middleware = append(middleware, llm.RateLimitMiddleware(rate.Limit(cfg.Provider.RequestsPerSecond), burst))
	}
	if metrics != nil {
		middleware = append(middleware, llm.MetricsMiddleware(metrics))
	}
	middleware = append(middleware, llm.TracingMiddleware("annotation-pipeline"))

	client, err := llm.NewClient(cfg.Provider.Type, llm.ClientConfig{
		APIKey:     apiKey,
		Model:      cfg.Annotation.Stage1.Model,
		BaseURL:    cfg.Provider.BaseURL,
		Middleware: middleware,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	variant, err := annotate.VariantByName(cfg.Annotation.PromptVariant)
	if err != nil {
		return nil, err
	}
	builder, err := annotate.NewPromptBuilder(variant)
	if err != nil {
		return nil, err
	}

	annotator, err := annotate.NewAnnotator(client, builder, annotate.AnnotatorConfig{
		MaxRetries: cfg.Annotation.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
	})
	if err != nil {
		return nil, err
	}

	if !cfg.Escalating() {
		return annotate.NewSingleStage(annotator, cfg.Annotation.Stage1), nil
	}
	return annotate.NewEscalatingAnnotator(annotator, annotate.EscalationPolicy{
		Stage1:           cfg.Annotation.Stage1,
		Stage2:           cfg.Annotation.Stage2,
		AcceptConfidence: cfg.Annotation.AcceptConfidence,
	})
}

// BuildRunner assembles a batch runner over the configured annotation
// chain and the given store.
func BuildRunner(cfg *Config, store ports.RecordStore, metrics ports.MetricsCollector) (*BatchRunner, error) {
	annotator, err := BuildAnnotator(cfg, metrics)
	if err != nil {
		return nil, err
	}
	skipHuman := true
	if cfg.Batch.SkipHumanAnnotated != nil {
		skipHuman = *cfg.Batch.SkipHumanAnnotated
	}
	return NewBatchRunner(annotator, store, metrics, BatchOptions{
		SkipHumanAnnotated: skipHuman,
		MaxSamples:         cfg.Batch.MaxSamples,
		CheckpointInterval: cfg.Batch.CheckpointInterval,
		MaxConcurrency:     cfg.Batch.MaxConcurrency,
		EstimateCost:       StageCostEstimator(cfg),
	})
}
