// Package application wires the annotation pipeline together: run
// configuration, batch orchestration, and result summarization.
package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-verdict/infrastructure/annotate"
	"github.com/ahrav/go-verdict/internal/domain"
)

// Default configuration values applied when the config file leaves a
// field unset.
const (
	DefaultCheckpointInterval = 10
	DefaultStage1Threshold    = 0.6
	DefaultStage2Threshold    = 0.7
	DefaultStage1CostPerCall  = 0.0005
	DefaultStage2CostPerCall  = 0.0025
	DefaultTimeoutSeconds     = 120
)

// Config is the root configuration for an annotation run, loaded from
// a YAML file.
type Config struct {
	// Provider selects and configures the completion backend.
	Provider ProviderConfig `yaml:"provider" validate:"required"`

	// Annotation holds the judgment policy: prompt variant, model
	// stages, retry behavior, and the escalation bar.
	Annotation AnnotationConfig `yaml:"annotation" validate:"required"`

	// Batch controls how a run walks its input file.
	Batch BatchConfig `yaml:"batch"`

	// Costs drives the run's cost estimate accrual.
	Costs CostConfig `yaml:"costs"`
}

// ProviderConfig configures the completion backend.
type ProviderConfig struct {
	// Type names the provider implementation.
	Type string `yaml:"type" validate:"required,oneof=openai anthropic google"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never appears in config files.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`

	// BaseURL overrides the provider endpoint, for OpenAI-compatible
	// gateways.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// TimeoutSeconds bounds each completion request.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=3600"`

	// RequestsPerSecond enables client-side rate limiting when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"omitempty,gt=0"`

	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst" validate:"omitempty,min=1"`
}

// AnnotationConfig holds the judgment policy for a run.
type AnnotationConfig struct {
	// PromptVariant selects the prompt template family.
	PromptVariant string `yaml:"prompt_variant" validate:"omitempty,oneof=basic three_dimensions four_dimensions"`

	// Stage1 is the cheap model tried on every statement.
	Stage1 domain.ModelConfig `yaml:"stage1" validate:"required"`

	// Stage2 is the strong escalation model. Escalation is enabled
	// when its model name is non-empty.
	Stage2 domain.ModelConfig `yaml:"stage2"`

	// AcceptConfidence is the bar a stage-one result must strictly
	// exceed to avoid escalation.
	AcceptConfidence float64 `yaml:"accept_confidence" validate:"gte=0,lte=1"`

	// MaxRetries is the attempt budget for transport failures.
	MaxRetries int `yaml:"max_retries" validate:"omitempty,min=1,max=10"`

	// RetryDelayMS is the fixed wait between attempts.
	RetryDelayMS int `yaml:"retry_delay_ms" validate:"omitempty,min=0,max=60000"`
}

// BatchConfig controls how a run walks its input file.
type BatchConfig struct {
	// SkipHumanAnnotated preserves records that already carry a human
	// verdict. Defaults to true.
	SkipHumanAnnotated *bool `yaml:"skip_human_annotated"`

	// MaxSamples caps the number of records annotated; 0 means all.
	MaxSamples int `yaml:"max_samples" validate:"omitempty,min=0"`

	// CheckpointInterval is the number of processed records between
	// checkpoint snapshots.
	CheckpointInterval int `yaml:"checkpoint_interval" validate:"omitempty,min=1"`

	// MaxConcurrency is the number of records judged in parallel.
	// Values <= 1 give strictly sequential processing.
	MaxConcurrency int `yaml:"max_concurrency" validate:"omitempty,min=1,max=64"`
}

// CostConfig holds flat per-call cost estimates per stage.
type CostConfig struct {
	Stage1PerCall float64 `yaml:"stage1_per_call" validate:"omitempty,gte=0"`
	Stage2PerCall float64 `yaml:"stage2_per_call" validate:"omitempty,gte=0"`
}

// LoadConfig reads, defaults, and validates a run configuration from
// the given YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses, defaults, and validates run configuration from
// raw YAML bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if _, err := annotate.VariantByName(cfg.Annotation.PromptVariant); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Annotation.MaxRetries == 0 {
		c.Annotation.MaxRetries = annotate.DefaultMaxRetries
	}
	if c.Annotation.RetryDelayMS == 0 {
		c.Annotation.RetryDelayMS = int(annotate.DefaultRetryDelay / time.Millisecond)
	}
	if c.Annotation.AcceptConfidence == 0 {
		c.Annotation.AcceptConfidence = annotate.DefaultAcceptConfidence
	}
	if c.Annotation.Stage1.ConfidenceThreshold == 0 {
		c.Annotation.Stage1.ConfidenceThreshold = DefaultStage1Threshold
	}
	if c.Annotation.Stage2.Model != "" && c.Annotation.Stage2.ConfidenceThreshold == 0 {
		c.Annotation.Stage2.ConfidenceThreshold = DefaultStage2Threshold
	}
	if c.Batch.CheckpointInterval == 0 {
		c.Batch.CheckpointInterval = DefaultCheckpointInterval
	}
	if c.Batch.MaxConcurrency == 0 {
		c.Batch.MaxConcurrency = 1
	}
	if c.Batch.SkipHumanAnnotated == nil {
		skip := true
		c.Batch.SkipHumanAnnotated = &skip
	}
	if c.Costs.Stage1PerCall == 0 {
		c.Costs.Stage1PerCall = DefaultStage1CostPerCall
	}
	if c.Costs.Stage2PerCall == 0 {
		c.Costs.Stage2PerCall = DefaultStage2CostPerCall
	}
}

// Escalating reports whether the run uses the two-stage cost ladder.
func (c *Config) Escalating() bool { return c.Annotation.Stage2.Model != "" }

// RetryDelay returns the configured retry delay as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Annotation.RetryDelayMS) * time.Millisecond
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}
