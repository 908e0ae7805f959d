package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingCredentials is returned when no API key or endpoint is configured
	ErrMissingCredentials = errors.New("missing model API credentials")

	// ErrDeploymentNotConfigured is returned when a model type has no deployment
	ErrDeploymentNotConfigured = errors.New("deployment not configured")
)

// ModelType identifies a class of model deployment. The set is closed:
// deployments are looked up from the configuration table, never from ad-hoc
// environment variable names.
type ModelType string

const (
	ModelBasic        ModelType = "basic"
	ModelModerate     ModelType = "moderate"
	ModelReasoning    ModelType = "reasoning"
	ModelHighPerf     ModelType = "high_perf"
	ModelExperimental ModelType = "experimental"
	ModelVision       ModelType = "vision"
)

// APIConfig contains credentials for the model provider
type APIConfig struct {
	Key      string `yaml:"key"`
	Endpoint string `yaml:"endpoint"`
}

// UncertaintyConfig contains settings for hallucination detection
type UncertaintyConfig struct {
	// ConfidenceThreshold below which a response is flagged as uncertain
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// EvaluationConfig contains settings for response quality evaluation
type EvaluationConfig struct {
	FaithfulnessThreshold float64 `yaml:"faithfulness_threshold"`
	RelevancyThreshold    float64 `yaml:"relevancy_threshold"`

	// MaxRetries is the number of extra generation attempts after a failed
	// evaluation. The total attempt count is MaxRetries+1.
	MaxRetries int `yaml:"max_retries"`
}

// TokensConfig contains settings for context window optimization
type TokensConfig struct {
	MaxContextTokens int `yaml:"max_context_tokens"`
	SafetyBuffer     int `yaml:"safety_buffer"`

	// KeepRecent is the number of most recent messages kept verbatim when
	// summarizing older history
	KeepRecent int `yaml:"keep_recent"`

	// Strategy selects "truncate" or "summarize"
	Strategy string `yaml:"strategy"`
}

// RedisConfig contains settings for the raw-response cache
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// OTelConfig contains configuration for OpenTelemetry
type OTelConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ServiceName       string `yaml:"service_name"`
	CollectorEndpoint string `yaml:"collector_endpoint"`
}

// LangfuseConfig contains configuration for Langfuse
type LangfuseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	SecretKey   string `yaml:"secret_key"`
	PublicKey   string `yaml:"public_key"`
	Host        string `yaml:"host"`
	Environment string `yaml:"environment"`
}

// TracingConfig groups the tracing backends
type TracingConfig struct {
	OTel     OTelConfig     `yaml:"otel"`
	Langfuse LangfuseConfig `yaml:"langfuse"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the process-wide configuration. It is constructed once at startup
// and passed by reference to all consumers.
type Config struct {
	API         APIConfig            `yaml:"api"`
	Deployments map[ModelType]string `yaml:"deployments"`
	Uncertainty UncertaintyConfig    `yaml:"uncertainty"`
	Evaluation  EvaluationConfig     `yaml:"evaluation"`
	Tokens      TokensConfig         `yaml:"tokens"`
	Redis       RedisConfig          `yaml:"redis"`
	Tracing     TracingConfig        `yaml:"tracing"`
	Logging     LoggingConfig        `yaml:"logging"`
}

// Default returns a Config populated with defaults. Deployments and
// credentials must still be provided before use.
func Default() *Config {
	return &Config{
		Deployments: make(map[ModelType]string),
		Uncertainty: UncertaintyConfig{ConfidenceThreshold: 0.7},
		Evaluation: EvaluationConfig{
			FaithfulnessThreshold: 0.7,
			RelevancyThreshold:    0.7,
			MaxRetries:            2,
		},
		Tokens: TokensConfig{
			MaxContextTokens: 4000,
			SafetyBuffer:     500,
			KeepRecent:       4,
			Strategy:         "truncate",
		},
		Redis:   RedisConfig{TTL: 24 * time.Hour},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result. Misconfiguration fails here, loudly, rather than
// surfacing later as an unlabeled runtime error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path is operator supplied
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides file values with environment variables where set
func (c *Config) applyEnv() {
	if v := os.Getenv("MEDIATOR_API_KEY"); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv("MEDIATOR_API_ENDPOINT"); v != "" {
		c.API.Endpoint = v
	}
	if v := os.Getenv("MEDIATOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MEDIATOR_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.API.Key == "" {
		return fmt.Errorf("%w: api.key is empty", ErrMissingCredentials)
	}
	if len(c.Deployments) == 0 {
		return fmt.Errorf("%w: no deployments defined", ErrDeploymentNotConfigured)
	}
	if c.Uncertainty.ConfidenceThreshold < 0 || c.Uncertainty.ConfidenceThreshold > 1 {
		return fmt.Errorf("uncertainty.confidence_threshold must be in [0,1], got %v", c.Uncertainty.ConfidenceThreshold)
	}
	if c.Evaluation.MaxRetries < 0 {
		return fmt.Errorf("evaluation.max_retries must not be negative, got %d", c.Evaluation.MaxRetries)
	}
	switch c.Tokens.Strategy {
	case "truncate", "summarize":
	default:
		return fmt.Errorf("tokens.strategy must be \"truncate\" or \"summarize\", got %q", c.Tokens.Strategy)
	}
	return nil
}

// DeploymentFor returns the deployment name for the given model type
func (c *Config) DeploymentFor(modelType ModelType) (string, error) {
	deployment, ok := c.Deployments[modelType]
	if !ok || deployment == "" {
		return "", fmt.Errorf("%w: %s", ErrDeploymentNotConfigured, modelType)
	}
	return deployment, nil
}
