// Package config loads and resolves the service's YAML configuration,
// following the teacher's built-in-defaults-plus-user-overrides pattern.
package config

import "time"

// EngineConfig holds every Self-Evolve engine tunable recognized by the
// core (spec §6). All fields are optional in YAML; zero values are
// replaced by DefaultEngineConfig() during resolution.
type EngineConfig struct {
	MaxIters                      int     `yaml:"max_iters,omitempty" validate:"omitempty,min=1"`
	ProfessorMaxIters             int     `yaml:"professor_max_iters,omitempty" validate:"omitempty,min=1"`
	SpecialistMaxIters            int     `yaml:"specialist_max_iters,omitempty" validate:"omitempty,min=1"`
	AllowContinuationFallback     *bool   `yaml:"allow_continuation_fallback,omitempty"`
	StopTokenPattern              string  `yaml:"stop_token_pattern,omitempty"`
	AnswerTagPattern              string  `yaml:"answer_tag_pattern,omitempty"`
	InvalidOutputMinWords         int     `yaml:"invalid_output_min_words,omitempty" validate:"omitempty,min=0"`
	MaxRetriesPerIteration        int     `yaml:"max_retries_per_iteration,omitempty" validate:"omitempty,min=0"`
	ProviderMaxRetries            int     `yaml:"provider_max_retries,omitempty" validate:"omitempty,min=0"`
	ContextSummarizationThreshold float64 `yaml:"context_summarization_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
	PartialResultWriteEnabled     *bool   `yaml:"partial_result_write_enabled,omitempty"`
}

// ProviderConfig configures the LLM provider (spec §6 model_name/provider_name).
type ProviderConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
	Name    string `yaml:"name,omitempty"`
}

// StoreConfig configures the job-store backend.
type StoreConfig struct {
	// Backend is "redis" or "memory". Memory is the zero-value default,
	// useful for tests and single-process runs with no store bound.
	Backend string `yaml:"backend,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
	TTL     time.Duration `yaml:"ttl,omitempty"`
}

// WorkerConfig configures the worker pool that drains the job broker
// (grounded on the teacher's QueueConfig).
type WorkerConfig struct {
	WorkerCount    int           `yaml:"worker_count,omitempty" validate:"omitempty,min=1"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
	SessionTimeout time.Duration `yaml:"session_timeout,omitempty"`
}

// Config is the umbrella configuration object returned by Load.
type Config struct {
	configFile string

	Engine   *EngineConfig
	Provider *ProviderConfig
	Store    *StoreConfig
	Worker   *WorkerConfig
}

// ConfigFile returns the path the configuration was loaded from, or ""
// when running on built-in defaults alone.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// systemYAMLConfig is the root shape of a user-supplied YAML document.
// Every section is optional; absent sections fall back to defaults.
type systemYAMLConfig struct {
	Engine   *EngineConfig   `yaml:"engine,omitempty"`
	Provider *ProviderConfig `yaml:"provider,omitempty"`
	Store    *StoreConfig    `yaml:"store,omitempty"`
	Worker   *WorkerConfig   `yaml:"worker,omitempty"`
}
