package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads configFile (if non-empty and present), expands environment
// variables, and merges the result over the built-in defaults. An empty
// configFile is not an error: the returned Config carries pure defaults,
// since every option in spec §6 is optional. A non-empty configFile that
// does not exist returns a LoadError wrapping ErrConfigNotFound.
func Load(configFile string) (*Config, error) {
	var sys systemYAMLConfig

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NewLoadError(configFile, fmt.Errorf("%w", ErrConfigNotFound))
			}
			return nil, NewLoadError(configFile, err)
		}
		expanded := ExpandEnv(data)
		if err := yaml.Unmarshal(expanded, &sys); err != nil {
			return nil, NewLoadError(configFile, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}
	}

	engine, err := resolveEngineConfig(sys.Engine)
	if err != nil {
		return nil, NewLoadError(configFile, err)
	}
	provider, err := resolveProviderConfig(sys.Provider)
	if err != nil {
		return nil, NewLoadError(configFile, err)
	}
	store, err := resolveStoreConfig(sys.Store)
	if err != nil {
		return nil, NewLoadError(configFile, err)
	}
	worker, err := resolveWorkerConfig(sys.Worker)
	if err != nil {
		return nil, NewLoadError(configFile, err)
	}

	cfg := &Config{
		configFile: configFile,
		Engine:     engine,
		Provider:   provider,
		Store:      store,
		Worker:     worker,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field and bound constraints the YAML tags alone
// cannot express.
func (c *Config) Validate() error {
	if c.Engine.MaxIters < 1 {
		return NewValidationError("engine.max_iters", fmt.Errorf("%w: must be >= 1", ErrValidationFailed))
	}
	if c.Engine.ProfessorMaxIters < 1 {
		return NewValidationError("engine.professor_max_iters", fmt.Errorf("%w: must be >= 1", ErrValidationFailed))
	}
	if c.Engine.SpecialistMaxIters < 1 {
		return NewValidationError("engine.specialist_max_iters", fmt.Errorf("%w: must be >= 1", ErrValidationFailed))
	}
	if c.Engine.ContextSummarizationThreshold <= 0 || c.Engine.ContextSummarizationThreshold > 1 {
		return NewValidationError("engine.context_summarization_threshold", fmt.Errorf("%w: must be in (0, 1]", ErrValidationFailed))
	}
	if c.Engine.InvalidOutputMinWords < 0 {
		return NewValidationError("engine.invalid_output_min_words", fmt.Errorf("%w: must be >= 0", ErrValidationFailed))
	}
	return nil
}

// PartialResultWriteEnabled reports whether partial-result snapshots
// should be written, honoring the spec §6 rule that the default is true
// only when a job-id and store are actually bound.
func (c *Config) PartialResultWriteEnabled(jobID string, storeBound bool) bool {
	if c.Engine.PartialResultWriteEnabled == nil {
		return jobID != "" && storeBound
	}
	if !*c.Engine.PartialResultWriteEnabled {
		return false
	}
	return jobID != "" && storeBound
}

// AllowContinuationFallback reports the resolved boolean, defaulting to
// true per spec §6.
func (c *Config) AllowContinuationFallback() bool {
	if c.Engine.AllowContinuationFallback == nil {
		return true
	}
	return *c.Engine.AllowContinuationFallback
}
