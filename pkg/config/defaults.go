package config

import "time"

func boolPtr(b bool) *bool { return &b }

// DefaultEngineConfig returns the built-in engine defaults (spec §6).
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxIters:                      3,
		ProfessorMaxIters:             2,
		SpecialistMaxIters:            4,
		AllowContinuationFallback:     boolPtr(true),
		StopTokenPattern:              "<stop>",
		AnswerTagPattern:              "answer",
		InvalidOutputMinWords:         10,
		MaxRetriesPerIteration:        4,
		ProviderMaxRetries:            3,
		ContextSummarizationThreshold: 0.8,
		PartialResultWriteEnabled:     boolPtr(true),
	}
}

// DefaultProviderConfig returns the built-in provider defaults.
func DefaultProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		BaseURL: "",
		Model:   "gpt-4o-mini",
		Name:    "openai",
	}
}

// DefaultStoreConfig returns the built-in store defaults: the in-process
// memory backend with a 24h job TTL. No external store is bound, but the
// memory store still receives job fields and partial-result writes.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend: "memory",
		TTL:     24 * time.Hour,
	}
}

// DefaultWorkerConfig returns the built-in worker-pool defaults
// (grounded on the teacher's DefaultQueueConfig).
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		WorkerCount:    5,
		PollInterval:   1 * time.Second,
		SessionTimeout: 15 * time.Minute,
	}
}
