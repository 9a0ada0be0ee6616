// selfevolved runs the job-broker worker pool that drains pending
// Self-Evolve jobs and executes them against the configured LLM provider.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/selfevolve/orchestrator/pkg/agent"
	"github.com/selfevolve/orchestrator/pkg/broker"
	"github.com/selfevolve/orchestrator/pkg/config"
	"github.com/selfevolve/orchestrator/pkg/models"
	"github.com/selfevolve/orchestrator/pkg/provider"
	"github.com/selfevolve/orchestrator/pkg/runner"
	"github.com/selfevolve/orchestrator/pkg/store"
	"github.com/selfevolve/orchestrator/pkg/worker"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	configFile := flag.String("config-file", getEnv("CONFIG_FILE", ""), "Path to a YAML config file; empty runs on built-in defaults")
	question := flag.String("question", "", "If set, submits one job with this question and exits after it completes")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	log.Printf("starting selfevolved")
	log.Printf("config directory: %s", *configDir)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	apiKey := getEnv("LLM_API_KEY", cfg.Provider.APIKey)
	if apiKey == "" {
		log.Fatalf("no LLM API key configured (set LLM_API_KEY or provider.api_key)")
	}
	llmProvider := provider.NewOpenAIProvider(apiKey, cfg.Provider.BaseURL, cfg.Provider.Model)

	jobStore, closeStore := buildStore(cfg.Store)
	if closeStore != nil {
		defer closeStore()
	}

	jobBroker := broker.NewInMemoryBroker()

	factory := buildRunnerFactory(llmProvider, cfg, jobStore)
	executor := worker.NewRunnerExecutor(jobStore, factory)

	pool := worker.NewPool("selfevolved", jobBroker, jobStore, executor, worker.Options{
		WorkerCount:    cfg.Worker.WorkerCount,
		PollInterval:   cfg.Worker.PollInterval,
		SessionTimeout: cfg.Worker.SessionTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool.Start(ctx)
	log.Printf("worker pool started with %d workers", cfg.Worker.WorkerCount)

	if *question != "" {
		runOneShot(ctx, jobBroker, jobStore, cfg, *question)
		pool.Stop()
		return
	}

	<-ctx.Done()
	log.Printf("shutdown signal received")
	pool.Stop()
	log.Printf("selfevolved stopped")
}

func buildStore(cfg *config.StoreConfig) (store.Store, func()) {
	if cfg.Backend == "redis" {
		rs := store.NewRedisStore(cfg.Addr, "", 0)
		log.Printf("job store: redis at %s", cfg.Addr)
		return rs, func() {
			if err := rs.Close(); err != nil {
				log.Printf("error closing redis store: %v", err)
			}
		}
	}
	log.Printf("job store: in-memory")
	return store.NewMemoryStore(), nil
}

// buildRunnerFactory closes over the provider and engine config to build a
// fresh Basic or Enhanced Runner per job, binding each engine's
// partial-result writes to the job's own store-backed adapter.
func buildRunnerFactory(p provider.Provider, cfg *config.Config, s store.Store) worker.RunnerFactory {
	return func(jobID string, req models.SolveRequest) (runner.Runner, error) {
		opts := runner.EngineOptions{
			MaxIters:                      cfg.Engine.MaxIters,
			AllowContinuationFallback:     cfg.AllowContinuationFallback(),
			MaxRetriesPerIteration:        cfg.Engine.MaxRetriesPerIteration,
			MinValidWords:                 cfg.Engine.InvalidOutputMinWords,
			AnswerTagName:                 cfg.Engine.AnswerTagPattern,
			ContextSummarizationThreshold: cfg.Engine.ContextSummarizationThreshold,
			JobID:                         jobID,
		}
		if cfg.PartialResultWriteEnabled(jobID, true) {
			opts.Store = store.NewPartialResultAdapter(s)
		}
		if req.MaxIters > 0 {
			opts.MaxIters = req.MaxIters
		}

		switch req.Mode {
		case models.ModeEnhanced:
			opts.AnswerConvergence = true
			evaluator := agent.NewEvaluator(p, evaluatorSystemPrompt, 0.2, cfg.Engine.StopTokenPattern)
			refiner := agent.NewRefiner(p, refinerSystemPrompt, 0.4)
			buildSpecialist := func(spec agent.NormalizedConsultation) (gen, eval, ref agent.Agent, err error) {
				gen = agent.NewGenerator(p, specialistGeneratorPrompt(spec), 0.7)
				eval = agent.NewEvaluator(p, evaluatorSystemPrompt, 0.2, cfg.Engine.StopTokenPattern)
				ref = agent.NewRefiner(p, refinerSystemPrompt, 0.4)
				return gen, eval, ref, nil
			}
			return runner.NewEnhancedRunner(p, professorSystemPrompt, 0.3, evaluator, refiner,
				cfg.Engine.ProfessorMaxIters, cfg.Engine.SpecialistMaxIters, buildSpecialist, opts), nil

		case models.ModeBasic, "":
			generator := agent.NewGenerator(p, generatorSystemPrompt, 0.7)
			evaluator := agent.NewEvaluator(p, evaluatorSystemPrompt, 0.2, cfg.Engine.StopTokenPattern)
			refiner := agent.NewRefiner(p, refinerSystemPrompt, 0.4)
			return runner.NewBasicRunner(generator, evaluator, refiner, opts), nil

		default:
			return nil, fmt.Errorf("unknown run mode %q", req.Mode)
		}
	}
}

const (
	generatorSystemPrompt = "You are a careful problem solver. Produce a complete, well-reasoned answer to the question given."
	evaluatorSystemPrompt = "You are a strict evaluator. Judge whether the prior output fully and correctly answers the question, and give actionable feedback."
	refinerSystemPrompt   = "You rewrite a prompt so the next attempt addresses the evaluator's feedback directly."
	professorSystemPrompt = "You are a professor coordinating specialists. Consult a graduate specialist for any sub-problem outside your own confident expertise, then synthesize their findings into one final answer."
)

func specialistGeneratorPrompt(spec agent.NormalizedConsultation) string {
	return fmt.Sprintf("You are a graduate specialist in %s. Focus narrowly on: %s", spec.Specialization, spec.SpecificTask)
}

// runOneShot submits a single job from the --question flag and blocks
// until it reaches a terminal status, useful for smoke-testing a
// deployment without a separate client.
func runOneShot(ctx context.Context, b broker.Broker, s store.Store, cfg *config.Config, question string) {
	jobID := uuid.NewString()
	req := models.SolveRequest{
		Question:  question,
		Mode:      models.ModeBasic,
		ModelName: cfg.Provider.Model,
		Provider:  cfg.Provider.Name,
	}
	if err := worker.SubmitJob(ctx, b, s, jobID, req, cfg.Store.TTL); err != nil {
		log.Printf("failed to submit one-shot job: %v", err)
		return
	}
	log.Printf("submitted one-shot job %s, waiting for completion", jobID)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fields, err := s.GetJobFields(ctx, jobID)
			if err != nil {
				log.Printf("failed to poll job %s: %v", jobID, err)
				return
			}
			switch models.JobStatus(fields["status"]) {
			case models.JobStatusCompleted:
				log.Printf("job %s completed: %s", jobID, fields["result"])
				return
			case models.JobStatusFailed:
				log.Printf("job %s failed: %s", jobID, fields["error"])
				return
			case models.JobStatusCancelled:
				log.Printf("job %s cancelled", jobID)
				return
			}
		}
	}
}
