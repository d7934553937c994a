package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"outreach_sequence_generator/catalog"
	"outreach_sequence_generator/config"
	"outreach_sequence_generator/generator"
	"outreach_sequence_generator/history"
	"outreach_sequence_generator/progress"
	"outreach_sequence_generator/publisher"
)

// runtime holds everything a command needs, built once from the config.
type runtime struct {
	orch      *generator.Orchestrator
	catalog   *catalog.Catalog
	progress  progress.Store
	history   *history.Store
	publisher *publisher.Publisher
	closers   []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

func buildRuntime(cfg config.Config, logger *log.Logger) (*runtime, error) {
	rt := &runtime{}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		return nil, err
	}

	switch cfg.Progress.Backend {
	case "redis":
		store, err := progress.NewRedisStore(cfg.Progress.RedisURL, time.Duration(cfg.Progress.TTL))
		if err != nil {
			return nil, fmt.Errorf("progress store: %w", err)
		}
		rt.progress = store
		rt.closers = append(rt.closers, store.Close)
	default:
		rt.progress = progress.NewMemoryStore(time.Duration(cfg.Progress.TTL))
	}

	q := cfg.Quality
	rt.orch, err = generator.NewAgent(llm, generator.PipelineConfig{
		Tiers: generator.ModelTiers{
			Planning:     cfg.Models.Planning,
			Drafting:     cfg.Models.Drafting,
			Critique:     cfg.Models.Critique,
			Repair:       cfg.Models.Repair,
			Conservative: cfg.Models.Conservative,
		},
		CallTimeout: time.Duration(cfg.CallTimeout),
		Concurrency: cfg.Concurrency,
		Policy: generator.ScoringPolicy{
			PassThreshold: q.PassThreshold,
			HighPenalty:   q.HighPenalty,
			MediumPenalty: q.MediumPenalty,
			LowPenalty:    q.LowPenalty,
			CleanBonus:    q.CleanBonus,
		},
		CTAPatterns:  q.CTAPatterns,
		RepairPasses: q.RepairPasses,
	}, rt.progress, logger)
	if err != nil {
		return nil, err
	}

	rt.catalog, err = catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	if cfg.History.Path != "" {
		rt.history, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, rt.history.Close)
	}

	if cfg.Publish.WebhookURL != "" {
		rt.publisher, err = publisher.New(publisher.Config{
			WebhookURL: cfg.Publish.WebhookURL,
			Secret:     cfg.Publish.Secret,
			Timeout:    time.Duration(cfg.Publish.Timeout),
		}, nil, logger)
		if err != nil {
			return nil, err
		}
	}

	ok = true
	return rt, nil
}

func buildLLM(cfg config.LLMConfig) (generator.LLMClient, error) {
	switch cfg.Provider {
	case "":
		return nil, fmt.Errorf("llm config missing; please set llm.provider in config")
	case "mock":
		return generator.MockLLM{}, nil
	case "openai":
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.Provider,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
		})
	case "deepseek":
		// DeepSeek exposes an OpenAI-compatible endpoint; base_url is mandatory.
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.Provider,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
		})
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
