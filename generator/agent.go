package generator

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// PipelineConfig collects everything needed to wire an Orchestrator.
type PipelineConfig struct {
	Tiers        ModelTiers
	CallTimeout  time.Duration
	Concurrency  int
	Policy       ScoringPolicy
	CTAPatterns  []string
	RepairPasses int
}

// NewAgent wires selector, analyzer, repairer and orchestrator around one LLM client.
func NewAgent(llm LLMClient, cfg PipelineConfig, progress ProgressReporter, logger *log.Logger) (*Orchestrator, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if len(cfg.Tiers.Drafting) == 0 {
		return nil, errors.New("at least one drafting model is required")
	}
	if len(cfg.Tiers.Planning) == 0 {
		cfg.Tiers.Planning = cfg.Tiers.Drafting
	}
	if len(cfg.Tiers.Repair) == 0 {
		cfg.Tiers.Repair = cfg.Tiers.Drafting
	}

	selector := NewFallbackSelector(llm, cfg.CallTimeout, logger)
	analyzer, err := NewAnalyzer(selector, AnalyzerOptions{
		Models:      cfg.Tiers.Critique,
		Fallback:    cfg.Tiers.Conservative,
		Policy:      cfg.Policy,
		CTAPatterns: cfg.CTAPatterns,
	}, logger)
	if err != nil {
		return nil, err
	}
	repairer := NewRepairer(selector, analyzer, cfg.RepairPasses, logger, cfg.Tiers.Repair, cfg.Tiers.Conservative)
	return NewOrchestrator(selector, analyzer, repairer, OrchestratorOptions{
		Tiers:       cfg.Tiers,
		Concurrency: cfg.Concurrency,
		Progress:    progress,
	}, logger), nil
}
