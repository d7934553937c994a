package generator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCallTimeout bounds a single backend call when none is configured.
const DefaultCallTimeout = 45 * time.Second

// Completion is the output of the first candidate that answered.
type Completion struct {
	Model string
	Text  string
}

// FallbackSelector tries model candidates in order until one returns text.
type FallbackSelector struct {
	llm     LLMClient
	timeout time.Duration
	logger  *log.Logger
}

func NewFallbackSelector(llm LLMClient, timeout time.Duration, logger *log.Logger) *FallbackSelector {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FallbackSelector{llm: llm, timeout: timeout, logger: logger}
}

// Select calls each candidate once, in order, and stops at the first non-empty
// response. A failing candidate is skipped, never retried. When every candidate
// fails the error matches ErrAllCandidatesExhausted.
func (f *FallbackSelector) Select(ctx context.Context, candidates []string, prompt Prompt) (Completion, error) {
	exhausted := &ExhaustedError{}
	for _, model := range candidates {
		if err := ctx.Err(); err != nil {
			exhausted.Attempts = append(exhausted.Attempts, CandidateFailure{Model: model, Err: fmt.Errorf("%w: %v", ErrBackendUnavailable, err)})
			break
		}
		text, err := f.call(ctx, model, prompt)
		if err != nil {
			f.logger.Warn("model candidate failed", "model", model, "purpose", prompt.Purpose, "err", err)
			exhausted.Attempts = append(exhausted.Attempts, CandidateFailure{Model: model, Err: err})
			continue
		}
		f.logger.Debug("model candidate answered", "model", model, "purpose", prompt.Purpose, "chars", len(text))
		return Completion{Model: model, Text: text}, nil
	}
	return Completion{}, exhausted
}

// SelectTiers runs Select over each tier in turn, e.g. primary then conservative.
func (f *FallbackSelector) SelectTiers(ctx context.Context, prompt Prompt, tiers ...[]string) (Completion, error) {
	var lastErr error = &ExhaustedError{}
	for i, tier := range tiers {
		if len(tier) == 0 {
			continue
		}
		if i > 0 {
			f.logger.Info("falling back to next model tier", "purpose", prompt.Purpose, "tier", i)
		}
		c, err := f.Select(ctx, tier, prompt)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return Completion{}, lastErr
}

func (f *FallbackSelector) call(ctx context.Context, model string, prompt Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	text, err := f.llm.Complete(callCtx, model, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", ErrBackendUnavailable)
	}
	return text, nil
}
