package generator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	goodEmail = "Subject: Congrats on the Series B\n\n" +
		"Hi {{first_name}},\n\n" +
		"Saw the Series B news. Teams scaling support after a raise usually hit ticket backlogs first.\n\n" +
		"[Book 15 minutes](https://calendly.com/acme/intro)\n\n" +
		"Best,\nSam"
	goodLinkedIn = "Hi {{first_name}}, congrats on the Series B. Curious how you plan to scale support? {{calendar_link}}"
)

type call struct {
	model   string
	purpose Purpose
	user    string
}

// scriptedLLM records every call and answers through respond.
type scriptedLLM struct {
	mu      sync.Mutex
	calls   []call
	respond func(model string, p Prompt) (string, error)
}

func (s *scriptedLLM) Complete(ctx context.Context, model string, p Prompt) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call{model: model, purpose: p.Purpose, user: p.User})
	s.mu.Unlock()
	return s.respond(model, p)
}

func (s *scriptedLLM) count(purpose Purpose) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.purpose == purpose {
			n++
		}
	}
	return n
}

func (s *scriptedLLM) models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.model)
	}
	return out
}

// happyRespond drafts passing content, reports no critique issues and returns
// an unparseable plan so the default plan is used.
func happyRespond(_ string, p Prompt) (string, error) {
	switch p.Purpose {
	case PurposePlan:
		return `Sure! Here is the plan: {"items": [{"day": 1, "channel": "email"`, nil
	case PurposeCritique:
		return `{"issues": []}`, nil
	case PurposeDraft:
		if strings.Contains(p.User, "LinkedIn message") {
			return goodLinkedIn, nil
		}
		return goodEmail, nil
	default:
		return goodEmail, nil
	}
}

func testRequest(emails, secondary int) GenerationRequest {
	return GenerationRequest{
		PersonaID: "vp-support",
		Persona: Persona{
			ID:         "vp-support",
			Title:      "VP of Customer Support",
			Tone:       "direct",
			Seniority:  "executive",
			Department: "Support",
		},
		Signal:     "Raised a Series B last week",
		PainPoints: []string{"ticket backlog", "hiring agents"},
		Facts: []SupportingFact{
			Statistic{ID: "stat-1", Value: "40%", Claim: "fewer escalations in 90 days"},
			Quote{ID: "quote-1", Text: "We cleared our backlog in a month", Attribution: "Head of CX, Globex"},
		},
		EmailCount:     emails,
		SecondaryCount: secondary,
	}
}

func testTiers() ModelTiers {
	return ModelTiers{
		Planning: []string{"planner"},
		Drafting: []string{"fast", "strong"},
		Critique: []string{"critic"},
		Repair:   []string{"fixer"},
	}
}

func newTestAgent(t *testing.T, llm LLMClient, concurrency int) *Orchestrator {
	t.Helper()
	o, err := NewAgent(llm, PipelineConfig{
		Tiers:       testTiers(),
		CallTimeout: time.Second,
		Concurrency: concurrency,
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return o
}
