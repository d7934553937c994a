package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestAnalyzer(t *testing.T, llm LLMClient, models []string) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(NewFallbackSelector(llm, time.Second, nil), AnalyzerOptions{Models: models}, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func cleanCritic() *scriptedLLM {
	return &scriptedLLM{respond: func(string, Prompt) (string, error) { return `{"issues":[]}`, nil }}
}

func TestAnalyzeMissingGreetingAndCTA(t *testing.T) {
	tests := []struct {
		name    string
		content string
		channel Channel
	}{
		{"email", "Subject: Quick thought\n\nSaw the Series B news and wanted to share an idea about support backlogs.\n\nThanks,\nSam", ChannelEmail},
		{"linkedin", "Saw the Series B news and wanted to share an idea about support backlogs.", ChannelSecondary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, cleanCritic(), []string{"critic"})
			report := a.Analyze(context.Background(), tt.content, RubricContext{Channel: tt.channel})
			if got := report.HighCount(); got < 2 {
				t.Fatalf("high issues = %d, want >= 2 (%+v)", got, report.Issues)
			}
			if report.Passed {
				t.Error("report should not pass")
			}
			kinds := map[string]bool{}
			for _, is := range report.Issues {
				kinds[is.Kind] = true
			}
			if !kinds[IssueMissingGreeting] || !kinds[IssueMissingCTA] {
				t.Errorf("missing expected kinds: %v", kinds)
			}
		})
	}
}

func TestAnalyzeCleanItemScoresFull(t *testing.T) {
	a := newTestAnalyzer(t, cleanCritic(), []string{"critic"})

	report := a.Analyze(context.Background(), goodEmail, RubricContext{Channel: ChannelEmail})
	if len(report.Issues) != 0 {
		t.Fatalf("unexpected issues: %+v", report.Issues)
	}
	if report.Score != 100 {
		t.Errorf("score = %d, want 100", report.Score)
	}
	if !report.Passed {
		t.Error("clean item should pass")
	}
	if report.CritiqueSkipped {
		t.Error("critique should have run")
	}
}

func TestAnalyzeDegradesWhenCritiqueFails(t *testing.T) {
	tests := []struct {
		name    string
		respond func(string, Prompt) (string, error)
	}{
		{"backend down", func(string, Prompt) (string, error) { return "", errors.New("timeout") }},
		{"malformed", func(string, Prompt) (string, error) { return "Looks great to me!", nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, &scriptedLLM{respond: tt.respond}, []string{"critic"})
			report := a.Analyze(context.Background(), goodEmail, RubricContext{Channel: ChannelEmail})
			if !report.CritiqueSkipped {
				t.Error("expected critique to be skipped")
			}
			if !report.Passed || report.Score != 100 {
				t.Errorf("structural-only report = %+v, want passing 100", report)
			}
		})
	}
}

func TestAnalyzeMergesCritiqueIssues(t *testing.T) {
	llm := &scriptedLLM{respond: func(string, Prompt) (string, error) {
		return `{"issues":[
			{"kind":"relevance","severity":"high","message":"Does not tie the raise to support"},
			{"kind":"missing_greeting","severity":"high","message":"No greeting"},
			{"kind":"tone","severity":"low","message":"Slightly formal"}
		]}`, nil
	}}
	a := newTestAnalyzer(t, llm, []string{"critic"})
	content := strings.Replace(goodEmail, "Hi {{first_name}},\n\n", "", 1)

	report := a.Analyze(context.Background(), content, RubricContext{Channel: ChannelEmail})
	if len(report.Issues) != 3 {
		t.Fatalf("issues = %+v, want 3", report.Issues)
	}
	greetings := 0
	for _, is := range report.Issues {
		if is.Kind == IssueMissingGreeting {
			greetings++
		}
	}
	if greetings != 1 {
		t.Errorf("duplicate critique kind should be dropped, got %d greeting issues", greetings)
	}
	// two high at -25 each, low is free, no bonus
	if report.Score != 50 {
		t.Errorf("score = %d, want 50", report.Score)
	}
	if report.Passed {
		t.Error("report should not pass")
	}
}

func TestScoringPolicy(t *testing.T) {
	p := DefaultScoringPolicy()
	issue := func(s Severity) QualityIssue { return QualityIssue{Kind: "k", Severity: s, Message: "m"} }

	tests := []struct {
		name   string
		issues []QualityIssue
		score  int
		passed bool
	}{
		{"none", nil, 100, true},
		{"one low", []QualityIssue{issue(SeverityLow)}, 100, true},
		{"one medium", []QualityIssue{issue(SeverityMedium)}, 100, true},
		{"three medium", []QualityIssue{issue(SeverityMedium), issue(SeverityMedium), issue(SeverityMedium)}, 80, true},
		{"five medium", []QualityIssue{issue(SeverityMedium), issue(SeverityMedium), issue(SeverityMedium), issue(SeverityMedium), issue(SeverityMedium)}, 60, false},
		{"one high", []QualityIssue{issue(SeverityHigh)}, 75, false},
		{"five high clamps", []QualityIssue{issue(SeverityHigh), issue(SeverityHigh), issue(SeverityHigh), issue(SeverityHigh), issue(SeverityHigh)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.Report(tt.issues)
			if r.Score != tt.score || r.Passed != tt.passed {
				t.Errorf("got score=%d passed=%v, want score=%d passed=%v", r.Score, r.Passed, tt.score, tt.passed)
			}
		})
	}
}

func TestStructuralIssues(t *testing.T) {
	a := newTestAnalyzer(t, cleanCritic(), nil)

	tests := []struct {
		name    string
		content string
		rc      RubricContext
		want    []string
	}{
		{
			name:    "clean email",
			content: goodEmail,
			rc:      RubricContext{Channel: ChannelEmail},
		},
		{
			name:    "no subject",
			content: strings.SplitN(goodEmail, "\n\n", 2)[1],
			rc:      RubricContext{Channel: ChannelEmail},
			want:    []string{IssueMissingSubject},
		},
		{
			name:    "merge field calendar link",
			content: "Subject: Hi\n\nHello {{first_name}},\n\nWorth a chat? {{calendar_link}}",
			rc:      RubricContext{Channel: ChannelEmail},
		},
		{
			name:    "request cta link",
			content: "Subject: Hi\n\nHey {{first_name}},\n\n[Pick a slot](https://acme.example/talk-to-us)",
			rc:      RubricContext{Channel: ChannelEmail, CTALink: "https://acme.example/talk-to-us"},
		},
		{
			name:    "bare booking url",
			content: "Subject: Hi\n\nHi {{first_name}},\n\nGrab time here: https://calendly.com/acme/intro",
			rc:      RubricContext{Channel: ChannelEmail},
		},
		{
			name:    "unrelated link is no cta",
			content: "Subject: Hi\n\nHey {{first_name}},\n\n[Read our blog](https://acme.example/blog)",
			rc:      RubricContext{Channel: ChannelEmail},
			want:    []string{IssueMissingCTA},
		},
		{
			name:    "bracket placeholder",
			content: "Subject: Hi\n\nHi [First Name],\n\nI saw [Company] is hiring. [Book here](https://calendly.com/acme)",
			rc:      RubricContext{Channel: ChannelEmail},
			want:    []string{IssueUnfilledPlaceholder},
		},
		{
			name:    "linkedin needs no subject",
			content: goodLinkedIn,
			rc:      RubricContext{Channel: ChannelSecondary},
		},
		{
			name:    "linkedin without link",
			content: "Hi {{first_name}}, congrats on the Series B. Curious how you plan to scale support?",
			rc:      RubricContext{Channel: ChannelSecondary},
			want:    []string{IssueMissingCTA},
		},
		{
			name:    "linkedin too long without greeting",
			content: strings.Repeat("We help support teams. ", 20),
			rc:      RubricContext{Channel: ChannelSecondary},
			want:    []string{IssueMissingGreeting, IssueMissingCTA, IssueTooLong},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := a.StructuralIssues(tt.content, tt.rc)
			var got []string
			for _, is := range issues {
				got = append(got, is.Kind)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("kinds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewAnalyzerRejectsBadPattern(t *testing.T) {
	_, err := NewAnalyzer(nil, AnalyzerOptions{CTAPatterns: []string{"("}}, nil)
	if err == nil {
		t.Fatal("expected error for invalid regexp")
	}
}

func TestAnalyzeCritiqueFallsBackToConservative(t *testing.T) {
	llm := &scriptedLLM{respond: func(model string, _ Prompt) (string, error) {
		if model == "safe" {
			return `{"issues":[{"kind":"tone","severity":"low","message":"Slightly formal"}]}`, nil
		}
		return "", errors.New("critic down")
	}}
	a, err := NewAnalyzer(NewFallbackSelector(llm, time.Second, nil), AnalyzerOptions{
		Models:   []string{"critic"},
		Fallback: []string{"safe"},
	}, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	report := a.Analyze(context.Background(), goodEmail, RubricContext{Channel: ChannelEmail})
	if report.CritiqueSkipped {
		t.Fatal("critique should come from the fallback model")
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != "tone" {
		t.Errorf("issues = %+v", report.Issues)
	}
}
