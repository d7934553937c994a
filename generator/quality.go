package generator

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Structural issue kinds.
const (
	IssueMissingSubject      = "missing_subject"
	IssueMissingGreeting     = "missing_greeting"
	IssueMissingCTA          = "missing_cta"
	IssueUnfilledPlaceholder = "unfilled_placeholder"
	IssueTooLong             = "too_long"
)

const (
	maxEmailWords     = 200
	maxSecondaryChars = 300
)

var (
	greetingRe      = regexp.MustCompile(`(?i)^(hi|hello|hey|dear|greetings|good (morning|afternoon|evening))\b`)
	mergeGreetingRe = regexp.MustCompile(`^\{\{\s*first_?name\s*\}\}`)
	ctaMergeFieldRe = regexp.MustCompile(`\{\{\s*\w*(link|url)\w*\s*\}\}`)
	placeholderRe   = regexp.MustCompile(`\[[A-Z][A-Za-z ]{1,30}\]`)

	// DefaultCTAPatterns match booking and demo links.
	DefaultCTAPatterns = []string{
		`^https?://(www\.)?(calendly\.com|cal\.com|meetings\.hubspot\.com|savvycal\.com)/`,
		`^https?://\S+/(book|demo|meet|schedule)`,
		`^\{\{\s*\w*(link|url)\w*\s*\}\}$`,
	}
)

// ScoringPolicy turns an issue list into a score and a pass decision.
type ScoringPolicy struct {
	HighPenalty   int
	MediumPenalty int
	LowPenalty    int
	CleanBonus    int
	PassThreshold int
}

func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		HighPenalty:   25,
		MediumPenalty: 10,
		LowPenalty:    0,
		CleanBonus:    10,
		PassThreshold: 70,
	}
}

// Report scores issues: start at 100, subtract per severity, add the bonus when
// no high issue remains, clamp to [0,100]. A high issue always fails the report.
func (p ScoringPolicy) Report(issues []QualityIssue) QualityReport {
	if issues == nil {
		issues = []QualityIssue{}
	}
	report := QualityReport{Issues: issues}
	high := report.HighCount()

	score := 100
	for _, is := range issues {
		switch is.Severity {
		case SeverityHigh:
			score -= p.HighPenalty
		case SeverityMedium:
			score -= p.MediumPenalty
		default:
			score -= p.LowPenalty
		}
	}
	if high == 0 {
		score += p.CleanBonus
	}
	report.Score = max(0, min(100, score))
	report.Passed = report.Score >= p.PassThreshold && high == 0
	return report
}

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	// Models is the candidate list of the critique call. Empty disables the pass.
	Models      []string
	// Fallback is tried once Models are exhausted.
	Fallback    []string
	Policy      ScoringPolicy
	CTAPatterns []string
	Parser      ContractParser
}

// Analyzer scores generated items with structural checks plus one AI critique.
type Analyzer struct {
	selector *FallbackSelector
	models   []string
	fallback []string
	policy   ScoringPolicy
	cta      []*regexp.Regexp
	parser   ContractParser
	md       goldmark.Markdown
	logger   *log.Logger
}

func NewAnalyzer(selector *FallbackSelector, opts AnalyzerOptions, logger *log.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Policy == (ScoringPolicy{}) {
		opts.Policy = DefaultScoringPolicy()
	}
	if opts.Parser == nil {
		opts.Parser = SubstringParser{}
	}
	patterns := opts.CTAPatterns
	if len(patterns) == 0 {
		patterns = DefaultCTAPatterns
	}
	cta := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("cta pattern %q: %w", p, err)
		}
		cta = append(cta, re)
	}
	return &Analyzer{
		selector: selector,
		models:   opts.Models,
		fallback: opts.Fallback,
		policy:   opts.Policy,
		cta:      cta,
		parser:   opts.Parser,
		md:       goldmark.New(goldmark.WithExtensions(extension.Linkify)),
		logger:   logger,
	}, nil
}

// Analyze runs both passes. A failed critique call or unparseable critique is
// skipped and the report falls back to the structural issues alone.
func (a *Analyzer) Analyze(ctx context.Context, content string, rc RubricContext) QualityReport {
	issues := a.StructuralIssues(content, rc)

	critique, err := a.critique(ctx, content, rc)
	skipped := err != nil
	if err != nil {
		a.logger.Warn("critique pass skipped", "channel", rc.Channel, "err", err)
	}
	seen := make(map[string]bool, len(issues))
	for _, is := range issues {
		seen[is.Kind] = true
	}
	for _, is := range critique {
		if seen[is.Kind] && is.Kind != "critique" {
			continue
		}
		issues = append(issues, is)
	}

	report := a.policy.Report(issues)
	report.CritiqueSkipped = skipped
	return report
}

func (a *Analyzer) critique(ctx context.Context, content string, rc RubricContext) ([]QualityIssue, error) {
	if a.selector == nil || len(a.models) == 0 {
		return nil, fmt.Errorf("no critique models configured")
	}
	c, err := a.selector.SelectTiers(ctx, BuildCritiquePrompt(content, rc), a.models, a.fallback)
	if err != nil {
		return nil, err
	}
	return parseCritique(a.parser, c.Text)
}

// StructuralIssues runs the deterministic checks. It makes no backend call.
func (a *Analyzer) StructuralIssues(content string, rc RubricContext) []QualityIssue {
	var issues []QualityIssue
	subject, body := SplitSubject(content)

	if rc.Channel == ChannelEmail && subject == "" {
		issues = append(issues, QualityIssue{
			Kind:       IssueMissingSubject,
			Severity:   SeverityHigh,
			Message:    "Email has no subject line",
			Suggestion: "Start the email with \"Subject: ...\"",
		})
	}
	if !hasGreeting(body) {
		issues = append(issues, QualityIssue{
			Kind:       IssueMissingGreeting,
			Severity:   SeverityHigh,
			Message:    "Message does not open with a greeting",
			Suggestion: "Open with \"Hi {{first_name}},\"",
		})
	}
	if !a.hasCTA(body, rc.CTALink) {
		issues = append(issues, QualityIssue{
			Kind:       IssueMissingCTA,
			Severity:   SeverityHigh,
			Message:    "No call-to-action link found",
			Suggestion: "End with a markdown link to " + ctaTarget(rc.CTALink),
		})
	}
	if ph := unfilledPlaceholders(body); len(ph) > 0 {
		issues = append(issues, QualityIssue{
			Kind:       IssueUnfilledPlaceholder,
			Severity:   SeverityMedium,
			Message:    "Unfilled placeholders: " + strings.Join(ph, ", "),
			Suggestion: "Replace bracket placeholders with {{merge_fields}} or real text",
		})
	}
	switch rc.Channel {
	case ChannelEmail:
		if n := len(strings.Fields(body)); n > maxEmailWords {
			issues = append(issues, QualityIssue{
				Kind:       IssueTooLong,
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("Email body is %d words; keep it under %d", n, maxEmailWords),
				Suggestion: "Cut background and keep one ask",
			})
		}
	case ChannelSecondary:
		if n := utf8.RuneCountInString(body); n > maxSecondaryChars {
			issues = append(issues, QualityIssue{
				Kind:       IssueTooLong,
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("Message is %d characters; keep it under %d", n, maxSecondaryChars),
				Suggestion: "Shorten to two sentences",
			})
		}
	}
	return issues
}

func hasGreeting(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return greetingRe.MatchString(line) || mergeGreetingRe.MatchString(line)
	}
	return false
}

func (a *Analyzer) hasCTA(body, ctaLink string) bool {
	for _, dest := range a.links(body) {
		if ctaLink != "" && strings.HasPrefix(dest, ctaLink) {
			return true
		}
		for _, re := range a.cta {
			if re.MatchString(dest) {
				return true
			}
		}
	}
	return ctaMergeFieldRe.MatchString(body)
}

// links walks the markdown AST and returns every link destination.
func (a *Analyzer) links(body string) []string {
	src := []byte(body)
	doc := a.md.Parser().Parse(text.NewReader(src))
	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			out = append(out, string(v.Destination))
		case *ast.AutoLink:
			out = append(out, string(v.URL(src)))
		}
		return ast.WalkContinue, nil
	})
	return out
}

func unfilledPlaceholders(body string) []string {
	var out []string
	for _, loc := range placeholderRe.FindAllStringIndex(body, -1) {
		// [text](url) is a markdown link, not a placeholder.
		if loc[1] < len(body) && body[loc[1]] == '(' {
			continue
		}
		out = append(out, body[loc[0]:loc[1]])
	}
	return out
}
