package generator

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// DefaultRepairPasses is one rewrite followed by one verification.
const DefaultRepairPasses = 2

type repairState int

const (
	stateNeedsRepair repairState = iota
	stateVerifying
	stateDone
)

// RepairResult is the terminal state of one repair run.
type RepairResult struct {
	Content      string
	Report       QualityReport
	FixesApplied []string
	Status       RepairStatus
	Model        string
}

// Repairer rewrites failing items against their reported issues and re-scores them.
type Repairer struct {
	selector *FallbackSelector
	analyzer *Analyzer
	tiers    [][]string
	passes   int
	logger   *log.Logger
}

// NewRepairer builds a repairer. passes counts rewrites and verifications
// together and is at least 2.
func NewRepairer(selector *FallbackSelector, analyzer *Analyzer, passes int, logger *log.Logger, tiers ...[]string) *Repairer {
	if passes < DefaultRepairPasses {
		passes = DefaultRepairPasses
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Repairer{selector: selector, analyzer: analyzer, tiers: tiers, passes: passes, logger: logger}
}

// Repair never returns an error: a failed rewrite keeps the pre-repair content
// and reports RepairFailed, and running out of passes reports RepairExhausted.
func (r *Repairer) Repair(ctx context.Context, content string, report QualityReport, rc RubricContext) RepairResult {
	res := RepairResult{Content: content, Report: report, Status: RepairNotNeeded}
	if report.Passed {
		return res
	}

	state := stateNeedsRepair
	used := 0
	for state != stateDone {
		switch state {
		case stateNeedsRepair:
			if used >= r.passes {
				state = stateDone
				continue
			}
			targeted := res.Report.Issues
			c, err := r.selector.SelectTiers(ctx, BuildRepairPrompt(res.Content, targeted, rc), r.tiers...)
			used++
			if err != nil {
				r.logger.Warn("repair rewrite failed", "channel", rc.Channel, "err", err)
				if res.Status == RepairNotNeeded {
					res.Status = RepairFailed
				}
				state = stateDone
				continue
			}
			rewritten, err := CleanDraft(c.Text)
			if err != nil {
				r.logger.Warn("repair rewrite unusable", "channel", rc.Channel, "model", c.Model, "err", err)
				if res.Status == RepairNotNeeded {
					res.Status = RepairFailed
				}
				state = stateDone
				continue
			}
			res.Content = rewritten
			res.Model = c.Model
			res.FixesApplied = appendFixes(res.FixesApplied, targeted)
			state = stateVerifying

		case stateVerifying:
			res.Report = r.analyzer.Analyze(ctx, res.Content, rc)
			used++
			switch {
			case res.Report.Passed:
				res.Status = RepairSucceeded
				state = stateDone
			case used >= r.passes:
				res.Status = RepairExhausted
				state = stateDone
			default:
				res.Status = RepairExhausted
				state = stateNeedsRepair
			}
		}
	}
	r.logger.Debug("repair finished", "channel", rc.Channel, "status", res.Status, "score", res.Report.Score, "passes", used)
	return res
}

var fixDescriptions = map[string]string{
	IssueMissingSubject:      "Added a subject line",
	IssueMissingGreeting:     "Added a personalised greeting",
	IssueMissingCTA:          "Added a call-to-action link",
	IssueUnfilledPlaceholder: "Replaced unfilled placeholders",
	IssueTooLong:             "Shortened the message",
}

func appendFixes(fixes []string, issues []QualityIssue) []string {
	seen := make(map[string]bool, len(fixes))
	for _, f := range fixes {
		seen[f] = true
	}
	for _, is := range issues {
		desc, ok := fixDescriptions[is.Kind]
		if !ok {
			desc = "Addressed: " + is.Message
			if is.Suggestion != "" {
				desc = is.Suggestion
			}
		}
		if !seen[desc] {
			seen[desc] = true
			fixes = append(fixes, desc)
		}
	}
	return fixes
}
