package generator

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"outreach_sequence_generator/progress"
)

// ProgressReporter receives coarse phase updates keyed by session id.
type ProgressReporter interface {
	Set(ctx context.Context, st progress.Status) error
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Tiers ModelTiers
	// Concurrency is the number of item pipelines run at once; 1 drafts sequentially.
	Concurrency int
	Parser      ContractParser
	Progress    ProgressReporter
}

// Orchestrator runs one GenerationRequest through plan, draft, analyze and
// repair, and assembles the sequence.
type Orchestrator struct {
	selector    *FallbackSelector
	analyzer    *Analyzer
	repairer    *Repairer
	tiers       ModelTiers
	concurrency int
	parser      ContractParser
	progress    ProgressReporter
	logger      *log.Logger
	newID       func() string
	now         func() time.Time
}

func NewOrchestrator(selector *FallbackSelector, analyzer *Analyzer, repairer *Repairer, opts OrchestratorOptions, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Parser == nil {
		opts.Parser = SubstringParser{}
	}
	return &Orchestrator{
		selector:    selector,
		analyzer:    analyzer,
		repairer:    repairer,
		tiers:       opts.Tiers,
		concurrency: opts.Concurrency,
		parser:      opts.Parser,
		progress:    opts.Progress,
		logger:      logger,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// Generate runs the whole pipeline. Per-item failures never abort the request;
// the only hard failures are an invalid request and ErrPlanningFailed.
func (o *Orchestrator) Generate(ctx context.Context, sessionID string, req GenerationRequest) (*Sequence, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = o.newID()
	}
	logger := o.logger.With("session", sessionID)
	o.report(ctx, progress.Status{SessionID: sessionID, Phase: progress.PhasePlanning, Percent: 5, Message: "Planning sequence"})

	plan, source, err := o.plan(ctx, req, logger)
	if err != nil {
		logger.Error("planning failed", "err", err)
		o.report(ctx, progress.Status{SessionID: sessionID, Phase: progress.PhaseFailed, Done: true, Error: err.Error()})
		return nil, err
	}
	logger.Info("sequence planned", "items", len(plan.Items), "source", source)

	total := len(plan.Items)
	o.report(ctx, progress.Status{SessionID: sessionID, Phase: progress.PhaseDrafting, Percent: 15, Message: fmt.Sprintf("Drafting 0 of %d", total)})

	// Each worker writes only its own slot.
	items := make([]GeneratedItem, total)
	var finished atomic.Int32
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, spec := range plan.Items {
		g.Go(func() error {
			items[i] = o.runItem(ctx, req, spec, i+1, total, logger)
			n := int(finished.Add(1))
			o.report(ctx, progress.Status{
				SessionID: sessionID,
				Phase:     progress.PhaseDrafting,
				Percent:   15 + 80*n/total,
				Message:   fmt.Sprintf("Drafting %d of %d", n, total),
			})
			return nil
		})
	}
	_ = g.Wait()

	// Completion order is irrelevant; ties keep plan order.
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].DayOffset < items[b].DayOffset
	})

	seq := &Sequence{
		ID:         o.newID(),
		SessionID:  sessionID,
		Request:    req,
		Plan:       plan,
		PlanSource: source,
		Items:      items,
		CreatedAt:  o.now(),
	}
	review := 0
	for _, it := range items {
		if it.NeedsReview() {
			review++
		}
	}
	logger.Info("sequence assembled", "sequence", seq.ID, "items", len(items), "needs_review", review)
	o.report(ctx, progress.Status{SessionID: sessionID, Phase: progress.PhaseAssembled, Percent: 100, Message: "Sequence ready", Done: true})
	return seq, nil
}

func validateRequest(req GenerationRequest) error {
	if strings.TrimSpace(req.Signal) == "" {
		return fmt.Errorf("%w: signal is required", ErrInvalidRequest)
	}
	if req.EmailCount < 0 || req.SecondaryCount < 0 {
		return fmt.Errorf("%w: item counts must not be negative", ErrInvalidRequest)
	}
	if req.TotalItems() == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidRequest)
	}
	return nil
}

// plan asks the model for a plan and substitutes the default plan when the
// call fails, the contract is malformed, or the shape is wrong.
func (o *Orchestrator) plan(ctx context.Context, req GenerationRequest, logger *log.Logger) (SequencePlan, PlanSource, error) {
	c, err := o.selector.SelectTiers(ctx, BuildPlanPrompt(req), o.tiers.Planning, o.tiers.Conservative)
	if err == nil {
		var plan SequencePlan
		plan, err = ParseContract[SequencePlan](o.parser, c.Text)
		if err == nil {
			err = validatePlan(plan, req)
		}
		if err == nil {
			return sanitizePlan(plan, req), PlanFromModel, nil
		}
	}
	logger.Warn("using default plan", "err", err)

	plan, derr := DefaultPlan(req)
	if derr != nil {
		return SequencePlan{}, "", fmt.Errorf("%w: %v (model plan: %v)", ErrPlanningFailed, derr, err)
	}
	return plan, PlanFromDefault, nil
}

// runItem drafts, analyzes and repairs one item. It always returns an item with
// content: on a failed draft that content is a marked placeholder.
func (o *Orchestrator) runItem(ctx context.Context, req GenerationRequest, spec ItemSpec, step, total int, logger *log.Logger) (item GeneratedItem) {
	item = GeneratedItem{
		ID:        o.newID(),
		Channel:   spec.Channel,
		DayOffset: spec.DayOffset,
		Purpose:   spec.Purpose,
	}
	logger = logger.With("item", item.ID, "day", spec.DayOffset, "channel", spec.Channel)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("item pipeline panicked", "panic", r)
			if item.Content == "" {
				item = placeholderItem(item, spec)
				return
			}
			item.Repair = RepairFailed
		}
	}()

	c, err := o.selector.SelectTiers(ctx, BuildDraftPrompt(req, spec, step, total), o.tiers.Drafting, o.tiers.Conservative)
	var content string
	if err == nil {
		content, err = CleanDraft(c.Text)
	}
	if err != nil {
		logger.Error("drafting failed", "err", err)
		return placeholderItem(item, spec)
	}
	item.Content = content
	item.OriginalContent = content
	item.Model = c.Model

	if req.SkipQualityCheck {
		item.Repair = RepairSkipped
		return item
	}

	o.assess(ctx, &item, RubricFor(req, spec.Channel), logger)
	return item
}

// assess scores item.Content and repairs it when it falls short. Any earlier
// repair outcome on the item is replaced.
func (o *Orchestrator) assess(ctx context.Context, item *GeneratedItem, rc RubricContext, logger *log.Logger) {
	report := o.analyzer.Analyze(ctx, item.Content, rc)
	item.Quality = &report
	item.FixesApplied = nil
	item.Optimized = false
	if report.Passed {
		item.Repair = RepairNotNeeded
		return
	}

	logger.Info("item below threshold, repairing", "score", report.Score, "high", report.HighCount(), "issues", len(report.Issues))
	res := o.repairer.Repair(ctx, item.Content, report, rc)
	item.Optimized = res.Content != item.Content
	item.Content = res.Content
	item.Quality = &res.Report
	item.FixesApplied = res.FixesApplied
	item.Repair = res.Status
}

func placeholderItem(item GeneratedItem, spec ItemSpec) GeneratedItem {
	note := fmt.Sprintf("[Draft unavailable: generation failed for day %d (%s). Write this step manually.]", spec.DayOffset, spec.Purpose)
	if spec.Channel == ChannelEmail {
		item.Content = "Subject: (draft unavailable)\n\n" + note
	} else {
		item.Content = note
	}
	item.OriginalContent = item.Content
	item.DraftFailed = true
	item.Repair = RepairSkipped
	item.Quality = nil
	return item
}

func (o *Orchestrator) report(ctx context.Context, st progress.Status) {
	if o.progress == nil {
		return
	}
	st.UpdatedAt = o.now()
	if err := o.progress.Set(ctx, st); err != nil {
		o.logger.Debug("progress update dropped", "session", st.SessionID, "err", err)
	}
}
