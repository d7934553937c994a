package generator

import "time"

// Channel is the medium a generated item is sent through.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelSecondary Channel = "linkedin"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSecondary
}

// Persona carries the resolved attributes of the outreach target.
type Persona struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Title      string   `json:"title" yaml:"title"`
	Tone       string   `json:"tone" yaml:"tone"`
	Seniority  string   `json:"seniority" yaml:"seniority"`
	Department string   `json:"department" yaml:"department"`
	PainPoints []string `json:"pain_points" yaml:"pain_points"`
}

// GenerationRequest is one user submission. It is not modified once built.
type GenerationRequest struct {
	PersonaID        string           `json:"persona_id"`
	Persona          Persona          `json:"persona"`
	Signal           string           `json:"signal"`
	PainPoints       []string         `json:"pain_points"`
	Facts            []SupportingFact `json:"-"`
	EmailCount       int              `json:"email_count"`
	SecondaryCount   int              `json:"secondary_count"`
	CTALink          string           `json:"cta_link,omitempty"`
	SenderName       string           `json:"sender_name,omitempty"`
	SkipQualityCheck bool             `json:"skip_quality_check,omitempty"`
}

// TotalItems is the number of items the request asks for.
func (r GenerationRequest) TotalItems() int {
	return r.EmailCount + r.SecondaryCount
}

// Fact returns the supporting fact with the given reference.
func (r GenerationRequest) Fact(ref string) (SupportingFact, bool) {
	for _, f := range r.Facts {
		if f.Ref() == ref {
			return f, true
		}
	}
	return nil, false
}

// ItemSpec is one planned step of the sequence.
type ItemSpec struct {
	DayOffset         int     `json:"day"`
	Channel           Channel `json:"channel"`
	Purpose           string  `json:"purpose"`
	SignalIntegration string  `json:"signal_integration"`
	FactRef           string  `json:"fact_ref,omitempty"`
}

// SequencePlan is the ordered outline produced by the planning call.
type SequencePlan struct {
	Items []ItemSpec `json:"items"`
}

// Count returns how many items in the plan use channel ch.
func (p SequencePlan) Count(ch Channel) int {
	n := 0
	for _, it := range p.Items {
		if it.Channel == ch {
			n++
		}
	}
	return n
}

// Severity ranks a quality issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// QualityIssue is one finding against a generated item.
type QualityIssue struct {
	Kind       string   `json:"kind"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// QualityReport is the scored outcome of one analysis run.
type QualityReport struct {
	Score           int            `json:"score"`
	Passed          bool           `json:"passed"`
	Issues          []QualityIssue `json:"issues"`
	CritiqueSkipped bool           `json:"critique_skipped,omitempty"`
}

// HighCount returns the number of high-severity issues.
func (r QualityReport) HighCount() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// RepairStatus records what the repair loop did for an item.
type RepairStatus string

const (
	RepairNotNeeded RepairStatus = "not_needed"
	RepairSkipped   RepairStatus = "skipped"
	RepairSucceeded RepairStatus = "repaired"
	// RepairExhausted means the bounded passes ran out before the item passed.
	// The best-effort content is kept and should be reviewed by hand.
	RepairExhausted RepairStatus = "repair_exhausted"
	// RepairFailed means the rewrite call itself failed; content is unchanged.
	RepairFailed RepairStatus = "repair_failed"
)

// GeneratedItem is one drafted message of the sequence.
type GeneratedItem struct {
	ID              string         `json:"id"`
	Channel         Channel        `json:"channel"`
	DayOffset       int            `json:"day"`
	Purpose         string         `json:"purpose"`
	Content         string         `json:"content"`
	OriginalContent string         `json:"original_content"`
	Optimized       bool           `json:"optimized"`
	Model           string         `json:"model,omitempty"`
	Quality         *QualityReport `json:"quality,omitempty"`
	FixesApplied    []string       `json:"fixes_applied,omitempty"`
	Repair          RepairStatus   `json:"repair_status,omitempty"`
	DraftFailed     bool           `json:"draft_failed,omitempty"`
	Revisions       []Turn         `json:"revisions,omitempty"`
}

// NeedsReview reports whether a person should look at the item before sending.
func (it GeneratedItem) NeedsReview() bool {
	return it.DraftFailed || it.Repair == RepairExhausted || it.Repair == RepairFailed
}

// Turn records one comment-driven revision of an item.
type Turn struct {
	Comment   string    `json:"comment"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanSource tells where the plan of a sequence came from.
type PlanSource string

const (
	PlanFromModel   PlanSource = "model"
	PlanFromDefault PlanSource = "default"
)

// Sequence is the assembled result of one generation request.
type Sequence struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	Request    GenerationRequest `json:"request"`
	Plan       SequencePlan      `json:"plan"`
	PlanSource PlanSource        `json:"plan_source"`
	Items      []GeneratedItem   `json:"items"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Item returns a pointer to the item with the given id.
func (s *Sequence) Item(id string) (*GeneratedItem, bool) {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i], true
		}
	}
	return nil, false
}
