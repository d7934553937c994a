package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FactCategory names a kind of supporting fact.
type FactCategory string

const (
	CategoryStatistic FactCategory = "statistic"
	CategoryQuote     FactCategory = "quote"
	CategoryCaseStudy FactCategory = "case_study"
)

// SupportingFact is a piece of social proof handed to the generator as input.
// The set of implementations is closed; each variant renders itself for prompts.
type SupportingFact interface {
	Ref() string
	Category() FactCategory
	SourceURL() string
	render() string
}

// Statistic is a measured claim, e.g. "cut onboarding time by 40%".
type Statistic struct {
	ID    string
	Value string
	Claim string
	URL   string
}

func (s Statistic) Ref() string            { return s.ID }
func (s Statistic) Category() FactCategory { return CategoryStatistic }
func (s Statistic) SourceURL() string      { return s.URL }

func (s Statistic) render() string {
	return fmt.Sprintf("Statistic: %s %s", s.Value, s.Claim)
}

// Quote is an attributed customer quote.
type Quote struct {
	ID          string
	Text        string
	Attribution string
	URL         string
}

func (q Quote) Ref() string            { return q.ID }
func (q Quote) Category() FactCategory { return CategoryQuote }
func (q Quote) SourceURL() string      { return q.URL }

func (q Quote) render() string {
	if q.Attribution == "" {
		return fmt.Sprintf("Customer quote: %q", q.Text)
	}
	return fmt.Sprintf("Customer quote: %q (%s)", q.Text, q.Attribution)
}

// CaseStudy is a named customer outcome.
type CaseStudy struct {
	ID       string
	Customer string
	Outcome  string
	URL      string
}

func (c CaseStudy) Ref() string            { return c.ID }
func (c CaseStudy) Category() FactCategory { return CategoryCaseStudy }
func (c CaseStudy) SourceURL() string      { return c.URL }

func (c CaseStudy) render() string {
	return fmt.Sprintf("Case study: %s - %s", c.Customer, c.Outcome)
}

// RenderFact formats a fact for inclusion in a prompt, with its link when known.
func RenderFact(f SupportingFact) string {
	line := f.render()
	if u := f.SourceURL(); u != "" {
		line += " (source: " + u + ")"
	}
	return line
}

// FactRecord is the wire/file form of a supporting fact.
type FactRecord struct {
	Ref         string       `json:"ref" yaml:"ref"`
	Category    FactCategory `json:"category" yaml:"category"`
	Value       string       `json:"value,omitempty" yaml:"value,omitempty"`
	Text        string       `json:"text,omitempty" yaml:"text,omitempty"`
	Attribution string       `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	Customer    string       `json:"customer,omitempty" yaml:"customer,omitempty"`
	URL         string       `json:"url,omitempty" yaml:"url,omitempty"`
}

// Fact converts the record into its typed variant. Unknown categories are an error.
func (r FactRecord) Fact() (SupportingFact, error) {
	if strings.TrimSpace(r.Ref) == "" {
		return nil, fmt.Errorf("fact record missing ref")
	}
	switch r.Category {
	case CategoryStatistic:
		return Statistic{ID: r.Ref, Value: r.Value, Claim: r.Text, URL: r.URL}, nil
	case CategoryQuote:
		return Quote{ID: r.Ref, Text: r.Text, Attribution: r.Attribution, URL: r.URL}, nil
	case CategoryCaseStudy:
		return CaseStudy{ID: r.Ref, Customer: r.Customer, Outcome: r.Text, URL: r.URL}, nil
	default:
		return nil, fmt.Errorf("fact %s: unknown category %q", r.Ref, r.Category)
	}
}

// RecordOf is the inverse of FactRecord.Fact.
func RecordOf(f SupportingFact) FactRecord {
	switch v := f.(type) {
	case Statistic:
		return FactRecord{Ref: v.ID, Category: CategoryStatistic, Value: v.Value, Text: v.Claim, URL: v.URL}
	case Quote:
		return FactRecord{Ref: v.ID, Category: CategoryQuote, Text: v.Text, Attribution: v.Attribution, URL: v.URL}
	case CaseStudy:
		return FactRecord{Ref: v.ID, Category: CategoryCaseStudy, Customer: v.Customer, Text: v.Outcome, URL: v.URL}
	}
	panic(fmt.Sprintf("generator: unhandled fact type %T", f))
}

// FactsFromRecords converts a list of records, failing on the first bad one.
func FactsFromRecords(records []FactRecord) ([]SupportingFact, error) {
	facts := make([]SupportingFact, 0, len(records))
	for _, r := range records {
		f, err := r.Fact()
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

type requestAlias GenerationRequest

type requestJSON struct {
	requestAlias
	Facts []FactRecord `json:"facts,omitempty"`
}

func (r GenerationRequest) MarshalJSON() ([]byte, error) {
	out := requestJSON{requestAlias: requestAlias(r)}
	for _, f := range r.Facts {
		out.Facts = append(out.Facts, RecordOf(f))
	}
	return json.Marshal(out)
}

func (r *GenerationRequest) UnmarshalJSON(data []byte) error {
	var in requestJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	facts, err := FactsFromRecords(in.Facts)
	if err != nil {
		return err
	}
	*r = GenerationRequest(in.requestAlias)
	r.Facts = facts
	return nil
}
