package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"outreach_sequence_generator/generator"
)

const sampleCatalog = `
personas:
  - id: vp-eng
    name: Dana
    title: VP Engineering
    tone: direct
    seniority: executive
    department: engineering
    pain_points:
      - slow release cycles
      - on-call fatigue
facts:
  - ref: stat-1
    category: statistic
    value: "40%"
    text: faster onboarding
    url: https://example.com/report
  - ref: quote-1
    category: quote
    text: It just works.
    attribution: CTO, Acme
  - ref: case-1
    category: case_study
    customer: Globex
    text: halved incident count
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadSample(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load(writeFile(t, "catalog.yaml", sampleCatalog))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestResolveByReference(t *testing.T) {
	c := loadSample(t)
	req, err := c.Resolve(RequestSpec{
		PersonaID:      "VP-ENG",
		Signal:         "  raised a Series B  ",
		FactRefs:       []string{"case-1"},
		EmailCount:     3,
		SecondaryCount: 1,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Persona.Title != "VP Engineering" || req.PersonaID != "vp-eng" {
		t.Errorf("persona = %+v", req.Persona)
	}
	if req.Signal != "raised a Series B" {
		t.Errorf("signal = %q", req.Signal)
	}
	if len(req.PainPoints) != 2 {
		t.Errorf("pain points should default to the persona's: %v", req.PainPoints)
	}
	if len(req.Facts) != 1 {
		t.Fatalf("facts = %d, want 1", len(req.Facts))
	}
	if _, ok := req.Facts[0].(generator.CaseStudy); !ok {
		t.Errorf("fact type = %T", req.Facts[0])
	}
}

func TestResolveAttachesAllFactsByDefault(t *testing.T) {
	c := loadSample(t)
	req, err := c.Resolve(RequestSpec{PersonaID: "vp-eng", Signal: "hiring SREs", EmailCount: 1})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(req.Facts) != 3 {
		t.Errorf("facts = %d, want 3", len(req.Facts))
	}
}

func TestResolveInlinePersona(t *testing.T) {
	c := &Catalog{}
	req, err := c.Resolve(RequestSpec{
		PersonaID:  "ops",
		Persona:    &generator.Persona{Name: "Sam", Title: "Head of Ops"},
		Signal:     "opened a new warehouse",
		PainPoints: []string{"manual reporting"},
		Facts:      []generator.FactRecord{{Ref: "s", Category: generator.CategoryStatistic, Value: "3x", Text: "throughput"}},
		EmailCount: 2,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.PersonaID != "ops" || req.Persona.Title != "Head of Ops" {
		t.Errorf("persona = %+v", req.Persona)
	}
	if len(req.PainPoints) != 1 || len(req.Facts) != 1 {
		t.Errorf("request = %+v", req)
	}
}

func TestResolveErrors(t *testing.T) {
	c := loadSample(t)
	cases := map[string]RequestSpec{
		"unknown persona": {PersonaID: "cfo", Signal: "x", EmailCount: 1},
		"no persona":      {Signal: "x", EmailCount: 1},
		"unknown fact":    {PersonaID: "vp-eng", Signal: "x", FactRefs: []string{"nope"}, EmailCount: 1},
		"bad inline fact": {PersonaID: "vp-eng", Signal: "x", Facts: []generator.FactRecord{{Ref: "z", Category: "rumor"}}},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Resolve(spec)
			if !errors.Is(err, generator.ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
	if _, err := c.Resolve(cases["unknown persona"]); !errors.Is(err, ErrUnknownPersona) {
		t.Errorf("err = %v, want ErrUnknownPersona", err)
	}
}

func TestLoadRejectsBadCatalog(t *testing.T) {
	bad := map[string]string{
		"duplicate": "facts:\n  - {ref: a, category: quote, text: hi}\n  - {ref: a, category: quote, text: ho}\n",
		"category":  "facts:\n  - {ref: a, category: rumor}\n",
		"yaml":      "personas: [",
	}
	for name, body := range bad {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "c.yaml", body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadRequest(t *testing.T) {
	path := writeFile(t, "req.yaml", `
persona_id: vp-eng
signal: launched a public API
fact_refs: [stat-1]
email_count: 4
secondary_count: 2
cta_link: https://cal.com/acme/intro
`)
	spec, err := LoadRequest(path)
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	if spec.EmailCount != 4 || spec.SecondaryCount != 2 || spec.CTALink != "https://cal.com/acme/intro" {
		t.Errorf("spec = %+v", spec)
	}
	if len(spec.FactRefs) != 1 || spec.FactRefs[0] != "stat-1" {
		t.Errorf("fact refs = %v", spec.FactRefs)
	}
}

func TestExampleFilesResolve(t *testing.T) {
	c, err := Load(filepath.Join("..", "config", "catalog.example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	spec, err := LoadRequest(filepath.Join("..", "config", "request.example.yaml"))
	if err != nil {
		t.Fatalf("LoadRequest: %v", err)
	}
	req, err := c.Resolve(spec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.TotalItems() != 6 || len(req.Facts) != 2 {
		t.Errorf("request = %+v", req)
	}
}
