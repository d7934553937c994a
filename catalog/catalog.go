// Package catalog resolves personas and supporting facts from a YAML file
// into fully built generation requests.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"outreach_sequence_generator/generator"
)

// ErrUnknownPersona is returned when a request names a persona the catalog lacks.
var ErrUnknownPersona = errors.New("unknown persona")

// Catalog holds the personas and facts a request may reference by id.
type Catalog struct {
	Personas []generator.Persona    `yaml:"personas"`
	Facts    []generator.FactRecord `yaml:"facts"`
}

// RequestSpec is the file and API form of a generation request. Persona and
// facts may be given inline or by reference into the catalog.
type RequestSpec struct {
	PersonaID        string                 `yaml:"persona_id" json:"persona_id"`
	Persona          *generator.Persona     `yaml:"persona,omitempty" json:"persona,omitempty"`
	Signal           string                 `yaml:"signal" json:"signal"`
	PainPoints       []string               `yaml:"pain_points,omitempty" json:"pain_points,omitempty"`
	FactRefs         []string               `yaml:"fact_refs,omitempty" json:"fact_refs,omitempty"`
	Facts            []generator.FactRecord `yaml:"facts,omitempty" json:"facts,omitempty"`
	EmailCount       int                    `yaml:"email_count" json:"email_count"`
	SecondaryCount   int                    `yaml:"secondary_count" json:"secondary_count"`
	CTALink          string                 `yaml:"cta_link,omitempty" json:"cta_link,omitempty"`
	SenderName       string                 `yaml:"sender_name,omitempty" json:"sender_name,omitempty"`
	SkipQualityCheck bool                   `yaml:"skip_quality_check,omitempty" json:"skip_quality_check,omitempty"`
}

// Load reads a catalog file. An empty path yields an empty catalog.
func Load(path string) (*Catalog, error) {
	c := &Catalog{}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	seen := make(map[string]bool, len(c.Facts))
	for _, f := range c.Facts {
		if _, err := f.Fact(); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		if seen[f.Ref] {
			return nil, fmt.Errorf("catalog %s: duplicate fact ref %q", path, f.Ref)
		}
		seen[f.Ref] = true
	}
	return c, nil
}

// LoadRequest reads a YAML request file.
func LoadRequest(path string) (RequestSpec, error) {
	var spec RequestSpec
	data, err := os.ReadFile(path)
	if err != nil {
		return spec, err
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("parse request %s: %w", path, err)
	}
	return spec, nil
}

// Persona looks up a persona by id, case-insensitively.
func (c *Catalog) Persona(id string) (generator.Persona, bool) {
	for _, p := range c.Personas {
		if strings.EqualFold(p.ID, id) {
			return p, true
		}
	}
	return generator.Persona{}, false
}

func (c *Catalog) fact(ref string) (generator.FactRecord, bool) {
	for _, f := range c.Facts {
		if f.Ref == ref {
			return f, true
		}
	}
	return generator.FactRecord{}, false
}

// Resolve builds a generation request. An inline persona wins over the
// catalog entry. When no facts are referenced or inlined, every catalog fact
// is attached. Pain points default to the persona's.
func (c *Catalog) Resolve(spec RequestSpec) (generator.GenerationRequest, error) {
	var persona generator.Persona
	switch {
	case spec.Persona != nil:
		persona = *spec.Persona
		if persona.ID == "" {
			persona.ID = spec.PersonaID
		}
	case spec.PersonaID != "":
		p, ok := c.Persona(spec.PersonaID)
		if !ok {
			return generator.GenerationRequest{}, fmt.Errorf("%w %q: %w", ErrUnknownPersona, spec.PersonaID, generator.ErrInvalidRequest)
		}
		persona = p
	default:
		return generator.GenerationRequest{}, fmt.Errorf("persona_id or persona is required: %w", generator.ErrInvalidRequest)
	}

	records := append([]generator.FactRecord(nil), spec.Facts...)
	for _, ref := range spec.FactRefs {
		f, ok := c.fact(ref)
		if !ok {
			return generator.GenerationRequest{}, fmt.Errorf("unknown fact ref %q: %w", ref, generator.ErrInvalidRequest)
		}
		records = append(records, f)
	}
	if len(spec.FactRefs) == 0 && len(spec.Facts) == 0 {
		records = append(records, c.Facts...)
	}
	facts, err := generator.FactsFromRecords(records)
	if err != nil {
		return generator.GenerationRequest{}, fmt.Errorf("%w: %w", generator.ErrInvalidRequest, err)
	}

	painPoints := spec.PainPoints
	if len(painPoints) == 0 {
		painPoints = persona.PainPoints
	}

	return generator.GenerationRequest{
		PersonaID:        persona.ID,
		Persona:          persona,
		Signal:           strings.TrimSpace(spec.Signal),
		PainPoints:       painPoints,
		Facts:            facts,
		EmailCount:       spec.EmailCount,
		SecondaryCount:   spec.SecondaryCount,
		CTALink:          spec.CTALink,
		SenderName:       spec.SenderName,
		SkipQualityCheck: spec.SkipQualityCheck,
	}, nil
}
