package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ContractParser recovers a JSON payload from raw model text and decodes it into v.
type ContractParser interface {
	Parse(raw string, v any) error
}

// SubstringParser tries the whole text first, then the spans from the first
// opening bracket to the last matching closing one. It never rebalances or
// patches broken JSON.
type SubstringParser struct{}

func (SubstringParser) Parse(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedContract)
	}
	if gjson.Valid(trimmed) {
		if err := json.Unmarshal([]byte(trimmed), v); err == nil {
			return nil
		}
	}
	spans := jsonSpans(trimmed)
	if len(spans) == 0 {
		return fmt.Errorf("%w: no JSON object or array found", ErrMalformedContract)
	}
	var lastErr error
	for _, candidate := range spans {
		if !gjson.Valid(candidate) {
			lastErr = fmt.Errorf("%w: invalid JSON in response", ErrMalformedContract)
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrMalformedContract, err)
			continue
		}
		return nil
	}
	return lastErr
}

// jsonSpans returns, in order of their opening position, the span from the
// first '{' to the last '}' and from the first '[' to the last ']'. Prose such
// as "Plan [v2]:" can open the earlier span, so both are worth trying.
func jsonSpans(s string) []string {
	type span struct{ start, end int }
	var found []span
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			found = append(found, span{start, end})
		}
	}
	if len(found) == 2 && found[1].start < found[0].start {
		found[0], found[1] = found[1], found[0]
	}
	out := make([]string, 0, len(found))
	for _, sp := range found {
		out = append(out, s[sp.start:sp.end+1])
	}
	return out
}

// ParseContract decodes raw into a fresh T. On failure the zero T is returned,
// never a partially filled value.
func ParseContract[T any](p ContractParser, raw string) (T, error) {
	if p == nil {
		p = SubstringParser{}
	}
	var out T
	if err := p.Parse(raw, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

type critiqueContract struct {
	Issues []QualityIssue `json:"issues"`
}

// parseCritique accepts either {"issues":[...]} or a bare array of issues.
func parseCritique(p ContractParser, raw string) ([]QualityIssue, error) {
	if spans := jsonSpans(strings.TrimSpace(raw)); len(spans) > 0 && strings.HasPrefix(spans[0], "[") {
		if issues, err := ParseContract[[]QualityIssue](p, raw); err == nil {
			return normalizeIssues(issues), nil
		}
	}
	c, err := ParseContract[critiqueContract](p, raw)
	if err != nil {
		return nil, err
	}
	return normalizeIssues(c.Issues), nil
}

func normalizeIssues(in []QualityIssue) []QualityIssue {
	out := make([]QualityIssue, 0, len(in))
	for _, is := range in {
		is.Message = strings.TrimSpace(is.Message)
		if is.Message == "" {
			continue
		}
		is.Kind = strings.ToLower(strings.TrimSpace(is.Kind))
		if is.Kind == "" {
			is.Kind = "critique"
		}
		switch Severity(strings.ToLower(strings.TrimSpace(string(is.Severity)))) {
		case SeverityHigh:
			is.Severity = SeverityHigh
		case SeverityLow:
			is.Severity = SeverityLow
		default:
			is.Severity = SeverityMedium
		}
		out = append(out, is)
	}
	return out
}
