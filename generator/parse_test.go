package generator

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseContractRecoversWrappedJSON(t *testing.T) {
	want := SequencePlan{Items: []ItemSpec{
		{DayOffset: 1, Channel: ChannelEmail, Purpose: "open", SignalIntegration: "lead with it", FactRef: "stat-1"},
		{DayOffset: 2, Channel: ChannelSecondary, Purpose: "connect"},
	}}
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}

	wrappers := []struct {
		name          string
		before, after string
	}{
		{"bare", "", ""},
		{"whitespace", "\n\t ", "  \n"},
		{"prose", "Here is the plan you asked for:\n", "\nLet me know if you want changes."},
		{"fenced", "```json\n", "\n```"},
		{"prose and fence", "Sure thing.\n```\n", "\n```\nGood luck with the outreach!"},
		{"bracket in prose", "Plan [v2]: ", ""},
		{"brackets around", "Plan [v2]:\n", "\n[end]"},
	}
	for _, w := range wrappers {
		t.Run(w.name, func(t *testing.T) {
			got, err := ParseContract[SequencePlan](SubstringParser{}, w.before+string(raw)+w.after)
			if err != nil {
				t.Fatalf("ParseContract: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseContractArray(t *testing.T) {
	got, err := ParseContract[[]string](nil, "Suggested ids: [\"a\", \"b\"] hope that helps")
	if err != nil {
		t.Fatalf("ParseContract: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestParseContractMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"prose only": "I could not come up with a plan.",
		"truncated":  `{"items": [{"day": 1, "channel": "email", "purpose": "op`,
		"truncated with closer in prose": `{"items": [{"day": 1} and then }`,
		"wrong type": `{"items": "none"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseContract[SequencePlan](SubstringParser{}, raw)
			if !errors.Is(err, ErrMalformedContract) {
				t.Fatalf("err = %v, want ErrMalformedContract", err)
			}
			if got.Items != nil {
				t.Errorf("expected zero value, got %+v", got)
			}
		})
	}
}

func TestParseCritique(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []QualityIssue
	}{
		{
			name: "object",
			raw:  `Review: {"issues":[{"kind":"Relevance","severity":"HIGH","message":"Ignores the signal","suggestion":"Mention the raise"}]}`,
			want: []QualityIssue{{Kind: "relevance", Severity: SeverityHigh, Message: "Ignores the signal", Suggestion: "Mention the raise"}},
		},
		{
			name: "bare array with unknown severity",
			raw:  `[{"kind":"tone","severity":"critical-ish","message":"Too salesy"}]`,
			want: []QualityIssue{{Kind: "tone", Severity: SeverityMedium, Message: "Too salesy"}},
		},
		{
			name: "drops empty messages",
			raw:  `{"issues":[{"kind":"x","severity":"low","message":"  "},{"severity":"low","message":"Long opener"}]}`,
			want: []QualityIssue{{Kind: "critique", Severity: SeverityLow, Message: "Long opener"}},
		},
		{
			name: "bracket in prose",
			raw:  `Verdict [draft 2]: {"issues":[{"kind":"tone","severity":"low","message":"Formal"}]}`,
			want: []QualityIssue{{Kind: "tone", Severity: SeverityLow, Message: "Formal"}},
		},
		{
			name: "clean",
			raw:  `{"issues":[]}`,
			want: []QualityIssue{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCritique(SubstringParser{}, tt.raw)
			if err != nil {
				t.Fatalf("parseCritique: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
