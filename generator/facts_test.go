package generator

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestRenderFact(t *testing.T) {
	tests := []struct {
		fact SupportingFact
		want string
	}{
		{Statistic{ID: "s", Value: "40%", Claim: "fewer escalations"}, "Statistic: 40% fewer escalations"},
		{Quote{ID: "q", Text: "It just works", Attribution: "CTO, Initech"}, `Customer quote: "It just works" (CTO, Initech)`},
		{Quote{ID: "q", Text: "It just works"}, `Customer quote: "It just works"`},
		{CaseStudy{ID: "c", Customer: "Globex", Outcome: "halved churn", URL: "https://example.com/globex"}, "Case study: Globex - halved churn (source: https://example.com/globex)"},
	}
	for _, tt := range tests {
		if got := RenderFact(tt.fact); got != tt.want {
			t.Errorf("RenderFact(%T) = %q, want %q", tt.fact, got, tt.want)
		}
	}
}

func TestFactRecordUnknownCategory(t *testing.T) {
	_, err := FactRecord{Ref: "x", Category: "rumour"}.Fact()
	if err == nil || !strings.Contains(err.Error(), "unknown category") {
		t.Fatalf("err = %v, want unknown category", err)
	}
	if _, err := (FactRecord{Category: CategoryQuote}).Fact(); err == nil {
		t.Fatal("missing ref should fail")
	}
}

func TestGenerationRequestJSONKeepsFacts(t *testing.T) {
	req := testRequest(2, 1)
	req.Facts = append(req.Facts, CaseStudy{ID: "case-1", Customer: "Globex", Outcome: "halved churn"})

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back GenerationRequest
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, req) {
		t.Errorf("got %+v, want %+v", back, req)
	}

	bad := `{"signal":"x","facts":[{"ref":"r","category":"gossip"}]}`
	if err := json.Unmarshal([]byte(bad), &back); err == nil {
		t.Error("unknown fact category should fail decoding")
	}
}
