package generator

import (
	"context"
	"strings"
)

// MockLLM is an offline stand-in for local runs; it never calls a backend.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, _ string, prompt Prompt) (string, error) {
	switch prompt.Purpose {
	case PurposePlan:
		// No JSON on purpose: the orchestrator falls back to its default plan.
		return "The mock planner has no plan to offer.", nil
	case PurposeCritique:
		return `{"issues":[]}`, nil
	case PurposeRepair:
		return afterMarker(prompt.User, "Message:\n"), nil
	case PurposeRevise:
		return afterMarker(strings.SplitN(prompt.User, "\n\nFeedback:", 2)[0], "Current message:\n"), nil
	}

	var sb strings.Builder
	if !strings.Contains(prompt.User, "LinkedIn message") {
		sb.WriteString("Subject: A quick idea for {{company}}\n\n")
	}
	sb.WriteString("Hi {{first_name}},\n\n")
	sb.WriteString(firstLineWith(prompt.User, "Purpose:"))
	sb.WriteString("\n\n")
	if strings.Contains(prompt.User, "LinkedIn message") {
		sb.WriteString("Open to a quick chat? {{calendar_link}}\n\n")
	} else {
		sb.WriteString("[Grab 15 minutes here]({{calendar_link}})\n\n")
	}
	sb.WriteString("Best,\n{{sender_name}}")
	return sb.String(), nil
}

func afterMarker(s, marker string) string {
	if i := strings.Index(s, marker); i >= 0 {
		return s[i+len(marker):]
	}
	return s
}

func firstLineWith(s, prefix string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}
