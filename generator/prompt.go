package generator

import (
	"fmt"
	"strings"
)

// Purpose tags a prompt with the pipeline phase it belongs to.
type Purpose string

const (
	PurposePlan     Purpose = "plan"
	PurposeDraft    Purpose = "draft"
	PurposeCritique Purpose = "critique"
	PurposeRepair   Purpose = "repair"
	PurposeRevise   Purpose = "revise"
)

// Prompt is the message set sent to the LLM.
type Prompt struct {
	Purpose     Purpose
	System      string
	User        string
	History     []Message
	Temperature *float64
	MaxTokens   int
}

// Message is an optional earlier turn.
type Message struct {
	Role    string
	Content string
}

// RubricContext is what the analyzer and repairer need to know about an item.
type RubricContext struct {
	Channel    Channel
	Persona    Persona
	PainPoints []string
	Signal     string
	CTALink    string
}

// RubricFor builds the rubric context of one item of req.
func RubricFor(req GenerationRequest, ch Channel) RubricContext {
	return RubricContext{
		Channel:    ch,
		Persona:    req.Persona,
		PainPoints: req.PainPoints,
		Signal:     req.Signal,
		CTALink:    req.CTALink,
	}
}

func temperature(t float64) *float64 { return &t }

func writePersona(sb *strings.Builder, p Persona) {
	sb.WriteString("Recipient persona:\n")
	if p.Title != "" {
		sb.WriteString(fmt.Sprintf("- Title: %s\n", p.Title))
	}
	if p.Seniority != "" {
		sb.WriteString(fmt.Sprintf("- Seniority: %s\n", p.Seniority))
	}
	if p.Department != "" {
		sb.WriteString(fmt.Sprintf("- Department: %s\n", p.Department))
	}
	if p.Tone != "" {
		sb.WriteString(fmt.Sprintf("- Preferred tone: %s\n", p.Tone))
	}
}

func writePainPoints(sb *strings.Builder, points []string) {
	if len(points) == 0 {
		return
	}
	sb.WriteString("Pain points to address:\n")
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("- %s\n", p))
	}
}

// BuildPlanPrompt asks for a JSON sequence plan of the requested shape.
func BuildPlanPrompt(req GenerationRequest) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Plan a B2B outreach sequence of %d emails and %d LinkedIn messages.\n\n", req.EmailCount, req.SecondaryCount))
	sb.WriteString(fmt.Sprintf("Signal (reason for outreach): %s\n\n", req.Signal))
	writePersona(&sb, req.Persona)
	writePainPoints(&sb, req.PainPoints)
	if len(req.Facts) > 0 {
		sb.WriteString("Available supporting facts (reference them by ref):\n")
		for _, f := range req.Facts {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", f.Ref(), RenderFact(f)))
		}
	}
	sb.WriteString("\nReturn only JSON of the form:\n")
	sb.WriteString(`{"items":[{"day":1,"channel":"email","purpose":"...","signal_integration":"...","fact_ref":"..."}]}`)
	sb.WriteString("\nchannel is \"email\" or \"linkedin\". Days increase through the sequence. Use each fact at most once.")

	return Prompt{
		Purpose:     PurposePlan,
		System:      "You are a senior SDR strategist. Reply with JSON only, no commentary.",
		User:        sb.String(),
		Temperature: temperature(0.4),
	}
}

// BuildDraftPrompt asks for the content of one planned item. It only sees the
// request and its own spec, never other items.
func BuildDraftPrompt(req GenerationRequest, spec ItemSpec, step, total int) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write step %d of %d of an outreach sequence (day %d).\n", step, total, spec.DayOffset))
	sb.WriteString(fmt.Sprintf("Purpose: %s\n", spec.Purpose))
	sb.WriteString(fmt.Sprintf("Signal: %s\n", req.Signal))
	if spec.SignalIntegration != "" {
		sb.WriteString(fmt.Sprintf("How to use the signal: %s\n", spec.SignalIntegration))
	}
	writePersona(&sb, req.Persona)
	writePainPoints(&sb, req.PainPoints)
	if f, ok := req.Fact(spec.FactRef); ok {
		sb.WriteString(fmt.Sprintf("Supporting fact to weave in: %s\n", RenderFact(f)))
	}
	sb.WriteString("\nRules:\n")
	sb.WriteString("- Open with a greeting using the {{first_name}} merge field.\n")
	sb.WriteString("- Keep merge fields such as {{first_name}} and {{company}} verbatim; never invent bracket placeholders.\n")
	switch spec.Channel {
	case ChannelSecondary:
		sb.WriteString("- This is a LinkedIn message: under 300 characters, no subject line.\n")
	default:
		sb.WriteString("- First line must be \"Subject: <subject>\", then a blank line, then the body.\n")
		sb.WriteString("- Body under 150 words.\n")
	}
	sb.WriteString(fmt.Sprintf("- End with a call to action linking to %s.\n", ctaTarget(req.CTALink)))
	if req.SenderName != "" {
		sb.WriteString(fmt.Sprintf("- Sign off as %s.\n", req.SenderName))
	}
	sb.WriteString("Output only the message.")

	return Prompt{
		Purpose:     PurposeDraft,
		System:      "You write concise, specific, human-sounding outreach. No preamble, no markdown fences.",
		User:        sb.String(),
		Temperature: temperature(0.7),
	}
}

func ctaTarget(link string) string {
	if link == "" {
		return "{{calendar_link}}"
	}
	return link
}

// BuildCritiquePrompt asks for a JSON list of issues with content.
func BuildCritiquePrompt(content string, rc RubricContext) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Review this %s outreach message.\n\n", rc.Channel))
	writePersona(&sb, rc.Persona)
	writePainPoints(&sb, rc.PainPoints)
	if rc.Signal != "" {
		sb.WriteString(fmt.Sprintf("It must reference this signal: %s\n", rc.Signal))
	}
	sb.WriteString("\nCheck relevance to the persona, use of the signal, specificity, tone, length and clarity of the ask.\n")
	sb.WriteString("Return only JSON: {\"issues\":[{\"kind\":\"...\",\"severity\":\"high|medium|low\",\"message\":\"...\",\"suggestion\":\"...\"}]}\n")
	sb.WriteString("Return {\"issues\":[]} when the message is ready to send.\n\n")
	sb.WriteString("Message:\n")
	sb.WriteString(content)

	return Prompt{
		Purpose:     PurposeCritique,
		System:      "You are a strict outreach reviewer. Reply with JSON only.",
		User:        sb.String(),
		Temperature: temperature(0),
	}
}

// BuildRepairPrompt asks for a rewrite that fixes the listed issues only.
func BuildRepairPrompt(content string, issues []QualityIssue, rc RubricContext) Prompt {
	var sb strings.Builder
	sb.WriteString("Rewrite the message below to fix these issues:\n")
	for i, is := range issues {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s", i+1, is.Severity, is.Message))
		if is.Suggestion != "" {
			sb.WriteString(fmt.Sprintf(" (suggestion: %s)", is.Suggestion))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nConstraints:\n")
	sb.WriteString("- Change only what the issues require; keep the voice and structure.\n")
	sb.WriteString("- Keep every link and its position, and keep merge fields like {{first_name}} verbatim.\n")
	if rc.Channel == ChannelEmail {
		sb.WriteString("- Keep the \"Subject:\" first line and the body under 150 words.\n")
	} else {
		sb.WriteString("- Stay under 300 characters with no subject line.\n")
	}
	sb.WriteString(fmt.Sprintf("- The call to action must link to %s.\n", ctaTarget(rc.CTALink)))
	sb.WriteString("Output only the rewritten message.\n\nMessage:\n")
	sb.WriteString(content)

	return Prompt{
		Purpose:     PurposeRepair,
		System:      "You are an outreach editor making minimal, targeted fixes. No preamble, no markdown fences.",
		User:        sb.String(),
		Temperature: temperature(0.3),
	}
}

// BuildRevisionPrompt applies a user comment to an existing item.
func BuildRevisionPrompt(item GeneratedItem, rc RubricContext, comment string) Prompt {
	var sb strings.Builder
	sb.WriteString("You are an outreach editor. Apply the user's feedback with the smallest necessary change.\n")
	sb.WriteString("- Keep links, merge fields and the overall structure.\n")
	if rc.Channel == ChannelEmail {
		sb.WriteString("- Keep the \"Subject:\" first line.\n")
	}
	sb.WriteString("- If the feedback cannot be applied, return the message unchanged.\n")
	sb.WriteString("Output only the full revised message.")

	user := fmt.Sprintf("Current message:\n%s\n\nFeedback: %s", item.Content, comment)

	var msgs []Message
	for _, t := range item.Revisions {
		if t.Comment == "" {
			continue
		}
		msgs = append(msgs, Message{Role: "user", Content: t.Comment})
	}

	return Prompt{
		Purpose:     PurposeRevise,
		System:      sb.String(),
		User:        user,
		History:     msgs,
		Temperature: temperature(0.4),
	}
}
