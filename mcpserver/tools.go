package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"outreach_sequence_generator/catalog"
	"outreach_sequence_generator/generator"
)

// SequenceStore persists sequences produced over MCP so they can be revised later.
type SequenceStore interface {
	Save(ctx context.Context, seq *generator.Sequence) error
	Get(ctx context.Context, id string) (*generator.Sequence, error)
}

// GenerateTool handles the generate_outreach_sequence MCP tool.
type GenerateTool struct {
	orch      *generator.Orchestrator
	catalog   *catalog.Catalog
	sequences SequenceStore
}

// NewGenerateTool creates a GenerateTool. sequences may be nil.
func NewGenerateTool(orch *generator.Orchestrator, cat *catalog.Catalog, sequences SequenceStore) *GenerateTool {
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	return &GenerateTool{orch: orch, catalog: cat, sequences: sequences}
}

// Definition returns the MCP tool definition for registration.
func (t *GenerateTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_outreach_sequence",
		mcp.WithDescription(
			"Generate a personalized multi-step outreach sequence (emails plus LinkedIn messages) "+
				"for a persona from the catalog, anchored on a buying signal. "+
				"Every item is quality-checked and repaired when it falls short.",
		),
		mcp.WithString("persona_id",
			mcp.Required(),
			mcp.Description("Persona id from the catalog"),
		),
		mcp.WithString("signal",
			mcp.Required(),
			mcp.Description("The buying signal to anchor the sequence on, e.g. 'raised a Series B'"),
		),
		mcp.WithNumber("email_count",
			mcp.Description("Number of emails (default: 3)"),
		),
		mcp.WithNumber("secondary_count",
			mcp.Description("Number of LinkedIn messages (default: 2)"),
		),
		mcp.WithString("pain_points",
			mcp.Description("Comma-separated pain points; defaults to the persona's"),
		),
		mcp.WithString("fact_refs",
			mcp.Description("Comma-separated supporting fact refs from the catalog; defaults to all"),
		),
		mcp.WithString("cta_link",
			mcp.Description("Meeting link every email should point at"),
		),
		mcp.WithString("sender_name",
			mcp.Description("Name used in sign-offs"),
		),
		mcp.WithBoolean("skip_quality_check",
			mcp.Description("Skip scoring and repair (default: false)"),
		),
	)
}

// Handle processes the generate_outreach_sequence tool call.
func (t *GenerateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec := catalog.RequestSpec{
		PersonaID:        strings.TrimSpace(req.GetString("persona_id", "")),
		Signal:           strings.TrimSpace(req.GetString("signal", "")),
		PainPoints:       splitList(req.GetString("pain_points", "")),
		FactRefs:         splitList(req.GetString("fact_refs", "")),
		EmailCount:       intArg(req, "email_count", 3),
		SecondaryCount:   intArg(req, "secondary_count", 2),
		CTALink:          req.GetString("cta_link", ""),
		SenderName:       req.GetString("sender_name", ""),
		SkipQualityCheck: boolArg(req, "skip_quality_check", false),
	}
	if spec.PersonaID == "" {
		return mcp.NewToolResultError("'persona_id' is required"), nil
	}
	if spec.Signal == "" {
		return mcp.NewToolResultError("'signal' is required"), nil
	}

	genReq, err := t.catalog.Resolve(spec)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	seq, err := t.orch.Generate(ctx, "", genReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}
	if t.sequences != nil {
		if err := t.sequences.Save(ctx, seq); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save sequence: %v", err)), nil
		}
	}
	return mcp.NewToolResultText(formatSequence(seq)), nil
}

// ReviseTool handles the revise_outreach_item MCP tool.
type ReviseTool struct {
	orch      *generator.Orchestrator
	sequences SequenceStore
}

// NewReviseTool creates a ReviseTool.
func NewReviseTool(orch *generator.Orchestrator, sequences SequenceStore) *ReviseTool {
	return &ReviseTool{orch: orch, sequences: sequences}
}

// Definition returns the MCP tool definition for registration.
func (t *ReviseTool) Definition() mcp.Tool {
	return mcp.NewTool("revise_outreach_item",
		mcp.WithDescription("Rewrite one item of a stored sequence according to a comment. Other items are untouched."),
		mcp.WithString("sequence_id",
			mcp.Required(),
			mcp.Description("Sequence id returned by generate_outreach_sequence"),
		),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("Item id to revise"),
		),
		mcp.WithString("comment",
			mcp.Required(),
			mcp.Description("What to change, e.g. 'make the opener shorter'"),
		),
	)
}

// Handle processes the revise_outreach_item tool call.
func (t *ReviseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seqID := strings.TrimSpace(req.GetString("sequence_id", ""))
	itemID := strings.TrimSpace(req.GetString("item_id", ""))
	comment := req.GetString("comment", "")
	if seqID == "" || itemID == "" {
		return mcp.NewToolResultError("'sequence_id' and 'item_id' are required"), nil
	}

	seq, err := t.sequences.Get(ctx, seqID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sequence %s: %v", seqID, err)), nil
	}
	item, err := t.orch.ReviseItem(ctx, seq, itemID, comment)
	if err != nil {
		if errors.Is(err, generator.ErrItemNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no item %s in sequence %s", itemID, seqID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.sequences.Save(ctx, seq); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save sequence: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Revised item %s (revision #%d)\n\n", item.ID, len(item.Revisions))
	writeItem(&b, item)
	return mcp.NewToolResultText(b.String()), nil
}

func formatSequence(seq *generator.Sequence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Outreach sequence %s\n\n", seq.ID)
	fmt.Fprintf(&b, "Persona: %s | Signal: %s | Plan: %s\n", seq.Request.Persona.Title, seq.Request.Signal, seq.PlanSource)
	for _, it := range seq.Items {
		b.WriteString("\n---\n\n")
		writeItem(&b, it)
	}
	return b.String()
}

func writeItem(b *strings.Builder, it generator.GeneratedItem) {
	fmt.Fprintf(b, "## Day %d · %s · %s\n", it.DayOffset, it.Channel, it.Purpose)
	fmt.Fprintf(b, "Item: %s\n", it.ID)
	if it.Quality != nil {
		fmt.Fprintf(b, "Score: %d (passed: %t)", it.Quality.Score, it.Quality.Passed)
		if it.Repair != "" {
			fmt.Fprintf(b, " | repair: %s", it.Repair)
		}
		b.WriteString("\n")
	}
	if it.NeedsReview() {
		b.WriteString("⚠ needs manual review\n")
	}
	b.WriteString("\n")
	b.WriteString(it.Content)
	b.WriteString("\n")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// intArg extracts a numeric argument from a tool request.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
