package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrItemNotFound is returned when a revision targets an unknown item id.
var ErrItemNotFound = errors.New("item not found")

// ReviseItem applies a user comment to one item of seq, re-analyzes and if
// needed repairs it, then records the turn. seq is modified in place; other
// items are untouched.
func (o *Orchestrator) ReviseItem(ctx context.Context, seq *Sequence, itemID, comment string) (GeneratedItem, error) {
	item, ok := seq.Item(itemID)
	if !ok {
		return GeneratedItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return *item, fmt.Errorf("revision comment is required: %w", ErrInvalidRequest)
	}

	rc := RubricFor(seq.Request, item.Channel)
	c, err := o.selector.SelectTiers(ctx, BuildRevisionPrompt(*item, rc, comment), o.tiers.Drafting, o.tiers.Conservative)
	if err != nil {
		return *item, fmt.Errorf("revise item %s: %w", itemID, err)
	}
	content, err := CleanDraft(c.Text)
	if err != nil {
		return *item, fmt.Errorf("revise item %s: %w", itemID, err)
	}

	if item.OriginalContent == "" {
		item.OriginalContent = item.Content
	}
	item.Content = content
	item.Model = c.Model
	item.DraftFailed = false
	if seq.Request.SkipQualityCheck {
		item.Quality = nil
		item.FixesApplied = nil
		item.Optimized = false
		item.Repair = RepairSkipped
	} else {
		o.assess(ctx, item, rc, o.logger.With("sequence", seq.ID, "item", itemID))
	}
	item.Revisions = append(item.Revisions, Turn{
		Comment:   comment,
		Content:   item.Content,
		Summary:   "revision",
		CreatedAt: o.now(),
	})
	o.logger.Info("item revised", "sequence", seq.ID, "item", itemID, "revisions", len(item.Revisions))
	return *item, nil
}
