// Package progress keeps coarse per-session status records for UI polling.
// Nothing in the generation pipeline reads them back.
package progress

import (
	"context"
	"errors"
	"time"
)

// Phases reported by the orchestrator.
const (
	PhasePlanning  = "planning"
	PhaseDrafting  = "drafting"
	PhaseAssembled = "assembled"
	PhaseFailed    = "failed"
)

// DefaultTTL is how long a status record lives after its last update.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned by Get for unknown or expired sessions.
var ErrNotFound = errors.New("progress: session not found")

// Status is the polling record of one session.
type Status struct {
	SessionID string    `json:"session_id"`
	Phase     string    `json:"phase"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Done      bool      `json:"done"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a key-value store of statuses keyed by session id.
type Store interface {
	Get(ctx context.Context, sessionID string) (Status, error)
	Set(ctx context.Context, st Status) error
	Delete(ctx context.Context, sessionID string) error
}
