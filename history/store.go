// Package history persists assembled sequences in SQLite so they can be
// listed, revised and published after the generating request returns.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"outreach_sequence_generator/generator"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout keeps a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when no sequence has the requested id.
var ErrNotFound = errors.New("sequence not found")

// Summary is the list view of a stored sequence.
type Summary struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	PersonaID   string    `json:"persona_id"`
	Signal      string    `json:"signal"`
	Items       int       `json:"items"`
	NeedsReview int       `json:"needs_review"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summarize builds the list view of seq.
func Summarize(seq *generator.Sequence) Summary {
	sum := Summary{
		ID:        seq.ID,
		SessionID: seq.SessionID,
		PersonaID: seq.Request.PersonaID,
		Signal:    seq.Request.Signal,
		Items:     len(seq.Items),
		CreatedAt: seq.CreatedAt,
		UpdatedAt: seq.CreatedAt,
	}
	for _, it := range seq.Items {
		if it.NeedsReview() {
			sum.NeedsReview++
		}
	}
	return sum
}

// Store is a SQLite-backed sequence history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file and its directory if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("history: create data dir: %w", err)
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sequences (
			id           TEXT PRIMARY KEY,
			session_id   TEXT NOT NULL,
			persona_id   TEXT NOT NULL,
			signal       TEXT NOT NULL,
			item_count   INTEGER NOT NULL,
			needs_review INTEGER NOT NULL DEFAULT 0,
			payload      TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sequences_created ON sequences(created_at);
	`)
	return err
}

// Save inserts the sequence or replaces the stored copy with the same id.
func (s *Store) Save(ctx context.Context, seq *generator.Sequence) error {
	payload, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("history: encode sequence %s: %w", seq.ID, err)
	}
	sum := Summarize(seq)
	created := sum.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sequences (id, session_id, persona_id, signal, item_count, needs_review, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			item_count   = excluded.item_count,
			needs_review = excluded.needs_review,
			payload      = excluded.payload,
			updated_at   = excluded.updated_at`,
		seq.ID, seq.SessionID, seq.Request.PersonaID, seq.Request.Signal,
		sum.Items, sum.NeedsReview, string(payload),
		created.UTC().Format(timeLayout), s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("history: save %s: %w", seq.ID, err)
	}
	return nil
}

// Get loads one sequence by id.
func (s *Store) Get(ctx context.Context, id string) (*generator.Sequence, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM sequences WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get %s: %w", id, err)
	}
	var seq generator.Sequence
	if err := json.Unmarshal([]byte(payload), &seq); err != nil {
		return nil, fmt.Errorf("history: decode %s: %w", id, err)
	}
	return &seq, nil
}

// List returns the newest sequences first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, persona_id, signal, item_count, needs_review, created_at, updated_at
		FROM sequences
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created, updated string
		if err := rows.Scan(&sum.ID, &sum.SessionID, &sum.PersonaID, &sum.Signal, &sum.Items, &sum.NeedsReview, &created, &updated); err != nil {
			return nil, err
		}
		sum.CreatedAt, _ = time.Parse(timeLayout, created)
		sum.UpdatedAt, _ = time.Parse(timeLayout, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a sequence. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sequences WHERE id = ?`, id)
	return err
}
