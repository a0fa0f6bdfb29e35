// Package sessionstore defines the persistence boundary for sessions and
// their messages — deliberately separate from the Run Registry's in-memory
// event buffer (§1: persisting the run buffer to disk is a non-goal; a
// session's durable record of what was said is not the same thing as the
// registry's replay buffer of how a run's events were delivered).
//
// Grounded on the teacher's internal/storage (Postgres via lib/pq, schema
// migrations via pressly/goose) for the relational backend, and on the
// overall shape of cloud.google.com/go/firestore usage elsewhere in the
// pack for the document-store alternative.
package sessionstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session or message lookup has no match.
var ErrNotFound = errors.New("sessionstore: not found")

// SessionRecord is the durable record of one conversation session.
type SessionRecord struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]string
}

// MessageRecord is one durable message within a session.
type MessageRecord struct {
	ID        string
	SessionID string
	Role      string // "user" | "assistant" | "tool"
	Content   string
	CreatedAt time.Time
}

// Store is the persistence boundary the gateway's session routes depend on.
// Concrete backends (Postgres, Firestore) satisfy it; neither is imported
// by internal/gateway directly.
type Store interface {
	CreateSession(ctx context.Context, s SessionRecord) (SessionRecord, error)
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	AppendMessage(ctx context.Context, m MessageRecord) (MessageRecord, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error)
	DeleteSession(ctx context.Context, id string) error
}
