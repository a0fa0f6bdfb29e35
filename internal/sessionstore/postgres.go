package sessionstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements Store against a Postgres database, using
// pressly/goose to apply internal/sessionstore/migrations on startup —
// the same pairing (lib/pq driver, goose migrator) the teacher used for
// its own request-tracking and telegram storage.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to dsn, runs pending migrations, and returns a
// ready Store.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sessionstore: ping: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("sessionstore: goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("sessionstore: migrate: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateSession(ctx context.Context, rec SessionRecord) (SessionRecord, error) {
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.UserID, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("sessionstore: create session: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM sessions WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.UserID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("sessionstore: get session: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, m MessageRecord) (MessageRecord, error) {
	m.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.SessionID, m.Role, m.Content, m.CreatedAt)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("sessionstore: append message: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = $1 WHERE id = $2`, m.CreatedAt, m.SessionID)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("sessionstore: touch session: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM messages
		 WHERE session_id = $1 ORDER BY created_at ASC LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: list messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sessionstore: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sessionstore: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sessionstore: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
