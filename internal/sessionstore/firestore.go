package sessionstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store against Google Cloud Firestore, an
// alternative to PostgresStore for deployments that already run on GCP and
// would rather not operate a relational database for session history.
type FirestoreStore struct {
	client *firestore.Client
}

// OpenFirestore constructs a FirestoreStore from an already-initialized
// client (built via firebase.google.com/go/v4's App.Firestore in cmd/gatewayd).
func OpenFirestore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) sessions() *firestore.CollectionRef { return s.client.Collection("sessions") }
func (s *FirestoreStore) messages(sessionID string) *firestore.CollectionRef {
	return s.sessions().Doc(sessionID).Collection("messages")
}

func (s *FirestoreStore) CreateSession(ctx context.Context, rec SessionRecord) (SessionRecord, error) {
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := s.sessions().Doc(rec.ID).Set(ctx, rec)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("sessionstore: create session: %w", err)
	}
	return rec, nil
}

func (s *FirestoreStore) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	snap, err := s.sessions().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("sessionstore: get session: %w", err)
	}
	var rec SessionRecord
	if err := snap.DataTo(&rec); err != nil {
		return SessionRecord{}, fmt.Errorf("sessionstore: decode session: %w", err)
	}
	return rec, nil
}

func (s *FirestoreStore) AppendMessage(ctx context.Context, m MessageRecord) (MessageRecord, error) {
	m.CreatedAt = time.Now().UTC()
	if _, err := s.messages(m.SessionID).Doc(m.ID).Set(ctx, m); err != nil {
		return MessageRecord{}, fmt.Errorf("sessionstore: append message: %w", err)
	}
	_, err := s.sessions().Doc(m.SessionID).Update(ctx, []firestore.Update{
		{Path: "UpdatedAt", Value: m.CreatedAt},
	})
	if err != nil {
		return MessageRecord{}, fmt.Errorf("sessionstore: touch session: %w", err)
	}
	return m, nil
}

func (s *FirestoreStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	iter := s.messages(sessionID).OrderBy("CreatedAt", firestore.Asc).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var out []MessageRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sessionstore: list messages: %w", err)
		}
		var m MessageRecord
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("sessionstore: decode message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *FirestoreStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.sessions().Doc(id).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("sessionstore: delete session: %w", err)
	}
	return nil
}
