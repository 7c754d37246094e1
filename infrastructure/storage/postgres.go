// Package storage provides the persistent-store client and the local run
// history. The postgres store is the source of truth participants converge
// through; every successful write is re-broadcast as a change event.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codecollab/contract"
	"codecollab/domain"
	"codecollab/domain/event"
	cerr "codecollab/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultDocumentText seeds a document created on first fetch.
const DefaultDocumentText = "// Start coding..."

// PostgresStore implements contract.StoreClient over a pgx pool. Writes go
// to postgres first; only once a write succeeded is the corresponding
// change event published, so subscribers never observe a value the store
// does not hold.
type PostgresStore struct {
	log       *slog.Logger
	pool      *pgxpool.Pool
	publisher contract.Publisher
}

func NewPostgresStore(log *slog.Logger, pool *pgxpool.Pool, publisher contract.Publisher) *PostgresStore {
	return &PostgresStore{log: log, pool: pool, publisher: publisher}
}

// Migrate creates the schema. Idempotent, meant for startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			room_id TEXT PRIMARY KEY,
			text TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			room_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_room_created_idx
			ON messages (room_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS room_members (
			room_id TEXT NOT NULL,
			participant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			online BOOLEAN NOT NULL DEFAULT TRUE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (room_id, participant_id)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// FetchDocument returns the room document, creating an empty one on first
// reference. Rooms exist implicitly; there is no explicit create.
func (s *PostgresStore) FetchDocument(ctx context.Context, room domain.RoomID) (domain.Document, error) {
	var doc domain.Document
	doc.Room = room
	doc.Origin = domain.OriginRemoteOverride

	err := s.pool.QueryRow(ctx,
		`SELECT text, updated_at FROM documents WHERE room_id = $1`, string(room),
	).Scan(&doc.Text, &doc.UpdatedAt)
	if err == pgx.ErrNoRows {
		doc.Text = DefaultDocumentText
		doc.UpdatedAt = time.Now().UTC()
		_, err = s.pool.Exec(ctx,
			`INSERT INTO documents (room_id, text, updated_at) VALUES ($1, $2, $3)
			 ON CONFLICT (room_id) DO NOTHING`,
			string(room), doc.Text, doc.UpdatedAt)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: fetch document: %v", cerr.ErrConnectivity, err)
	}
	return doc, nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, room domain.RoomID, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (room_id, text, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (room_id) DO UPDATE SET text = EXCLUDED.text, updated_at = now()`,
		string(room), text)
	if err != nil {
		return fmt.Errorf("%w: save document: %v", cerr.ErrConnectivity, err)
	}
	s.broadcast(ctx, event.DocumentChanged{Room: room, Text: text})
	return nil
}

func (s *PostgresStore) FetchMessages(ctx context.Context, room domain.RoomID) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, sender, content, created_at FROM messages
		 WHERE room_id = $1 ORDER BY created_at ASC`, string(room))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch messages: %v", cerr.ErrConnectivity, err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		msg := domain.Message{Room: room}
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", cerr.ErrConnectivity, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg domain.Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, room_id, sender, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, string(msg.Room), msg.Sender, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: append message: %v", cerr.ErrConnectivity, err)
	}
	s.broadcast(ctx, event.ChatInserted{Room: msg.Room, Message: msg})
	return nil
}

func (s *PostgresStore) FetchParticipants(ctx context.Context, room domain.RoomID) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT participant_id, name, avatar, online FROM room_members
		 WHERE room_id = $1 ORDER BY joined_at ASC`, string(room))
	if err != nil {
		return nil, fmt.Errorf("%w: fetch participants: %v", cerr.ErrConnectivity, err)
	}
	defer rows.Close()

	var parts []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Avatar, &p.Online); err != nil {
			return nil, fmt.Errorf("%w: scan participant: %v", cerr.ErrConnectivity, err)
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (s *PostgresStore) Join(ctx context.Context, room domain.RoomID, p domain.Participant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO room_members (room_id, participant_id, name, avatar, online)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (room_id, participant_id)
		 DO UPDATE SET name = EXCLUDED.name, avatar = EXCLUDED.avatar, online = TRUE`,
		string(room), p.ID, p.Name, p.Avatar)
	if err != nil {
		return fmt.Errorf("%w: join: %v", cerr.ErrConnectivity, err)
	}
	s.broadcast(ctx, event.PresenceChanged{Room: room})
	return nil
}

// Leave removes the membership row. Best-effort: a participant that
// vanishes without calling Leave stays listed until the store's own
// heuristics clean it up.
func (s *PostgresStore) Leave(ctx context.Context, room domain.RoomID, participantID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND participant_id = $2`,
		string(room), participantID)
	if err != nil {
		return fmt.Errorf("%w: leave: %v", cerr.ErrConnectivity, err)
	}
	s.broadcast(ctx, event.PresenceChanged{Room: room})
	return nil
}

// broadcast is fire-and-forget: a lost notification only delays convergence
// until the next snapshot fetch, so it must never fail the write itself.
func (s *PostgresStore) broadcast(ctx context.Context, e event.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("Change event broadcast failed", "room", e.RoomID(), "stream", e.Stream(), "error", err)
	}
}
