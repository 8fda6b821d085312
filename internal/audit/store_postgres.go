package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	id "attestor/pkg/domain"
	txcontext "attestor/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table inside the caller's transaction and
// relayed to Kafka by the Relay worker, so an operation and its emitted
// events commit or revert together.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL audit store that writes to the outbox.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure relayed to Kafka.
type payload struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	Action       string `json:"action"`
	Actor        string `json:"actor,omitempty"`
	Subject      string `json:"subject,omitempty"`
	CredentialID string `json:"credential_id,omitempty"`
	Hash         string `json:"hash,omitempty"`
	Reason       string `json:"reason,omitempty"`
	LogicRef     string `json:"logic_ref,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ClientIP     string `json:"client_ip,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}

func toPayload(event Event) payload {
	p := payload{
		ID:        event.ID,
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		UserAgent: event.UserAgent,
	}
	if !event.Actor.IsZero() {
		p.Actor = event.Actor.String()
	}
	if !event.Subject.IsZero() {
		p.Subject = event.Subject.String()
	}
	if !event.CredentialID.IsNil() {
		p.CredentialID = event.CredentialID.String()
	}
	if !event.Hash.IsZero() {
		p.Hash = event.Hash.String()
	}
	if !event.LogicRef.IsNil() {
		p.LogicRef = event.LogicRef.String()
	}
	return p
}

// Append writes an audit event to the outbox table for Kafka relaying.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	body, err := json.Marshal(toPayload(event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	query := `
		INSERT INTO audit_outbox (event_id, action, actor, created_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID, string(event.Action), event.Actor.String(), event.Timestamp, body)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByActor returns events recorded for an actor, oldest first.
func (s *PostgresStore) ListByActor(ctx context.Context, actor string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM audit_outbox
		WHERE actor = $1
		ORDER BY created_at ASC
	`, actor)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event, err := fromPayloadBytes(body)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// NextBatch claims up to limit unpublished outbox rows for the relay worker.
func (s *PostgresStore) NextBatch(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox batch: %w", err)
	}
	defer rows.Close()

	var batch []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.EventID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	return batch, rows.Err()
}

// MarkPublished stamps outbox rows as relayed.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2)`
	_, err := s.db.ExecContext(ctx, query, time.Now(), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// OutboxRow is one unpublished audit event awaiting relay.
type OutboxRow struct {
	ID      int64
	EventID string
	Payload []byte
}

func fromPayloadBytes(body []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
	var credID id.CredentialID
	if p.CredentialID != "" {
		if n, err := strconv.ParseUint(p.CredentialID, 10, 64); err == nil {
			credID = id.CredentialID(n)
		}
	}
	return Event{
		ID:           p.ID,
		Timestamp:    ts,
		Action:       Action(p.Action),
		Actor:        id.Identity(p.Actor),
		Subject:      id.Identity(p.Subject),
		CredentialID: credID,
		Hash:         id.CredentialHash(p.Hash),
		Reason:       p.Reason,
		LogicRef:     id.LogicRef(p.LogicRef),
		RequestID:    p.RequestID,
		ClientIP:     p.ClientIP,
		UserAgent:    p.UserAgent,
	}, nil
}
