package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"attestor/internal/issuer/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists the authorization set. Conditional updates carry
// the race resolution: two concurrent Authorize calls for one identity see
// exactly one affected row between them.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Authorize(ctx context.Context, issuer id.Identity, now time.Time) error {
	query := `
		INSERT INTO issuers (identity, authorized, added_at, updated_at)
		VALUES ($1, TRUE, $2, $2)
		ON CONFLICT (identity) DO UPDATE
			SET authorized = TRUE, updated_at = EXCLUDED.updated_at
			WHERE issuers.authorized = FALSE
	`
	res, err := s.db.ExecContext(ctx, query, issuer.String(), now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("authorize issuer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("authorize issuer: %w", err)
	}
	if affected == 0 {
		// Row existed and was already authorized.
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Deauthorize(ctx context.Context, issuer id.Identity, now time.Time) error {
	query := `
		UPDATE issuers SET authorized = FALSE, updated_at = $2
		WHERE identity = $1 AND authorized = TRUE
	`
	res, err := s.db.ExecContext(ctx, query, issuer.String(), now)
	if err != nil {
		return fmt.Errorf("deauthorize issuer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deauthorize issuer: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IsAuthorized(ctx context.Context, issuer id.Identity) (bool, error) {
	var authorized bool
	err := s.db.QueryRowContext(ctx,
		`SELECT authorized FROM issuers WHERE identity = $1`, issuer.String(),
	).Scan(&authorized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check issuer authorization: %w", err)
	}
	return authorized, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.IssuerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, authorized, added_at, updated_at
		FROM issuers ORDER BY identity ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list issuers: %w", err)
	}
	defer rows.Close()

	var out []models.IssuerRecord
	for rows.Next() {
		var (
			identity           string
			authorized         bool
			addedAt, updatedAt time.Time
		)
		if err := rows.Scan(&identity, &authorized, &addedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan issuer: %w", err)
		}
		out = append(out, models.IssuerRecord{
			Identity:   id.Identity(identity),
			Authorized: authorized,
			AddedAt:    addedAt,
			UpdatedAt:  updatedAt,
		})
	}
	return out, rows.Err()
}
