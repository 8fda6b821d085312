package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attestor/internal/authority/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// PostgresStore persists the governance record as a singleton row. The fixed
// primary key makes concurrent initialization attempts resolve to exactly
// one winner at the database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InitializeOnce(ctx context.Context, authority *models.Authority) error {
	query := `
		INSERT INTO authority (singleton, admin, active_logic, initialized_at, updated_at)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		authority.Admin.String(), authority.ActiveLogic.String(),
		authority.InitializedAt, authority.UpdatedAt)
	if err != nil {
		return fmt.Errorf("initialize authority: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("initialize authority: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context) (*models.Authority, error) {
	var (
		admin, activeLogic       string
		initializedAt, updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT admin, active_logic, initialized_at, updated_at
		FROM authority WHERE singleton
	`).Scan(&admin, &activeLogic, &initializedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load authority: %w", err)
	}
	return &models.Authority{
		Admin:         id.Identity(admin),
		ActiveLogic:   id.LogicRef(activeLogic),
		InitializedAt: initializedAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func (s *PostgresStore) UpdateAdmin(ctx context.Context, newAdmin id.Identity, now time.Time) error {
	return s.updateSingleton(ctx, `UPDATE authority SET admin = $1, updated_at = $2 WHERE singleton`, newAdmin.String(), now)
}

func (s *PostgresStore) UpdateActiveLogic(ctx context.Context, ref id.LogicRef, now time.Time) error {
	return s.updateSingleton(ctx, `UPDATE authority SET active_logic = $1, updated_at = $2 WHERE singleton`, ref.String(), now)
}

func (s *PostgresStore) updateSingleton(ctx context.Context, query string, value string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, query, value, now)
	if err != nil {
		return fmt.Errorf("update authority: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update authority: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
