package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attestor/internal/ledger/models"
	id "attestor/pkg/domain"
	"attestor/pkg/platform/sentinel"
)

// PostgresStore persists credential records. Identifier assignment rides the
// credentials BIGSERIAL: ids are unique and increasing, and validation
// happens before the insert so rejected mints never consume one in the happy
// path. The schema has no owner-update statement anywhere; ownership is
// write-once by construction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InitializeOnce(ctx context.Context, config *models.LedgerConfig) error {
	query := `
		INSERT INTO ledger_config (singleton, name, symbol, registry, admin, initialized_at)
		VALUES (TRUE, $1, $2, $3, $4, $5)
		ON CONFLICT (singleton) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		config.Name, config.Symbol, config.Registry.String(), config.Admin.String(), config.InitializedAt)
	if err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("initialize ledger: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) GetConfig(ctx context.Context) (*models.LedgerConfig, error) {
	var (
		name, symbol, registry, admin string
		initializedAt                 time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, symbol, registry, admin, initialized_at
		FROM ledger_config WHERE singleton
	`).Scan(&name, &symbol, &registry, &admin, &initializedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load ledger config: %w", err)
	}
	return &models.LedgerConfig{
		Name:          name,
		Symbol:        symbol,
		Registry:      id.Identity(registry),
		Admin:         id.Identity(admin),
		InitializedAt: initializedAt,
	}, nil
}

func (s *PostgresStore) Create(ctx context.Context, owner, issuer id.Identity, hash id.CredentialHash, now time.Time) (id.CredentialID, error) {
	var credentialID uint64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO credentials (owner, issuer, hash, revoked, issued_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id
	`, owner.String(), issuer.String(), hash.String(), now).Scan(&credentialID)
	if err != nil {
		return 0, fmt.Errorf("create credential: %w", err)
	}
	return id.CredentialID(credentialID), nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, issuer, hash, revoked, COALESCE(revoke_reason, ''), issued_at, revoked_at
		FROM credentials WHERE id = $1
	`, uint64(credentialID))
	record, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential by id: %w", err)
	}
	return record, nil
}

// Revoke performs the one-way flag flip as a conditional update, so a racing
// second revoke observes zero affected rows instead of overwriting.
func (s *PostgresStore) Revoke(ctx context.Context, credentialID id.CredentialID, reason string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET revoked = TRUE, revoke_reason = $2, revoked_at = $3
		WHERE id = $1 AND revoked = FALSE
	`, uint64(credentialID), reason, now)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	if affected == 0 {
		// Distinguish "never existed" from "already revoked".
		var revoked bool
		err := s.db.QueryRowContext(ctx,
			`SELECT revoked FROM credentials WHERE id = $1`, uint64(credentialID),
		).Scan(&revoked)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("revoke credential: %w", err)
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.Identity) ([]models.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, issuer, hash, revoked, COALESCE(revoke_reason, ''), issued_at, revoked_at
		FROM credentials WHERE owner = $1 ORDER BY id ASC
	`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list credentials by owner: %w", err)
	}
	defer rows.Close()

	var out []models.Credential
	for rows.Next() {
		record, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		credentialID           uint64
		owner, issuer, hash    string
		revoked                bool
		revokeReason           string
		issuedAt               time.Time
		revokedAt              sql.NullTime
	)
	if err := row.Scan(&credentialID, &owner, &issuer, &hash, &revoked, &revokeReason, &issuedAt, &revokedAt); err != nil {
		return nil, err
	}
	record := &models.Credential{
		ID:           id.CredentialID(credentialID),
		Owner:        id.Identity(owner),
		Issuer:       id.Identity(issuer),
		Hash:         id.CredentialHash(hash),
		Revoked:      revoked,
		RevokeReason: revokeReason,
		IssuedAt:     issuedAt,
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		record.RevokedAt = &t
	}
	return record, nil
}
