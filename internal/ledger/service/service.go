package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attestor/internal/audit"
	ledgermetrics "attestor/internal/ledger/metrics"
	"attestor/internal/ledger/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/requestcontext"
)

var tracer = otel.Tracer("attestor/ledger")

// Store persists credential records and the ledger configuration.
type Store interface {
	InitializeOnce(ctx context.Context, config *models.LedgerConfig) error
	GetConfig(ctx context.Context) (*models.LedgerConfig, error)
	Create(ctx context.Context, owner, issuer id.Identity, hash id.CredentialHash, now time.Time) (id.CredentialID, error)
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	Revoke(ctx context.Context, credentialID id.CredentialID, reason string, now time.Time) error
	ListByOwner(ctx context.Context, owner id.Identity) ([]models.Credential, error)
}

// RegistryGate is the slice of the issuer registry the ledger consults on
// every mint.
type RegistryGate interface {
	IsAuthorizedIssuer(ctx context.Context, issuer id.Identity) (bool, error)
}

// AuditPublisher records ledger events.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the credential ledger: mint is gated by current registry
// membership, revocation by the identity bound as issuer at mint time, and
// ownership is write-once for the life of the record.
type Service struct {
	store          Store
	registry       RegistryGate
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *ledgermetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, registry RegistryGate, opts ...Option) *Service {
	s := &Service{store: store, registry: registry}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize performs the one-time ledger setup. A second call fails with
// AlreadyInitialized regardless of arguments.
func (s *Service) Initialize(ctx context.Context, name, symbol string, registryRef, admin id.Identity) error {
	ctx, span := tracer.Start(ctx, "ledger.Initialize")
	defer span.End()

	config, err := models.NewLedgerConfig(name, symbol, registryRef, admin, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.store.InitializeOnce(ctx, config); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "ledger is already initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize ledger")
	}
	return nil
}

// Config returns the ledger configuration set at initialization.
func (s *Service) Config(ctx context.Context) (*models.LedgerConfig, error) {
	config, err := s.store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ledger is not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger config")
	}
	return config, nil
}

// MintCredential creates a credential owned by recipient, permanently bound
// to caller as its issuer. All preconditions run before the store assigns an
// identifier, so a rejected mint never consumes one.
func (s *Service) MintCredential(ctx context.Context, caller, recipient id.Identity, hash id.CredentialHash) (id.CredentialID, error) {
	ctx, span := tracer.Start(ctx, "ledger.MintCredential")
	defer span.End()
	start := time.Now()

	authorized, err := s.registry.IsAuthorizedIssuer(ctx, caller)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check issuer authorization")
	}
	if !authorized {
		return 0, dErrors.New(dErrors.CodeNotAuthorizedIssuer, "caller is not an authorized issuer")
	}
	if hash.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvalidCredentialHash, "credential hash cannot be zero")
	}
	if recipient.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvalidAddress, "recipient cannot be the zero identity")
	}

	credentialID, err := s.store.Create(ctx, recipient, caller, hash, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint credential")
	}
	s.logAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialIssued,
		Actor:        caller,
		Subject:      recipient,
		CredentialID: credentialID,
		Hash:         hash,
	})
	if s.metrics != nil {
		s.metrics.ObserveMint(start)
	}
	return credentialID, nil
}

// RevokeCredential marks a credential permanently invalid. Only the identity
// stored as its issuer may revoke, and only once; there is no un-revoke
// anywhere.
func (s *Service) RevokeCredential(ctx context.Context, caller id.Identity, credentialID id.CredentialID, reason string) error {
	ctx, span := tracer.Start(ctx, "ledger.RevokeCredential",
		trace.WithAttributes(attribute.String("credential.id", credentialID.String())))
	defer span.End()
	start := time.Now()

	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeCredentialNotFound, "credential does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	if record.Revoked {
		return dErrors.New(dErrors.CodeCredentialRevoked, "credential is already revoked")
	}
	if record.Issuer != caller {
		return dErrors.New(dErrors.CodeOnlyIssuerCanRevoke, "only the issuing identity can revoke")
	}

	if err := s.store.Revoke(ctx, credentialID, reason, requestcontext.Now(ctx)); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			// A concurrent revoke won the race.
			return dErrors.New(dErrors.CodeCredentialRevoked, "credential is already revoked")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeCredentialNotFound, "credential does not exist")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke credential")
		}
	}
	s.logAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialRevoked,
		Actor:        caller,
		Subject:      record.Owner,
		CredentialID: credentialID,
		Reason:       reason,
	})
	if s.metrics != nil {
		s.metrics.ObserveRevoke(start)
	}
	return nil
}

// Transfer refuses any ownership change. Ownership is write-once: the only
// assignment that ever succeeds is the internal creation-time one inside
// MintCredential. Unknown ids still report nonexistence.
func (s *Service) Transfer(ctx context.Context, caller id.Identity, credentialID id.CredentialID, newOwner id.Identity) error {
	_, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeCredentialNotFound, "credential does not exist")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return dErrors.New(dErrors.CodeNotTransferable, "credentials are not transferable")
}

// IsValid reports whether a credential exists and is not revoked. Total:
// unknown ids are simply invalid, never an error.
func (s *Service) IsValid(ctx context.Context, credentialID id.CredentialID) (bool, error) {
	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return record.IsValid(), nil
}

// CredentialHash returns the content fingerprint, or the zero hash for
// unknown ids. Total.
func (s *Service) CredentialHash(ctx context.Context, credentialID id.CredentialID) (id.CredentialHash, error) {
	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.ZeroHash, nil
		}
		return id.ZeroHash, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return record.Hash, nil
}

// Issuer returns the issuing identity, or the zero identity for unknown
// ids. Total.
func (s *Service) Issuer(ctx context.Context, credentialID id.CredentialID) (id.Identity, error) {
	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.ZeroIdentity, nil
		}
		return id.ZeroIdentity, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return record.Issuer, nil
}

// Owner returns the owning identity, or the zero identity for unknown ids.
// Total.
func (s *Service) Owner(ctx context.Context, credentialID id.CredentialID) (id.Identity, error) {
	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.ZeroIdentity, nil
		}
		return id.ZeroIdentity, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return record.Owner, nil
}

// GetCredential returns the full record for the API view. Unlike the total
// getters this one reports nonexistence, because the view has no neutral
// shape.
func (s *Service) GetCredential(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	record, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeCredentialNotFound, "credential does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return record, nil
}

// ListByOwner returns all credentials owned by an identity, revoked ones
// included.
func (s *Service) ListByOwner(ctx context.Context, owner id.Identity) ([]models.Credential, error) {
	records, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return records, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action),
			"request_id", requestcontext.RequestID(ctx),
			"actor", event.Actor.String(),
			"credential_id", event.CredentialID.String(),
			"event", string(event.Action),
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"event", string(event.Action),
			"error", err.Error(),
		)
	}
}
