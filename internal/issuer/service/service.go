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
	issuermetrics "attestor/internal/issuer/metrics"
	"attestor/internal/issuer/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/requestcontext"
)

var tracer = otel.Tracer("attestor/issuer")

// Store persists the authorization set.
type Store interface {
	Authorize(ctx context.Context, issuer id.Identity, now time.Time) error
	Deauthorize(ctx context.Context, issuer id.Identity, now time.Time) error
	IsAuthorized(ctx context.Context, issuer id.Identity) (bool, error)
	List(ctx context.Context) ([]models.IssuerRecord, error)
}

// AdminGate is the slice of the authority service the registry needs.
type AdminGate interface {
	RequireAdmin(ctx context.Context, caller id.Identity) error
}

// Cache is an optional read cache for authorization checks.
type Cache interface {
	Get(ctx context.Context, issuer id.Identity) (authorized bool, found bool, err error)
	Set(ctx context.Context, issuer id.Identity, authorized bool) error
	Invalidate(ctx context.Context, issuer id.Identity) error
}

// AuditPublisher records registry events.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the issuer registry: it decides who may mint credentials.
// Every mutation is admin-gated; the lookup is open to anyone.
type Service struct {
	store          Store
	admin          AdminGate
	cache          Cache
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *issuermetrics.Metrics
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

func WithMetrics(m *issuermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New constructs a Service.
func New(store Store, admin AdminGate, opts ...Option) *Service {
	s := &Service{store: store, admin: admin}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddIssuer grants issuer the right to mint. Re-adding a previously removed
// issuer succeeds: the registry keeps a flag, not a history.
func (s *Service) AddIssuer(ctx context.Context, caller, issuer id.Identity) error {
	ctx, span := tracer.Start(ctx, "issuer.AddIssuer",
		trace.WithAttributes(attribute.String("issuer.identity", issuer.String())))
	defer span.End()

	if err := s.admin.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	if issuer.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAddress, "issuer cannot be the zero identity")
	}
	if err := s.store.Authorize(ctx, issuer, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeIssuerAlreadyExists, "issuer is already authorized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to authorize issuer")
	}
	s.invalidateCache(ctx, issuer)
	s.logAudit(ctx, audit.Event{
		Action:  audit.ActionIssuerAdded,
		Actor:   caller,
		Subject: issuer,
	})
	if s.metrics != nil {
		s.metrics.IssuersAdded.Inc()
	}
	return nil
}

// RemoveIssuer withdraws minting rights. Retroactively inert: credentials
// already minted by issuer remain valid.
func (s *Service) RemoveIssuer(ctx context.Context, caller, issuer id.Identity) error {
	ctx, span := tracer.Start(ctx, "issuer.RemoveIssuer",
		trace.WithAttributes(attribute.String("issuer.identity", issuer.String())))
	defer span.End()

	if err := s.admin.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	if err := s.store.Deauthorize(ctx, issuer, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotAuthorizedIssuer, "issuer is not authorized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deauthorize issuer")
	}
	s.invalidateCache(ctx, issuer)
	s.logAudit(ctx, audit.Event{
		Action:  audit.ActionIssuerRemoved,
		Actor:   caller,
		Subject: issuer,
	})
	if s.metrics != nil {
		s.metrics.IssuersRemoved.Inc()
	}
	return nil
}

// IsAuthorizedIssuer reports whether issuer may currently mint. It is a pure
// lookup: false for the zero identity and for never-seen identities. A cache
// miss or cache failure falls through to the store.
func (s *Service) IsAuthorizedIssuer(ctx context.Context, issuer id.Identity) (bool, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAuthorizationCheck(start)
		}
	}()

	if issuer.IsZero() {
		return false, nil
	}
	if s.cache != nil {
		authorized, found, err := s.cache.Get(ctx, issuer)
		if err == nil && found {
			return authorized, nil
		}
	}
	authorized, err := s.store.IsAuthorized(ctx, issuer)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check issuer authorization")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, issuer, authorized)
	}
	return authorized, nil
}

// ListIssuers returns the full registry for the admin view.
func (s *Service) ListIssuers(ctx context.Context, caller id.Identity) ([]models.IssuerRecord, error) {
	if err := s.admin.RequireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list issuers")
	}
	return records, nil
}

func (s *Service) invalidateCache(ctx context.Context, issuer id.Identity) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, issuer); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "issuer cache invalidation failed",
			"issuer", issuer.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action),
			"request_id", requestcontext.RequestID(ctx),
			"actor", event.Actor.String(),
			"issuer", event.Subject.String(),
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
