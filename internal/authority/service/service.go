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
	"attestor/internal/authority/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/sentinel"
	"attestor/pkg/requestcontext"
)

var tracer = otel.Tracer("attestor/authority")

// Store persists the single governance record.
type Store interface {
	InitializeOnce(ctx context.Context, authority *models.Authority) error
	Get(ctx context.Context) (*models.Authority, error)
	UpdateAdmin(ctx context.Context, newAdmin id.Identity, now time.Time) error
	UpdateActiveLogic(ctx context.Context, ref id.LogicRef, now time.Time) error
}

// AuditPublisher records governance events.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service owns the administrator identity and the active-logic pointer. It
// is the only gate through which the registry and ledger check admin rights.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize performs the one-time setup of the administrator identity and
// the initial logic pointer. A second call fails, whatever its arguments.
func (s *Service) Initialize(ctx context.Context, admin id.Identity, initialLogic id.LogicRef) error {
	ctx, span := tracer.Start(ctx, "authority.Initialize")
	defer span.End()

	authority, err := models.NewAuthority(admin, initialLogic, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.store.InitializeOnce(ctx, authority); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "authority is already initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize authority")
	}
	s.logAudit(ctx, audit.Event{
		Action:   audit.ActionAdminInitialized,
		Actor:    admin,
		Subject:  admin,
		LogicRef: initialLogic,
	})
	return nil
}

// RequireAdmin is the guard every admin-gated operation runs first. It fails
// with NotProtocolAdmin for any caller other than the current administrator,
// including calls made before initialization.
func (s *Service) RequireAdmin(ctx context.Context, caller id.Identity) error {
	authority, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotProtocolAdmin, "caller is not the protocol admin")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authority")
	}
	if !authority.IsAdmin(caller) {
		return dErrors.New(dErrors.CodeNotProtocolAdmin, "caller is not the protocol admin")
	}
	return nil
}

// TransferAdmin hands the administrator role to another identity. Gated by
// the current admin.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin id.Identity) error {
	ctx, span := tracer.Start(ctx, "authority.TransferAdmin")
	defer span.End()

	if err := s.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	if newAdmin.IsZero() {
		return dErrors.New(dErrors.CodeInvalidAddress, "new admin cannot be the zero identity")
	}
	if err := s.store.UpdateAdmin(ctx, newAdmin, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer admin")
	}
	s.logAudit(ctx, audit.Event{
		Action:  audit.ActionAdminTransferred,
		Actor:   caller,
		Subject: newAdmin,
	})
	return nil
}

// AuthorizeUpgrade decides whether caller may activate a new logic version.
// It deliberately has no side effect: the decision, not the mechanics, lives
// here. ActivateLogic performs the pointer swap.
func (s *Service) AuthorizeUpgrade(ctx context.Context, caller id.Identity, newLogic id.LogicRef) error {
	if err := s.RequireAdmin(ctx, caller); err != nil {
		return err
	}
	if newLogic.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "logic reference cannot be empty")
	}
	return nil
}

// ActivateLogic swaps the active-logic pointer after AuthorizeUpgrade
// clears the caller. This is the only channel through which executable
// behavior changes post-deployment.
func (s *Service) ActivateLogic(ctx context.Context, caller id.Identity, newLogic id.LogicRef) error {
	ctx, span := tracer.Start(ctx, "authority.ActivateLogic",
		trace.WithAttributes(attribute.String("logic.ref", newLogic.String())))
	defer span.End()

	if err := s.AuthorizeUpgrade(ctx, caller, newLogic); err != nil {
		return err
	}
	if err := s.store.UpdateActiveLogic(ctx, newLogic, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate logic")
	}
	s.logAudit(ctx, audit.Event{
		Action:   audit.ActionUpgradeActivated,
		Actor:    caller,
		LogicRef: newLogic,
	})
	return nil
}

// ActiveLogic returns the currently active logic reference, or the nil ref
// before initialization. Pure read; never fails on absence.
func (s *Service) ActiveLogic(ctx context.Context) (id.LogicRef, error) {
	authority, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authority")
	}
	return authority.ActiveLogic, nil
}

// Admin returns the current administrator, or the zero identity before
// initialization. Pure read; never fails on absence.
func (s *Service) Admin(ctx context.Context) (id.Identity, error) {
	authority, err := s.store.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authority")
	}
	return authority.Admin, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action),
			"request_id", requestcontext.RequestID(ctx),
			"actor", event.Actor.String(),
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
