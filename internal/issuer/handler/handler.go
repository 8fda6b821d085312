package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attestor/internal/issuer/models"
	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Service defines the interface for issuer registry operations.
type Service interface {
	AddIssuer(ctx context.Context, caller, issuer id.Identity) error
	RemoveIssuer(ctx context.Context, caller, issuer id.Identity) error
	IsAuthorizedIssuer(ctx context.Context, issuer id.Identity) (bool, error)
	ListIssuers(ctx context.Context, caller id.Identity) ([]models.IssuerRecord, error)
}

// Handler wires issuer registry endpoints to the issuer service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new issuer Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin-gated registry routes. RequireAuth runs upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/issuers", h.handleAddIssuer)
	r.Delete("/admin/issuers/{identity}", h.handleRemoveIssuer)
	r.Get("/admin/issuers", h.handleListIssuers)
}

// RegisterPublic mounts the open authorization lookup.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/issuers/{identity}", h.handleCheckIssuer)
}

type addIssuerRequest struct {
	Identity string `json:"identity"`
}

func (h *Handler) handleAddIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(ctx)

	var req addIssuerRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	issuer, err := id.ParseIdentity(req.Identity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.AddIssuer(ctx, caller, issuer); err != nil {
		h.logger.WarnContext(ctx, "add issuer rejected",
			"request_id", requestID,
			"caller", caller.String(),
			"issuer", issuer.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"identity": issuer.String()})
}

func (h *Handler) handleRemoveIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	issuer, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.RemoveIssuer(ctx, caller, issuer); err != nil {
		h.logger.WarnContext(ctx, "remove issuer rejected",
			"request_id", middleware.GetRequestID(ctx),
			"caller", caller.String(),
			"issuer", issuer.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListIssuers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	records, err := h.service.ListIssuers(ctx, caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if records == nil {
		records = []models.IssuerRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"issuers": records})
}

// handleCheckIssuer is the public authorization lookup. Malformed identities
// still report unauthorized rather than an error: the check is total.
func (h *Handler) handleCheckIssuer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := chi.URLParam(r, "identity")
	issuer, err := id.ParseIdentity(raw)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidAddress) {
			shared.WriteJSON(w, http.StatusOK, map[string]any{"identity": raw, "authorized": false})
			return
		}
		shared.WriteError(w, err)
		return
	}
	authorized, err := h.service.IsAuthorizedIssuer(ctx, issuer)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"identity":   issuer.String(),
		"authorized": authorized,
	})
}
