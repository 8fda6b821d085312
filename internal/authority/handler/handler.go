package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
	id "attestor/pkg/domain"
)

// Service defines the interface for governance operations.
type Service interface {
	TransferAdmin(ctx context.Context, caller, newAdmin id.Identity) error
	ActivateLogic(ctx context.Context, caller id.Identity, newLogic id.LogicRef) error
	ActiveLogic(ctx context.Context) (id.LogicRef, error)
	Admin(ctx context.Context) (id.Identity, error)
}

// Handler wires governance endpoints to the authority service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new authority Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin-gated governance routes. RequireAuth runs
// upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/logic", h.handleActivateLogic)
	r.Post("/admin/transfer", h.handleTransferAdmin)
}

// RegisterPublic mounts the open governance reads. Both are total: before
// initialization they report empty values, never errors.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/admin/logic", h.handleActiveLogic)
	r.Get("/admin", h.handleAdmin)
}

type activateLogicRequest struct {
	Logic string `json:"logic"`
}

type transferAdminRequest struct {
	NewAdmin string `json:"new_admin"`
}

func (h *Handler) handleActivateLogic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req activateLogicRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	logic, err := id.ParseLogicRef(req.Logic)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.ActivateLogic(ctx, caller, logic); err != nil {
		h.logger.WarnContext(ctx, "logic activation rejected",
			"request_id", middleware.GetRequestID(ctx),
			"caller", caller.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"active_logic": logic.String()})
}

func (h *Handler) handleActiveLogic(w http.ResponseWriter, r *http.Request) {
	logic, err := h.service.ActiveLogic(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"active_logic": logic.String()})
}

func (h *Handler) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	var req transferAdminRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	newAdmin, err := id.ParseIdentity(req.NewAdmin)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.TransferAdmin(ctx, caller, newAdmin); err != nil {
		h.logger.WarnContext(ctx, "admin transfer rejected",
			"request_id", middleware.GetRequestID(ctx),
			"caller", caller.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.service.Admin(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"admin": admin.String()})
}
