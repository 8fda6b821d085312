package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attestor/internal/ledger/models"
	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Service defines the interface for credential ledger operations.
type Service interface {
	MintCredential(ctx context.Context, caller, recipient id.Identity, hash id.CredentialHash) (id.CredentialID, error)
	RevokeCredential(ctx context.Context, caller id.Identity, credentialID id.CredentialID, reason string) error
	Transfer(ctx context.Context, caller id.Identity, credentialID id.CredentialID, newOwner id.Identity) error
	GetCredential(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	ListByOwner(ctx context.Context, owner id.Identity) ([]models.Credential, error)
	Config(ctx context.Context) (*models.LedgerConfig, error)
}

// Handler wires credential endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new ledger Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the token-gated credential mutations. RequireAuth runs
// upstream.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.handleMint)
	r.Post("/credentials/{id}/revoke", h.handleRevoke)
	r.Post("/credentials/{id}/transfer", h.handleTransfer)
}

// RegisterPublic mounts the open record views.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/ledger", h.handleConfig)
	r.Get("/credentials/{id}", h.handleGet)
	r.Get("/owners/{identity}/credentials", h.handleListByOwner)
}

type mintRequest struct {
	Recipient string `json:"recipient"`
	Hash      string `json:"hash"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type transferRequest struct {
	NewOwner string `json:"new_owner"`
}

type credentialResponse struct {
	ID           string  `json:"id"`
	Owner        string  `json:"owner"`
	Issuer       string  `json:"issuer"`
	Hash         string  `json:"hash"`
	Valid        bool    `json:"valid"`
	RevokeReason string  `json:"revoke_reason,omitempty"`
	IssuedAt     string  `json:"issued_at"`
	RevokedAt    *string `json:"revoked_at,omitempty"`
}

func toCredentialResponse(c *models.Credential) credentialResponse {
	resp := credentialResponse{
		ID:           c.ID.String(),
		Owner:        c.Owner.String(),
		Issuer:       c.Issuer.String(),
		Hash:         c.Hash.String(),
		Valid:        c.IsValid(),
		RevokeReason: c.RevokeReason,
		IssuedAt:     c.IssuedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if c.RevokedAt != nil {
		t := c.RevokedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.RevokedAt = &t
	}
	return resp
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	caller := middleware.GetCaller(ctx)

	var req mintRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	// Malformed recipient or hash degrade to zero values here; the service
	// applies its precondition order, authorization first.
	recipient, err := id.ParseIdentity(req.Recipient)
	if err != nil && !dErrors.Is(err, dErrors.CodeInvalidAddress) {
		shared.WriteError(w, err)
		return
	}
	hash, err := id.ParseCredentialHash(req.Hash)
	if err != nil && !dErrors.Is(err, dErrors.CodeInvalidCredentialHash) {
		shared.WriteError(w, err)
		return
	}

	credentialID, err := h.service.MintCredential(ctx, caller, recipient, hash)
	if err != nil {
		h.logger.WarnContext(ctx, "mint rejected",
			"request_id", requestID,
			"caller", caller.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "credential minted",
		"request_id", requestID,
		"credential_id", credentialID.String(),
		"issuer", caller.String(),
	)
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": credentialID.String()})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req revokeRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.RevokeCredential(ctx, caller, credentialID, req.Reason); err != nil {
		h.logger.WarnContext(ctx, "revoke rejected",
			"request_id", middleware.GetRequestID(ctx),
			"caller", caller.String(),
			"credential_id", credentialID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetCaller(ctx)

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req transferRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	newOwner, err := id.ParseIdentity(req.NewOwner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	// Always fails; the error distinguishes unknown ids from existing ones.
	err = h.service.Transfer(ctx, caller, credentialID, newOwner)
	shared.WriteError(w, err)
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.service.Config(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"name":     config.Name,
		"symbol":   config.Symbol,
		"registry": config.Registry.String(),
		"admin":    config.Admin.String(),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.service.GetCredential(ctx, credentialID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCredentialResponse(record))
}

func (h *Handler) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	records, err := h.service.ListByOwner(ctx, owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]credentialResponse, 0, len(records))
	for i := range records {
		out = append(out, toCredentialResponse(&records[i]))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"credentials": out})
}
