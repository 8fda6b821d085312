package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"attestor/internal/platform/middleware"
	"attestor/internal/platform/secrets"
	"attestor/internal/transport/http/shared"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// TokenIssuer mints caller tokens after the shared secret checks out.
type TokenIssuer interface {
	GenerateToken(caller id.Identity, expiresIn time.Duration) (string, error)
}

// AuthHandler exchanges an identity plus the deployment secret for a bearer
// token. The secret proves the caller sits inside the trusted perimeter; the
// identity it claims is what every gated operation downstream acts as.
type AuthHandler struct {
	tokens     TokenIssuer
	secretHash string
	tokenTTL   time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(tokens TokenIssuer, secretHash string, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:     tokens,
		secretHash: secretHash,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

type tokenRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// HandleToken handles POST /auth/token.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req tokenRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	caller, err := id.ParseIdentity(req.Identity)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := secrets.Verify(req.Secret, h.secretHash); err != nil {
		h.logger.WarnContext(ctx, "token exchange rejected",
			"request_id", requestID,
			"identity", caller.String(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	token, err := h.tokens.GenerateToken(caller, h.tokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "token generation failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue token"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}
