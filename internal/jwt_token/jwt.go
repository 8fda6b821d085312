package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Claims represents the JWT claims for caller tokens. The subject is the
// caller's address; every gated operation downstream receives it explicitly.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTService handles caller token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateToken signs a token whose subject is the caller identity.
func (s *JWTService) GenerateToken(caller id.Identity, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken verifies a token and returns the caller identity it carries.
func (s *JWTService) ValidateToken(tokenString string) (id.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	caller, err := id.ParseIdentity(claims.Subject)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid identity")
	}
	return caller, nil
}
