package service

import (
	"fmt"

	"github.com/companychat/crm-backend-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================
// Session — owner identity from Supabase Auth tokens
// ============================================================

// SessionClaims are the claims carried by a Supabase access token. Sub is
// the auth user id and becomes the owner id scoping every client operation.
type SessionClaims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionService validates access tokens minted by Supabase Auth. Tokens
// are never issued here; sign-in happens against Supabase directly.
type SessionService struct {
	jwtSecret []byte
}

func NewSessionService(jwtSecret []byte) *SessionService {
	return &SessionService{jwtSecret: jwtSecret}
}

// ValidateAccessToken parses and verifies a bearer token and returns its
// claims. Used by the auth middleware.
func (s *SessionService) ValidateAccessToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}

	if claims.Sub == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token sem identidade de usuário"}
	}

	return claims, nil
}
