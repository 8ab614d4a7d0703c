package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleService = "service"
	RoleAdmin   = "admin"
)

// Claims carries the identity of a calling service. Tokens scoped to a
// single organization carry its id; admin tokens leave it empty.
type Claims struct {
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("SERVICE_TOKEN_SECRET must be configured and at least 32 characters")
	}
	return &TokenIssuer{secret: []byte(secret)}, nil
}

// IssueServiceToken mints a token for a caller acting on behalf of one
// organization. Lifetime is 24 hours; callers are expected to re-mint.
func (t *TokenIssuer) IssueServiceToken(organizationID, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(24 * time.Hour)

	claims := Claims{
		OrganizationID: organizationID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   organizationID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "saas-knowledge-indexer",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

func (t *TokenIssuer) ValidateServiceToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Prevent algorithm confusion attacks
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Role != RoleService && claims.Role != RoleAdmin {
		return nil, errors.New("unknown role")
	}

	return claims, nil
}
