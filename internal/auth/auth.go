// Package auth materializes the already-authorized caller identity supplied
// by the external identity provider. Login, password storage and
// organization/role administration live outside this service; all it does
// is validate tokens and hand the engine an explicit Actor, never ambient
// request-global state.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the caller's role within their organization.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleOrgAdmin  Role = "org_admin"
)

// Actor is the authorized caller, passed explicitly into every service
// operation.
type Actor struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   Role
}

// Claims extends JWT standard claims with the actor fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	OrgID  uuid.UUID `json:"org_id"`
	Role   Role      `json:"role"`
}

// Actor converts validated claims into the explicit actor object.
func (c *Claims) Actor() Actor {
	return Actor{UserID: c.UserID, OrgID: c.OrgID, Role: c.Role}
}

// Verifier validates (and, for dev tooling, mints) HS256 tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Validate parses and validates a JWT, returning the claims.
func (v *Verifier) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == uuid.Nil || claims.OrgID == uuid.Nil {
		return nil, errors.New("token missing actor identity")
	}
	return claims, nil
}

// Mint signs a token for the given actor. Used by cmd/mint-token and the
// e2e suite; production tokens come from the external identity provider.
func (v *Verifier) Mint(actor Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   actor.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: actor.UserID,
		OrgID:  actor.OrgID,
		Role:   actor.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
