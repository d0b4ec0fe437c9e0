// Package authz implements AuthzFilter: bearer-token identity
// extraction and the ownership predicate the HTTP surface uses to
// decide whether a caller may reach a given worker's data. Grounded in
// a pkg/errors-style sentinel pattern for its error taxonomy and the
// JWT library borrowed from the kluzzebass-gastrolog example for token
// verification.
package authz

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blueenergy/strategy-supervisor/internal/supervisorerrors"
)

// Identity is the authenticated caller, extracted from a verified
// bearer token's subject claim.
type Identity struct {
	UserID string
	Admin  bool
}

// Filter verifies bearer tokens and answers ownership questions. A
// caller may access a worker's data iff Identity.Admin is set or
// Identity.UserID equals the worker's owning user_id.
type Filter struct {
	secret   []byte
	disabled bool
}

// New returns a Filter verifying HS256 tokens with secret.
func New(secret []byte) *Filter {
	return &Filter{secret: secret}
}

// NewDisabled returns a Filter whose Authenticate always succeeds as an
// admin identity, for deployments that turn the auth toggle off.
func NewDisabled() *Filter {
	return &Filter{disabled: true}
}

// Authenticate extracts and verifies the bearer token from r, returning
// ErrUnauthenticated if absent, malformed, or failing verification.
func (f *Filter) Authenticate(r *http.Request) (Identity, error) {
	if f.disabled {
		return Identity{UserID: "admin", Admin: true}, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Identity{}, fmt.Errorf("%w: missing bearer token", supervisorerrors.ErrUnauthenticated)
	}

	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return f.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", supervisorerrors.ErrUnauthenticated, err)
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: token carries no subject", supervisorerrors.ErrUnauthenticated)
	}

	admin, _ := claims["admin"].(bool)

	return Identity{UserID: userID, Admin: admin}, nil
}

// MayAccess reports whether identity may reach data belonging to
// ownerUserID.
func (id Identity) MayAccess(ownerUserID string) bool {
	return id.Admin || id.UserID == ownerUserID
}

// RequireOwnership returns ErrForbidden if identity may not access
// ownerUserID's data.
func RequireOwnership(identity Identity, ownerUserID string) error {
	if !identity.MayAccess(ownerUserID) {
		return fmt.Errorf("%w: user %s may not access resources owned by %s", supervisorerrors.ErrForbidden, identity.UserID, ownerUserID)
	}

	return nil
}
