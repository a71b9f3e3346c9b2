// Package token implements the access token lifecycle: issuance, liveness,
// introspection, revocation and rotation.
package token

import (
	"time"

	"zerde.org/internal/grant"
)

// AccessToken is a bearer credential bound to a grant.
//
// Value is the bearer secret presented by clients. ManagementID is a separate
// non-secret handle that addresses the token for revoke/rotate, so management
// URLs never carry the secret. Liveness is derived from CreatedAt and
// ExpiresIn at read time and never persisted.
type AccessToken struct {
	ID           string
	Value        string
	ManagementID string
	GrantID      string
	ExpiresIn    int32
	CreatedAt    time.Time
}

// ExpiresAt is the instant the token stops being live.
func (t AccessToken) ExpiresAt() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Introspection is the answer to a resource server's validity query. The zero
// value is the inactive answer; absent, expired and never-issued tokens all
// produce it so callers cannot tell those cases apart.
type Introspection struct {
	Active   bool
	GrantID  string
	ClientID string
	Access   []grant.Access
}

// Rotation is the outcome of replacing a token: the fresh credential plus the
// grant's access set for the wire response.
type Rotation struct {
	Token  AccessToken
	Access []grant.Access
}
