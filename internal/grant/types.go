// Package grant exposes the read side of authorization grants. Grants are
// negotiated and finalized by the consent flow; the token plane only reads them
// to answer introspection queries and to shape rotation responses.
package grant

import "time"

// State is the grant lifecycle state owned by the negotiation subsystem.
type State string

const (
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateFinalized State = "finalized"
	StateRevoked   State = "revoked"
)

// Grant is an authorization record owning a set of access rights.
type Grant struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Access is one entitlement belonging to a grant. The set of a grant's Access
// rows is the authoritative entitlement surface disclosed on introspection.
// Immutable once created.
type Access struct {
	ID         string     `json:"-"`
	GrantID    string     `json:"-"`
	Type       string     `json:"type"`
	Actions    []string   `json:"actions"`
	Identifier string     `json:"identifier,omitempty"`
	Limits     *LimitData `json:"limits,omitempty"`
}

// LimitData constrains financial actions granted by an Access right.
type LimitData struct {
	Receiver      string  `json:"receiver,omitempty"`
	DebitAmount   *Amount `json:"debitAmount,omitempty"`
	ReceiveAmount *Amount `json:"receiveAmount,omitempty"`
	Interval      string  `json:"interval,omitempty"`
}

// Amount is a fixed-point monetary value in the smallest unit of an asset.
type Amount struct {
	Value      uint64 `json:"value,string"`
	AssetCode  string `json:"assetCode"`
	AssetScale uint8  `json:"assetScale"`
}
