package token

import "context"

// Store describes persistence operations required by the token service.
//
// The store is the only shared mutable resource of the token plane; the
// service keeps no in-process cache so every request observes current state.
type Store interface {
	// Create persists a freshly issued token. ErrDuplicate on a uniqueness
	// collision of value or management id.
	Create(ctx context.Context, tok *AccessToken) error

	// FindByValue is an exact-match lookup by bearer secret. ErrNotFound on
	// absence; no prefix or pattern matching.
	FindByValue(ctx context.Context, value string) (AccessToken, error)

	// FindByManagementID is an exact-match lookup by management handle.
	FindByManagementID(ctx context.Context, managementID string) (AccessToken, error)

	// Delete removes the token addressed by management id. A missing row is
	// not an error.
	Delete(ctx context.Context, managementID string) error

	// Replace atomically deletes the token addressed by managementID and
	// inserts next in its place. ErrNotFound when the old row was already
	// gone; concurrent replacements of one token serialize on the row so
	// exactly one wins. ErrDuplicate when next collides on a unique column.
	Replace(ctx context.Context, managementID string, next *AccessToken) error
}
