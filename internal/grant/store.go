package grant

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the referenced grant does not exist.
var ErrNotFound = errors.New("grant: not found")

// Repository describes the read access the token plane has to grants. The
// negotiation subsystem owns all writes.
type Repository interface {
	// FindWithAccess loads a grant together with its full access set.
	FindWithAccess(ctx context.Context, grantID string) (Grant, []Access, error)
}
