package token

import "errors"

var (
	// ErrNotFound covers both a missing token and a bearer/management-id
	// mismatch: the two must stay indistinguishable to callers.
	ErrNotFound = errors.New("token: not found")

	// ErrDuplicate signals a uniqueness violation on value or management id.
	// The service retries generation; stores must map their driver's unique
	// violation onto it.
	ErrDuplicate = errors.New("token: duplicate")
)
