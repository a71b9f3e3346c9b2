package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"zerde.org/internal/grant"
	"zerde.org/internal/ids"
)

const (
	// valueBytes is the entropy of a bearer secret before encoding.
	valueBytes = 32

	defaultGenerateAttempts = 3
)

// Service is the access token state machine. It owns every lifecycle
// transition (issue, rotate, revoke) and every read (lookup, liveness,
// introspection). It never talks to transport.
type Service struct {
	store  Store
	grants grant.Repository

	now      func() time.Time
	random   io.Reader
	attempts int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithRandom overrides the secret source. Production uses crypto/rand; tests
// inject a deterministic reader.
func WithRandom(r io.Reader) ServiceOption {
	return func(s *Service) error {
		if r != nil {
			s.random = r
		}
		return nil
	}
}

// WithGenerateAttempts bounds retries on credential uniqueness collisions.
func WithGenerateAttempts(n int) ServiceOption {
	return func(s *Service) error {
		if n < 1 {
			return errors.New("token: generate attempts must be positive")
		}
		s.attempts = n
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, grants grant.Repository, opts ...ServiceOption) (*Service, error) {
	svc := &Service{
		store:    store,
		grants:   grants,
		now:      time.Now,
		random:   rand.Reader,
		attempts: defaultGenerateAttempts,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// IsLive reports whether tok is within its expiry window at the given instant.
// Pure function of the token's own issuance time; zero or negative ExpiresIn
// means the token was born expired.
func IsLive(tok AccessToken, now time.Time) bool {
	return now.Before(tok.ExpiresAt())
}

// Issue mints a token for the grant with the given expiry window in seconds.
// The window is stored as configured, even when degenerate.
func (s *Service) Issue(ctx context.Context, grantID string, expiresIn int32) (AccessToken, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		tok, err := s.newToken(grantID, expiresIn)
		if err != nil {
			return AccessToken{}, err
		}
		switch err := s.store.Create(ctx, tok); {
		case err == nil:
			return *tok, nil
		case errors.Is(err, ErrDuplicate):
			lastErr = err
		default:
			return AccessToken{}, err
		}
	}
	return AccessToken{}, fmt.Errorf("token: exhausted credential generation attempts: %w", lastErr)
}

// FindByValue looks a token up by its bearer secret.
func (s *Service) FindByValue(ctx context.Context, value string) (AccessToken, error) {
	return s.store.FindByValue(ctx, value)
}

// FindByManagementID looks a token up by its management handle.
func (s *Service) FindByManagementID(ctx context.Context, managementID string) (AccessToken, error) {
	return s.store.FindByManagementID(ctx, managementID)
}

// Authorize verifies that the presented bearer value is the current secret of
// the token addressed by managementID. Absence and mismatch both come back as
// ErrNotFound so callers cannot probe which management ids exist.
func (s *Service) Authorize(ctx context.Context, managementID, presentedValue string) error {
	tok, err := s.store.FindByManagementID(ctx, managementID)
	if err != nil {
		return err
	}
	if !constantTimeEqual(tok.Value, presentedValue) {
		return ErrNotFound
	}
	return nil
}

// Revoke deletes the token addressed by managementID. Missing rows and
// already-expired tokens succeed: the caller's postcondition (the token
// authorizes nothing) already holds.
func (s *Service) Revoke(ctx context.Context, managementID string) error {
	return s.store.Delete(ctx, managementID)
}

// Rotate atomically replaces the addressed token with a fresh value and
// management id, preserving the grant linkage and restarting the expiry clock
// at the token's full configured window. The old credentials are invalid the
// instant the transaction commits. ErrNotFound when the token is gone,
// including when a concurrent rotate or revoke won the row.
func (s *Service) Rotate(ctx context.Context, managementID string) (Rotation, error) {
	current, err := s.store.FindByManagementID(ctx, managementID)
	if err != nil {
		return Rotation{}, err
	}

	var next *AccessToken
	for attempt := 0; ; attempt++ {
		next, err = s.newToken(current.GrantID, current.ExpiresIn)
		if err != nil {
			return Rotation{}, err
		}
		err = s.store.Replace(ctx, managementID, next)
		if errors.Is(err, ErrDuplicate) && attempt+1 < s.attempts {
			continue
		}
		if err != nil {
			return Rotation{}, err
		}
		break
	}

	_, access, err := s.grants.FindWithAccess(ctx, current.GrantID)
	if err != nil && !errors.Is(err, grant.ErrNotFound) {
		return Rotation{}, err
	}
	return Rotation{Token: *next, Access: access}, nil
}

// Introspect answers a resource server's validity query. Absent, expired and
// never-issued values all yield the inactive zero result; a live token
// discloses the owning grant's id, client and full access set.
func (s *Service) Introspect(ctx context.Context, value string) (Introspection, error) {
	tok, err := s.store.FindByValue(ctx, value)
	if errors.Is(err, ErrNotFound) {
		return Introspection{}, nil
	}
	if err != nil {
		return Introspection{}, err
	}
	if !IsLive(tok, s.now()) {
		return Introspection{}, nil
	}
	g, access, err := s.grants.FindWithAccess(ctx, tok.GrantID)
	if errors.Is(err, grant.ErrNotFound) {
		return Introspection{}, nil
	}
	if err != nil {
		return Introspection{}, err
	}
	return Introspection{
		Active:   true,
		GrantID:  g.ID,
		ClientID: g.ClientID,
		Access:   access,
	}, nil
}

func (s *Service) newToken(grantID string, expiresIn int32) (*AccessToken, error) {
	value, err := s.newValue()
	if err != nil {
		return nil, err
	}
	return &AccessToken{
		ID:           ids.New(),
		Value:        value,
		ManagementID: ids.NewManagement(),
		GrantID:      grantID,
		ExpiresIn:    expiresIn,
		CreatedAt:    s.now().UTC(),
	}, nil
}

func (s *Service) newValue() (string, error) {
	buf := make([]byte, valueBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
