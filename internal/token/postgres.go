package token

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, tok *AccessToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into access_tokens(id, value, management_id, grant_id, expires_in, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		tok.ID, tok.Value, tok.ManagementID, tok.GrantID, tok.ExpiresIn, tok.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *PGStore) FindByValue(ctx context.Context, value string) (AccessToken, error) {
	return s.find(ctx, `value=$1`, value)
}

func (s *PGStore) FindByManagementID(ctx context.Context, managementID string) (AccessToken, error) {
	return s.find(ctx, `management_id=$1`, managementID)
}

func (s *PGStore) find(ctx context.Context, where string, arg any) (AccessToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, value, management_id, grant_id, expires_in, created_at from access_tokens where `+where,
		arg)
	var tok AccessToken
	if err := row.Scan(&tok.ID, &tok.Value, &tok.ManagementID, &tok.GrantID, &tok.ExpiresIn, &tok.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AccessToken{}, ErrNotFound
		}
		return AccessToken{}, err
	}
	return tok, nil
}

func (s *PGStore) Delete(ctx context.Context, managementID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from access_tokens where management_id=$1`, managementID)
	return err
}

// Replace deletes the old row and inserts the replacement in one transaction.
// The delete takes a row lock, so concurrent replacements of the same token
// serialize and the loser observes ErrNotFound.
func (s *PGStore) Replace(ctx context.Context, managementID string, next *AccessToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var oldID string
	err = tx.QueryRowContext(ctx,
		`delete from access_tokens where management_id=$1 returning id`, managementID,
	).Scan(&oldID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`insert into access_tokens(id, value, management_id, grant_id, expires_in, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		next.ID, next.Value, next.ManagementID, next.GrantID, next.ExpiresIn, next.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
