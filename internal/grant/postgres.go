package grant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

var _ Repository = (*PGRepository)(nil)

// PGRepository reads grants from PostgreSQL.
type PGRepository struct {
	db *sql.DB
}

func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) FindWithAccess(ctx context.Context, grantID string) (Grant, []Access, error) {
	row := r.db.QueryRowContext(ctx,
		`select id, client_id, state, created_at from grants where id=$1`, grantID)
	var g Grant
	if err := row.Scan(&g.ID, &g.ClientID, &g.State, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grant{}, nil, ErrNotFound
		}
		return Grant{}, nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`select id, grant_id, type, actions, identifier, limits
		 from grant_accesses where grant_id=$1 order by created_at asc`, grantID)
	if err != nil {
		return Grant{}, nil, err
	}
	defer rows.Close()

	var access []Access
	for rows.Next() {
		var (
			a          Access
			actions    []byte
			identifier sql.NullString
			limits     []byte
		)
		if err := rows.Scan(&a.ID, &a.GrantID, &a.Type, &actions, &identifier, &limits); err != nil {
			return Grant{}, nil, err
		}
		if err := json.Unmarshal(actions, &a.Actions); err != nil {
			return Grant{}, nil, err
		}
		if identifier.Valid {
			a.Identifier = identifier.String
		}
		if len(limits) > 0 {
			var l LimitData
			if err := json.Unmarshal(limits, &l); err != nil {
				return Grant{}, nil, err
			}
			a.Limits = &l
		}
		access = append(access, a)
	}
	return g, access, rows.Err()
}
