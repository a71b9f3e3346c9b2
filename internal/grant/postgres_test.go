package grant

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepositoryFindWithAccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select id, client_id, state, created_at from grants where id=").
		WithArgs("grant-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "state", "created_at"}).
			AddRow("grant-1", "https://wallet.example/alice", "finalized", created))
	mock.ExpectQuery("select id, grant_id, type, actions, identifier, limits").
		WithArgs("grant-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "grant_id", "type", "actions", "identifier", "limits"}).
			AddRow("acc-1", "grant-1", "incoming-payment", []byte(`["create","read"]`), nil, nil).
			AddRow("acc-2", "grant-1", "outgoing-payment", []byte(`["create"]`), "https://wallet.example/alice",
				[]byte(`{"debitAmount":{"value":"500","assetCode":"KZT","assetScale":2}}`)))

	repo := NewPGRepository(db)
	g, access, err := repo.FindWithAccess(context.Background(), "grant-1")
	if err != nil {
		t.Fatalf("FindWithAccess: %v", err)
	}
	if g.ClientID != "https://wallet.example/alice" || g.State != StateFinalized {
		t.Fatalf("unexpected grant: %+v", g)
	}
	if len(access) != 2 {
		t.Fatalf("expected 2 access rows, got %d", len(access))
	}
	if access[0].Identifier != "" || access[0].Limits != nil {
		t.Fatalf("first access should have no identifier or limits: %+v", access[0])
	}
	if access[1].Limits == nil || access[1].Limits.DebitAmount == nil || access[1].Limits.DebitAmount.Value != 500 {
		t.Fatalf("limits not decoded: %+v", access[1].Limits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRepositoryFindWithAccessNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, client_id, state, created_at from grants where id=").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewPGRepository(db)
	if _, _, err := repo.FindWithAccess(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
