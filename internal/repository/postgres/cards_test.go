package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/service/cards"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cardCols = []string{"id", "name", "company", "phone", "email", "website", "city", "state", "deleted_at", "created_at", "updated_at"}

func newMock(t *testing.T) (*CardRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCardRepo(db), mock
}

func TestCardRepo_Insert(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &domain.Card{ID: "c1", CardFields: domain.CardFields{Name: "Asha", City: "Pune"}, State: domain.CardActive, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO cards`).
		WithArgs("c1", "Asha", "", "", "", "", "Pune", "active", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Insert(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM cards WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cardCols))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, cards.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_GetScansDeletedAt(t *testing.T) {
	repo, mock := newMock(t)
	ts := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM cards WHERE id = \$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(cardCols).
			AddRow("c1", "Asha", "Acme", "", "", "", "Pune", "deleted", ts, ts, ts))

	c, err := repo.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CardDeleted, c.State)
	require.NotNil(t, c.DeletedAt)
	assert.Equal(t, ts, *c.DeletedAt)
	assert.Equal(t, "Acme", c.Company)
}

func TestCardRepo_UpdateDeletedIsInvalidState(t *testing.T) {
	repo, mock := newMock(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(`UPDATE cards\s+SET name = \$2`).
		WithArgs("c1", "X", "", "", "", "", "", ts).
		WillReturnRows(sqlmock.NewRows(cardCols))
	mock.ExpectQuery(`SELECT state FROM cards WHERE id = \$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("deleted"))

	_, err := repo.Update(context.Background(), "c1", domain.CardFields{Name: "X"}, ts)
	assert.ErrorIs(t, err, cards.ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_UpdateMissingIsNotFound(t *testing.T) {
	repo, mock := newMock(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(`UPDATE cards`).WillReturnRows(sqlmock.NewRows(cardCols))
	mock.ExpectQuery(`SELECT state FROM cards`).WillReturnRows(sqlmock.NewRows([]string{"state"}))

	_, err := repo.Update(context.Background(), "nope", domain.CardFields{Name: "X"}, ts)
	assert.ErrorIs(t, err, cards.ErrNotFound)
}

func TestCardRepo_SetStateDeleted(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := created.Add(time.Hour)

	mock.ExpectQuery(`UPDATE cards SET state = 'deleted', deleted_at = \$2`).
		WithArgs("c1", ts).
		WillReturnRows(sqlmock.NewRows(cardCols).
			AddRow("c1", "Asha", "", "", "", "", "", "deleted", ts, created, ts))

	c, err := repo.SetState(context.Background(), "c1", domain.CardDeleted, ts)
	require.NoError(t, err)
	require.NotNil(t, c.DeletedAt)
	assert.Equal(t, ts, c.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_SetStateActiveAlreadyActive(t *testing.T) {
	repo, mock := newMock(t)
	ts := time.Now().UTC()

	mock.ExpectQuery(`UPDATE cards SET state = 'active', deleted_at = NULL`).
		WithArgs("c1", ts).
		WillReturnRows(sqlmock.NewRows(cardCols))
	mock.ExpectQuery(`SELECT state FROM cards`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("active"))

	_, err := repo.SetState(context.Background(), "c1", domain.CardActive, ts)
	assert.ErrorIs(t, err, cards.ErrInvalidState)
}

func TestCardRepo_SetStateUnknown(t *testing.T) {
	repo, _ := newMock(t)
	_, err := repo.SetState(context.Background(), "c1", domain.CardState("archived"), time.Now())
	assert.Error(t, err)
}

func TestCardRepo_ListByStateLowercasesTerm(t *testing.T) {
	repo, mock := newMock(t)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM cards\s+WHERE state = \$1`).
		WithArgs("active", "acme").
		WillReturnRows(sqlmock.NewRows(cardCols).
			AddRow("c1", "Asha", "Acme", "", "", "", "Pune", "active", nil, ts, ts).
			AddRow("c3", "Meera", "ACME Labs", "", "", "", "", "active", nil, ts, ts))

	got, err := repo.ListByState(context.Background(), domain.CardActive, "  ACME ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Nil(t, got[0].DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepo_ListByStateQueryError(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM cards`).WillReturnError(sql.ErrConnDone)

	_, err := repo.ListByState(context.Background(), domain.CardDeleted, "")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCardRepo_Count(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "deleted"}).AddRow(5, 3, 2))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Total: 5, Active: 3, Deleted: 2}, n)
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.Error(t, Migrate(context.Background(), db))
}
