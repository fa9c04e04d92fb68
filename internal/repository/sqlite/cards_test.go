package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/service/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *CardRepo {
	t.Helper()
	r, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func insert(t *testing.T, r *CardRepo, id string, f domain.CardFields) {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.Insert(context.Background(), &domain.Card{
		ID: id, CardFields: f, State: domain.CardActive, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestCardRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)
	insert(t, r, "c1", domain.CardFields{Name: "Asha", Company: "Acme", City: "Pune"})

	got, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CardActive, got.State)
	assert.Nil(t, got.DeletedAt)

	ts := time.Date(2026, 1, 2, 0, 0, 0, 123, time.UTC)
	del, err := r.SetState(ctx, "c1", domain.CardDeleted, ts)
	require.NoError(t, err)
	require.NotNil(t, del.DeletedAt)
	assert.True(t, ts.Equal(*del.DeletedAt))

	_, err = r.SetState(ctx, "c1", domain.CardDeleted, ts)
	assert.ErrorIs(t, err, cards.ErrInvalidState)

	_, err = r.Update(ctx, "c1", domain.CardFields{Name: "X"}, ts)
	assert.ErrorIs(t, err, cards.ErrInvalidState)

	res, err := r.SetState(ctx, "c1", domain.CardActive, ts.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, res.DeletedAt)
	assert.Equal(t, "Asha", res.Name)

	upd, err := r.Update(ctx, "c1", domain.CardFields{Name: "Asha K", City: "Mumbai"}, ts.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "Asha K", upd.Name)
	assert.Empty(t, upd.Company)
	assert.Equal(t, "Mumbai", upd.City)
}

func TestCardRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)

	_, err := r.Get(ctx, "nope")
	assert.ErrorIs(t, err, cards.ErrNotFound)
	_, err = r.Update(ctx, "nope", domain.CardFields{Name: "x"}, time.Now())
	assert.ErrorIs(t, err, cards.ErrNotFound)
	_, err = r.SetState(ctx, "nope", domain.CardDeleted, time.Now())
	assert.ErrorIs(t, err, cards.ErrNotFound)
}

func TestCardRepo_ListByState(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)
	insert(t, r, "c1", domain.CardFields{Name: "Asha", Company: "Acme"})
	insert(t, r, "c2", domain.CardFields{Name: "Ravi", Email: "ravi@example.com"})
	insert(t, r, "c3", domain.CardFields{Name: "Émile", Company: "ACME Labs"})
	_, err := r.SetState(ctx, "c2", domain.CardDeleted, time.Now())
	require.NoError(t, err)

	active, err := r.ListByState(ctx, domain.CardActive, "")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "c1", active[0].ID)
	assert.Equal(t, "c3", active[1].ID)

	hits, err := r.ListByState(ctx, domain.CardActive, "émile")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c3", hits[0].ID)

	deleted, err := r.ListByState(ctx, domain.CardDeleted, "example")
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "c2", deleted[0].ID)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Total: 3, Active: 2, Deleted: 1}, n)
}

func TestCardRepo_ReopenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cards.db")

	r, err := Open(ctx, path)
	require.NoError(t, err)
	insert(t, r, "c1", domain.CardFields{Name: "Asha"})
	require.NoError(t, r.Close())

	r, err = Open(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
}
