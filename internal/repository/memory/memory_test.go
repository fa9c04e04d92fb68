package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/service/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *CardRepo, id string, f domain.CardFields) {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.Insert(context.Background(), &domain.Card{
		ID: id, CardFields: f, State: domain.CardActive, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestCardRepo_InsertGet(t *testing.T) {
	r := NewCardRepo()
	seed(t, r, "a", domain.CardFields{Name: "Asha"})

	got, err := r.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)

	got.Name = "mutated"
	again, _ := r.Get(context.Background(), "a")
	assert.Equal(t, "Asha", again.Name)

	_, err = r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, cards.ErrNotFound)
}

func TestCardRepo_InsertDuplicate(t *testing.T) {
	r := NewCardRepo()
	seed(t, r, "a", domain.CardFields{Name: "Asha"})
	err := r.Insert(context.Background(), &domain.Card{ID: "a", State: domain.CardActive})
	assert.Error(t, err)
}

func TestCardRepo_SetStateTransitions(t *testing.T) {
	ctx := context.Background()
	r := NewCardRepo()
	seed(t, r, "a", domain.CardFields{Name: "Asha"})
	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	c, err := r.SetState(ctx, "a", domain.CardDeleted, ts)
	require.NoError(t, err)
	require.NotNil(t, c.DeletedAt)
	assert.Equal(t, ts, *c.DeletedAt)
	assert.Equal(t, ts, c.UpdatedAt)

	_, err = r.SetState(ctx, "a", domain.CardDeleted, ts)
	assert.ErrorIs(t, err, cards.ErrInvalidState)

	_, err = r.Update(ctx, "a", domain.CardFields{Name: "x"}, ts)
	assert.ErrorIs(t, err, cards.ErrInvalidState)

	c, err = r.SetState(ctx, "a", domain.CardActive, ts.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, c.DeletedAt)
	assert.Equal(t, "Asha", c.Name)

	_, err = r.SetState(ctx, "nope", domain.CardActive, ts)
	assert.ErrorIs(t, err, cards.ErrNotFound)
}

func TestCardRepo_ListByStateOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	r := NewCardRepo()
	seed(t, r, "1", domain.CardFields{Name: "Asha", Company: "Acme"})
	seed(t, r, "2", domain.CardFields{Name: "Ravi", City: "Pune"})
	seed(t, r, "3", domain.CardFields{Name: "Meera", Company: "ACME Labs"})

	all, err := r.ListByState(ctx, domain.CardActive, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	hits, err := r.ListByState(ctx, domain.CardActive, "acme")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "1", hits[0].ID)
	assert.Equal(t, "3", hits[1].ID)

	deleted, err := r.ListByState(ctx, domain.CardDeleted, "")
	require.NoError(t, err)
	assert.NotNil(t, deleted)
	assert.Empty(t, deleted)
}

func TestCardRepo_Count(t *testing.T) {
	ctx := context.Background()
	r := NewCardRepo()
	seed(t, r, "1", domain.CardFields{Name: "a"})
	seed(t, r, "2", domain.CardFields{Name: "b"})
	_, err := r.SetState(ctx, "2", domain.CardDeleted, time.Now())
	require.NoError(t, err)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Counts{Total: 2, Active: 1, Deleted: 1}, n)
}
