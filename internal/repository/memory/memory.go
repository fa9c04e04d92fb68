// Package memory provides an in-process card repository. It is the default
// store for local runs and the backing store for service tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/service/cards"
)

// CardRepo implements cards.Repository in memory. Records keep their
// insertion order for listings.
type CardRepo struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Card
	order []string
}

// NewCardRepo creates an empty in-memory repository.
func NewCardRepo() *CardRepo {
	return &CardRepo{byID: make(map[string]*domain.Card)}
}

func (r *CardRepo) Insert(_ context.Context, c *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID]; exists {
		return fmt.Errorf("insert card: duplicate id %q", c.ID)
	}
	r.byID[c.ID] = c.Clone()
	r.order = append(r.order, c.ID)
	return nil
}

func (r *CardRepo) Get(_ context.Context, id string) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, cards.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CardRepo) Update(_ context.Context, id string, fields domain.CardFields, ts time.Time) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, cards.ErrNotFound
	}
	if !c.IsActive() {
		return nil, fmt.Errorf("%w: card %s is %s", cards.ErrInvalidState, id, c.State)
	}
	c.CardFields = fields
	c.UpdatedAt = ts
	return c.Clone(), nil
}

func (r *CardRepo) SetState(_ context.Context, id string, state domain.CardState, ts time.Time) (*domain.Card, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("set state: unknown state %q", state)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, cards.ErrNotFound
	}
	if c.State == state {
		return nil, fmt.Errorf("%w: card %s is already %s", cards.ErrInvalidState, id, state)
	}
	c.State = state
	c.UpdatedAt = ts
	if state == domain.CardDeleted {
		t := ts
		c.DeletedAt = &t
	} else {
		c.DeletedAt = nil
	}
	return c.Clone(), nil
}

func (r *CardRepo) ListByState(_ context.Context, state domain.CardState, term string) ([]domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Card{}
	for _, id := range r.order {
		c := r.byID[id]
		if c.State != state || !c.Matches(term) {
			continue
		}
		out = append(out, *c.Clone())
	}
	return out, nil
}

func (r *CardRepo) Count(_ context.Context) (domain.Counts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n domain.Counts
	for _, c := range r.byID {
		n.Total++
		if c.IsActive() {
			n.Active++
		} else {
			n.Deleted++
		}
	}
	return n, nil
}
