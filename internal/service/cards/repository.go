package cards

import (
	"context"
	"time"

	"github.com/ignite/cardscan/internal/domain"
)

// Repository is the record store contract. It exclusively owns card storage;
// callers reference records by id and never keep mutable copies across calls.
//
// Every method that mutates a record must do so atomically for that record.
type Repository interface {
	// Insert persists a new card. The caller assigns ID, state and timestamps.
	Insert(ctx context.Context, c *domain.Card) error

	// Get returns the card with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Card, error)

	// Update replaces the contact fields of an active card and stamps
	// UpdatedAt. Returns ErrNotFound if absent, ErrInvalidState if deleted.
	Update(ctx context.Context, id string, fields domain.CardFields, ts time.Time) (*domain.Card, error)

	// SetState moves a card to state. Deleted stamps DeletedAt with ts and
	// active clears it; both stamp UpdatedAt. Returns ErrInvalidState if the
	// card is already in state, ErrNotFound if absent.
	SetState(ctx context.Context, id string, state domain.CardState, ts time.Time) (*domain.Card, error)

	// ListByState returns cards in state whose fields contain term
	// (case-insensitive, blank matches all), in insertion order. Each call
	// runs a fresh query.
	ListByState(ctx context.Context, state domain.CardState, term string) ([]domain.Card, error)

	// Count returns record totals by state.
	Count(ctx context.Context) (domain.Counts, error)
}

// Locker serializes mutations of a single record. The returned release
// function must be called on every exit path.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
