package cards

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/export"
)

// Search returns active cards whose fields contain term, ignoring case.
// A blank term returns every active card.
func (s *Service) Search(ctx context.Context, term string) ([]domain.Card, error) {
	out, err := s.repo.ListByState(ctx, domain.CardActive, strings.TrimSpace(term))
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	return nonNil(out), nil
}

// ListDeleted returns deleted cards, most recently deleted first.
func (s *Service) ListDeleted(ctx context.Context) ([]domain.Card, error) {
	out, err := s.repo.ListByState(ctx, domain.CardDeleted, "")
	if err != nil {
		return nil, fmt.Errorf("list deleted cards: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DeletedAt, out[j].DeletedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	return nonNil(out), nil
}

// ExportActive encodes every active card, independent of any search the
// caller may have applied to its listing.
func (s *Service) ExportActive(ctx context.Context, format export.Format) (*export.Document, error) {
	active, err := s.repo.ListByState(ctx, domain.CardActive, "")
	if err != nil {
		return nil, fmt.Errorf("load active cards: %w", err)
	}
	return export.Build(format, active)
}

func nonNil(cards []domain.Card) []domain.Card {
	if cards == nil {
		return []domain.Card{}
	}
	return cards
}
