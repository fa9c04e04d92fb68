package cards

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/pkg/logger"
)

// Config controls submission validation.
type Config struct {
	// RejectEmpty refuses submissions whose fields are all blank.
	RejectEmpty bool
	// MaxFieldLength caps each field in runes. Zero disables the check.
	MaxFieldLength int
}

// Service implements the card lifecycle and its read-side projections.
// It is safe for concurrent use if the underlying repository is.
type Service struct {
	repo  Repository
	locks Locker
	cfg   Config

	now   func() time.Time
	newID func() string
}

// NewService creates a card service backed by repo. locks may be nil, in
// which case the repository's own per-record atomicity is relied upon.
func NewService(repo Repository, locks Locker, cfg Config) *Service {
	return &Service{
		repo:  repo,
		locks: locks,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetIDGenerator overrides id assignment. Intended for tests.
func (s *Service) SetIDGenerator(gen func() string) { s.newID = gen }

// Get returns a single card in any state.
func (s *Service) Get(ctx context.Context, id string) (*domain.Card, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// Create validates fields and stores them as a new active card.
func (s *Service) Create(ctx context.Context, fields domain.CardFields) (*domain.Card, error) {
	fields, err := s.validate(fields)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &domain.Card{
		ID:         s.newID(),
		CardFields: fields,
		State:      domain.CardActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(context.WithoutCancel(ctx), c); err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}

	logger.Info("card created", "card_id", c.ID, "company", c.Company)
	return c.Clone(), nil
}

// Edit replaces the fields of the single selected card. Any selection other
// than exactly one distinct id fails with ErrSelection.
func (s *Service) Edit(ctx context.Context, selection []string, fields domain.CardFields) (*domain.Card, error) {
	ids := distinctIDs(selection)
	if len(ids) != 1 {
		return nil, fmt.Errorf("%w: %d selected", ErrSelection, len(ids))
	}
	id := ids[0]

	var updated *domain.Card
	err := s.withRecordLock(ctx, id, func(ctx context.Context) error {
		// A deleted or missing card is rejected before its fields are judged.
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.State == domain.CardDeleted {
			return fmt.Errorf("%w: card %s is deleted", ErrInvalidState, id)
		}

		valid, err := s.validate(fields)
		if err != nil {
			return err
		}
		c, err := s.repo.Update(ctx, id, valid, s.now())
		updated = c
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("card updated", "card_id", id)
	return updated, nil
}

// BatchResult reports per-id outcomes of a batch transition.
type BatchResult struct {
	Succeeded []string             `json:"succeeded"`
	Failed    map[string]ErrorKind `json:"failed"`
}

// SoftDelete moves each active card in ids to deleted. Ids are handled
// independently: a missing or already-deleted id is reported in Failed and
// does not stop the rest.
func (s *Service) SoftDelete(ctx context.Context, ids []string) BatchResult {
	res := BatchResult{Succeeded: []string{}, Failed: map[string]ErrorKind{}}

	for _, id := range distinctIDs(ids) {
		err := s.withRecordLock(ctx, id, func(ctx context.Context) error {
			_, err := s.repo.SetState(ctx, id, domain.CardDeleted, s.now())
			return err
		})
		if err != nil {
			kind := KindOf(err)
			if kind == KindInternal {
				logger.Error("soft delete failed", "card_id", id, "error", err)
			}
			res.Failed[id] = kind
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}

	logger.Info("soft delete", "succeeded", len(res.Succeeded), "failed", len(res.Failed))
	return res
}

// Restore moves a deleted card back to active and clears DeletedAt.
func (s *Service) Restore(ctx context.Context, id string) (*domain.Card, error) {
	id = strings.TrimSpace(id)

	var restored *domain.Card
	err := s.withRecordLock(ctx, id, func(ctx context.Context) error {
		c, err := s.repo.SetState(ctx, id, domain.CardActive, s.now())
		restored = c
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("card restored", "card_id", id)
	return restored, nil
}

// Counts returns record totals by state.
func (s *Service) Counts(ctx context.Context) (domain.Counts, error) {
	return s.repo.Count(ctx)
}

// withRecordLock runs fn while holding the lock for one record. Once the
// lock is held, fn runs detached from ctx cancellation so an abandoned
// request cannot interrupt a mutation halfway.
func (s *Service) withRecordLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.locks != nil {
		release, err := s.locks.Lock(ctx, "card:"+id)
		if err != nil {
			return fmt.Errorf("lock card %s: %w", id, err)
		}
		defer release()
	}
	return fn(context.WithoutCancel(ctx))
}

func (s *Service) validate(f domain.CardFields) (domain.CardFields, error) {
	f = f.Trimmed()
	if s.cfg.RejectEmpty && f.IsEmpty() {
		return f, fmt.Errorf("%w: at least one field is required", ErrValidation)
	}

	named := []struct{ name, value string }{
		{"name", f.Name}, {"company", f.Company}, {"phone", f.Phone},
		{"email", f.Email}, {"website", f.Website}, {"city", f.City},
	}
	for _, n := range named {
		if !utf8.ValidString(n.value) {
			return f, fmt.Errorf("%w: %s is not valid UTF-8", ErrValidation, n.name)
		}
		if s.cfg.MaxFieldLength > 0 && utf8.RuneCountInString(n.value) > s.cfg.MaxFieldLength {
			return f, fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, n.name, s.cfg.MaxFieldLength)
		}
	}
	return f, nil
}

// distinctIDs trims ids, drops blanks and duplicates, and keeps first-seen order.
func distinctIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
