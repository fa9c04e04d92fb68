package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/service/cards"
)

const cardColumns = `id, name, company, phone, email, website, city, state, deleted_at, created_at, updated_at`

// CardRepo implements cards.Repository against PostgreSQL. Each mutation is
// a single conditional statement, so the state check and the write cannot
// interleave with another writer.
type CardRepo struct{ db *sql.DB }

// NewCardRepo creates a Postgres-backed card repository.
func NewCardRepo(db *sql.DB) *CardRepo { return &CardRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(s rowScanner) (*domain.Card, error) {
	var (
		c         domain.Card
		state     string
		deletedAt sql.NullTime
	)
	err := s.Scan(&c.ID, &c.Name, &c.Company, &c.Phone, &c.Email, &c.Website, &c.City,
		&state, &deletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.State = domain.CardState(state)
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		c.DeletedAt = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (r *CardRepo) Insert(ctx context.Context, c *domain.Card) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (id, name, company, phone, email, website, city, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.Name, c.Company, c.Phone, c.Email, c.Website, c.City, string(c.State), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (r *CardRepo) Get(ctx context.Context, id string) (*domain.Card, error) {
	c, err := scanCard(r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cards.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

func (r *CardRepo) Update(ctx context.Context, id string, f domain.CardFields, ts time.Time) (*domain.Card, error) {
	c, err := scanCard(r.db.QueryRowContext(ctx, `
		UPDATE cards
		SET name = $2, company = $3, phone = $4, email = $5, website = $6, city = $7, updated_at = $8
		WHERE id = $1 AND state = 'active'
		RETURNING `+cardColumns,
		id, f.Name, f.Company, f.Phone, f.Email, f.Website, f.City, ts))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrState(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return c, nil
}

func (r *CardRepo) SetState(ctx context.Context, id string, state domain.CardState, ts time.Time) (*domain.Card, error) {
	var query string
	switch state {
	case domain.CardDeleted:
		query = `UPDATE cards SET state = 'deleted', deleted_at = $2, updated_at = $2
			WHERE id = $1 AND state = 'active' RETURNING ` + cardColumns
	case domain.CardActive:
		query = `UPDATE cards SET state = 'active', deleted_at = NULL, updated_at = $2
			WHERE id = $1 AND state = 'deleted' RETURNING ` + cardColumns
	default:
		return nil, fmt.Errorf("set state: unknown state %q", state)
	}

	c, err := scanCard(r.db.QueryRowContext(ctx, query, id, ts))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrState(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("set card state: %w", err)
	}
	return c, nil
}

// missOrState explains why a conditional update matched no row.
func (r *CardRepo) missOrState(ctx context.Context, id string) error {
	var state string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM cards WHERE id = $1`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return cards.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup card state: %w", err)
	}
	return fmt.Errorf("%w: card %s is %s", cards.ErrInvalidState, id, state)
}

func (r *CardRepo) ListByState(ctx context.Context, state domain.CardState, term string) ([]domain.Card, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE state = $1
		  AND ($2 = ''
		    OR strpos(lower(name), $2) > 0
		    OR strpos(lower(company), $2) > 0
		    OR strpos(lower(phone), $2) > 0
		    OR strpos(lower(email), $2) > 0
		    OR strpos(lower(website), $2) > 0
		    OR strpos(lower(city), $2) > 0)
		ORDER BY seq
	`, string(state), term)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	out := []domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CardRepo) Count(ctx context.Context) (domain.Counts, error) {
	var n domain.Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE state = 'active'),
		       COUNT(*) FILTER (WHERE state = 'deleted')
		FROM cards
	`).Scan(&n.Total, &n.Active, &n.Deleted)
	if err != nil {
		return n, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}
