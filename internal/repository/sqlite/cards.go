// Package sqlite stores cards in a single SQLite file using the pure-Go
// modernc driver, for single-node deployments without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/repository/sqlite/migrations"
	"github.com/ignite/cardscan/internal/service/cards"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const cardColumns = `id, name, company, phone, email, website, city, state, deleted_at, created_at, updated_at`

// CardRepo implements cards.Repository on SQLite.
type CardRepo struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*CardRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &CardRepo{db: db}, nil
}

// DB exposes the handle for health checks.
func (r *CardRepo) DB() *sql.DB { return r.db }

// Close closes the database.
func (r *CardRepo) Close() error { return r.db.Close() }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(s rowScanner) (*domain.Card, error) {
	var (
		c                    domain.Card
		state                string
		deletedAt            sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Company, &c.Phone, &c.Email, &c.Website, &c.City,
		&state, &deletedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.State = domain.CardState(state)

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if deletedAt.Valid {
		t, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse deleted_at: %w", err)
		}
		c.DeletedAt = &t
	}
	return &c, nil
}

func (r *CardRepo) Insert(ctx context.Context, c *domain.Card) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (id, name, company, phone, email, website, city, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Company, c.Phone, c.Email, c.Website, c.City, string(c.State),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (r *CardRepo) Get(ctx context.Context, id string) (*domain.Card, error) {
	c, err := scanCard(r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
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
		SET name = ?, company = ?, phone = ?, email = ?, website = ?, city = ?, updated_at = ?
		WHERE id = ? AND state = 'active'
		RETURNING `+cardColumns,
		f.Name, f.Company, f.Phone, f.Email, f.Website, f.City, formatTime(ts), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrState(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	return c, nil
}

func (r *CardRepo) SetState(ctx context.Context, id string, state domain.CardState, ts time.Time) (*domain.Card, error) {
	var (
		query string
		args  []any
	)
	switch state {
	case domain.CardDeleted:
		query = `UPDATE cards SET state = 'deleted', deleted_at = ?, updated_at = ?
			WHERE id = ? AND state = 'active' RETURNING ` + cardColumns
		args = []any{formatTime(ts), formatTime(ts), id}
	case domain.CardActive:
		query = `UPDATE cards SET state = 'active', deleted_at = NULL, updated_at = ?
			WHERE id = ? AND state = 'deleted' RETURNING ` + cardColumns
		args = []any{formatTime(ts), id}
	default:
		return nil, fmt.Errorf("set state: unknown state %q", state)
	}

	c, err := scanCard(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missOrState(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("set card state: %w", err)
	}
	return c, nil
}

func (r *CardRepo) missOrState(ctx context.Context, id string) error {
	var state string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM cards WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return cards.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup card state: %w", err)
	}
	return fmt.Errorf("%w: card %s is %s", cards.ErrInvalidState, id, state)
}

// ListByState filters by term in Go: SQLite's lower() only folds ASCII.
func (r *CardRepo) ListByState(ctx context.Context, state domain.CardState, term string) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE state = ? ORDER BY seq`, string(state))
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
		if c.Matches(term) {
			out = append(out, *c)
		}
	}
	return out, rows.Err()
}

func (r *CardRepo) Count(ctx context.Context) (domain.Counts, error) {
	var n domain.Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN state = 'active' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN state = 'deleted' THEN 1 ELSE 0 END), 0)
		FROM cards`).Scan(&n.Total, &n.Active, &n.Deleted)
	if err != nil {
		return n, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}
