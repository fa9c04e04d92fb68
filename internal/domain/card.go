package domain

import (
	"strings"
	"time"
)

// CardState enumerates the lifecycle states of a card record.
type CardState string

const (
	CardActive  CardState = "active"
	CardDeleted CardState = "deleted"
)

// Valid reports whether s is a known state.
func (s CardState) Valid() bool {
	return s == CardActive || s == CardDeleted
}

// CardFields holds the editable contact fields of a visiting card. Absent
// values are the empty string.
type CardFields struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
	City    string `json:"city"`
}

// Values returns the fields in export column order.
func (f CardFields) Values() []string {
	return []string{f.Name, f.Company, f.Phone, f.Email, f.Website, f.City}
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f CardFields) Trimmed() CardFields {
	return CardFields{
		Name:    strings.TrimSpace(f.Name),
		Company: strings.TrimSpace(f.Company),
		Phone:   strings.TrimSpace(f.Phone),
		Email:   strings.TrimSpace(f.Email),
		Website: strings.TrimSpace(f.Website),
		City:    strings.TrimSpace(f.City),
	}
}

// IsEmpty reports whether every field is blank.
func (f CardFields) IsEmpty() bool {
	for _, v := range f.Values() {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Matches reports whether any field contains term, ignoring case. A blank
// term matches everything.
func (f CardFields) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, v := range f.Values() {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// Card is a stored visiting-card record.
type Card struct {
	ID string `json:"id" db:"id"`
	CardFields
	State     CardState  `json:"state" db:"state"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive returns true if the card is visible in standard listings.
func (c *Card) IsActive() bool {
	return c.State == CardActive
}

// Clone returns a deep copy of the card so callers never share a mutable
// DeletedAt pointer with the store.
func (c *Card) Clone() *Card {
	out := *c
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}

// Counts is a snapshot of record totals by state.
type Counts struct {
	Total   int `json:"total_docs"`
	Active  int `json:"active_docs"`
	Deleted int `json:"deleted_docs"`
}
