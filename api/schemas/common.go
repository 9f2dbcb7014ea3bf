// Package schemas holds the domain models shared by the test scenarios, the
// API client, and the test-data store.
package schemas

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Entity carries the identity and timestamps every domain aggregate shares.
type Entity struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewEntity creates an Entity with a fresh UUID and creation timestamp.
func NewEntity() Entity {
	return Entity{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}

// Touch records a modification time.
func (e *Entity) Touch() {
	now := time.Now().UTC()
	e.UpdatedAt = &now
}

// Age returns how long ago the entity was created.
func (e *Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// Validate checks timestamp consistency.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return errs.NewValidationError("id", "must not be empty")
	}
	if e.UpdatedAt != nil && e.UpdatedAt.Before(e.CreatedAt) {
		return errs.NewValidationError("updated_at", "cannot be earlier than created_at")
	}
	return nil
}

// Currency is an ISO 4217 currency code supported by the shop.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
)

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	switch c {
	case USD:
		return "$"
	case EUR:
		return "€"
	case GBP:
		return "£"
	case JPY:
		return "¥"
	default:
		return string(c)
	}
}

// Valid reports whether the currency is one the shop supports.
func (c Currency) Valid() bool {
	switch c {
	case USD, EUR, GBP, JPY:
		return true
	}
	return false
}

// Money is a value object for monetary amounts. Amounts are stored in the
// currency's minor unit (cents) to keep arithmetic exact.
type Money struct {
	Cents    int64    `json:"cents"`
	Currency Currency `json:"currency"`
}

// NewMoney builds a Money value in the given currency.
func NewMoney(cents int64, currency Currency) Money {
	return Money{Cents: cents, Currency: currency}
}

// Validate checks the amount and currency.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return errs.NewValidationError("cents", "amount must not be negative")
	}
	if !m.Currency.Valid() {
		return errs.NewValidationError("currency", fmt.Sprintf("unsupported currency %q", m.Currency))
	}
	return nil
}

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, errs.NewValidationError("currency",
			fmt.Sprintf("cannot add %s and %s", m.Currency, other.Currency))
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

// Multiply scales the amount by an integer factor.
func (m Money) Multiply(factor int64) Money {
	return Money{Cents: m.Cents * factor, Currency: m.Currency}
}

// String renders the amount with its currency symbol, e.g. "$29.99".
func (m Money) String() string {
	return fmt.Sprintf("%s%d.%02d", m.Currency.Symbol(), m.Cents/100, m.Cents%100)
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Address is a postal address used for billing and shipping.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Validate checks the address fields.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Street) == "" {
		return errs.NewValidationError("street", "must not be empty")
	}
	if strings.TrimSpace(a.City) == "" {
		return errs.NewValidationError("city", "must not be empty")
	}
	if len(a.PostalCode) < 3 {
		return errs.NewValidationError("postal_code", "too short")
	}
	if len(a.Country) < 2 || len(a.Country) > 3 {
		return errs.NewValidationError("country", "must be an ISO 2- or 3-letter code")
	}
	return nil
}

// String renders the address on one line.
func (a Address) String() string {
	parts := []string{a.Street, a.City}
	if a.State != "" {
		parts = append(parts, fmt.Sprintf("%s %s", a.State, a.PostalCode))
	} else {
		parts = append(parts, a.PostalCode)
	}
	parts = append(parts, a.Country)
	return strings.Join(parts, ", ")
}

// Contact holds the ways to reach a user. At least one method is required.
type Contact struct {
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}

// Validate checks that at least one contact method is present and well formed.
func (c Contact) Validate() error {
	if c.Email == "" && c.Phone == "" && c.Mobile == "" {
		return errs.NewValidationError("contact", "at least one contact method must be provided")
	}
	if c.Email != "" && !emailPattern.MatchString(c.Email) {
		return errs.NewValidationError("email", "invalid email address")
	}
	return nil
}

// Audit tracks who changed an entity and from where.
type Audit struct {
	CreatedBy string `json:"created_by,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
	SourceIP  string `json:"source_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Pagination is the standard collection metadata returned by list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
}

// TotalPages computes how many pages the collection spans.
func (p Pagination) TotalPages() int {
	if p.TotalItems == 0 || p.PageSize == 0 {
		return 0
	}
	return (p.TotalItems + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrevious reports whether a preceding page exists.
func (p Pagination) HasPrevious() bool {
	return p.Page > 1
}

// ToJSON serializes any schema value.
func ToJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// FromJSON deserializes into a schema value.
func FromJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
