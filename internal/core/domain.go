package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds surfaced by the engine. Callers match with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientSavings = errors.New("insufficient savings")
	ErrConfiguration       = errors.New("invalid configuration")
)

// Category is the closed set of spending categories. The zero value means
// "no category" (savings entries carry none).
type Category int

const (
	CategoryFood Category = iota + 1
	CategoryHome
	CategoryWork
	CategoryFun
	CategoryMisc
)

var categoryNames = map[Category]string{
	CategoryFood: "Food",
	CategoryHome: "Home",
	CategoryWork: "Work/Study",
	CategoryFun:  "Fun",
	CategoryMisc: "Miscellaneous",
}

// Categories returns all spending categories in their fixed allocation order.
func Categories() []Category {
	return []Category{CategoryFood, CategoryHome, CategoryWork, CategoryFun, CategoryMisc}
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ParseCategory resolves a category name. Unknown names are a configuration
// error, not a runtime one: the category set is closed.
func ParseCategory(name string) (Category, error) {
	trimmed := strings.TrimSpace(name)
	for c, n := range categoryNames {
		if n == trimmed {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown category %q", ErrConfiguration, name)
}

// MarshalText lets Category serve as a JSON object key.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: unknown category %d", ErrConfiguration, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// EntryKind discriminates ledger entries. The amount of an entry is always a
// positive magnitude; the kind implies the sign.
type EntryKind string

const (
	KindExpense           EntryKind = "expense"
	KindSavingsDeposit    EntryKind = "savings_deposit"
	KindSavingsWithdrawal EntryKind = "savings_withdrawal"
)

func (k EntryKind) Valid() bool {
	switch k {
	case KindExpense, KindSavingsDeposit, KindSavingsWithdrawal:
		return true
	}
	return false
}

// LedgerEntry is one immutable financial event. Entries are never edited or
// removed after append; corrections are new offsetting entries that reference
// the corrected entry's id in Note. Ordering by ID is append order and is the
// authoritative ordering for balance computation, even when timestamps collide.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EntryKind `json:"kind"`
	Category  Category  `json:"category,omitempty"` // expenses only
	Amount    Money     `json:"amount"`
	Note      string    `json:"note,omitempty"`
}

func (e LedgerEntry) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown entry kind %q", ErrInvalidInput, string(e.Kind))
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidInput)
	}
	switch e.Kind {
	case KindExpense:
		if !e.Category.Valid() {
			return fmt.Errorf("%w: expense requires a category", ErrInvalidInput)
		}
	default:
		if e.Category != 0 {
			return fmt.Errorf("%w: savings entries carry no category", ErrInvalidInput)
		}
	}
	if len(e.Note) > 200 {
		return fmt.Errorf("%w: note too long (max 200 characters)", ErrInvalidInput)
	}
	return nil
}

// Period identifies one budgeting cycle (a calendar month).
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// ParsePeriod parses a period id in "YYYY-MM" form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("%w: bad period %q", ErrInvalidInput, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) Validate() error {
	if p.Year < 1 || p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: bad period %q", ErrInvalidInput, p.String())
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalText renders the period as its "YYYY-MM" id.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(p.Start()) && u.Before(p.End())
}

// Days returns the number of days in the period's month.
func (p Period) Days() int {
	return p.End().AddDate(0, 0, -1).Day()
}
