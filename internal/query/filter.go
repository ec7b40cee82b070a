// Package query turns a FilterSpec into a predicate over a user's expenses,
// either rendered as SQL or applied to rows held in memory.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"nuxo/internal/core"
)

// DateRange is the half-open interval [Start, End). An unbounded range
// matches every date.
type DateRange struct {
	Start   time.Time
	End     time.Time
	Bounded bool
}

// BuildDateRange derives the period selected by year and month. December
// rolls over into January of the following year.
func BuildDateRange(year, month *int) (DateRange, error) {
	if month != nil && year == nil {
		return DateRange{}, core.ErrMonthWithoutYear
	}
	if year == nil {
		return DateRange{}, nil
	}
	if month == nil {
		start := time.Date(*year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return DateRange{Start: start, End: start.AddDate(1, 0, 0), Bounded: true}, nil
	}
	if *month < 1 || *month > 12 {
		return DateRange{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, *month)
	}
	start := time.Date(*year, time.Month(*month), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 1, 0), Bounded: true}, nil
}

func (r DateRange) Contains(d core.Date) bool {
	if !r.Bounded {
		return true
	}
	return !d.Before(r.Start) && d.Before(r.End)
}

// Predicate selects one user's expenses.
type Predicate struct {
	UserID        int64
	Range         DateRange
	Category      string
	PaymentMethod core.PaymentMethod
}

// Build combines the owner with the optional constraints of spec. Category is
// compared exactly, so callers pass the canonical form.
func Build(userID int64, spec core.FilterSpec) (Predicate, error) {
	if err := spec.Validate(); err != nil {
		return Predicate{}, err
	}
	r, err := BuildDateRange(spec.Year, spec.Month)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{
		UserID:        userID,
		Range:         r,
		Category:      spec.Category,
		PaymentMethod: spec.PaymentMethod,
	}, nil
}

func (p Predicate) Matches(e core.Expense) bool {
	if e.UserID != p.UserID {
		return false
	}
	if !p.Range.Contains(e.Date) {
		return false
	}
	if p.Category != "" && e.Category != p.Category {
		return false
	}
	if p.PaymentMethod != "" && e.PaymentMethod != p.PaymentMethod {
		return false
	}
	return true
}

// Apply filters rows and returns them newest first.
func Apply(p Predicate, rows []core.Expense) []core.Expense {
	out := make([]core.Expense, 0)
	for _, e := range rows {
		if p.Matches(e) {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders by date descending, then id descending.
func SortNewestFirst(rows []core.Expense) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date.Time) {
			return rows[i].Date.After(rows[j].Date.Time)
		}
		return rows[i].ID > rows[j].ID
	})
}

// Placeholder selects the bind parameter syntax of a SQL dialect.
type Placeholder int

const (
	Question Placeholder = iota // sqlite: ?
	Dollar                      // postgres: $1, $2, ...
)

// OrderBy matches SortNewestFirst.
const OrderBy = "ORDER BY expense_date DESC, id DESC"

// Where renders the predicate for the expenses table. Dates bind as ISO
// strings for Question and as time.Time for Dollar.
func (p Predicate) Where(style Placeholder) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	bind := func(v any) string {
		args = append(args, v)
		if style == Dollar {
			return fmt.Sprintf("$%d", len(args))
		}
		return "?"
	}
	date := func(t time.Time) any {
		if style == Dollar {
			return t
		}
		return t.Format("2006-01-02")
	}

	clauses = append(clauses, "user_id = "+bind(p.UserID))
	if p.Range.Bounded {
		clauses = append(clauses, "expense_date >= "+bind(date(p.Range.Start)))
		clauses = append(clauses, "expense_date < "+bind(date(p.Range.End)))
	}
	if p.PaymentMethod != "" {
		clauses = append(clauses, "payment_method = "+bind(string(p.PaymentMethod)))
	}
	if p.Category != "" {
		clauses = append(clauses, "category = "+bind(p.Category))
	}
	return strings.Join(clauses, " AND "), args
}
