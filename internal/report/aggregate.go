// Package report aggregates expenses into totals and renders them as chat text.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"nuxo/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Group is the total of one key and its share of the grand total, in percent.
type Group struct {
	Key     string
	Total   decimal.Decimal
	Percent decimal.Decimal
}

// Total sums the amounts of expenses.
func Total(expenses []core.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// PercentageOf is part/whole*100 rounded to one decimal; zero when whole is zero.
func PercentageOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 1)
}

// GroupTotals buckets expenses by key, largest total first. Ties are ordered
// by key so output is stable.
func GroupTotals(expenses []core.Expense, key func(core.Expense) string) []Group {
	if len(expenses) == 0 {
		return []Group{}
	}
	totals := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		k := key(e)
		totals[k] = totals[k].Add(e.Amount)
	}
	grand := Total(expenses)

	groups := make([]Group, 0, len(totals))
	for k, v := range totals {
		groups = append(groups, Group{Key: k, Total: v, Percent: PercentageOf(v, grand)})
	}
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].Total.Cmp(groups[j].Total); c != 0 {
			return c > 0
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

func ByCategory(expenses []core.Expense) []Group {
	return GroupTotals(expenses, func(e core.Expense) string { return e.Category })
}

// ByPaymentMethod groups by the display label returned by label.
func ByPaymentMethod(expenses []core.Expense, label func(core.PaymentMethod) string) []Group {
	return GroupTotals(expenses, func(e core.Expense) string { return label(e.PaymentMethod) })
}
