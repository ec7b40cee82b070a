// Package storagetest holds the behaviour every Ledger implementation must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"nuxo/internal/core"
	"nuxo/internal/storage"
)

// Run exercises a fresh ledger returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Ledger) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		if err := open(t).Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})

	t.Run("upsert user is idempotent", func(t *testing.T) {
		l := open(t)
		u1, err := l.UpsertUser(ctx, "100", "Ana")
		if err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		u2, err := l.UpsertUser(ctx, "100", "Renamed")
		if err != nil {
			t.Fatalf("UpsertUser again: %v", err)
		}
		if u1.ID != u2.ID || u2.DisplayName != "Ana" {
			t.Fatalf("existing user must be returned untouched: %+v vs %+v", u1, u2)
		}
		other, _ := l.UpsertUser(ctx, "200", "Bia")
		if other.ID == u1.ID {
			t.Fatalf("distinct chats share id %d", other.ID)
		}
		if _, err := l.UpsertUser(ctx, " ", "x"); err == nil {
			t.Fatal("blank external id must be rejected")
		}
	})

	t.Run("concurrent upserts yield one user", func(t *testing.T) {
		l := open(t)
		ids := make(chan int64, 10)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u, err := l.UpsertUser(ctx, "300", "Caio")
				if err != nil {
					t.Errorf("UpsertUser: %v", err)
					return
				}
				ids <- u.ID
			}()
		}
		wg.Wait()
		close(ids)
		var first int64
		for id := range ids {
			if first == 0 {
				first = id
			}
			if id != first {
				t.Fatalf("got ids %d and %d for one chat", first, id)
			}
		}
	})

	t.Run("insert and query", func(t *testing.T) {
		l := open(t)
		u, _ := l.UpsertUser(ctx, "100", "Ana")
		other, _ := l.UpsertUser(ctx, "200", "Bia")

		credit := Expense(u.ID, core.NewDate(2024, 3, 31), "Vestuário", core.Credit, "300")
		credit.Installments = core.IntPtr(3)
		saved, err := l.InsertExpense(ctx, credit)
		if err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
		if saved.ID == 0 || saved.CreatedAt.IsZero() {
			t.Fatalf("insert must assign id and timestamp: %+v", saved)
		}
		mustInsert(t, l, Expense(u.ID, core.NewDate(2024, 3, 10), "Lazer", core.Pix, "12.34"))
		mustInsert(t, l, Expense(u.ID, core.NewDate(2024, 4, 1), "Lazer", core.Pix, "50"))
		mustInsert(t, l, Expense(u.ID, core.NewDate(2023, 12, 31), "Alimentação", core.Cash, "7.5"))
		mustInsert(t, l, Expense(other.ID, core.NewDate(2024, 3, 15), "Lazer", core.Pix, "99"))

		all, err := l.QueryExpenses(ctx, u.ID, core.FilterSpec{})
		if err != nil || len(all) != 4 {
			t.Fatalf("all-time query = %d rows, %v", len(all), err)
		}
		if !all[0].Date.Equal(core.NewDate(2024, 4, 1).Time) || !all[3].Date.Equal(core.NewDate(2023, 12, 31).Time) {
			t.Fatalf("rows not newest first: %v .. %v", all[0].Date.ISO(), all[3].Date.ISO())
		}

		year, month := 2024, 3
		march, err := l.QueryExpenses(ctx, u.ID, core.FilterSpec{Year: &year, Month: &month})
		if err != nil || len(march) != 2 {
			t.Fatalf("march query = %d rows, %v", len(march), err)
		}
		got := march[0]
		if got.PaymentMethod != core.Credit || got.Installments == nil || *got.Installments != 3 {
			t.Fatalf("credit round trip lost installments: %+v", got)
		}
		if !got.Amount.Equal(decimal.RequireFromString("300")) || got.Category != "Vestuário" || got.Location != "Loja" {
			t.Fatalf("round trip mismatch: %+v", got)
		}

		lazer, _ := l.QueryExpenses(ctx, u.ID, core.FilterSpec{Year: &year, Category: "Lazer", PaymentMethod: core.Pix})
		if len(lazer) != 2 {
			t.Fatalf("category+method query = %d rows", len(lazer))
		}
		if !lazer[1].Amount.Equal(decimal.RequireFromString("12.34")) {
			t.Fatalf("amount precision lost: %s", lazer[1].Amount)
		}

		none, err := l.QueryExpenses(ctx, u.ID, core.FilterSpec{Category: "Moradia"})
		if err != nil || none == nil || len(none) != 0 {
			t.Fatalf("empty result must be an empty slice: %#v, %v", none, err)
		}

		fetched, err := l.GetExpense(ctx, saved.ID)
		if err != nil || fetched.ID != saved.ID || fetched.UserID != u.ID {
			t.Fatalf("GetExpense = %+v, %v", fetched, err)
		}
		if _, err := l.GetExpense(ctx, 999999); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("month without year is rejected", func(t *testing.T) {
		l := open(t)
		u, _ := l.UpsertUser(ctx, "100", "Ana")
		month := 2
		if _, err := l.QueryExpenses(ctx, u.ID, core.FilterSpec{Month: &month}); !errors.Is(err, core.ErrMonthWithoutYear) {
			t.Fatalf("expected ErrMonthWithoutYear, got %v", err)
		}
	})

	t.Run("invalid rows are refused", func(t *testing.T) {
		l := open(t)
		u, _ := l.UpsertUser(ctx, "100", "Ana")
		bad := Expense(u.ID, core.NewDate(2024, 1, 1), "Lazer", core.Pix, "10")
		bad.Installments = core.IntPtr(2)
		if _, err := l.InsertExpense(ctx, bad); err == nil {
			t.Fatal("installments on pix must be refused")
		}
		zero := Expense(u.ID, core.NewDate(2024, 1, 1), "Lazer", core.Pix, "0")
		if _, err := l.InsertExpense(ctx, zero); err == nil {
			t.Fatal("zero amount must be refused")
		}
	})
}

// Expense builds a valid expense at "Loja".
func Expense(userID int64, date core.Date, category string, pm core.PaymentMethod, amount string) core.Expense {
	return core.Expense{
		UserID:        userID,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: pm,
		Category:      category,
		Location:      "Loja",
		Date:          date,
	}
}

func mustInsert(t *testing.T, l storage.Ledger, e core.Expense) core.Expense {
	t.Helper()
	saved, err := l.InsertExpense(context.Background(), e)
	if err != nil {
		t.Fatalf("InsertExpense: %v", err)
	}
	return saved
}
