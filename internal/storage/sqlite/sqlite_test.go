package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"nuxo/internal/core"
	"nuxo/internal/storage"
	"nuxo/internal/storage/storagetest"
)

func openTemp(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(filepath.Join(t.TempDir(), "data", "nuxo.db"))
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Ledger { return openTemp(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nuxo.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nuxo.db")
	ctx := context.Background()

	l, err := NewLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	u, _ := l.UpsertUser(ctx, "7", "Dani")
	saved, err := l.InsertExpense(ctx, storagetest.Expense(u.ID, core.NewDate(2024, 5, 1), "Moradia", core.Debit, "1500"))
	if err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = NewLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	got, err := l.GetExpense(ctx, saved.ID)
	if err != nil || got.Category != "Moradia" || got.Date.ISO() != "2024-05-01" {
		t.Fatalf("GetExpense after reopen = %+v, %v", got, err)
	}
}

func TestSchemaRejectsInstallmentsOnDebit(t *testing.T) {
	l := openTemp(t)
	ctx := context.Background()
	u, _ := l.UpsertUser(ctx, "7", "Dani")
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, payment_method, installments, category, location, expense_date, created_at)
		 VALUES (?, 100, 'debit', 2, 'Lazer', 'x', '2024-01-01', '2024-01-01T00:00:00Z')`, u.ID)
	if err == nil {
		t.Fatal("schema must refuse installments on debit")
	}
}
