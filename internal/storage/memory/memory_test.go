package memory

import (
	"context"
	"errors"
	"testing"

	"nuxo/internal/core"
	"nuxo/internal/storage"
	"nuxo/internal/storage/storagetest"
)

func TestLedgerContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Ledger { return New() })
}

func TestInsertRequiresKnownUser(t *testing.T) {
	s := New()
	e := storagetest.Expense(42, core.NewDate(2024, 1, 1), "Lazer", core.Pix, "1")
	if _, err := s.InsertExpense(context.Background(), e); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
