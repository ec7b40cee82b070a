// Package storage defines the persistence ports of the ledger. Implementations
// live in the memory, sqlite and postgres subpackages.
package storage

import (
	"context"
	"errors"

	"nuxo/internal/core"
)

var ErrNotFound = errors.New("not found")

type (
	// UserStore maps external chat ids to internal users. Existing users are
	// returned unchanged; users are never deleted.
	UserStore interface {
		UpsertUser(ctx context.Context, externalID, displayName string) (core.User, error)
	}

	ExpenseWriter interface {
		// InsertExpense validates e, stores it and returns it with ID and CreatedAt set.
		InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	ExpenseReader interface {
		// QueryExpenses returns the user's expenses matching spec, newest first.
		// No match yields an empty slice and a nil error.
		QueryExpenses(ctx context.Context, userID int64, spec core.FilterSpec) ([]core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
	}

	Ledger interface {
		UserStore
		ExpenseWriter
		ExpenseReader
		// Ping reports whether the backing store is reachable.
		Ping(ctx context.Context) error
		Close() error
	}
)
