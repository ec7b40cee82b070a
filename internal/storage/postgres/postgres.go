// Package postgres is the Ledger for shared deployments, built on a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nuxo/internal/core"
	"nuxo/internal/query"
	"nuxo/internal/storage"
)

const expenseColumns = "id, user_id, amount_cents, payment_method, installments, category, location, expense_date, created_at"

type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger migrates the schema and opens a connection pool.
func NewLedger(ctx context.Context, databaseURL string) (*Ledger, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Ledger{pool: pool}, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *Ledger) Close() error {
	l.pool.Close()
	return nil
}

func (l *Ledger) UpsertUser(ctx context.Context, externalID, displayName string) (core.User, error) {
	u := core.User{ExternalChatID: strings.TrimSpace(externalID), DisplayName: displayName}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO users (external_chat_id, display_name) VALUES ($1, $2)
		 ON CONFLICT (external_chat_id) DO NOTHING`,
		u.ExternalChatID, u.DisplayName)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	err = l.pool.QueryRow(ctx,
		`SELECT id, external_chat_id, display_name FROM users WHERE external_chat_id = $1`,
		u.ExternalChatID).Scan(&u.ID, &u.ExternalChatID, &u.DisplayName)
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (l *Ledger) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	var installments *int32
	if e.Installments != nil {
		n := int32(*e.Installments)
		installments = &n
	}
	err := l.pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, amount_cents, payment_method, installments, category, location, expense_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		e.UserID, core.ToCents(e.Amount), string(e.PaymentMethod), installments,
		e.Category, e.Location, e.Date.Time).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (l *Ledger) QueryExpenses(ctx context.Context, userID int64, spec core.FilterSpec) ([]core.Expense, error) {
	p, err := query.Build(userID, spec)
	if err != nil {
		return nil, err
	}
	where, args := p.Where(query.Dollar)
	rows, err := l.pool.Query(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE "+where+" "+query.OrderBy, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (l *Ledger) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(l.pool.QueryRow(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return e, err
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e            core.Expense
		cents        int64
		method       string
		installments *int32
		date         time.Time
	)
	if err := row.Scan(&e.ID, &e.UserID, &cents, &method, &installments, &e.Category, &e.Location, &date, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Amount = core.FromCents(cents)
	e.PaymentMethod = core.PaymentMethod(method)
	if installments != nil {
		e.Installments = core.IntPtr(int(*installments))
	}
	e.Date = core.DateOf(date)
	return e, nil
}
