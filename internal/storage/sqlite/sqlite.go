// Package sqlite is the file-backed Ledger built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nuxo/internal/core"
	"nuxo/internal/query"
	"nuxo/internal/storage"
)

const expenseColumns = "id, user_id, amount_cents, payment_method, installments, category, location, expense_date, created_at"

type Ledger struct {
	db *sql.DB
}

func NewLedger(dbPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of concurrent chat events.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func (l *Ledger) UpsertUser(ctx context.Context, externalID, displayName string) (core.User, error) {
	u := core.User{ExternalChatID: strings.TrimSpace(externalID), DisplayName: displayName}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO users (external_chat_id, display_name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(external_chat_id) DO NOTHING`,
		u.ExternalChatID, u.DisplayName, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	err = l.db.QueryRowContext(ctx,
		`SELECT id, external_chat_id, display_name FROM users WHERE external_chat_id = ?`,
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
	var installments sql.NullInt64
	if e.Installments != nil {
		installments = sql.NullInt64{Int64: int64(*e.Installments), Valid: true}
	}
	e.CreatedAt = time.Now().UTC()

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, payment_method, installments, category, location, expense_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, core.ToCents(e.Amount), string(e.PaymentMethod), installments,
		e.Category, e.Location, e.Date.ISO(), e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense id: %w", err)
	}
	e.ID = id
	return e, nil
}

func (l *Ledger) QueryExpenses(ctx context.Context, userID int64, spec core.FilterSpec) ([]core.Expense, error) {
	p, err := query.Build(userID, spec)
	if err != nil {
		return nil, err
	}
	where, args := p.Where(query.Question)
	rows, err := l.db.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE "+where+" "+query.OrderBy, args...)
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
	row := l.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e            core.Expense
		cents        int64
		method       string
		installments sql.NullInt64
		date         string
		created      string
	)
	if err := s.Scan(&e.ID, &e.UserID, &cents, &method, &installments, &e.Category, &e.Location, &date, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Amount = core.FromCents(cents)
	e.PaymentMethod = core.PaymentMethod(method)
	if installments.Valid {
		e.Installments = core.IntPtr(int(installments.Int64))
	}
	d, err := core.ParseISODate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	e.Date = d
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = t
	}
	return e, nil
}
