// Package services orchestrates the ledger and the event stream behind the
// chat flows.
package services

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/singleflight"

	"nuxo/internal/amqp"
	"nuxo/internal/core"
	"nuxo/internal/log"
	"nuxo/internal/storage"
)

// Publisher announces stored expenses.
type Publisher interface {
	PublishExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error
}

// ExpenseService stores expenses first and publishes afterwards; a failed
// publish never fails the write.
type ExpenseService struct {
	ledger    storage.Ledger
	publisher Publisher
	users     singleflight.Group
	logger    *log.Logger
}

// NewExpenseService accepts a nil publisher when AMQP is disabled.
func NewExpenseService(ledger storage.Ledger, publisher Publisher, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		ledger:    ledger,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

// EnsureUser upserts the chat's user. Concurrent calls for one chat share a
// single ledger round trip, which outlives the cancellation of whichever
// caller happened to start it.
func (s *ExpenseService) EnsureUser(ctx context.Context, externalID, displayName string) (core.User, error) {
	v, err, _ := s.users.Do(externalID, func() (any, error) {
		return s.ledger.UpsertUser(context.WithoutCancel(ctx), externalID, displayName)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "User upsert failed",
			log.NewFields().WithChat(externalID).WithOperation(log.OpUpsertUser).WithError(err).ToSlice()...)
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return v.(core.User), nil
}

// RecordExpense inserts e and publishes expense.recorded.
func (s *ExpenseService) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.ledger.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	fields := log.NewFields().
		WithExpense(saved.ID, core.ToCents(saved.Amount), saved.Category, string(saved.PaymentMethod)).
		WithOperation(log.OpInsert)
	fields[log.FieldUserID] = saved.UserID
	s.logger.InfoContext(ctx, "Expense recorded", fields.ToSlice()...)

	if err := s.publish(ctx, saved); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense recorded message",
			log.FieldExpenseID, saved.ID, log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
	return saved, nil
}

func (s *ExpenseService) QueryExpenses(ctx context.Context, userID int64, spec core.FilterSpec) ([]core.Expense, error) {
	rows, err := s.ledger.QueryExpenses(ctx, userID, spec)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	return rows, nil
}

func (s *ExpenseService) publish(ctx context.Context, e core.Expense) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping message", log.FieldExpenseID, e.ID)
		return nil
	}
	msg := amqp.NewExpenseRecordedMessage(e.ID, e.UserID, core.ToCents(e.Amount),
		e.Category, string(e.PaymentMethod), log.CorrelationID(ctx))
	return s.publisher.PublishExpenseRecorded(ctx, msg)
}

// Close closes the ledger and, when it supports it, the publisher.
func (s *ExpenseService) Close() error {
	var errs []error
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}
	return nil
}
