// Package worker mirrors recorded expenses to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"nuxo/internal/amqp"
	"nuxo/internal/core"
	"nuxo/internal/log"
	"nuxo/internal/sheets"
	"nuxo/internal/storage"
)

// MirrorWorker appends every expense announced on the stream to the sheet.
type MirrorWorker struct {
	expenses storage.ExpenseReader
	sheet    sheets.RowAppender
	logger   *log.Logger
}

func NewMirrorWorker(expenses storage.ExpenseReader, sheet sheets.RowAppender, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		expenses: expenses,
		sheet:    sheet,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleExpenseRecorded loads the announced expense and appends it. A row
// that no longer exists is dropped; any other failure is returned so the
// message is redelivered.
func (w *MirrorWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	w.logger.InfoContext(ctx, "Processing expense recorded message",
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldUserID, msg.UserID,
		log.FieldOperation, log.OpConsume)

	e, err := w.expenses.GetExpense(ctx, msg.ExpenseID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Expense not found, dropping message", log.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense %d: %w", msg.ExpenseID, err)
	}

	return w.mirror(ctx, e)
}

func (w *MirrorWorker) mirror(ctx context.Context, e core.Expense) error {
	ref, err := w.sheet.Append(ctx, e)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	fields := log.NewFields().
		WithExpense(e.ID, core.ToCents(e.Amount), e.Category, string(e.PaymentMethod)).
		WithOperation(log.OpAppend)
	fields["sheets_ref"] = ref
	w.logger.InfoContext(ctx, "Mirrored expense", fields.ToSlice()...)
	return nil
}
