// Package sheets mirrors recorded expenses into a spreadsheet.
package sheets

import (
	"context"
	"strconv"

	"nuxo/internal/core"
)

// Header is the column layout of the mirror sheet.
var Header = []any{"ID", "Usuário", "Data", "Valor", "Forma de Pagamento", "Parcelas", "Categoria", "Local"}

// RowAppender adds one expense as a row and returns a reference to it.
type RowAppender interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}

// Row renders e in Header order. label maps payment methods to display text.
func Row(e core.Expense, label func(core.PaymentMethod) string) []any {
	installments := ""
	if e.Installments != nil {
		installments = strconv.Itoa(*e.Installments)
	}
	return []any{
		e.ID,
		e.UserID,
		e.Date.Display(),
		e.Amount.StringFixed(2),
		label(e.PaymentMethod),
		installments,
		e.Category,
		e.Location,
	}
}
