// Package flows implements the chat forms: expense registration, the
// filtered summary and the spreadsheet export.
package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nuxo/internal/config"
	"nuxo/internal/core"
	"nuxo/internal/form"
	"nuxo/internal/log"
	"nuxo/internal/report"
	"nuxo/internal/session"
)

const (
	KindRegistration  session.Kind = "registration"
	KindVisualization session.Kind = "visualization"
	KindExport        session.Kind = "export"
)

// Failure classes. Each one maps to a fixed user message.
var (
	ErrIdentity    = errors.New("user identity unavailable")
	ErrPersistence = errors.New("ledger unavailable")
	ErrRendering   = errors.New("spreadsheet rendering failed")
	ErrFileMissing = errors.New("rendered file missing")
)

const (
	msgIdentityFailed    = "⚠️ Não foi possível identificar seu usuário agora. Tente novamente mais tarde."
	msgPersistenceFailed = "❌ Erro ao salvar o gasto. Tente novamente mais tarde."
	msgQueryFailed       = "⚠️ Não foi possível consultar seus gastos agora. Tente novamente mais tarde."
	msgRenderFailed      = "❌ Erro ao gerar a planilha. Tente novamente mais tarde."
	msgFileMissing       = "❌ O arquivo da planilha não foi encontrado. Tente novamente."
	msgPickOption        = "Por favor, escolha uma das opções abaixo."
)

// AgainToken restarts the visualization form from its result message.
const AgainToken = "view:again"

// Expenses is what the forms need from the expense service.
type Expenses interface {
	EnsureUser(ctx context.Context, externalID, displayName string) (core.User, error)
	RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	QueryExpenses(ctx context.Context, userID int64, spec core.FilterSpec) ([]core.Expense, error)
}

// Renderer writes rows to a spreadsheet file and returns its path.
type Renderer interface {
	Render(ctx context.Context, rows []core.Expense, owner string) (string, error)
}

// Deps are shared by every flow.
type Deps struct {
	Expenses Expenses
	Catalog  *config.Catalog
	Format   report.Formatter
	Logger   *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Catalog == nil {
		d.Catalog = config.DefaultCatalog()
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.Format == (report.Formatter{}) {
		d.Format = report.NewFormatter("pt-BR")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.Logger = d.Logger.WithComponent(log.ComponentForm)
	return d
}

func (d Deps) label(pm core.PaymentMethod) string {
	return d.Catalog.Label(pm)
}

// ensureUser wraps upsert failures in ErrIdentity.
func (d Deps) ensureUser(ctx context.Context, s form.Sender) (core.User, error) {
	u, err := d.Expenses.EnsureUser(ctx, s.ExternalID, s.DisplayName)
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %w", ErrIdentity, err)
	}
	return u, nil
}

// fail ends the form in the Failed state after logging the classified error.
func (d Deps) fail(ctx context.Context, fc *session.FormContext, ev form.Event, err error, msg string) form.Transition {
	fields := log.NewFields().
		WithChat(ev.Sender.ExternalID).
		WithStep(string(fc.Flow), fc.State, ev.Kind.String()).
		WithError(err)
	fields[log.FieldOutcome] = form.StateFailed
	d.Logger.ErrorContext(ctx, "Form failed", fields.ToSlice()...)
	return form.Transition{Next: form.StateFailed, Responses: []form.Response{form.Say(msg)}}
}

func cancelRow() []form.Choice {
	return form.Row(form.Choice{Label: "❌ Cancelar", Token: form.CancelToken})
}

// token returns the value of a button token "prefix:value".
func token(ev form.Event, prefix string) (string, bool) {
	if ev.Kind != form.EventButton {
		return "", false
	}
	return strings.CutPrefix(ev.Token, prefix+":")
}

// choice reads a button token or, failing that, the typed text.
func choice(ev form.Event, prefix string) string {
	if v, ok := token(ev, prefix); ok {
		return v
	}
	if ev.Kind == form.EventText {
		return strings.TrimSpace(ev.Text)
	}
	return ""
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

func paymentChoices(c *config.Catalog) []form.Choice {
	out := make([]form.Choice, 0, len(c.PaymentMethods))
	for _, m := range c.PaymentMethods {
		out = append(out, form.Choice{Label: m.Label, Token: "pm:" + string(m.Code)})
	}
	return out
}

func categoryChoices(c *config.Catalog) []form.Choice {
	out := make([]form.Choice, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, form.Choice{Label: cat, Token: "cat:" + cat})
	}
	return out
}

// DescribeFilter renders spec as "Março de 2025 - Crédito - Lazer".
func DescribeFilter(spec core.FilterSpec, label func(core.PaymentMethod) string) string {
	var parts []string
	switch {
	case spec.Year != nil && spec.Month != nil:
		parts = append(parts, fmt.Sprintf("%s de %d", report.MonthName(*spec.Month), *spec.Year))
	case spec.Year != nil:
		parts = append(parts, fmt.Sprintf("Ano de %d", *spec.Year))
	default:
		parts = append(parts, "Todo o período")
	}
	if spec.PaymentMethod != "" {
		parts = append(parts, label(spec.PaymentMethod))
	}
	if spec.Category != "" {
		parts = append(parts, spec.Category)
	}
	return strings.Join(parts, " - ")
}
