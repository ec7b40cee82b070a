package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"nuxo/internal/core"
	"nuxo/internal/form"
	"nuxo/internal/log"
	"nuxo/internal/session"
)

const (
	stateAmount       = "awaiting_amount"
	stateDate         = "awaiting_date"
	statePayment      = "awaiting_payment_method"
	stateInstallments = "awaiting_installments"
	stateCategory     = "awaiting_category"
	stateLocation     = "awaiting_location"
	stateConfirmation = "awaiting_confirmation"
)

const (
	fieldAmount       = "amount"
	fieldDate         = "date"
	fieldDateText     = "date_text"
	fieldPayment      = "payment_method"
	fieldInstallments = "installments"
	fieldCategory     = "category"
	fieldLocation     = "location"
)

const (
	todayToken   = "date:today"
	confirmYes   = "confirm:yes"
	confirmNo    = "confirm:no"
	msgAskAmount = "Qual é o valor do gasto?\n📌 Digite apenas números (use ponto ou vírgula para centavos).\nExemplo: 15.90 ou 15,90"
	msgAskDate   = "Qual a data do gasto?\n📌 Digite no formato DD/MM/AAAA ou toque em 'Hoje'."
)

// Registration collects one expense and stores it after confirmation.
type Registration struct {
	deps Deps
}

func NewRegistration(deps Deps) *Registration {
	return &Registration{deps: deps.withDefaults()}
}

func (r *Registration) Kind() session.Kind { return KindRegistration }

func (r *Registration) Begin(_ context.Context, _ *session.FormContext, _ form.Event) (form.Transition, error) {
	return form.Transition{
		Next: stateAmount,
		Responses: []form.Response{
			form.Say("Vamos registrar um novo gasto! 📝\n\nPara cancelar a qualquer momento, envie /cancelar."),
			form.Say(msgAskAmount),
		},
	}, nil
}

func (r *Registration) Step(ctx context.Context, fc *session.FormContext, ev form.Event) (form.Transition, error) {
	switch fc.State {
	case stateAmount:
		return r.amount(fc, ev)
	case stateDate:
		return r.date(fc, ev)
	case statePayment:
		return r.payment(fc, ev)
	case stateInstallments:
		return r.installments(fc, ev)
	case stateCategory:
		return r.category(fc, ev)
	case stateLocation:
		return r.location(fc, ev)
	case stateConfirmation:
		return r.confirm(ctx, fc, ev)
	}
	return form.Transition{}, fmt.Errorf("registration: unknown state %q", fc.State)
}

func (r *Registration) amount(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	amount, err := core.ParseAmount(ev.Input())
	if err != nil {
		return form.Transition{}, form.Reject(err,
			form.Say("Valor inválido! Digite um número maior que zero.\nExemplo: 15.90 ou 15,90"))
	}
	fc.Set(fieldAmount, amount.StringFixed(2))
	return r.next(stateDate, r.askDate()), nil
}

func (r *Registration) askDate() form.Response {
	return form.Ask(msgAskDate, form.Row(form.Choice{Label: "Hoje", Token: todayToken}), cancelRow())
}

func (r *Registration) date(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	var d core.Date
	var text string
	if ev.Kind == form.EventButton && ev.Token == todayToken {
		d = core.DateOf(r.deps.Now())
		text = d.Display()
	} else {
		parsed, err := core.ParseDisplayDate(ev.Input())
		if err != nil {
			return form.Transition{}, form.Reject(err,
				form.Say("Formato de data inválido! Use DD/MM/AAAA.\nExemplo: 25/10/2023"), r.askDate())
		}
		d = parsed
		text = strings.TrimSpace(ev.Input())
	}
	fc.Set(fieldDate, d.ISO())
	fc.Set(fieldDateText, text)
	return r.next(statePayment, r.askPayment()), nil
}

func (r *Registration) askPayment() form.Response {
	rows := form.Grid(paymentChoices(r.deps.Catalog), 2)
	return form.Ask("Qual a forma de pagamento?", append(rows, cancelRow())...)
}

func (r *Registration) payment(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	pm, ok := r.deps.Catalog.MethodByInput(choice(ev, "pm"))
	if !ok || !r.deps.Catalog.Offers(pm) {
		return form.Transition{}, form.Reject(core.ErrInvalidPayment, form.Say(msgPickOption), r.askPayment())
	}
	fc.Set(fieldPayment, string(pm))
	if pm == core.Credit {
		return r.next(stateInstallments, r.askInstallments()), nil
	}
	fc.Unset(fieldInstallments)
	return r.next(stateCategory, r.askCategory()), nil
}

func (r *Registration) askInstallments() form.Response {
	choices := make([]form.Choice, 0, core.MaxInstallments)
	for n := 1; n <= core.MaxInstallments; n++ {
		choices = append(choices, form.Choice{Label: fmt.Sprintf("%dx", n), Token: fmt.Sprintf("inst:%d", n)})
	}
	return form.Ask("Em quantas parcelas?", append(form.Grid(choices, 4), cancelRow())...)
}

func (r *Registration) installments(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	n, ok := atoi(strings.TrimSuffix(strings.ToLower(choice(ev, "inst")), "x"))
	if !ok || n < 1 || n > core.MaxInstallments {
		return form.Transition{}, form.Reject(core.ErrInvalidInstallments, form.Say(msgPickOption), r.askInstallments())
	}
	fc.Set(fieldInstallments, fmt.Sprint(n))
	return r.next(stateCategory, r.askCategory()), nil
}

func (r *Registration) askCategory() form.Response {
	rows := form.Grid(categoryChoices(r.deps.Catalog), 2)
	return form.Ask("Qual a categoria do gasto?\n📌 Escolha uma opção ou digite outra.", append(rows, cancelRow())...)
}

func (r *Registration) category(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	in := choice(ev, "cat")
	cat := r.deps.Catalog.CanonicalCategory(in)
	if cat == "" || isAll(in) {
		return form.Transition{}, form.Reject(core.ErrEmptyCategory, form.Say(msgPickOption), r.askCategory())
	}
	fc.Set(fieldCategory, cat)
	return r.next(stateLocation, form.Say("Onde foi o gasto? Informe o local ou estabelecimento.")), nil
}

func (r *Registration) location(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	if ev.Kind != form.EventText {
		return form.Transition{}, form.Reject(core.ErrEmptyLocation, form.Say("Por favor, digite o local do gasto."))
	}
	loc := strings.TrimSpace(ev.Text)
	if loc == "" {
		return form.Transition{}, form.Reject(core.ErrEmptyLocation, form.Say("O local não pode ficar vazio. Digite o local do gasto."))
	}
	if utf8.RuneCountInString(loc) > core.MaxLocation {
		return form.Transition{}, form.Reject(core.ErrLocationTooLong,
			form.Say(fmt.Sprintf("O local deve ter no máximo %d caracteres. Digite novamente.", core.MaxLocation)))
	}
	fc.Set(fieldLocation, loc)

	e, err := r.draft(fc)
	if err != nil {
		return form.Transition{}, err
	}
	return r.next(stateConfirmation, r.askConfirmation(fc, e)), nil
}

func (r *Registration) askConfirmation(fc *session.FormContext, e core.Expense) form.Response {
	return form.Ask(r.describe("📋 Confira os dados do gasto:", e, fc.Value(fieldDateText)),
		form.Row(
			form.Choice{Label: "✅ Confirmar", Token: confirmYes},
			form.Choice{Label: "❌ Cancelar", Token: confirmNo},
		))
}

func (r *Registration) confirm(ctx context.Context, fc *session.FormContext, ev form.Event) (form.Transition, error) {
	e, err := r.draft(fc)
	if err != nil {
		return form.Transition{}, err
	}

	switch strings.ToLower(choice(ev, "confirm")) {
	case "yes", "sim", "s":
	case "no", "não", "nao", "n":
		return form.Transition{Next: form.StateCancelled, Responses: []form.Response{form.Say("❌ Registro cancelado. Nada foi salvo.")}}, nil
	default:
		return form.Transition{}, form.Reject(core.ErrInvalidSelection, form.Say(msgPickOption), r.askConfirmation(fc, e))
	}

	user, err := r.deps.ensureUser(ctx, ev.Sender)
	if err != nil {
		return r.deps.fail(ctx, fc, ev, err, msgIdentityFailed), nil
	}
	e.UserID = user.ID

	saved, err := r.deps.Expenses.RecordExpense(ctx, e)
	if err != nil {
		return r.deps.fail(ctx, fc, ev, fmt.Errorf("%w: %w", ErrPersistence, err), msgPersistenceFailed), nil
	}

	fields := log.NewFields().
		WithChat(ev.Sender.ExternalID).
		WithExpense(saved.ID, core.ToCents(saved.Amount), saved.Category, string(saved.PaymentMethod))
	r.deps.Logger.InfoContext(ctx, "Expense registered", fields.ToSlice()...)

	return form.Transition{
		Next:      form.StatePersisted,
		Responses: []form.Response{form.Say(r.describe("✅ Gasto registrado com sucesso!", saved, fc.Value(fieldDateText)))},
	}, nil
}

// draft builds the expense from the collected fields.
func (r *Registration) draft(fc *session.FormContext) (core.Expense, error) {
	amount, err := core.ParseAmount(fc.Value(fieldAmount))
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored amount: %w", err)
	}
	date, err := core.ParseISODate(fc.Value(fieldDate))
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date: %w", err)
	}
	pm, err := core.ParsePaymentMethod(fc.Value(fieldPayment))
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored payment method: %w", err)
	}
	e := core.Expense{
		Amount:        amount,
		PaymentMethod: pm,
		Category:      fc.Value(fieldCategory),
		Location:      fc.Value(fieldLocation),
		Date:          date,
	}
	if raw, ok := fc.Lookup(fieldInstallments); ok {
		n, ok := atoi(raw)
		if !ok {
			return core.Expense{}, errors.New("stored installments are not a number")
		}
		e.Installments = core.IntPtr(n)
	}
	return e, nil
}

// describe shows the date as the user typed it when known.
func (r *Registration) describe(title string, e core.Expense, dateText string) string {
	f := r.deps.Format
	if dateText == "" {
		dateText = e.Date.Display()
	}
	payment := r.deps.label(e.PaymentMethod)
	if note := f.InstallmentNote(e); note != "" {
		payment += " (" + note + ")"
	}
	return fmt.Sprintf("%s\n\n💰 Valor: %s\n📅 Data: %s\n💳 Pagamento: %s\n🏷️ Categoria: %s\n📍 Local: %s",
		title, f.Currency(e.Amount), dateText, payment, e.Category, e.Location)
}

func (r *Registration) next(state string, prompt form.Response) form.Transition {
	return form.Transition{Next: state, Responses: []form.Response{prompt}}
}
