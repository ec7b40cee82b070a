package flows

import (
	"context"
	"fmt"
	"strings"

	"nuxo/internal/core"
	"nuxo/internal/form"
	"nuxo/internal/report"
	"nuxo/internal/session"
)

const (
	stateYear          = "awaiting_year"
	stateMonth         = "awaiting_month"
	stateFilterPayment = "awaiting_payment_method"
	stateFilterCat     = "awaiting_category"
)

const (
	fieldYear  = "year"
	fieldMonth = "month"
	allValue   = "all"
)

var allWords = map[string]bool{
	allValue: true, "todos": true, "todas": true, "tudo": true,
}

func isAll(s string) bool { return allWords[strings.ToLower(strings.TrimSpace(s))] }

// filterForm asks for year, month, optionally payment method and category,
// then hands the resulting spec to finish.
type filterForm struct {
	deps       Deps
	askPayment bool
	finish     func(ctx context.Context, fc *session.FormContext, ev form.Event, spec core.FilterSpec) (form.Transition, error)
}

func (f *filterForm) begin(intro string) form.Transition {
	return form.Transition{
		Next:      stateYear,
		Responses: []form.Response{form.Say(intro), f.askYear()},
	}
}

func (f *filterForm) step(ctx context.Context, fc *session.FormContext, ev form.Event) (form.Transition, error) {
	switch fc.State {
	case stateYear:
		return f.year(fc, ev)
	case stateMonth:
		return f.month(fc, ev)
	case stateFilterPayment:
		return f.payment(fc, ev)
	case stateFilterCat:
		return f.category(ctx, fc, ev)
	}
	return form.Transition{}, fmt.Errorf("filter: unknown state %q", fc.State)
}

// YearChoices are next year down to two years ago.
func YearChoices(current int) []int {
	return []int{current + 1, current, current - 1, current - 2}
}

func (f *filterForm) askYear() form.Response {
	years := YearChoices(f.deps.Now().Year())
	choices := make([]form.Choice, 0, len(years))
	for _, y := range years {
		choices = append(choices, form.Choice{Label: fmt.Sprint(y), Token: fmt.Sprintf("year:%d", y)})
	}
	rows := form.Grid(choices, 2)
	rows = append(rows, form.Row(form.Choice{Label: "Todos os anos", Token: "year:" + allValue}), cancelRow())
	return form.Ask("Selecione o ano:", rows...)
}

func (f *filterForm) year(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	in := choice(ev, "year")
	if isAll(in) {
		fc.Unset(fieldYear)
		fc.Unset(fieldMonth)
		return f.afterPeriod(fc), nil
	}
	y, ok := atoi(in)
	if !ok || y < 1900 || y > 9999 {
		return form.Transition{}, form.Reject(core.ErrInvalidSelection, form.Say(msgPickOption), f.askYear())
	}
	fc.Set(fieldYear, fmt.Sprint(y))
	return form.Transition{Next: stateMonth, Responses: []form.Response{f.askMonth(y)}}, nil
}

func (f *filterForm) askMonth(year int) form.Response {
	choices := make([]form.Choice, 0, 12)
	for m := 1; m <= 12; m++ {
		choices = append(choices, form.Choice{Label: report.MonthName(m), Token: fmt.Sprintf("month:%d", m)})
	}
	rows := form.Grid(choices, 3)
	rows = append(rows, form.Row(form.Choice{Label: "Todos os meses", Token: "month:" + allValue}), cancelRow())
	return form.Ask(fmt.Sprintf("Ano selecionado: %d\n\nAgora selecione o mês:", year), rows...)
}

func (f *filterForm) month(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	in := choice(ev, "month")
	if isAll(in) {
		fc.Unset(fieldMonth)
		return f.afterPeriod(fc), nil
	}
	m, ok := parseMonth(in)
	if !ok {
		y, _ := atoi(fc.Value(fieldYear))
		return form.Transition{}, form.Reject(core.ErrInvalidMonth, form.Say(msgPickOption), f.askMonth(y))
	}
	fc.Set(fieldMonth, fmt.Sprint(m))
	return f.afterPeriod(fc), nil
}

// parseMonth accepts 1..12 or a Portuguese month name.
func parseMonth(s string) (int, bool) {
	if m, ok := atoi(s); ok {
		return m, m >= 1 && m <= 12
	}
	for m := 1; m <= 12; m++ {
		if strings.EqualFold(report.MonthName(m), strings.TrimSpace(s)) {
			return m, true
		}
	}
	return 0, false
}

func (f *filterForm) afterPeriod(fc *session.FormContext) form.Transition {
	if f.askPayment {
		return form.Transition{Next: stateFilterPayment, Responses: []form.Response{f.askPaymentMethod(fc)}}
	}
	return form.Transition{Next: stateFilterCat, Responses: []form.Response{f.askCategory(fc)}}
}

func (f *filterForm) askPaymentMethod(fc *session.FormContext) form.Response {
	rows := form.Grid(paymentChoices(f.deps.Catalog), 2)
	rows = append(rows, form.Row(form.Choice{Label: "Todas as formas", Token: "pm:" + allValue}), cancelRow())
	text := fmt.Sprintf("Período selecionado: %s\n\nAgora selecione a forma de pagamento:",
		DescribeFilter(f.spec(fc), f.deps.label))
	return form.Ask(text, rows...)
}

func (f *filterForm) payment(fc *session.FormContext, ev form.Event) (form.Transition, error) {
	in := choice(ev, "pm")
	if isAll(in) {
		fc.Unset(fieldPayment)
	} else {
		pm, ok := f.deps.Catalog.MethodByInput(in)
		if !ok {
			return form.Transition{}, form.Reject(core.ErrInvalidPayment, form.Say(msgPickOption), f.askPaymentMethod(fc))
		}
		fc.Set(fieldPayment, string(pm))
	}
	return form.Transition{Next: stateFilterCat, Responses: []form.Response{f.askCategory(fc)}}, nil
}

func (f *filterForm) askCategory(fc *session.FormContext) form.Response {
	rows := form.Grid(categoryChoices(f.deps.Catalog), 2)
	rows = append(rows, form.Row(form.Choice{Label: "Todas as categorias", Token: "cat:" + allValue}), cancelRow())
	text := fmt.Sprintf("Filtros selecionados: %s\n\nAgora selecione a categoria:",
		DescribeFilter(f.spec(fc), f.deps.label))
	return form.Ask(text, rows...)
}

func (f *filterForm) category(ctx context.Context, fc *session.FormContext, ev form.Event) (form.Transition, error) {
	in := choice(ev, "cat")
	switch {
	case isAll(in):
		fc.Unset(fieldCategory)
	default:
		cat := f.deps.Catalog.CanonicalCategory(in)
		if cat == "" {
			return form.Transition{}, form.Reject(core.ErrEmptyCategory, form.Say(msgPickOption), f.askCategory(fc))
		}
		fc.Set(fieldCategory, cat)
	}

	spec := f.spec(fc)
	if err := spec.Validate(); err != nil {
		return form.Transition{}, fmt.Errorf("collected filter: %w", err)
	}
	return f.finish(ctx, fc, ev, spec)
}

// spec reads the filter collected so far.
func (f *filterForm) spec(fc *session.FormContext) core.FilterSpec {
	var spec core.FilterSpec
	if y, ok := atoi(fc.Value(fieldYear)); ok {
		spec.Year = core.IntPtr(y)
	}
	if m, ok := atoi(fc.Value(fieldMonth)); ok {
		spec.Month = core.IntPtr(m)
	}
	spec.PaymentMethod = core.PaymentMethod(fc.Value(fieldPayment))
	spec.Category = fc.Value(fieldCategory)
	return spec
}
