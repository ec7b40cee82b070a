package flows

import (
	"context"
	"fmt"

	"nuxo/internal/core"
	"nuxo/internal/form"
	"nuxo/internal/log"
	"nuxo/internal/session"
)

// Visualization asks for a filter and replies with the summaries and the
// detailed list of matching expenses.
type Visualization struct {
	filterForm
}

func NewVisualization(deps Deps) *Visualization {
	v := &Visualization{filterForm: filterForm{deps: deps.withDefaults(), askPayment: true}}
	v.finish = v.summarize
	return v
}

func (v *Visualization) Kind() session.Kind { return KindVisualization }

func (v *Visualization) Begin(_ context.Context, _ *session.FormContext, _ form.Event) (form.Transition, error) {
	return v.begin("Vamos visualizar seus gastos! 📊\n\nPrimeiro, vamos definir o período."), nil
}

func (v *Visualization) Step(ctx context.Context, fc *session.FormContext, ev form.Event) (form.Transition, error) {
	return v.step(ctx, fc, ev)
}

func againRow() []form.Choice {
	return form.Row(form.Choice{Label: "🔄 Nova consulta", Token: AgainToken})
}

func (v *Visualization) summarize(ctx context.Context, fc *session.FormContext, ev form.Event, spec core.FilterSpec) (form.Transition, error) {
	user, err := v.deps.ensureUser(ctx, ev.Sender)
	if err != nil {
		return v.deps.fail(ctx, fc, ev, err, msgIdentityFailed), nil
	}
	rows, err := v.deps.Expenses.QueryExpenses(ctx, user.ID, spec)
	if err != nil {
		return v.deps.fail(ctx, fc, ev, fmt.Errorf("%w: %w", ErrPersistence, err), msgQueryFailed), nil
	}

	filter := DescribeFilter(spec, v.deps.label)
	v.deps.Logger.InfoContext(ctx, "Expenses summarized",
		log.FieldChatID, ev.Sender.ExternalID, log.FieldUserID, user.ID, log.FieldRows, len(rows), "filter", filter)

	if len(rows) == 0 {
		return form.Transition{
			Next: form.StateSummarized,
			Responses: []form.Response{
				form.Ask(fmt.Sprintf("Nenhum gasto encontrado para este período.\n\nFiltros: %s", filter), againRow()),
			},
		}, nil
	}

	f := v.deps.Format
	return form.Transition{
		Next: form.StateSummarized,
		Responses: []form.Response{
			form.Say(fmt.Sprintf("🔎 Filtros: %s\n\n%s", filter, f.CategorySummary(rows))),
			form.Say(f.PaymentSummary(rows, v.deps.label)),
			form.Ask(f.DetailList(rows, v.deps.label), againRow()),
		},
	}, nil
}
