package flows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"nuxo/internal/core"
	"nuxo/internal/form"
	"nuxo/internal/log"
	"nuxo/internal/report"
	"nuxo/internal/session"
)

// Export asks for a filter and replies with a spreadsheet of the matching
// expenses. The file is marked temporary so the transport removes it.
type Export struct {
	filterForm
	renderer Renderer
}

func NewExport(deps Deps, renderer Renderer) *Export {
	x := &Export{filterForm: filterForm{deps: deps.withDefaults()}, renderer: renderer}
	x.finish = x.export
	return x
}

func (x *Export) Kind() session.Kind { return KindExport }

func (x *Export) Begin(_ context.Context, _ *session.FormContext, _ form.Event) (form.Transition, error) {
	return x.begin("Vamos exportar seus gastos para uma planilha Excel! 📊\n\nPrimeiro, vamos definir o período."), nil
}

func (x *Export) Step(ctx context.Context, fc *session.FormContext, ev form.Event) (form.Transition, error) {
	return x.step(ctx, fc, ev)
}

func (x *Export) export(ctx context.Context, fc *session.FormContext, ev form.Event, spec core.FilterSpec) (form.Transition, error) {
	user, err := x.deps.ensureUser(ctx, ev.Sender)
	if err != nil {
		return x.deps.fail(ctx, fc, ev, err, msgIdentityFailed), nil
	}
	rows, err := x.deps.Expenses.QueryExpenses(ctx, user.ID, spec)
	if err != nil {
		return x.deps.fail(ctx, fc, ev, fmt.Errorf("%w: %w", ErrPersistence, err), msgQueryFailed), nil
	}

	filter := DescribeFilter(spec, x.deps.label)
	if len(rows) == 0 {
		return form.Transition{
			Next:      form.StateExported,
			Responses: []form.Response{form.Say(fmt.Sprintf("Nenhum gasto encontrado para os filtros selecionados.\n\nFiltros: %s", filter))},
		}, nil
	}

	owner := user.DisplayName
	if owner == "" {
		owner = user.ExternalChatID
	}
	path, err := x.renderer.Render(ctx, rows, owner)
	if err != nil {
		return x.deps.fail(ctx, fc, ev, fmt.Errorf("%w: %w", ErrRendering, err), msgRenderFailed), nil
	}
	if _, err := os.Stat(path); err != nil {
		return x.deps.fail(ctx, fc, ev, fmt.Errorf("%w: %w", ErrFileMissing, err), msgFileMissing), nil
	}

	x.deps.Logger.InfoContext(ctx, "Expenses exported",
		log.FieldChatID, ev.Sender.ExternalID, log.FieldUserID, user.ID, log.FieldRows, len(rows), log.FieldFile, path)

	return form.Transition{
		Next: form.StateExported,
		Responses: []form.Response{form.Attach(form.Document{
			Path:      path,
			Name:      filepath.Base(path),
			Caption:   fmt.Sprintf("📊 %d gastos exportados\nFiltros: %s\nTotal: %s", len(rows), filter, x.deps.Format.Currency(report.Total(rows))),
			Temporary: true,
		})},
	}, nil
}
