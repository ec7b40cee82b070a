// Package bot routes chat events to commands, menu actions and forms.
package bot

import (
	"context"
	"fmt"
	"strings"

	"nuxo/internal/config"
	"nuxo/internal/core"
	"nuxo/internal/flows"
	"nuxo/internal/form"
	"nuxo/internal/log"
	"nuxo/internal/report"
	"nuxo/internal/session"
)

const (
	MenuRegister = "menu:register"
	MenuView     = "menu:view"
	MenuExport   = "menu:export"
	MenuHelp     = "menu:help"
	MenuStart    = "menu:start"
)

const (
	msgNothingToCancel = "Não há nenhuma operação em andamento para cancelar."
	msgHint            = "Não entendi. 🤔 Use /start para ver o menu ou /ajuda para ver os comandos."
	msgUnknownCommand  = "Comando desconhecido. Use /ajuda para ver os comandos disponíveis."
	msgExpiredChoice   = "Esta opção não está mais disponível. Use /start para recomeçar."
	msgNoExpenses      = "Você ainda não registrou nenhum gasto."
	msgSummaryFailed   = "⚠️ Não foi possível consultar seus gastos agora. Tente novamente mais tarde."
	msgUnavailable     = "⚠️ Algo deu errado. Tente novamente mais tarde."
)

const helpText = `🤖 Ajuda do Nuxo Bot 🤖

Comandos:
/start - Mostra o menu principal
/registrar - Registra um novo gasto
/visualizar - Mostra seus gastos com filtros
/exportar - Exporta seus gastos para uma planilha Excel
/gastos - Resumo de todos os gastos por categoria
/pagamentos - Resumo de todos os gastos por forma de pagamento
/cancelar - Cancela a operação em andamento
/ajuda - Mostra esta mensagem

Detalhes:
/gastos categoria:Lazer - lista os gastos de uma categoria
/pagamentos forma:pix - lista os gastos de uma forma de pagamento

Como registrar um gasto:
1. Use /registrar ou o botão "Registrar Gasto"
2. Informe valor, data, forma de pagamento, categoria e local
3. No crédito, escolha o número de parcelas
4. Confira o resumo e confirme`

// Ledger is the read side the quick summaries need.
type Ledger interface {
	EnsureUser(ctx context.Context, externalID, displayName string) (core.User, error)
	QueryExpenses(ctx context.Context, userID int64, spec core.FilterSpec) ([]core.Expense, error)
}

type Dispatcher struct {
	engine  *form.Engine
	ledger  Ledger
	catalog *config.Catalog
	format  report.Formatter
	logger  *log.Logger
}

func NewDispatcher(engine *form.Engine, ledger Ledger, catalog *config.Catalog, format report.Formatter, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		engine:  engine,
		ledger:  ledger,
		catalog: catalog,
		format:  format,
		logger:  logger.WithComponent(log.ComponentBot),
	}
}

// Dispatch handles one event and returns the replies to send, in order.
func (d *Dispatcher) Dispatch(ctx context.Context, ev form.Event) []form.Response {
	if ev.CorrelationID != "" {
		ctx = log.WithCorrelationID(ctx, ev.CorrelationID)
	}
	d.logger.DebugContext(ctx, "Dispatching event",
		log.FieldChatID, ev.Sender.ExternalID, log.FieldEvent, ev.Kind.String())

	switch ev.Kind {
	case form.EventCommand:
		return d.command(ctx, ev)
	case form.EventButton:
		return d.button(ctx, ev)
	default:
		if res := d.engine.Handle(ctx, ev); res.Handled {
			return res.Responses
		}
		if ev.IsCancel() {
			return []form.Response{form.Say(msgNothingToCancel)}
		}
		return []form.Response{form.Say(msgHint)}
	}
}

func (d *Dispatcher) command(ctx context.Context, ev form.Event) []form.Response {
	switch ev.Command {
	case "start":
		return []form.Response{d.menu(ev.Sender)}
	case "ajuda", "help":
		return []form.Response{form.Say(helpText)}
	case "registrar":
		return d.start(ctx, flows.KindRegistration, ev)
	case "visualizar":
		return d.start(ctx, flows.KindVisualization, ev)
	case "exportar", "relatorio":
		return d.start(ctx, flows.KindExport, ev)
	case "gastos":
		return d.byCategory(ctx, ev)
	case "pagamentos":
		return d.byPayment(ctx, ev)
	}

	if res := d.engine.Handle(ctx, ev); res.Handled {
		return res.Responses
	}
	if ev.IsCancel() {
		return []form.Response{form.Say(msgNothingToCancel)}
	}
	return []form.Response{form.Say(msgUnknownCommand)}
}

func (d *Dispatcher) button(ctx context.Context, ev form.Event) []form.Response {
	switch ev.Token {
	case MenuStart:
		return []form.Response{d.menu(ev.Sender)}
	case MenuHelp:
		return []form.Response{form.Ask(helpText, form.Row(form.Choice{Label: "🔙 Voltar ao menu", Token: MenuStart}))}
	case MenuRegister:
		return d.start(ctx, flows.KindRegistration, ev)
	case MenuView, flows.AgainToken:
		return d.start(ctx, flows.KindVisualization, ev)
	case MenuExport:
		return d.start(ctx, flows.KindExport, ev)
	}

	if res := d.engine.Handle(ctx, ev); res.Handled {
		return res.Responses
	}
	if ev.IsCancel() {
		return []form.Response{form.Say(msgNothingToCancel)}
	}
	return []form.Response{form.Say(msgExpiredChoice)}
}

func (d *Dispatcher) start(ctx context.Context, kind session.Kind, ev form.Event) []form.Response {
	res, err := d.engine.Start(ctx, kind, ev)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to start form",
			log.FieldChatID, ev.Sender.ExternalID, log.FieldFlow, string(kind), log.FieldError, err)
		return []form.Response{form.Say(msgUnavailable)}
	}
	return res.Responses
}

func (d *Dispatcher) menu(s form.Sender) form.Response {
	name := s.DisplayName
	if name == "" {
		name = "por aqui"
	}
	text := fmt.Sprintf("Olá, %s! Bem-vindo ao Nuxo Bot 🤖\n\nOrganização que parece mágica, mas é só Nuxo.\n\nConfira o que posso fazer por você:", name)
	return form.Ask(text,
		form.Row(form.Choice{Label: "📝 Registrar Gasto", Token: MenuRegister}),
		form.Row(form.Choice{Label: "📊 Visualizar Gastos", Token: MenuView}),
		form.Row(form.Choice{Label: "📋 Exportar para Excel", Token: MenuExport}),
		form.Row(form.Choice{Label: "❓ Ajuda", Token: MenuHelp}),
	)
}

// byCategory answers /gastos, or /gastos categoria:<nome> for one category's list.
func (d *Dispatcher) byCategory(ctx context.Context, ev form.Event) []form.Response {
	var spec core.FilterSpec
	if v, ok := argValue(ev.Args, "categoria"); ok {
		spec.Category = d.catalog.CanonicalCategory(v)
	}
	rows, resp := d.query(ctx, ev, spec)
	if rows == nil {
		return resp
	}
	if spec.Category != "" {
		return []form.Response{form.Say(fmt.Sprintf("🏷️ %s\n\n%s", spec.Category, d.format.DetailList(rows, d.catalog.Label)))}
	}
	return []form.Response{form.Say(d.format.CategorySummary(rows))}
}

// byPayment answers /pagamentos, or /pagamentos forma:<nome> for one method's list.
func (d *Dispatcher) byPayment(ctx context.Context, ev form.Event) []form.Response {
	var spec core.FilterSpec
	if v, ok := argValue(ev.Args, "forma"); ok {
		pm, found := d.catalog.MethodByInput(v)
		if !found {
			return []form.Response{form.Say(fmt.Sprintf("Forma de pagamento %q não encontrada.", v))}
		}
		spec.PaymentMethod = pm
	}
	rows, resp := d.query(ctx, ev, spec)
	if rows == nil {
		return resp
	}
	if spec.PaymentMethod != "" {
		title := "💳 " + d.catalog.Label(spec.PaymentMethod)
		return []form.Response{form.Say(title + "\n\n" + d.format.DetailList(rows, d.catalog.Label))}
	}
	return []form.Response{form.Say(d.format.PaymentSummary(rows, d.catalog.Label))}
}

// query returns nil rows together with the reply to send when there is
// nothing to summarize.
func (d *Dispatcher) query(ctx context.Context, ev form.Event, spec core.FilterSpec) ([]core.Expense, []form.Response) {
	fail := func(err error) ([]core.Expense, []form.Response) {
		d.logger.ErrorContext(ctx, "Quick summary failed",
			log.FieldChatID, ev.Sender.ExternalID, log.FieldOperation, log.OpQuery, log.FieldError, err)
		return nil, []form.Response{form.Say(msgSummaryFailed)}
	}

	user, err := d.ledger.EnsureUser(ctx, ev.Sender.ExternalID, ev.Sender.DisplayName)
	if err != nil {
		return fail(err)
	}
	rows, err := d.ledger.QueryExpenses(ctx, user.ID, spec)
	if err != nil {
		return fail(err)
	}
	if len(rows) == 0 {
		if spec.IsEmpty() {
			return nil, []form.Response{form.Say(msgNoExpenses)}
		}
		return nil, []form.Response{form.Say("Nenhum gasto encontrado com esse filtro.")}
	}
	return rows, nil
}

// argValue finds key:value in command arguments. The value runs to the end
// of the arguments so it may contain spaces.
func argValue(args, key string) (string, bool) {
	_, after, ok := strings.Cut(args, key+":")
	if !ok {
		return "", false
	}
	v := strings.TrimSpace(after)
	return v, v != ""
}
