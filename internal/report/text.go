package report

import (
	"fmt"
	"strings"

	"nuxo/internal/core"
)

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the Portuguese name of month 1..12, or the number itself.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprint(month)
	}
	return monthNames[month-1]
}

// GroupSummary lists each group with its total and share, then the grand total.
func (f Formatter) GroupSummary(title string, groups []Group) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	grand := Total(nil)
	for _, g := range groups {
		grand = grand.Add(g.Total)
		fmt.Fprintf(&b, "%s: %s (%s)\n", g.Key, f.Currency(g.Total), f.Percent(g.Percent))
	}
	fmt.Fprintf(&b, "\nTOTAL: %s", f.Currency(grand))
	return b.String()
}

func (f Formatter) CategorySummary(expenses []core.Expense) string {
	return f.GroupSummary("📊 RESUMO POR CATEGORIA", ByCategory(expenses))
}

func (f Formatter) PaymentSummary(expenses []core.Expense, label func(core.PaymentMethod) string) string {
	return f.GroupSummary("💳 RESUMO POR FORMA DE PAGAMENTO", ByPaymentMethod(expenses, label))
}

// InstallmentNote is "3x de R$ 33,33" for split credit purchases and "" otherwise.
func (f Formatter) InstallmentNote(e core.Expense) string {
	per, ok := e.InstallmentAmount()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%dx de %s", *e.Installments, f.Currency(per))
}

// DetailList renders every expense followed by the grand total.
func (f Formatter) DetailList(expenses []core.Expense, label func(core.PaymentMethod) string) string {
	var b strings.Builder
	b.WriteString("🧾 LISTA DE GASTOS\n\n")
	for _, e := range expenses {
		fmt.Fprintf(&b, "%s: %s", e.Date.Display(), f.Currency(e.Amount))
		if note := f.InstallmentNote(e); note != "" {
			fmt.Fprintf(&b, " (%s)", note)
		}
		fmt.Fprintf(&b, "\n📍 %s\n🏷️ %s\n💳 %s\n\n", e.Location, e.Category, label(e.PaymentMethod))
	}
	fmt.Fprintf(&b, "TOTAL: %s", f.Currency(Total(expenses)))
	return b.String()
}
