package report

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"nuxo/internal/core"
)

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func exp(cat string, pm core.PaymentMethod, v string) core.Expense {
	return core.Expense{Category: cat, PaymentMethod: pm, Amount: amount(v), Date: core.NewDate(2024, 3, 5), Location: "Loja"}
}

func TestGroupTotals(t *testing.T) {
	expenses := []core.Expense{
		exp("Lazer", core.Pix, "10"),
		exp("Alimentação", core.Pix, "30"),
		exp("Lazer", core.Cash, "20"),
		exp("Outros", core.Debit, "30"),
		exp("Saúde", core.Debit, "10"),
	}
	groups := ByCategory(expenses)

	want := []struct {
		key, total, pct string
	}{
		{"Alimentação", "30", "30"},
		{"Lazer", "30", "30"},
		{"Outros", "30", "30"},
		{"Saúde", "10", "10"},
	}
	if len(groups) != len(want) {
		t.Fatalf("got %d groups, want %d", len(groups), len(want))
	}
	for i, w := range want {
		g := groups[i]
		if g.Key != w.key || !g.Total.Equal(amount(w.total)) || !g.Percent.Equal(amount(w.pct)) {
			t.Errorf("group %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestGroupTotalsEmpty(t *testing.T) {
	groups := ByCategory(nil)
	if groups == nil || len(groups) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", groups)
	}
}

func TestPercentageOf(t *testing.T) {
	if p := PercentageOf(amount("5"), decimal.Zero); !p.IsZero() {
		t.Fatalf("zero whole must give 0, got %s", p)
	}
	if p := PercentageOf(amount("1"), amount("3")); !p.Equal(amount("33.3")) {
		t.Fatalf("1/3 = %s", p)
	}
}

func TestByPaymentMethodUsesLabels(t *testing.T) {
	label := func(pm core.PaymentMethod) string { return strings.ToUpper(string(pm)) }
	groups := ByPaymentMethod([]core.Expense{exp("a", core.Pix, "1"), exp("b", core.Pix, "2")}, label)
	if len(groups) != 1 || groups[0].Key != "PIX" || !groups[0].Total.Equal(amount("3")) {
		t.Fatalf("unexpected %+v", groups)
	}
}

func TestFormatterCurrency(t *testing.T) {
	tests := []struct {
		locale string
		in     string
		want   string
	}{
		{"pt-BR", "1234.5", "R$ 1.234,50"},
		{"pt-BR", "1234567.891", "R$ 1.234.567,89"},
		{"pt-BR", "0.5", "R$ 0,50"},
		{"en-US", "1234.5", "R$ 1,234.50"},
		{"en", "999", "R$ 999.00"},
		{"???", "1234.5", "R$ 1234.50"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.in, func(t *testing.T) {
			if got := NewFormatter(tt.locale).Currency(amount(tt.in)); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInstallmentNote(t *testing.T) {
	f := NewFormatter("pt-BR")
	credit := exp("Vestuário", core.Credit, "100")
	credit.Installments = core.IntPtr(3)
	if got := f.InstallmentNote(credit); got != "3x de R$ 33,33" {
		t.Fatalf("got %q", got)
	}
	credit.Installments = core.IntPtr(1)
	if got := f.InstallmentNote(credit); got != "" {
		t.Fatalf("single installment should have no note, got %q", got)
	}
	if got := f.InstallmentNote(exp("x", core.Pix, "10")); got != "" {
		t.Fatalf("pix should have no note, got %q", got)
	}
}

func TestDetailList(t *testing.T) {
	f := NewFormatter("pt-BR")
	credit := exp("Vestuário", core.Credit, "300")
	credit.Installments = core.IntPtr(3)
	list := f.DetailList([]core.Expense{credit, exp("Lazer", core.Pix, "12.5")}, func(pm core.PaymentMethod) string { return string(pm) })

	for _, want := range []string{
		"05/03/2024: R$ 300,00 (3x de R$ 100,00)",
		"05/03/2024: R$ 12,50\n",
		"🏷️ Vestuário",
		"💳 pix",
		"TOTAL: R$ 312,50",
	} {
		if !strings.Contains(list, want) {
			t.Errorf("detail list missing %q:\n%s", want, list)
		}
	}
}

func TestCategorySummary(t *testing.T) {
	f := NewFormatter("pt-BR")
	out := f.CategorySummary([]core.Expense{exp("Lazer", core.Pix, "75"), exp("Outros", core.Pix, "25")})
	if !strings.Contains(out, "Lazer: R$ 75,00 (75,0%)") || !strings.HasSuffix(out, "TOTAL: R$ 100,00") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if strings.Index(out, "Lazer") > strings.Index(out, "Outros") {
		t.Fatalf("groups not ordered by total")
	}
}

func TestMonthName(t *testing.T) {
	if MonthName(3) != "Março" || MonthName(12) != "Dezembro" || MonthName(13) != "13" {
		t.Fatal("unexpected month names")
	}
}
