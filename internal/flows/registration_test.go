package flows

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nuxo/internal/core"
	"nuxo/internal/form"
)

func TestRegistration_CreditWithInstallments(t *testing.T) {
	h := newHarness(t)
	h.expect(h.start(KindRegistration), stateAmount)
	h.expect(h.text("15,90"), stateDate)
	h.expect(h.button(todayToken), statePayment)
	h.expect(h.button("pm:credit"), stateInstallments)
	h.expect(h.button("inst:3"), stateCategory)
	h.expect(h.text("  alimentação "), stateLocation)
	res := h.expect(h.text("Mercado Central"), stateConfirmation)
	if !strings.Contains(joined(res), "3x de R$ 5,30") {
		t.Errorf("confirmation should show the installment split, got %q", joined(res))
	}

	res = h.expect(h.button(confirmYes), form.StatePersisted)
	if !strings.Contains(joined(res), "registrado com sucesso") {
		t.Errorf("unexpected success message %q", joined(res))
	}

	rows, err := h.expenses.ledger.QueryExpenses(context.Background(), 1, core.FilterSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("stored %d expenses, want 1", len(rows))
	}
	got := rows[0]
	if got.Amount.StringFixed(2) != "15.90" {
		t.Errorf("amount = %s", got.Amount)
	}
	if got.Date.ISO() != "2025-06-15" {
		t.Errorf("date = %s, want today", got.Date.ISO())
	}
	if got.Installments == nil || *got.Installments != 3 {
		t.Errorf("installments = %v, want 3", got.Installments)
	}
	if got.Category != "Alimentação" || got.Location != "Mercado Central" {
		t.Errorf("category/location = %q/%q", got.Category, got.Location)
	}
	if h.active(ana.ExternalID) {
		t.Error("context must be cleared after persisting")
	}
}

func TestRegistration_NonCreditSkipsInstallments(t *testing.T) {
	h := newHarness(t)
	h.start(KindRegistration)
	h.expect(h.text("120"), stateDate)
	h.expect(h.text("1/2/2025"), statePayment)
	h.expect(h.text("Pix"), stateCategory)
	h.expect(h.button("cat:Lazer"), stateLocation)
	res := h.expect(h.text("Cinema"), stateConfirmation)
	if !strings.Contains(joined(res), "1/2/2025") {
		t.Errorf("confirmation should echo the typed date, got %q", joined(res))
	}
	res = h.expect(h.text("sim"), form.StatePersisted)
	if !strings.Contains(joined(res), "1/2/2025") {
		t.Errorf("success message should echo the typed date, got %q", joined(res))
	}

	rows, _ := h.expenses.ledger.QueryExpenses(context.Background(), 1, core.FilterSpec{})
	if len(rows) != 1 || rows[0].Installments != nil || rows[0].PaymentMethod != core.Pix {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].Date.ISO() != "2025-02-01" {
		t.Errorf("date = %s", rows[0].Date.ISO())
	}
}

func TestRegistration_RejectionsKeepState(t *testing.T) {
	h := newHarness(t)
	h.start(KindRegistration)

	tests := []struct {
		name  string
		input func() form.Result
		state string
	}{
		{"letters as amount", func() form.Result { return h.text("abc") }, stateAmount},
		{"zero amount", func() form.Result { return h.text("0") }, stateAmount},
		{"negative amount", func() form.Result { return h.text("-5") }, stateAmount},
		{"button as amount", func() form.Result { return h.button("pm:pix") }, stateAmount},
	}
	for _, tt := range tests {
		res := h.expect(tt.input(), tt.state)
		if len(res.Responses) == 0 {
			t.Fatalf("%s: a rejection must re-prompt", tt.name)
		}
	}

	h.expect(h.text("10.5"), stateDate)
	h.expect(h.text("31/02/2025"), stateDate)
	h.expect(h.text("2025-01-01"), stateDate)
	h.expect(h.button(todayToken), statePayment)
	h.expect(h.button("pm:bitcoin"), statePayment)
	h.expect(h.button("pm:credit"), stateInstallments)
	h.expect(h.button("inst:13"), stateInstallments)
	h.expect(h.text("0"), stateInstallments)
	h.expect(h.text("2x"), stateCategory)
	h.expect(h.text("   "), stateCategory)
	h.expect(h.button("cat:all"), stateCategory)
	h.expect(h.text("todas"), stateCategory)
	h.expect(h.text("farmácia popular"), stateLocation)
	h.expect(h.button("cat:Outros"), stateLocation)
	h.expect(h.text(strings.Repeat("ã", core.MaxLocation+1)), stateLocation)
	h.expect(h.text(strings.Repeat("ã", core.MaxLocation)), stateConfirmation)
	h.expect(h.text("talvez"), stateConfirmation)
	h.expect(h.button(confirmYes), form.StatePersisted)

	rows, _ := h.expenses.ledger.QueryExpenses(context.Background(), 1, core.FilterSpec{})
	if len(rows) != 1 || rows[0].Category != "Farmácia Popular" {
		t.Fatalf("free-text category should be title cased, got %+v", rows)
	}
	if rows[0].Location != strings.Repeat("ã", core.MaxLocation) {
		t.Errorf("location limit counts characters, got %d bytes", len(rows[0].Location))
	}
}

func TestRegistration_DeclineWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.start(KindRegistration)
	h.text("10")
	h.button(todayToken)
	h.button("pm:cash")
	h.button("cat:Outros")
	h.text("Feira")
	h.expect(h.button(confirmNo), form.StateCancelled)

	if h.expenses.inserts != 0 {
		t.Fatal("declined registration must not write")
	}
}

func TestRegistration_CancelMidway(t *testing.T) {
	h := newHarness(t)
	h.start(KindRegistration)
	h.text("10")
	res := h.engine.Handle(context.Background(), form.CommandEvent(ana, "/cancelar", ""))
	h.expect(res, form.StateCancelled)
	if h.active(ana.ExternalID) {
		t.Fatal("cancel must clear the context")
	}
}

func TestRegistration_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeExpenses)
		message string
		inserts int
	}{
		{"identity", func(f *fakeExpenses) { f.userErr = errors.New("db down") }, msgIdentityFailed, 0},
		{"persistence", func(f *fakeExpenses) { f.insertErr = errors.New("disk full") }, msgPersistenceFailed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.setup(h.expenses)
			h.start(KindRegistration)
			h.text("10")
			h.button(todayToken)
			h.button("pm:debit")
			h.button("cat:Transporte")
			h.text("Ônibus")
			res := h.expect(h.button(confirmYes), form.StateFailed)
			if joined(res) != tt.message {
				t.Errorf("message = %q, want %q", joined(res), tt.message)
			}
			if h.expenses.inserts != tt.inserts {
				t.Errorf("inserts = %d, want %d", h.expenses.inserts, tt.inserts)
			}
			if h.active(ana.ExternalID) {
				t.Error("failed form must be cleared")
			}
		})
	}
}
