package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDisplayDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"05/03/2024", "2024-03-05", true},
		{"5/3/2024", "2024-03-05", true},
		{" 31/12/2023 ", "2023-12-31", true},
		{"2024-03-05", "", false},
		{"31/02/2024", "", false},
		{"hoje", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			d, err := ParseDisplayDate(tc.in)
			if !tc.ok {
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("expected ErrInvalidDate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.ISO() != tc.want {
				t.Fatalf("got %s, want %s", d.ISO(), tc.want)
			}
		})
	}
}

func TestDisplayDateRoundTrip(t *testing.T) {
	for _, in := range []string{"01/01/2024", "29/02/2024", "31/12/2023", "15/06/2025", "30/11/1999"} {
		t.Run(in, func(t *testing.T) {
			d, err := ParseDisplayDate(in)
			if err != nil {
				t.Fatalf("ParseDisplayDate: %v", err)
			}
			back, err := ParseISODate(d.ISO())
			if err != nil {
				t.Fatalf("ParseISODate(%s): %v", d.ISO(), err)
			}
			if back.Display() != in {
				t.Fatalf("round trip gave %s, want %s", back.Display(), in)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	accented := Expense{
		Amount:        decimal.RequireFromString("1"),
		PaymentMethod: Pix,
		Category:      "Lazer",
		Location:      strings.Repeat("ã", MaxLocation),
		Date:          NewDate(2025, 1, 1),
	}
	if err := accented.Validate(); err != nil {
		t.Fatalf("location length counts characters, not bytes: %v", err)
	}

	good := Expense{
		Amount:        decimal.RequireFromString("10.50"),
		PaymentMethod: Pix,
		Category:      "Lazer",
		Location:      "Cinema",
		Date:          NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	credit := good
	credit.PaymentMethod = Credit
	credit.Installments = IntPtr(3)
	if err := credit.Validate(); err != nil {
		t.Fatalf("expected credit ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Expense)
		want error
	}{
		{"zero amount", func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"unknown method", func(e *Expense) { e.PaymentMethod = "cheque" }, ErrInvalidPayment},
		{"credit without installments", func(e *Expense) { e.PaymentMethod = Credit }, ErrInvalidInstallments},
		{"too many installments", func(e *Expense) { e.PaymentMethod = Credit; e.Installments = IntPtr(13) }, ErrInvalidInstallments},
		{"installments on pix", func(e *Expense) { e.Installments = IntPtr(2) }, ErrUnexpectedInstallments},
		{"blank category", func(e *Expense) { e.Category = " " }, ErrEmptyCategory},
		{"blank location", func(e *Expense) { e.Location = "" }, ErrEmptyLocation},
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"amount above cap", func(e *Expense) { e.Amount = MaxAmount.Add(decimal.New(1, -2)) }, ErrInvalidAmount},
		{"location too long", func(e *Expense) { e.Location = strings.Repeat("x", MaxLocation+1) }, ErrLocationTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mut(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestInstallmentAmount(t *testing.T) {
	e := Expense{Amount: decimal.RequireFromString("100"), PaymentMethod: Credit, Installments: IntPtr(3)}
	got, ok := e.InstallmentAmount()
	if !ok || !got.Equal(decimal.RequireFromString("33.33")) {
		t.Fatalf("got %s ok=%v", got, ok)
	}
	e.Installments = IntPtr(1)
	if _, ok := e.InstallmentAmount(); ok {
		t.Fatalf("single installment should not report a split")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if pm, err := ParsePaymentMethod(" CREDIT "); err != nil || pm != Credit {
		t.Fatalf("got %q, %v", pm, err)
	}
	if _, err := ParsePaymentMethod("boleto"); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment, got %v", err)
	}
}

func TestFilterSpecValidate(t *testing.T) {
	y := 2024
	cases := []struct {
		name string
		f    FilterSpec
		want error
	}{
		{"empty", FilterSpec{}, nil},
		{"year only", FilterSpec{Year: &y}, nil},
		{"month without year", FilterSpec{Month: IntPtr(3)}, ErrMonthWithoutYear},
		{"month out of range", FilterSpec{Year: &y, Month: IntPtr(13)}, ErrInvalidMonth},
		{"bad method", FilterSpec{PaymentMethod: "x"}, ErrInvalidPayment},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.f.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
