package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nuxo/internal/core"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if len(c.Categories) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(c.Categories))
	}
	if len(c.PaymentMethods) != 6 {
		t.Fatalf("expected 6 payment methods, got %d", len(c.PaymentMethods))
	}
	for _, pm := range core.PaymentMethods() {
		if !c.Offers(pm) {
			t.Errorf("default catalog misses %s", pm)
		}
	}
	if got := c.Label(core.MealVoucher); got != "VR" {
		t.Errorf("Label(meal_voucher) = %q, want VR", got)
	}
}

func TestCatalog_CanonicalCategory(t *testing.T) {
	c := DefaultCatalog()
	cases := []struct {
		in, want string
	}{
		{"alimentação", "Alimentação"},
		{"  SAÚDE ", "Saúde"},
		{"farmácia   popular", "Farmácia Popular"},
		{"PET SHOP", "Pet Shop"},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := c.CanonicalCategory(tc.in); got != tc.want {
			t.Errorf("CanonicalCategory(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCatalog_MethodByInput(t *testing.T) {
	c := DefaultCatalog()
	if pm, ok := c.MethodByInput("crédito"); !ok || pm != core.Credit {
		t.Fatalf("label lookup = %q, %v", pm, ok)
	}
	if pm, ok := c.MethodByInput("PIX"); !ok || pm != core.Pix {
		t.Fatalf("code lookup = %q, %v", pm, ok)
	}
	if _, ok := c.MethodByInput("boleto"); ok {
		t.Fatalf("unexpected match for boleto")
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	os.WriteFile(good, []byte("categories: [Mercado, Casa]\npayment_methods:\n  - {code: pix, label: PIX}\n"), 0644)
	c, err := LoadCatalog(good)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if c.Label(core.Pix) != "PIX" || c.Offers(core.Cash) {
		t.Fatalf("unexpected catalog %+v", c)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("categories: [A, a]\npayment_methods:\n  - {code: cheque, label: ''}\n"), 0644)
	_, err = LoadCatalog(bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"duplicate category", "unknown payment method code 'cheque'", "needs a label"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}

	long := &Catalog{
		Categories:     []string{strings.Repeat("é", 31)},
		PaymentMethods: []PaymentMethodLabel{{Code: core.Pix, Label: "Pix"}},
	}
	if err := long.Validate(); err == nil || !strings.Contains(err.Error(), "exceeds 64 bytes") {
		t.Errorf("a category of 62 bytes must not fit button data, got %v", err)
	}
	long.Categories = []string{strings.Repeat("é", 30)}
	if err := long.Validate(); err != nil {
		t.Errorf("a category of 60 bytes fits button data: %v", err)
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
