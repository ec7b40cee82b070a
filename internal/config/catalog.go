package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"nuxo/internal/core"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// maxCallbackData is Telegram's limit for inline button payloads, in bytes.
const maxCallbackData = 64

// Catalog is the set of choices shown to users. A single instance serves
// every flow.
type Catalog struct {
	Categories     []string             `yaml:"categories"`
	PaymentMethods []PaymentMethodLabel `yaml:"payment_methods"`
}

type PaymentMethodLabel struct {
	Code  core.PaymentMethod `yaml:"code"`
	Label string             `yaml:"label"`
}

// LoadCatalog reads the YAML catalog at path, or the embedded default when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultCatalog panics if the embedded catalog is malformed.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Validate() error {
	var errors []string
	if len(c.Categories) == 0 {
		errors = append(errors, "at least one category is required")
	}
	seen := map[string]bool{}
	for _, cat := range c.Categories {
		key := strings.ToLower(strings.TrimSpace(cat))
		if key == "" {
			errors = append(errors, "category labels cannot be empty")
			continue
		}
		if seen[key] {
			errors = append(errors, fmt.Sprintf("duplicate category '%s'", cat))
		}
		if len("cat:"+cat) > maxCallbackData {
			errors = append(errors, fmt.Sprintf("category '%s' exceeds %d bytes as button data", cat, maxCallbackData))
		}
		seen[key] = true
	}
	if len(c.PaymentMethods) == 0 {
		errors = append(errors, "at least one payment method is required")
	}
	codes := map[core.PaymentMethod]bool{}
	for _, pm := range c.PaymentMethods {
		if !pm.Code.IsValid() {
			errors = append(errors, fmt.Sprintf("unknown payment method code '%s'", pm.Code))
		}
		if strings.TrimSpace(pm.Label) == "" {
			errors = append(errors, fmt.Sprintf("payment method '%s' needs a label", pm.Code))
		}
		if len("pm:"+string(pm.Code)) > maxCallbackData {
			errors = append(errors, fmt.Sprintf("payment method code '%s' exceeds %d bytes as button data", pm.Code, maxCallbackData))
		}
		if codes[pm.Code] {
			errors = append(errors, fmt.Sprintf("duplicate payment method '%s'", pm.Code))
		}
		codes[pm.Code] = true
	}
	if len(errors) > 0 {
		return fmt.Errorf("invalid catalog:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Label returns the display label for a payment method, falling back to the code.
func (c *Catalog) Label(pm core.PaymentMethod) string {
	for _, entry := range c.PaymentMethods {
		if entry.Code == pm {
			return entry.Label
		}
	}
	return string(pm)
}

// MethodByInput resolves a code or a label typed by the user.
func (c *Catalog) MethodByInput(s string) (core.PaymentMethod, bool) {
	s = strings.TrimSpace(s)
	for _, entry := range c.PaymentMethods {
		if strings.EqualFold(entry.Label, s) || strings.EqualFold(string(entry.Code), s) {
			return entry.Code, true
		}
	}
	return "", false
}

// Offers reports whether pm is one of the configured methods.
func (c *Catalog) Offers(pm core.PaymentMethod) bool {
	for _, entry := range c.PaymentMethods {
		if entry.Code == pm {
			return true
		}
	}
	return false
}

// CanonicalCategory maps user input onto the stored form of a category: the
// configured label when it matches ignoring case, otherwise title case.
// Blank input yields "".
func (c *Catalog) CanonicalCategory(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	for _, cat := range c.Categories {
		if strings.EqualFold(cat, s) {
			return cat
		}
	}
	return cases.Title(language.BrazilianPortuguese).String(s)
}
