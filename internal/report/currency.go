package report

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

const currencySymbol = "R$"

// Languages writing 1.234,56.
var commaDecimal = map[string]bool{
	"pt": true, "es": true, "de": true, "fr": true, "it": true,
	"nl": true, "da": true, "id": true, "tr": true, "ru": true,
}

// Formatter renders amounts for one locale.
type Formatter struct {
	decimalSep  string
	thousandSep string
}

// NewFormatter never fails: an unparsable locale gives the plain R$ 1234.56 form.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		return Formatter{decimalSep: "."}
	}
	base, _ := tag.Base()
	if commaDecimal[base.String()] {
		return Formatter{decimalSep: ",", thousandSep: "."}
	}
	return Formatter{decimalSep: ".", thousandSep: ","}
}

// Currency formats d as R$ with two decimals.
func (f Formatter) Currency(d decimal.Decimal) string {
	return currencySymbol + " " + f.Number(d, 2)
}

// Percent formats p with one decimal and a % sign.
func (f Formatter) Percent(p decimal.Decimal) string {
	return f.Number(p, 1) + "%"
}

// Number groups the integer part and uses the locale separators.
func (f Formatter) Number(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	if f.thousandSep != "" && len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteString(f.thousandSep)
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	out := intPart
	if frac != "" {
		out += f.decimalSep + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
