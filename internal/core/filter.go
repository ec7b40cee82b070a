package core

import "fmt"

// FilterSpec selects a subset of a user's expenses. Nil or empty fields mean
// "no constraint".
type FilterSpec struct {
	Year          *int
	Month         *int
	Category      string
	PaymentMethod PaymentMethod
}

func (f FilterSpec) Validate() error {
	if f.Month != nil {
		if f.Year == nil {
			return ErrMonthWithoutYear
		}
		if *f.Month < 1 || *f.Month > 12 {
			return fmt.Errorf("%w: %d", ErrInvalidMonth, *f.Month)
		}
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.IsValid() {
		return ErrInvalidPayment
	}
	return nil
}

// IsEmpty reports whether the filter matches every expense of a user.
func (f FilterSpec) IsEmpty() bool {
	return f.Year == nil && f.Month == nil && f.Category == "" && f.PaymentMethod == ""
}
