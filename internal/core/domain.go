package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxInstallments is the largest credit split offered to users.
const MaxInstallments = 12

// MaxLocation bounds the location text, in characters.
const MaxLocation = 200

const (
	Cash        PaymentMethod = "cash"
	Pix         PaymentMethod = "pix"
	Debit       PaymentMethod = "debit"
	Credit      PaymentMethod = "credit"
	MealVoucher PaymentMethod = "meal_voucher"
	FoodVoucher PaymentMethod = "food_voucher"
)

type (
	// PaymentMethod is the canonical code of a payment method. Display labels
	// live in the catalog so deployments can rename them.
	PaymentMethod string

	Expense struct {
		ID            int64
		UserID        int64
		Amount        decimal.Decimal
		PaymentMethod PaymentMethod
		Installments  *int // set only for Credit
		Category      string
		Location      string
		Date          Date
		CreatedAt     time.Time
	}

	User struct {
		ID             int64
		ExternalChatID string
		DisplayName    string
	}
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidPayment         = errors.New("invalid payment method")
	ErrInvalidInstallments    = errors.New("invalid installments")
	ErrUnexpectedInstallments = errors.New("installments only allowed for credit")
	ErrEmptyCategory          = errors.New("empty category")
	ErrEmptyLocation          = errors.New("empty location")
	ErrLocationTooLong        = errors.New("location too long")
	ErrInvalidSelection       = errors.New("invalid selection")
	ErrMonthWithoutYear       = errors.New("month requires a year")
	ErrInvalidMonth           = errors.New("invalid month")
	ErrEmptyExternalID        = errors.New("empty external chat id")
)

var knownPaymentMethods = []PaymentMethod{Cash, Pix, Debit, Credit, MealVoucher, FoodVoucher}

// PaymentMethods returns every method the domain understands, in display order.
func PaymentMethods() []PaymentMethod {
	return append([]PaymentMethod(nil), knownPaymentMethods...)
}

// ParsePaymentMethod resolves a code, ignoring case and surrounding spaces.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	code := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if code.IsValid() {
		return code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPayment, s)
}

func (p PaymentMethod) IsValid() bool {
	for _, known := range knownPaymentMethods {
		if p == known {
			return true
		}
	}
	return false
}

func (p PaymentMethod) String() string { return string(p) }

// HasInstallments reports whether the expense carries a credit split.
func (e Expense) HasInstallments() bool {
	return e.PaymentMethod == Credit && e.Installments != nil && *e.Installments > 1
}

// InstallmentAmount is the per-installment value, present only for splits above one.
func (e Expense) InstallmentAmount() (decimal.Decimal, bool) {
	if !e.HasInstallments() {
		return decimal.Zero, false
	}
	return SplitAmount(e.Amount, *e.Installments), true
}

func (e Expense) Validate() error {
	if e.Amount.Sign() <= 0 || e.Amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	if !e.PaymentMethod.IsValid() {
		return ErrInvalidPayment
	}
	if e.PaymentMethod == Credit {
		if e.Installments == nil || *e.Installments < 1 || *e.Installments > MaxInstallments {
			return ErrInvalidInstallments
		}
	} else if e.Installments != nil {
		return ErrUnexpectedInstallments
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.Location) == "" {
		return ErrEmptyLocation
	}
	if utf8.RuneCountInString(e.Location) > MaxLocation {
		return ErrLocationTooLong
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.ExternalChatID) == "" {
		return ErrEmptyExternalID
	}
	return nil
}

// IntPtr is a small helper for optional integer fields.
func IntPtr(v int) *int { return &v }
