package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodUPI          PaymentMethod = "upi"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
)

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{MethodCash, MethodUPI, MethodCard, MethodBankTransfer, MethodCheque}

func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// ParsePaymentMethod accepts a method name case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", NewValidationError("payment_method", s, ErrInvalidPaymentMethod)
	}
	return m, nil
}

// DeriveStatus is a pure function of paid and total. First match wins:
// paid >= total is paid, any positive payment is partial, otherwise unpaid.
func DeriveStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// Settlement is the payment-derived state of an invoice.
type Settlement struct {
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	Status        PaymentStatus   `json:"payment_status"`
}

// Settle applies the full payment history to a total. The raw paid sum is kept
// even when it exceeds the total; only the balance is floored at zero.
func Settle(total decimal.Decimal, payments []decimal.Decimal) Settlement {
	paid := Round(Sum(payments...))
	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return Settlement{
		PaidAmount:    paid,
		BalanceAmount: Round(balance),
		Status:        DeriveStatus(paid, total),
	}
}

// Overpayment returns how much the payments exceed the total, or zero.
func (s Settlement) Overpayment(total decimal.Decimal) decimal.Decimal {
	over := s.PaidAmount.Sub(total)
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}
