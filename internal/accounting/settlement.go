package accounting

import "github.com/shopspring/decimal"

// SettleTolerance is the largest remaining balance still treated as paid in full.
var SettleTolerance = decimal.RequireFromString("0.10")

// PaymentState is the settlement label of a sale.
type PaymentState string

const (
	StateSettled PaymentState = "SETTLED"
	StatePending PaymentState = "PENDING"
)

// Settlement is the outcome of comparing a closing price with collected payments.
type Settlement struct {
	Closing decimal.Decimal
	Paid    decimal.Decimal
	Balance decimal.Decimal
	State   PaymentState
}

// Settled reports whether the balance is within tolerance.
func (s Settlement) Settled() bool {
	return s.State == StateSettled
}

// Settle derives balance and state: settled iff closing - paid <= 0.10.
func Settle(closing, paid decimal.Decimal) Settlement {
	balance := closing.Sub(paid)
	state := StatePending
	if balance.LessThanOrEqual(SettleTolerance) {
		state = StateSettled
	}
	return Settlement{Closing: closing, Paid: paid, Balance: balance, State: state}
}
