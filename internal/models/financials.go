package models

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Financials are the payment-progress figures derived for a loan.
type Financials struct {
	LoanAmount       decimal.Decimal
	PrincipalBalance decimal.Decimal
	PastDueAmount    decimal.Decimal
	PastDueFees      decimal.Decimal

	AmountPaid      decimal.Decimal
	ProgressPercent decimal.Decimal
	TotalDue        decimal.Decimal
}

// ComputeFinancials derives amount_paid, progress_percent and total_due.
// Progress is not clamped: inconsistent data (balance above amount) shows
// up as a negative percentage.
func ComputeFinancials(loan Entity) Financials {
	f := Financials{
		LoanAmount:       loan.Decimal("loan_amount"),
		PrincipalBalance: loan.Decimal("principal_balance"),
		PastDueAmount:    loan.Decimal("past_due_amount"),
		PastDueFees:      loan.Decimal("past_due_fees"),
		AmountPaid:       decimal.Zero,
		ProgressPercent:  decimal.Zero,
	}
	if f.LoanAmount.IsPositive() {
		f.AmountPaid = f.LoanAmount.Sub(f.PrincipalBalance)
		f.ProgressPercent = f.AmountPaid.Div(f.LoanAmount).Mul(hundred).RoundBank(1)
	}
	f.TotalDue = f.PastDueAmount.Add(f.PastDueFees)
	return f
}

// Apply writes the derived fields into the loan for the templates.
func (f Financials) Apply(loan Entity) {
	loan["amount_paid"] = f.AmountPaid
	loan["progress_percent"] = f.ProgressPercent
	loan["total_due"] = f.TotalDue
}
