package models

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeFinancials(t *testing.T) {
	tests := []struct {
		name                    string
		loan                    Entity
		paid, progress, totalDue string
	}{
		{
			name:     "regular",
			loan:     Entity{"loan_amount": 1000, "principal_balance": 400, "past_due_amount": 50, "past_due_fees": 10},
			paid:     "600",
			progress: "60",
			totalDue: "60",
		},
		{
			name:     "zero amount",
			loan:     Entity{"loan_amount": 0, "principal_balance": 400, "past_due_amount": 5},
			paid:     "0",
			progress: "0",
			totalDue: "5",
		},
		{
			name:     "missing and junk values",
			loan:     Entity{"loan_amount": "n/a", "past_due_fees": nil},
			paid:     "0",
			progress: "0",
			totalDue: "0",
		},
		{
			name:     "rounded to one place",
			loan:     Entity{"loan_amount": json.Number("3000"), "principal_balance": json.Number("2000")},
			paid:     "1000",
			progress: "33.3",
			totalDue: "0",
		},
		{
			name:     "balance above amount is not clamped",
			loan:     Entity{"loan_amount": 1000.0, "principal_balance": 1500.0},
			paid:     "-500",
			progress: "-50",
			totalDue: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ComputeFinancials(tt.loan)
			assert.True(t, f.AmountPaid.Equal(dec(tt.paid)), "amount_paid %s", f.AmountPaid)
			assert.True(t, f.ProgressPercent.Equal(dec(tt.progress)), "progress %s", f.ProgressPercent)
			assert.True(t, f.TotalDue.Equal(dec(tt.totalDue)), "total_due %s", f.TotalDue)
		})
	}
}

func TestFinancialsApply(t *testing.T) {
	loan := Entity{"loan_amount": 1000, "principal_balance": 400}
	ComputeFinancials(loan).Apply(loan)
	assert.Equal(t, "600", loan.String("amount_paid"))
	assert.Equal(t, "60", loan.String("progress_percent"))
	assert.Equal(t, "0", loan.String("total_due"))
}

func TestEntityAccessors(t *testing.T) {
	e := Entity{
		"id":         json.Number("7"),
		"account_id": 3.0,
		"contact_id": "12",
		"loan_id":    nil,
		"VIN":        "  ",
		"vin":        "1hgcm",
		"ratio":      1.5,
	}
	assert.Equal(t, 7, e.ID())

	n, ok := e.Int("account_id")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = e.Int("contact_id")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = e.Int("loan_id")
	assert.False(t, ok)
	_, ok = e.Int("ratio")
	assert.False(t, ok)

	assert.False(t, e.Has("loan_id"))
	assert.False(t, e.Has("VIN"))
	assert.True(t, e.Has("vin"))
	assert.Equal(t, "1hgcm", e.FirstString(VINFields...))

	assert.True(t, SameInt(e, "account_id", Entity{"account_id": json.Number("3")}, "account_id"))
	assert.False(t, SameInt(e, "loan_id", Entity{"loan_id": nil}, "loan_id"))
}

func TestEntityLabel(t *testing.T) {
	assert.Equal(t, "2019 Honda Civic", Entity{"Year": 2019, "Make": "Honda", "Model": "Civic"}.Label(KindAsset))
	assert.Equal(t, "Jane Doe", Entity{"first_name": "Jane", "last_name": "Doe"}.Label(KindContact))
	assert.Equal(t, "Loan #4", Entity{"id": 4}.Label(KindLoan))
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"loan", "loans", " LOANS "} {
		k, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, KindLoan, k)
	}
	_, err := ParseKind("invoices")
	assert.Error(t, err)

	assert.Equal(t, "cases", KindCase.Collection())
	assert.Equal(t, "account_id", KindAccount.FKField())
	assert.Equal(t, "Asset", KindAsset.Title())
	assert.True(t, KindLoan.Deletable())
	assert.False(t, KindAccount.Deletable())
}

func TestPayloadFromForm(t *testing.T) {
	form := url.Values{
		"contract_number": {"LN-1"},
		"account_id":      {"5"},
		"contact_id":      {""},
		"loan_amount":     {"1200.50"},
		"interest_rate":   {"abc"},
	}
	got, err := PayloadFromForm(KindLoan, form)
	require.NoError(t, err)
	assert.Equal(t, Entity{
		"contract_number": "LN-1",
		"status":          "Active",
		"account_id":      5,
		"loan_amount":     json.Number("1200.5"),
	}, got)

	_, err = PayloadFromForm(KindAsset, url.Values{"Year": {"twenty"}})
	assert.Error(t, err)

	got, err = PayloadFromForm(KindCase, url.Values{"subject": {"Skip"}})
	require.NoError(t, err)
	assert.Equal(t, "Low", got["priority"])
	assert.Equal(t, "Open", got["status"])
}
