package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanportal/internal/models"
)

func TestLoanStatement(t *testing.T) {
	loan := models.Entity{
		"id": 1, "contract_number": "C-100", "loan_amount": 1000, "principal_balance": 400,
		"past_due_amount": 50, "past_due_fees": 10, "vin": "1HGCM82633A004352", "year": 2019, "make": "Honda",
	}
	var buf bytes.Buffer
	err := NewStatementGenerator("").LoanStatement(&buf, StatementData{
		Loan:        loan,
		Financials:  models.ComputeFinancials(loan),
		Account:     models.Entity{"id": 10, "company_name": "Acme"},
		GeneratedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 500)
}

func TestLoanStatement_MissingFont(t *testing.T) {
	var buf bytes.Buffer
	err := NewStatementGenerator("/nonexistent/font.ttf").LoanStatement(&buf, StatementData{Loan: models.Entity{"id": 1}})
	assert.Error(t, err)
}
