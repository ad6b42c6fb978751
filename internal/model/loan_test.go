package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanDraftExtractedAndMissing(t *testing.T) {
	none := LateFeeNone
	draft := LoanDraft{
		Platform:          strPtr("Kredivo"),
		OriginalAmount:    floatPtr(5000000),
		TotalInstallments: intPtr(12),
		MonthlyAmount:     floatPtr(0), // zero counts as absent
		LateFeeType:       &none,
	}

	assert.Equal(t, []LoanField{
		FieldPlatform, FieldOriginalAmount, FieldTotalInstallments, FieldLateFeeType, FieldLateFeeValue,
	}, draft.Extracted())
	assert.Equal(t, []LoanField{
		FieldTotalWithInterest, FieldMonthlyAmount, FieldDueDay,
	}, draft.Missing())
	assert.Equal(t, []LoanField{FieldMonthlyAmount, FieldDueDay}, draft.MissingRequired())
}

func TestLoanDraftLateFeeValueNeedsType(t *testing.T) {
	fixed := LateFeeFixed
	draft := LoanDraft{LateFeeType: &fixed}
	assert.False(t, draft.Has(FieldLateFeeValue))

	draft.LateFeeValue = floatPtr(0)
	assert.True(t, draft.Has(FieldLateFeeValue))
}

func TestLoanDraftDueDayRange(t *testing.T) {
	assert.False(t, LoanDraft{DueDay: intPtr(0)}.Has(FieldDueDay))
	assert.False(t, LoanDraft{DueDay: intPtr(32)}.Has(FieldDueDay))
	assert.True(t, LoanDraft{DueDay: intPtr(31)}.Has(FieldDueDay))
}

func TestLoanDraftToLoanDefaults(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	none := LateFeeNone
	draft := LoanDraft{
		Platform:          strPtr("SeaBank"),
		OriginalAmount:    floatPtr(1500000),
		TotalInstallments: intPtr(7),
		MonthlyAmount:     floatPtr(232000),
		DueDay:            intPtr(5),
		LateFeeType:       &none,
		LateFeeValue:      floatPtr(3),
	}

	loan := draft.ToLoan("42", start)

	assert.Equal(t, "42", loan.UserID)
	assert.Equal(t, LoanStatusActive, loan.Status)
	assert.Equal(t, LateFeeNone, loan.LateFeeType)
	assert.Zero(t, loan.LateFeeValue)
	assert.Zero(t, loan.TotalWithInterest)
	assert.Equal(t, 7, loan.RemainingInstallments())
}

func TestRequiredFields(t *testing.T) {
	assert.True(t, FieldPlatform.Required())
	assert.True(t, FieldDueDay.Required())
	assert.False(t, FieldTotalWithInterest.Required())
	assert.False(t, FieldLateFeeType.Required())
}
