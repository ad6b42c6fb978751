package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver-finance/internal/model"
)

func dueInstallment(platform string, no int, due time.Time, status model.InstallmentStatus) model.DueInstallment {
	return model.DueInstallment{
		Installment: model.Installment{
			InstallmentNo: no,
			Amount:        500000,
			DueDate:       due,
			Status:        status,
		},
		Platform:          platform,
		LateFeeType:       model.LateFeePercentMonthly,
		LateFeeValue:      5,
		TotalInstallments: 10,
	}
}

func TestComputePenalties(t *testing.T) {
	today := date(2026, 3, 20)
	due := []model.DueInstallment{
		dueInstallment("SeaBank", 2, date(2026, 2, 5), model.InstallmentUnpaid),
		dueInstallment("Kredivo", 1, date(2026, 3, 15), model.InstallmentLate),
		dueInstallment("Kredivo", 2, date(2026, 4, 15), model.InstallmentUnpaid),
		dueInstallment("Akulaku", 1, date(2026, 1, 5), model.InstallmentPaid),
	}

	lines := ComputePenalties(due, today, "")
	require.Len(t, lines, 2)
	assert.Equal(t, "Kredivo", lines[0].Platform)
	assert.Equal(t, 5, lines[0].DaysLate)
	assert.Equal(t, 25000.0, lines[0].LateFee)
	assert.Equal(t, "SeaBank", lines[1].Platform)
	assert.Equal(t, 43, lines[1].DaysLate)
	assert.Equal(t, 50000.0, lines[1].LateFee)

	lines = ComputePenalties(due, today, "sea")
	require.Len(t, lines, 1)
	assert.Equal(t, "SeaBank", lines[0].Platform)
}

func TestComputeMonthlySummary(t *testing.T) {
	due := []model.DueInstallment{
		dueInstallment("SeaBank", 3, date(2026, 3, 5), model.InstallmentPaid),
		dueInstallment("Kredivo", 2, date(2026, 3, 15), model.InstallmentUnpaid),
	}
	totals := model.RecordTotals{TotalIncome: 4000000}

	s := ComputeMonthlySummary(due, totals, 2026, time.March)

	assert.Equal(t, 1000000.0, s.DueTotal)
	assert.Equal(t, 500000.0, s.PaidTotal)
	assert.Equal(t, 500000.0, s.UnpaidTotal)
	assert.Equal(t, 0.25, s.DebtToIncome)
	require.Len(t, s.Due, 2)
	assert.Equal(t, "Kredivo", s.Due[0].Platform)
}

func TestParseMonthArg(t *testing.T) {
	y, m, ok := ParseMonthArg("3", 2026)
	assert.True(t, ok)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.March, m)

	y, m, ok = ParseMonthArg("2025-12", 2026)
	assert.True(t, ok)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.December, m)

	for _, arg := range []string{"13", "abc", "1999-01", "2026-0"} {
		_, _, ok := ParseMonthArg(arg, 2026)
		assert.False(t, ok, arg)
	}
}

func TestReportRange(t *testing.T) {
	// 2026-03-19 четверг
	today := date(2026, 3, 19)

	from, _ := ReportRange(today, model.PeriodToday)
	assert.Equal(t, today, from)
	from, _ = ReportRange(today, model.PeriodWeek)
	assert.Equal(t, date(2026, 3, 16), from)
	from, _ = ReportRange(today, model.PeriodMonth)
	assert.Equal(t, date(2026, 3, 1), from)

	sunday := date(2026, 3, 22)
	from, _ = ReportRange(sunday, model.PeriodWeek)
	assert.Equal(t, date(2026, 3, 16), from)
}

func TestBuildAlert(t *testing.T) {
	today := date(2026, 3, 15)
	due := []model.DueInstallment{
		dueInstallment("SeaBank", 2, date(2026, 3, 10), model.InstallmentUnpaid),
		dueInstallment("Kredivo", 1, date(2026, 3, 15), model.InstallmentUnpaid),
		dueInstallment("Akulaku", 4, date(2026, 3, 17), model.InstallmentUnpaid),
	}

	alert := BuildAlert(due, today)

	assert.Contains(t, alert, "TELAT BAYAR")
	assert.Contains(t, alert, "SeaBank</b> ke-2/10: Rp 500.000 (telat 5 hari)")
	assert.Contains(t, alert, "JATUH TEMPO HARI INI")
	assert.Contains(t, alert, "Akulaku</b> ke-4/10: Rp 500.000 (2 hari lagi)")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "Rp 3.500.000", formatRupiah(3500000))
	assert.Equal(t, "Rp 0", formatRupiah(0))
	assert.Equal(t, "13 Feb 2026", formatDate(date(2026, 2, 13)))
	assert.Equal(t, "█████░░░░░", progressBar(50, 10))
}
