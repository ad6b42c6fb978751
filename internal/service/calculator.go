package service

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"driver-finance/internal/model"
)

const daysPerPenaltyMonth = 30

// DaysLate целое число дней просрочки (с округлением вверх); для будущих
// сроков результат нулевой или отрицательный.
func DaysLate(today, due time.Time) int {
	return int(math.Ceil(today.Sub(due).Hours() / 24))
}

// LateFee штраф за взнос по политике займа. Без просрочки штрафа нет.
func LateFee(feeType model.LateFeeType, value, installmentAmount float64, daysLate int) float64 {
	if daysLate <= 0 {
		return 0
	}

	rate := decimal.NewFromFloat(value).Div(decimal.NewFromInt(100))
	amount := decimal.NewFromFloat(installmentAmount)

	switch feeType {
	case model.LateFeePercentMonthly:
		// каждый начатый 30-дневный период считается полным месяцем
		months := (daysLate + daysPerPenaltyMonth - 1) / daysPerPenaltyMonth
		return amount.Mul(rate).Mul(decimal.NewFromInt(int64(months))).InexactFloat64()
	case model.LateFeePercentDaily:
		return amount.Mul(rate).Mul(decimal.NewFromInt(int64(daysLate))).InexactFloat64()
	case model.LateFeeFixed:
		return value
	default:
		return 0
	}
}

// InstallmentLateFee штраф по взносу на дату today
func InstallmentLateFee(d model.DueInstallment, today time.Time) (int, float64) {
	days := DaysLate(today, d.DueDate)
	return days, LateFee(d.LateFeeType, d.LateFeeValue, d.Amount, days)
}

// InterestRate переплата в процентах от суммы займа; ok=false, если общая сумма неизвестна
func InterestRate(original, totalWithInterest float64) (interest, percent float64, ok bool) {
	if totalWithInterest <= 0 || original <= 0 {
		return 0, 0, false
	}
	diff := decimal.NewFromFloat(totalWithInterest).Sub(decimal.NewFromFloat(original))
	pct := diff.Div(decimal.NewFromFloat(original)).Mul(decimal.NewFromInt(100)).Round(1)
	return diff.InexactFloat64(), pct.InexactFloat64(), true
}

// ComputeProgress считает прогресс погашения по займам (кроме отмененных)
// и прогноз даты полного погашения: today + ceil(остаток / сумма
// ежемесячных платежей активных займов) месяцев.
func ComputeProgress(loans []model.Loan, schedules map[uuid.UUID][]model.Installment, today time.Time) model.PortfolioProgress {
	var portfolio model.PortfolioProgress
	paidCount, totalCount := 0, 0
	remaining, monthly := decimal.Zero, decimal.Zero
	totalPaid, totalLateFees := decimal.Zero, decimal.Zero

	for _, loan := range loans {
		if loan.Status == model.LoanStatusCancelled {
			continue
		}

		lp := loanProgress(loan, schedules[loan.ID], today)
		portfolio.Loans = append(portfolio.Loans, lp)

		totalPaid = totalPaid.Add(decimal.NewFromFloat(lp.PaidAmount))
		totalLateFees = totalLateFees.Add(decimal.NewFromFloat(lp.LateFeesPaid))
		paidCount += lp.PaidCount
		totalCount += lp.TotalCount

		switch loan.Status {
		case model.LoanStatusActive:
			portfolio.ActiveCount++
			remaining = remaining.Add(decimal.NewFromFloat(lp.RemainingAmount))
			monthly = monthly.Add(decimal.NewFromFloat(loan.MonthlyAmount))
		case model.LoanStatusPaidOff:
			portfolio.PaidOffCount++
		}
	}

	// ближайшие сроки выше
	sort.SliceStable(portfolio.Loans, func(i, j int) bool {
		a, b := portfolio.Loans[i].NextDueDate, portfolio.Loans[j].NextDueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})

	portfolio.TotalPaid = totalPaid.InexactFloat64()
	portfolio.TotalLateFees = totalLateFees.InexactFloat64()
	portfolio.TotalRemaining = remaining.InexactFloat64()
	portfolio.MonthlyObligation = monthly.InexactFloat64()
	if totalCount > 0 {
		portfolio.PercentComplete = math.Round(float64(paidCount) / float64(totalCount) * 100)
	}

	if remaining.IsPositive() && monthly.IsPositive() {
		months := int(remaining.Div(monthly).Ceil().IntPart())
		payoff := AddMonths(today, months)
		portfolio.MonthsToPayoff = months
		portfolio.ProjectedPayoff = &payoff
	}

	return portfolio
}

func loanProgress(loan model.Loan, schedule []model.Installment, today time.Time) model.LoanProgress {
	lp := model.LoanProgress{
		LoanID:        loan.ID,
		Platform:      loan.Platform,
		Status:        loan.Status,
		PaidCount:     loan.PaidInstallments,
		TotalCount:    loan.TotalInstallments,
		MonthlyAmount: loan.MonthlyAmount,
	}

	paid, fees, remaining, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, inst := range schedule {
		amount := decimal.NewFromFloat(inst.Amount)
		total = total.Add(amount)

		if inst.Status == model.InstallmentPaid {
			paidAmount := inst.PaidAmount
			if paidAmount == 0 {
				paidAmount = inst.Amount
			}
			paid = paid.Add(decimal.NewFromFloat(paidAmount))
			fees = fees.Add(decimal.NewFromFloat(inst.LateFee))
			continue
		}

		remaining = remaining.Add(amount)
		if lp.NextDueDate == nil || inst.DueDate.Before(*lp.NextDueDate) {
			due := inst.DueDate
			lp.NextDueDate = &due
		}
		if inst.Status.Outstanding() && DaysLate(today, inst.DueDate) > 0 {
			lp.OverdueCount++
		}
	}

	lp.PaidAmount = paid.InexactFloat64()
	lp.LateFeesPaid = fees.InexactFloat64()
	lp.RemainingAmount = remaining.InexactFloat64()
	lp.TotalAmount = total.InexactFloat64()
	if lp.TotalCount > 0 {
		lp.PercentComplete = math.Round(float64(lp.PaidCount) / float64(lp.TotalCount) * 100)
	}
	return lp
}
