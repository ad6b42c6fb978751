package service

import (
	"time"

	"github.com/google/uuid"

	"driver-finance/internal/model"
)

// GenerateSchedule раскладывает займ на count взносов. Срок i-го взноса:
// месяц даты начала плюс i, день dueDay; если такого дня в месяце нет,
// берется последний день месяца.
func GenerateSchedule(loanID uuid.UUID, count int, amount float64, dueDay int, start time.Time) []model.Installment {
	schedule := make([]model.Installment, 0, count)
	for i := 1; i <= count; i++ {
		schedule = append(schedule, model.Installment{
			ID:            uuid.New(),
			LoanID:        loanID,
			InstallmentNo: i,
			Amount:        amount,
			DueDate:       DueDate(start, i, dueDay),
			Status:        model.InstallmentUnpaid,
		})
	}
	return schedule
}

// DueDate дата в месяце start+months с днем day, прижатым к концу месяца
func DueDate(start time.Time, months, day int) time.Time {
	// первое число целевого месяца; time.Date сам переносит год
	first := time.Date(start.Year(), start.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysInMonth(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// AddMonths сдвигает дату на months месяцев, сохраняя день, где это возможно
func AddMonths(t time.Time, months int) time.Time {
	return DueDate(t, months, t.Day())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
