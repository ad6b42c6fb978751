package model

import (
	"time"

	"github.com/google/uuid"
)

// LoanProgress прогресс погашения одного займа
type LoanProgress struct {
	LoanID          uuid.UUID  `json:"loan_id"`
	Platform        string     `json:"platform"`
	Status          LoanStatus `json:"status"`
	PaidCount       int        `json:"paid_count"`
	TotalCount      int        `json:"total_count"`
	PaidAmount      float64    `json:"paid_amount"`
	LateFeesPaid    float64    `json:"late_fees_paid"`
	RemainingAmount float64    `json:"remaining_amount"`
	TotalAmount     float64    `json:"total_amount"`
	PercentComplete float64    `json:"percent_complete"`
	MonthlyAmount   float64    `json:"monthly_amount"`
	NextDueDate     *time.Time `json:"next_due_date"`
	OverdueCount    int        `json:"overdue_count"`
}

// PortfolioProgress сводный прогресс по всем займам
type PortfolioProgress struct {
	Loans             []LoanProgress `json:"loans"`
	TotalPaid         float64        `json:"total_paid"`
	TotalRemaining    float64        `json:"total_remaining"`
	TotalLateFees     float64        `json:"total_late_fees"`
	MonthlyObligation float64        `json:"monthly_obligation"` // сумма ежемесячных платежей активных займов
	PercentComplete   float64        `json:"percent_complete"`
	ActiveCount       int            `json:"active_count"`
	PaidOffCount      int            `json:"paid_off_count"`
	MonthsToPayoff    int            `json:"months_to_payoff"`
	ProjectedPayoff   *time.Time     `json:"projected_payoff"` // nil, если долгов нет
}

// PenaltyLine штраф по одному просроченному взносу
type PenaltyLine struct {
	Platform      string    `json:"platform"`
	InstallmentNo int       `json:"installment_no"`
	Amount        float64   `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	DaysLate      int       `json:"days_late"`
	LateFee       float64   `json:"late_fee"`
}

// MonthlySummary сводка за календарный месяц
type MonthlySummary struct {
	Year         int              `json:"year"`
	Month        time.Month       `json:"month"`
	Due          []DueInstallment `json:"due"`
	DueTotal     float64          `json:"due_total"`
	PaidTotal    float64          `json:"paid_total"`
	UnpaidTotal  float64          `json:"unpaid_total"`
	Records      RecordTotals     `json:"records"`
	DebtToIncome float64          `json:"debt_to_income"` // доля обязательств в доходе, 0 если дохода нет
}
