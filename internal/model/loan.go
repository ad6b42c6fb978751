package model

import (
	"time"

	"github.com/google/uuid"
)

type LateFeeType string

const (
	LateFeePercentMonthly LateFeeType = "percent_monthly" // X% от взноса за каждый начатый месяц
	LateFeePercentDaily   LateFeeType = "percent_daily"   // X% от взноса за каждый день
	LateFeeFixed          LateFeeType = "fixed"           // фиксированная сумма
	LateFeeNone           LateFeeType = "none"            // без штрафа
)

// LateFeeTypes в порядке кнопок клавиатуры
var LateFeeTypes = []LateFeeType{LateFeePercentMonthly, LateFeePercentDaily, LateFeeFixed, LateFeeNone}

func (t LateFeeType) Valid() bool {
	switch t {
	case LateFeePercentMonthly, LateFeePercentDaily, LateFeeFixed, LateFeeNone:
		return true
	}
	return false
}

// IsPercent сообщает, задается ли штраф в процентах
func (t LateFeeType) IsPercent() bool {
	return t == LateFeePercentMonthly || t == LateFeePercentDaily
}

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusPaidOff   LoanStatus = "paid_off"
	LoanStatusCancelled LoanStatus = "cancelled"
)

type InstallmentStatus string

const (
	InstallmentUnpaid  InstallmentStatus = "unpaid"
	InstallmentLate    InstallmentStatus = "late"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentPartial InstallmentStatus = "partial"
)

// Outstanding сообщает, ожидает ли взнос оплаты
func (s InstallmentStatus) Outstanding() bool {
	return s == InstallmentUnpaid || s == InstallmentLate
}

type Loan struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	UserID            string      `json:"user_id" db:"user_id"`
	Platform          string      `json:"platform" db:"platform"`
	OriginalAmount    float64     `json:"original_amount" db:"original_amount"`
	TotalWithInterest float64     `json:"total_with_interest" db:"total_with_interest"` // 0 = неизвестно
	TotalInstallments int         `json:"total_installments" db:"total_installments"`
	PaidInstallments  int         `json:"paid_installments" db:"paid_installments"`
	MonthlyAmount     float64     `json:"monthly_amount" db:"monthly_amount"`
	DueDay            int         `json:"due_day" db:"due_day"`
	LateFeeType       LateFeeType `json:"late_fee_type" db:"late_fee_type"`
	LateFeeValue      float64     `json:"late_fee_value" db:"late_fee_value"`
	Status            LoanStatus  `json:"status" db:"status"`
	Note              string      `json:"note,omitempty" db:"note"`
	StartDate         time.Time   `json:"start_date" db:"start_date"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// RemainingInstallments количество еще не оплаченных взносов
func (l *Loan) RemainingInstallments() int {
	return l.TotalInstallments - l.PaidInstallments
}

type Installment struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	LoanID        uuid.UUID         `json:"loan_id" db:"loan_id"`
	InstallmentNo int               `json:"installment_no" db:"installment_no"`
	Amount        float64           `json:"amount" db:"amount"`
	DueDate       time.Time         `json:"due_date" db:"due_date"`
	Status        InstallmentStatus `json:"status" db:"status"`
	PaidAmount    float64           `json:"paid_amount" db:"paid_amount"`
	PaidDate      *time.Time        `json:"paid_date" db:"paid_date"`
	LateFee       float64           `json:"late_fee" db:"late_fee"`
	Note          string            `json:"note,omitempty" db:"note"`
}

// DueInstallment взнос вместе с данными своего займа, для отчетов и напоминаний
type DueInstallment struct {
	Installment
	Platform          string      `json:"platform"`
	LateFeeType       LateFeeType `json:"late_fee_type"`
	LateFeeValue      float64     `json:"late_fee_value"`
	TotalInstallments int         `json:"total_installments"`
}

// LoanField поле черновика займа. Порядок LoanFields канонический:
// в нем мастер спрашивает недостающие поля.
type LoanField string

const (
	FieldPlatform          LoanField = "platform"
	FieldOriginalAmount    LoanField = "original_amount"
	FieldTotalWithInterest LoanField = "total_with_interest"
	FieldTotalInstallments LoanField = "total_installments"
	FieldMonthlyAmount     LoanField = "monthly_amount"
	FieldDueDay            LoanField = "due_day"
	FieldLateFeeType       LoanField = "late_fee_type"
	FieldLateFeeValue      LoanField = "late_fee_value"
)

var LoanFields = []LoanField{
	FieldPlatform,
	FieldOriginalAmount,
	FieldTotalWithInterest,
	FieldTotalInstallments,
	FieldMonthlyAmount,
	FieldDueDay,
	FieldLateFeeType,
	FieldLateFeeValue,
}

// RequiredLoanFields без них займ нельзя сохранить
var RequiredLoanFields = []LoanField{
	FieldPlatform,
	FieldOriginalAmount,
	FieldTotalInstallments,
	FieldMonthlyAmount,
	FieldDueDay,
}

// EditableLoanFields пункты меню редактирования (1-7); значение штрафа
// редактируется вместе с его типом.
var EditableLoanFields = []LoanField{
	FieldPlatform,
	FieldOriginalAmount,
	FieldTotalWithInterest,
	FieldTotalInstallments,
	FieldMonthlyAmount,
	FieldDueDay,
	FieldLateFeeType,
}

func (f LoanField) Required() bool {
	for _, r := range RequiredLoanFields {
		if r == f {
			return true
		}
	}
	return false
}

// LoanDraft черновик займа. nil означает "не указано".
type LoanDraft struct {
	Platform          *string      `json:"platform,omitempty"`
	OriginalAmount    *float64     `json:"original_amount,omitempty"`
	TotalWithInterest *float64     `json:"total_with_interest,omitempty"`
	TotalInstallments *int         `json:"total_installments,omitempty"`
	MonthlyAmount     *float64     `json:"monthly_amount,omitempty"`
	DueDay            *int         `json:"due_day,omitempty"`
	LateFeeType       *LateFeeType `json:"late_fee_type,omitempty"`
	LateFeeValue      *float64     `json:"late_fee_value,omitempty"`
}

// Has сообщает, считается ли поле заполненным: строки непустые,
// числа строго положительные, значение штрафа заполнено при типе none
// (подразумевается 0) либо если задано явно.
func (d LoanDraft) Has(f LoanField) bool {
	switch f {
	case FieldPlatform:
		return d.Platform != nil && *d.Platform != ""
	case FieldOriginalAmount:
		return d.OriginalAmount != nil && *d.OriginalAmount > 0
	case FieldTotalWithInterest:
		return d.TotalWithInterest != nil && *d.TotalWithInterest > 0
	case FieldTotalInstallments:
		return d.TotalInstallments != nil && *d.TotalInstallments > 0
	case FieldMonthlyAmount:
		return d.MonthlyAmount != nil && *d.MonthlyAmount > 0
	case FieldDueDay:
		return d.DueDay != nil && *d.DueDay >= 1 && *d.DueDay <= 31
	case FieldLateFeeType:
		return d.LateFeeType != nil && d.LateFeeType.Valid()
	case FieldLateFeeValue:
		if d.LateFeeType != nil && *d.LateFeeType == LateFeeNone {
			return true
		}
		return d.LateFeeValue != nil
	}
	return false
}

// Extracted поля черновика, которые считаются заполненными, в каноническом порядке
func (d LoanDraft) Extracted() []LoanField {
	var fields []LoanField
	for _, f := range LoanFields {
		if d.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Missing незаполненные поля в каноническом порядке: все обязательные
// плюс необязательные (общая сумма и пара штрафа), которые пользователю
// предлагают заполнить.
func (d LoanDraft) Missing() []LoanField {
	var fields []LoanField
	for _, f := range LoanFields {
		if !d.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// MissingRequired незаполненные обязательные поля
func (d LoanDraft) MissingRequired() []LoanField {
	var fields []LoanField
	for _, f := range RequiredLoanFields {
		if !d.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// ToLoan собирает займ из полного черновика. Необязательные поля
// по умолчанию: общая сумма 0 (неизвестна), штраф none.
func (d LoanDraft) ToLoan(userID string, startDate time.Time) *Loan {
	loan := &Loan{
		UserID:      userID,
		LateFeeType: LateFeeNone,
		Status:      LoanStatusActive,
		StartDate:   startDate,
	}
	if d.Platform != nil {
		loan.Platform = *d.Platform
	}
	if d.OriginalAmount != nil {
		loan.OriginalAmount = *d.OriginalAmount
	}
	if d.TotalWithInterest != nil {
		loan.TotalWithInterest = *d.TotalWithInterest
	}
	if d.TotalInstallments != nil {
		loan.TotalInstallments = *d.TotalInstallments
	}
	if d.MonthlyAmount != nil {
		loan.MonthlyAmount = *d.MonthlyAmount
	}
	if d.DueDay != nil {
		loan.DueDay = *d.DueDay
	}
	if d.LateFeeType != nil && d.LateFeeType.Valid() {
		loan.LateFeeType = *d.LateFeeType
	}
	if d.LateFeeValue != nil && loan.LateFeeType != LateFeeNone {
		loan.LateFeeValue = *d.LateFeeValue
	}
	return loan
}
