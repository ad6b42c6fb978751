package model

import "time"

type IntentName string

const (
	IntentRecordIncome   IntentName = "record_income"
	IntentRecordExpense  IntentName = "record_expense"
	IntentRegisterLoan   IntentName = "register_loan"
	IntentPayInstallment IntentName = "pay_installment"
	IntentViewLoans      IntentName = "view_loans"
	IntentViewPenalty    IntentName = "view_penalty"
	IntentViewProgress   IntentName = "view_progress"
	IntentViewReport     IntentName = "view_report"
	IntentSetTarget      IntentName = "set_target"
	IntentViewTarget     IntentName = "view_target"
	IntentHelp           IntentName = "help"
	IntentUnknown        IntentName = "unknown"
)

type ReportPeriod string

const (
	PeriodToday ReportPeriod = "today"
	PeriodWeek  ReportPeriod = "week"
	PeriodMonth ReportPeriod = "month"
)

type TargetPeriod string

const (
	TargetDaily   TargetPeriod = "daily"
	TargetWeekly  TargetPeriod = "weekly"
	TargetMonthly TargetPeriod = "monthly"
)

// Intent результат классификации сообщения. Набор реализаций закрыт:
// обработчики разбирают его через type switch.
type Intent interface {
	Name() IntentName
	isIntent()
}

type RecordIncomeIntent struct {
	Amount float64
	Type   IncomeType
	Note   string
	Date   time.Time // нулевое значение = сегодня
}

type RecordExpenseIntent struct {
	Amount   float64
	Category ExpenseCategory
	Note     string
	Date     time.Time
}

type RegisterLoanIntent struct {
	Draft LoanDraft
}

type PayInstallmentIntent struct {
	Platform string
}

type ViewLoansIntent struct{}

type ViewPenaltyIntent struct {
	Platform string
}

type ViewProgressIntent struct{}

type ViewReportIntent struct {
	Period ReportPeriod
}

type SetTargetIntent struct {
	Amount float64
	Period TargetPeriod
}

type ViewTargetIntent struct{}

type HelpIntent struct{}

type UnknownIntent struct{}

func (RecordIncomeIntent) Name() IntentName   { return IntentRecordIncome }
func (RecordExpenseIntent) Name() IntentName  { return IntentRecordExpense }
func (RegisterLoanIntent) Name() IntentName   { return IntentRegisterLoan }
func (PayInstallmentIntent) Name() IntentName { return IntentPayInstallment }
func (ViewLoansIntent) Name() IntentName      { return IntentViewLoans }
func (ViewPenaltyIntent) Name() IntentName    { return IntentViewPenalty }
func (ViewProgressIntent) Name() IntentName   { return IntentViewProgress }
func (ViewReportIntent) Name() IntentName     { return IntentViewReport }
func (SetTargetIntent) Name() IntentName      { return IntentSetTarget }
func (ViewTargetIntent) Name() IntentName     { return IntentViewTarget }
func (HelpIntent) Name() IntentName           { return IntentHelp }
func (UnknownIntent) Name() IntentName        { return IntentUnknown }

func (RecordIncomeIntent) isIntent()   {}
func (RecordExpenseIntent) isIntent()  {}
func (RegisterLoanIntent) isIntent()   {}
func (PayInstallmentIntent) isIntent() {}
func (ViewLoansIntent) isIntent()      {}
func (ViewPenaltyIntent) isIntent()    {}
func (ViewProgressIntent) isIntent()   {}
func (ViewReportIntent) isIntent()     {}
func (SetTargetIntent) isIntent()      {}
func (ViewTargetIntent) isIntent()     {}
func (HelpIntent) isIntent()           {}
func (UnknownIntent) isIntent()        {}
