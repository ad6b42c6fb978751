package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
)

var ErrNoJSON = errors.New("в ответе модели нет JSON")

// модель иногда окружает JSON рассуждениями или markdown
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

type rawIntent struct {
	Intent     string         `json:"intent"`
	Params     map[string]any `json:"params"`
	Confidence *float64       `json:"confidence"`
}

// Decode разбирает ответ модели в намерение. Ошибка возвращается только
// когда ответ не удалось разобрать как JSON; неизвестное имя намерения
// дает Unknown с уверенностью 0.
func Decode(raw string, today time.Time) (model.Intent, float64, error) {
	match := jsonObject.FindString(raw)
	if match == "" {
		return nil, 0, ErrNoJSON
	}

	var parsed rawIntent
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, 0, fmt.Errorf("ошибка при разборе JSON ответа: %w", err)
	}

	confidence := 0.5
	if parsed.Confidence != nil {
		confidence = min(1, max(0, *parsed.Confidence))
	}

	p := params(parsed.Params)
	var intent model.Intent
	switch model.IntentName(parsed.Intent) {
	case model.IntentRecordIncome:
		in := model.RecordIncomeIntent{
			Amount: p.positive("amount"),
			Type:   model.IncomeType(p.str("type")),
			Note:   p.str("note"),
			Date:   p.date("date"),
		}
		if !in.Type.Valid() {
			in.Type = model.IncomeFood
		}
		intent = in
	case model.IntentRecordExpense:
		ex := model.RecordExpenseIntent{
			Amount:   p.positive("amount"),
			Category: model.ExpenseCategory(p.str("category")),
			Note:     p.str("note"),
			Date:     p.date("date"),
		}
		if !ex.Category.Valid() {
			ex.Category = model.ExpenseOther
		}
		intent = ex
	case model.IntentRegisterLoan:
		intent = model.RegisterLoanIntent{Draft: p.loanDraft()}
	case model.IntentPayInstallment:
		intent = model.PayInstallmentIntent{Platform: p.str("platform")}
	case model.IntentViewLoans:
		intent = model.ViewLoansIntent{}
	case model.IntentViewPenalty:
		intent = model.ViewPenaltyIntent{Platform: p.str("platform")}
	case model.IntentViewProgress:
		intent = model.ViewProgressIntent{}
	case model.IntentViewReport:
		period := model.ReportPeriod(p.str("period"))
		switch period {
		case model.PeriodToday, model.PeriodWeek, model.PeriodMonth:
		default:
			period = model.PeriodToday
		}
		intent = model.ViewReportIntent{Period: period}
	case model.IntentSetTarget:
		period := model.TargetPeriod(p.str("period"))
		switch period {
		case model.TargetDaily, model.TargetWeekly, model.TargetMonthly:
		default:
			period = model.TargetDaily
		}
		intent = model.SetTargetIntent{Amount: p.positive("amount"), Period: period}
	case model.IntentViewTarget:
		intent = model.ViewTargetIntent{}
	case model.IntentHelp:
		intent = model.HelpIntent{}
	case model.IntentUnknown:
		intent = model.UnknownIntent{}
	default:
		return model.UnknownIntent{}, 0, nil
	}

	return intent, confidence, nil
}

// params параметры намерения как их вернула модель: числа могут прийти
// строками, отсутствующие поля как null
type params map[string]any

func (p params) str(key string) string {
	s, ok := p[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// number число из JSON-числа или строки вида "Rp 45.000"/"45000"
func (p params) number(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case string:
		cleaned := nonNumeric.ReplaceAllString(v, "")
		// точки в рупиях разделяют тысячи, а не дробную часть
		if strings.Count(cleaned, ".") > 1 || looksLikeThousands(cleaned) {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	}
	return 0, false
}

// positive число больше нуля или 0, если его нет
func (p params) positive(key string) float64 {
	n, ok := p.number(key)
	if !ok || n <= 0 {
		return 0
	}
	return n
}

func (p params) date(key string) time.Time {
	d, err := clock.ParseDate(p.str(key))
	if err != nil {
		return time.Time{}
	}
	return d
}

func (p params) loanDraft() model.LoanDraft {
	var d model.LoanDraft
	if s := p.str("platform"); s != "" {
		d.Platform = &s
	}
	if n, ok := p.number("original_amount"); ok {
		d.OriginalAmount = &n
	}
	if n, ok := p.number("total_with_interest"); ok {
		d.TotalWithInterest = &n
	}
	if n, ok := p.number("total_installments"); ok {
		count := int(n)
		d.TotalInstallments = &count
	}
	if n, ok := p.number("monthly_amount"); ok {
		d.MonthlyAmount = &n
	}
	if n, ok := p.number("due_day"); ok {
		day := int(n)
		d.DueDay = &day
	}
	if t := model.LateFeeType(p.str("late_fee_type")); t.Valid() {
		d.LateFeeType = &t
	}
	if n, ok := p.number("late_fee_value"); ok && n >= 0 {
		d.LateFeeValue = &n
	}
	return d
}

// looksLikeThousands "45.000" похоже на разделитель тысяч, "0.25" нет
func looksLikeThousands(s string) bool {
	i := strings.IndexByte(s, '.')
	return i > 0 && len(s)-i-1 == 3
}
