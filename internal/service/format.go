package service

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"driver-finance/internal/model"
)

var monthNamesShort = []string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

var monthNames = []string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// formatRupiah "Rp 3.500.000" с точками-разделителями тысяч
func formatRupiah(amount float64) string {
	rounded := decimal.NewFromFloat(amount).Round(0).IntPart()
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}

	digits := strconv.FormatInt(rounded, 10)
	var b strings.Builder
	for i, ch := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(ch)
	}
	return sign + "Rp " + b.String()
}

// formatDate "13 Feb 2026"
func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthNamesShort[t.Month()-1], t.Year())
}

func formatMonth(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", monthNames[month-1], year)
}

// formatNumber печатает число без лишних нулей: 5, 0.25
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// progressBar полоса из width блоков для процента 0..100
func progressBar(percent float64, width int) string {
	filled := int(percent/100*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// escape экранирует пользовательский текст для parse_mode=HTML
func escape(s string) string {
	return html.EscapeString(s)
}

func lateFeeTypeLabel(t model.LateFeeType) string {
	switch t {
	case model.LateFeePercentMonthly:
		return "Persen per bulan"
	case model.LateFeePercentDaily:
		return "Persen per hari"
	case model.LateFeeFixed:
		return "Nominal tetap"
	default:
		return "Tidak ada denda"
	}
}

// formatLateFee "Persen per bulan (5%)", "Nominal tetap (Rp 50.000)"
func formatLateFee(t model.LateFeeType, value float64) string {
	switch {
	case t == model.LateFeeNone:
		return lateFeeTypeLabel(t)
	case t.IsPercent():
		return fmt.Sprintf("%s (%s%%)", lateFeeTypeLabel(t), formatNumber(value))
	default:
		return fmt.Sprintf("%s (%s)", lateFeeTypeLabel(t), formatRupiah(value))
	}
}

func incomeTypeLabel(t model.IncomeType) string {
	if t == model.IncomeSPX {
		return "SPX Express"
	}
	return "ShopeeFood"
}

var expenseCategoryLabels = map[model.ExpenseCategory]string{
	model.ExpenseFuel:           "⛽ Bensin",
	model.ExpenseParking:        "🅿️ Parkir",
	model.ExpenseMeals:          "🍜 Makan/Minum",
	model.ExpenseCigarettes:     "🚬 Rokok",
	model.ExpenseDataPlan:       "📱 Pulsa/Data",
	model.ExpenseVehicleService: "🔧 Servis Motor",
	model.ExpenseHousehold:      "🏠 Rumah Tangga",
	model.ExpenseElectricity:    "💡 Listrik/Air",
	model.ExpenseEmergency:      "🚨 Darurat",
	model.ExpenseOther:          "📦 Lainnya",
}

func expenseCategoryLabel(c model.ExpenseCategory) string {
	if label, ok := expenseCategoryLabels[c]; ok {
		return label
	}
	return expenseCategoryLabels[model.ExpenseOther]
}

// loanFieldLabel название поля займа для пользователя
func loanFieldLabel(f model.LoanField) string {
	switch f {
	case model.FieldPlatform:
		return "Platform"
	case model.FieldOriginalAmount:
		return "Jumlah pinjaman"
	case model.FieldTotalWithInterest:
		return "Total harus dibayar"
	case model.FieldTotalInstallments:
		return "Jumlah cicilan"
	case model.FieldMonthlyAmount:
		return "Cicilan per bulan"
	case model.FieldDueDay:
		return "Tanggal jatuh tempo"
	case model.FieldLateFeeType:
		return "Jenis denda"
	case model.FieldLateFeeValue:
		return "Nilai denda"
	}
	return string(f)
}

// draftFieldValue текущее значение поля черновика для показа пользователю
func draftFieldValue(d model.LoanDraft, f model.LoanField) string {
	if !d.Has(f) {
		if f == model.FieldTotalWithInterest && d.TotalWithInterest != nil {
			return "tidak diketahui"
		}
		return "-"
	}

	switch f {
	case model.FieldPlatform:
		return "<b>" + escape(*d.Platform) + "</b>"
	case model.FieldOriginalAmount:
		return formatRupiah(*d.OriginalAmount)
	case model.FieldTotalWithInterest:
		return formatRupiah(*d.TotalWithInterest)
	case model.FieldTotalInstallments:
		return fmt.Sprintf("%dx", *d.TotalInstallments)
	case model.FieldMonthlyAmount:
		return formatRupiah(*d.MonthlyAmount) + "/bulan"
	case model.FieldDueDay:
		return fmt.Sprintf("Tanggal %d", *d.DueDay)
	case model.FieldLateFeeType:
		value := 0.0
		if d.LateFeeValue != nil {
			value = *d.LateFeeValue
		}
		if *d.LateFeeType != model.LateFeeNone && d.LateFeeValue == nil {
			return lateFeeTypeLabel(*d.LateFeeType)
		}
		return formatLateFee(*d.LateFeeType, value)
	case model.FieldLateFeeValue:
		if d.LateFeeType != nil && d.LateFeeType.IsPercent() {
			return formatNumber(*d.LateFeeValue) + "%"
		}
		if d.LateFeeValue == nil {
			return formatRupiah(0)
		}
		return formatRupiah(*d.LateFeeValue)
	}
	return "-"
}
