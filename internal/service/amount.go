package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"driver-finance/internal/model"
)

var (
	plainDigits     = regexp.MustCompile(`^\d+$`)
	dotGrouped      = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	commaGrouped    = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	shorthandAmount = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)(jt|juta|rb|ribu|k|m)$`)
	countPattern    = regexp.MustCompile(`^(\d+)(x|kali|bulan|bln)?$`)
	dueDayPattern   = regexp.MustCompile(`^(?:tgl|tanggal)?(\d{1,2})$`)
	percentPattern  = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)%?$`)
)

var shorthandMultipliers = map[string]int64{
	"jt":   1_000_000,
	"juta": 1_000_000,
	"m":    1_000_000,
	"rb":   1_000,
	"ribu": 1_000,
	"k":    1_000,
}

// ParseAmount разбирает сумму в рупиях: "3500000", "3.500.000", "3,5jt",
// "500rb", "45k", "1.5m", "Rp 20.000". Дробные суммы с суффиксом
// округляются до целой рупии. ok=false, если строку не удалось разобрать.
func ParseAmount(input string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(s, "rp.")
	s = strings.TrimPrefix(s, "rp")
	if s == "" {
		return 0, false
	}

	switch {
	case plainDigits.MatchString(s):
		return parseWhole(s)
	case dotGrouped.MatchString(s):
		return parseWhole(strings.ReplaceAll(s, ".", ""))
	case commaGrouped.MatchString(s):
		return parseWhole(strings.ReplaceAll(s, ",", ""))
	}

	m := shorthandAmount.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	value, err := decimal.NewFromString(strings.Replace(m[1], ",", ".", 1))
	if err != nil {
		return 0, false
	}
	return value.Mul(decimal.NewFromInt(shorthandMultipliers[m[2]])).Round(0).InexactFloat64(), true
}

func parseWhole(s string) (float64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

// ParsePositiveAmount как ParseAmount, но ноль считается ошибкой
func ParsePositiveAmount(input string) (float64, bool) {
	v, ok := ParseAmount(input)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseTotalWithInterest дополнительно принимает "skip"/"lewati" и 0 как "неизвестно"
func ParseTotalWithInterest(input string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "skip", "lewati", "-":
		return 0, true
	}
	v, ok := ParseAmount(input)
	if !ok || v < 0 {
		return 0, false
	}
	return v, true
}

// ParseInstallmentCount положительное число взносов: "10", "10x", "12 bulan"
func ParseInstallmentCount(input string) (int, bool) {
	s := strings.Join(strings.Fields(strings.ToLower(input)), "")
	m := countPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseDueDay день месяца 1..31: "13", "tgl 13", "tanggal 5"
func ParseDueDay(input string) (int, bool) {
	s := strings.Join(strings.Fields(strings.ToLower(input)), "")
	m := dueDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

// ParseLateFeeValue неотрицательное, возможно дробное значение штрафа.
// Для фиксированного штрафа принимает и сокращения сумм ("50rb").
func ParseLateFeeValue(input string, feeType model.LateFeeType) (float64, bool) {
	if feeType == model.LateFeeFixed {
		if v, ok := ParseAmount(input); ok {
			return v, true
		}
	}

	s := strings.Join(strings.Fields(strings.ToLower(input)), "")
	m := percentPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := decimal.NewFromString(strings.Replace(m[1], ",", ".", 1))
	if err != nil || value.IsNegative() {
		return 0, false
	}
	return value.InexactFloat64(), true
}

// ParseLateFeeType разбирает тип штрафа из данных кнопки или текста
func ParseLateFeeType(input string) (model.LateFeeType, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch s {
	case "1", "bulanan", "per bulan", "persen per bulan":
		return model.LateFeePercentMonthly, true
	case "2", "harian", "per hari", "persen per hari":
		return model.LateFeePercentDaily, true
	case "3", "tetap", "nominal", "nominal tetap":
		return model.LateFeeFixed, true
	case "4", "tidak ada", "tanpa denda", "no", "ga ada", "gak ada":
		return model.LateFeeNone, true
	}
	t := model.LateFeeType(s)
	return t, t.Valid()
}
