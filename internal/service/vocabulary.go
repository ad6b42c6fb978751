package service

import (
	"strings"
	"unicode"

	"driver-finance/internal/model"
)

// Feature группа ключевых слов, по которой текст относится к функции бота
type Feature string

const (
	FeatureLoan    Feature = "loan"
	FeaturePayment Feature = "payment"
	FeatureIncome  Feature = "income"
	FeatureExpense Feature = "expense"
	FeatureReport  Feature = "report"
)

// PreRoute фраза, которая сразу ведет к интенту без классификатора
type PreRoute struct {
	Phrases []string
	Intent  model.Intent
}

// Vocabulary единая таблица ключевых слов: ею пользуются и предварительная
// маршрутизация, и защита шага мастера от чужих команд.
type Vocabulary struct {
	CancelWord string
	PreRoutes  []PreRoute
	// RegisterWords отменяют предварительную маршрутизацию: "tambah hutang"
	// это регистрация займа, а не просмотр
	RegisterWords []string
	// Features слова функций, чужих для мастера займа
	Features map[Feature][]string
}

// DefaultVocabulary словарь для разговорного индонезийского
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		CancelWord: "batal",
		PreRoutes: []PreRoute{
			{
				Phrases: []string{"lihat hutang", "cek hutang", "hutang gue", "hutang saya", "hutangku", "lihat pinjaman", "cek pinjaman", "pinjaman saya"},
				Intent:  model.ViewLoansIntent{},
			},
			{
				Phrases: []string{"denda", "cek denda", "ada denda"},
				Intent:  model.ViewPenaltyIntent{},
			},
			{
				Phrases: []string{"progres", "progress", "progres hutang", "kapan lunas"},
				Intent:  model.ViewProgressIntent{},
			},
			{
				Phrases: []string{"laporan hari ini", "rekap hari ini"},
				Intent:  model.ViewReportIntent{Period: model.PeriodToday},
			},
			{
				Phrases: []string{"laporan minggu ini", "rekap minggu ini", "rekap mingguan"},
				Intent:  model.ViewReportIntent{Period: model.PeriodWeek},
			},
			{
				Phrases: []string{"laporan bulan ini", "rekap bulan ini", "laporan bulanan", "ringkasan", "laporan", "rekap"},
				Intent:  model.ViewReportIntent{Period: model.PeriodMonth},
			},
			{
				Phrases: []string{"bantuan", "help", "panduan", "cara pakai"},
				Intent:  model.HelpIntent{},
			},
		},
		RegisterWords: []string{"daftar pinjaman", "tambah", "pinjam baru", "pinjaman baru", "hutang baru", "catat hutang", "daftar baru"},
		Features: map[Feature][]string{
			FeatureLoan:    {"hutang", "utang", "hutangku", "pinjaman", "pinjol"},
			FeaturePayment: {"bayar", "cicilan", "lunas", "nyicil"},
			FeatureIncome:  {"dapet", "dapat", "income", "pendapatan", "gaji", "orderan", "food", "spx"},
			FeatureExpense: {"bensin", "parkir", "makan", "minum", "rokok", "pulsa", "kuota", "servis", "service", "oli", "listrik", "beli", "jajan"},
			FeatureReport:  {"laporan", "rekap", "ringkasan", "progres", "denda", "total"},
		},
	}
}

// normalize приводит текст к нижнему регистру и одиночным пробелам
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// IsCancel сообщает, является ли текст словом отмены
func (v *Vocabulary) IsCancel(text string) bool {
	return normalize(text) == v.CancelWord
}

// PreRoute подбирает интент без классификатора. Сообщения с цифрами,
// со словами регистрации или оплаты не маршрутизируются: в них обычно
// есть данные, которые должен извлечь классификатор.
func (v *Vocabulary) PreRoute(text string) (model.Intent, bool) {
	s := normalize(text)
	if s == "" || strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return nil, false
	}
	for _, w := range v.RegisterWords {
		if strings.Contains(s, w) {
			return nil, false
		}
	}
	words := tokens(s)
	if v.hasKeyword(words, FeaturePayment) {
		return nil, false
	}

	for _, route := range v.PreRoutes {
		for _, phrase := range route.Phrases {
			if containsPhrase(words, strings.Fields(phrase)) {
				return route.Intent, true
			}
		}
	}
	return nil, false
}

// containsPhrase ищет фразу как последовательность целых слов
func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func tokens(s string) []string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?")
	}
	return words
}

// LeaksIntent сообщает, похож ли ответ на шаг мастера займа на команду
// другой функции: минимум два слова и хотя бы одно чужое ключевое слово.
func (v *Vocabulary) LeaksIntent(text string) (Feature, bool) {
	words := tokens(normalize(text))
	if len(words) < 2 {
		return "", false
	}

	for _, feature := range []Feature{FeatureLoan, FeaturePayment, FeatureIncome, FeatureExpense, FeatureReport} {
		if v.hasKeyword(words, feature) {
			return feature, true
		}
	}
	return "", false
}

func (v *Vocabulary) hasKeyword(words []string, feature Feature) bool {
	for _, keyword := range v.Features[feature] {
		for _, w := range words {
			if w == keyword {
				return true
			}
		}
	}
	return false
}
