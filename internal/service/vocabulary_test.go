package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"driver-finance/internal/model"
)

func TestPreRoute(t *testing.T) {
	v := DefaultVocabulary()

	cases := map[string]model.Intent{
		"lihat hutang":      model.ViewLoansIntent{},
		"Cek Pinjaman":      model.ViewLoansIntent{},
		"ada denda ga":      model.ViewPenaltyIntent{},
		"progres hutang":    model.ViewProgressIntent{},
		"rekap minggu ini":  model.ViewReportIntent{Period: model.PeriodWeek},
		"laporan hari ini":  model.ViewReportIntent{Period: model.PeriodToday},
		"ringkasan":         model.ViewReportIntent{Period: model.PeriodMonth},
		"gimana cara pakai": model.HelpIntent{},
	}
	for text, want := range cases {
		t.Run(text, func(t *testing.T) {
			got, ok := v.PreRoute(text)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestPreRouteExclusions(t *testing.T) {
	v := DefaultVocabulary()

	for _, text := range []string{
		"tambah hutang kredivo",
		"hutang gue 5jt di kredivo",
		"bayar denda kredivo",
		"bensin 20rb",
		"progressif",
		"helpdesk kredivo",
		"dendanya",
		"",
	} {
		_, ok := v.PreRoute(text)
		assert.False(t, ok, text)
	}
}

func TestIsCancel(t *testing.T) {
	v := DefaultVocabulary()
	assert.True(t, v.IsCancel("  Batal "))
	assert.False(t, v.IsCancel("batal dong"))
}

func TestLeaksIntent(t *testing.T) {
	v := DefaultVocabulary()

	feature, ok := v.LeaksIntent("bensin 20rb")
	assert.True(t, ok)
	assert.Equal(t, FeatureExpense, feature)

	feature, ok = v.LeaksIntent("bayar cicilan kredivo")
	assert.True(t, ok)
	assert.Equal(t, FeaturePayment, feature)

	feature, ok = v.LeaksIntent("Lihat hutang!")
	assert.True(t, ok)
	assert.Equal(t, FeatureLoan, feature)

	feature, ok = v.LeaksIntent("cek pinjaman")
	assert.True(t, ok)
	assert.Equal(t, FeatureLoan, feature)

	// один токен всегда считается ответом на шаг
	_, ok = v.LeaksIntent("bensin")
	assert.False(t, ok)

	_, ok = v.LeaksIntent("Shopee Pinjam")
	assert.False(t, ok)

	_, ok = v.LeaksIntent("tanggal 13")
	assert.False(t, ok)
}
