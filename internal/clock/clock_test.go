package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayUsesLocation(t *testing.T) {
	// 2026-03-01 20:00 UTC is already 2026-03-02 in Jakarta (UTC+7)
	c := FixedClock{T: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	today := Today(c, LoadLocation("Asia/Jakarta"))

	assert.Equal(t, "2026-03-02", FormatDate(today))
	assert.Equal(t, time.UTC, today.Location())
}

func TestLoadLocationFallback(t *testing.T) {
	loc := LoadLocation("Not/AZone")
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 7*60*60, offset)
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", FormatDate(d))

	_, err = ParseDate("28/02/2026")
	assert.Error(t, err)
}

func TestFuncClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	c := FuncClock(func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	})

	assert.Equal(t, base.Add(time.Minute), c.Now())
	assert.Equal(t, base.Add(2*time.Minute), c.Now())
}
