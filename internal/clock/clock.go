// Package clock отделяет бизнес-логику от time.Now, чтобы даты "сегодня"
// и сроки сессий можно было зафиксировать в тестах.
package clock

import "time"

// DateLayout формат календарной даты, в котором даты хранятся в БД
const DateLayout = "2006-01-02"

// Clock возвращает текущее время
type Clock interface {
	Now() time.Time
}

// RealClock системное время
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock всегда возвращает одно и то же время (для тестов)
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

// FuncClock оборачивает функцию, удобно для "движущегося" времени в тестах
type FuncClock func() time.Time

func (f FuncClock) Now() time.Time {
	return f()
}

// LoadLocation загружает часовой пояс; при ошибке возвращает фиксированный UTC+7
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// Today возвращает полночь текущего дня в указанном часовом поясе, выраженную в UTC.
// Все календарные даты в приложении представлены так же, поэтому их можно
// сравнивать и вычитать без учета зон.
func Today(c Clock, loc *time.Location) time.Time {
	now := c.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату формата YYYY-MM-DD в полночь UTC
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate форматирует календарную дату как YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
