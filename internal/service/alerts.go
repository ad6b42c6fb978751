package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
	"driver-finance/internal/repository"
)

// alertWindowDays насколько вперед предупреждать о сроках
const alertWindowDays = 3

// Alerts напоминание о просроченных и ближайших взносах, не чаще
// одного раза за throttle на пользователя
type Alerts struct {
	loanRepo  *repository.LoanRepository
	alertRepo *repository.AlertRepository
	clock     clock.Clock
	location  *time.Location
	throttle  time.Duration
	logger    *logrus.Logger
}

func NewAlerts(
	loanRepo *repository.LoanRepository,
	alertRepo *repository.AlertRepository,
	c clock.Clock,
	location *time.Location,
	throttle time.Duration,
	logger *logrus.Logger,
) *Alerts {
	return &Alerts{
		loanRepo:  loanRepo,
		alertRepo: alertRepo,
		clock:     c,
		location:  location,
		throttle:  throttle,
		logger:    logger,
	}
}

// Check возвращает текст напоминания или пустую строку. Время последнего
// напоминания обновляется только когда напоминание отправляется.
func (a *Alerts) Check(ctx context.Context, userID string) (string, error) {
	now := a.clock.Now()

	last, err := a.alertRepo.LastAlertAt(ctx, userID)
	if err != nil {
		return "", err
	}
	if last != nil && now.Sub(*last) < a.throttle {
		return "", nil
	}

	today := clock.Today(a.clock, a.location)
	due, err := a.loanRepo.ListOutstanding(ctx, userID, today.AddDate(0, 0, alertWindowDays))
	if err != nil {
		return "", err
	}
	if len(due) == 0 {
		return "", nil
	}

	if err := a.alertRepo.SetLastAlertAt(ctx, userID, now); err != nil {
		return "", err
	}

	a.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"items":   len(due),
	}).Info("Отправка напоминания о взносах")

	return BuildAlert(due, today), nil
}

// BuildAlert группирует взносы: просроченные, на сегодня, в ближайшие дни
func BuildAlert(due []model.DueInstallment, today time.Time) string {
	var overdue, dueToday, soon strings.Builder
	for _, d := range due {
		line := fmt.Sprintf("• <b>%s</b> ke-%d/%d: %s", escape(d.Platform), d.InstallmentNo, d.TotalInstallments, formatRupiah(d.Amount))
		switch days := DaysLate(today, d.DueDate); {
		case days > 0:
			fmt.Fprintf(&overdue, "%s (telat %d hari)\n", line, days)
		case days == 0:
			dueToday.WriteString(line + "\n")
		default:
			fmt.Fprintf(&soon, "%s (%d hari lagi)\n", line, -days)
		}
	}

	var b strings.Builder
	b.WriteString("⏰ <b>Pengingat Cicilan</b>\n")
	if overdue.Len() > 0 {
		b.WriteString("\n🔴 <b>TELAT BAYAR:</b>\n" + overdue.String())
	}
	if dueToday.Len() > 0 {
		b.WriteString("\n⚠️ <b>JATUH TEMPO HARI INI:</b>\n" + dueToday.String())
	}
	if soon.Len() > 0 {
		b.WriteString("\n🟡 <b>SEGERA JATUH TEMPO:</b>\n" + soon.String())
	}
	b.WriteString("\n💡 Ketik <i>\"bayar cicilan [nama]\"</i> untuk mencatat pembayaran.")
	return b.String()
}
