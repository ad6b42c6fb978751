package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/repository"
)

// Housekeeping периодическая очистка: старые счетчики использования
// классификатора и просроченные диалоги
type Housekeeping struct {
	usageRepo     *repository.UsageRepository
	sessionRepo   *repository.SessionRepository
	clock         clock.Clock
	location      *time.Location
	retentionDays int
	logger        *logrus.Logger
}

func NewHousekeeping(
	usageRepo *repository.UsageRepository,
	sessionRepo *repository.SessionRepository,
	c clock.Clock,
	location *time.Location,
	retentionDays int,
	logger *logrus.Logger,
) *Housekeeping {
	return &Housekeeping{
		usageRepo:     usageRepo,
		sessionRepo:   sessionRepo,
		clock:         c,
		location:      location,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Run выполняет одну очистку
func (h *Housekeeping) Run(ctx context.Context) error {
	cutoff := clock.Today(h.clock, h.location).AddDate(0, 0, -h.retentionDays)
	usageRows, err := h.usageRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("ошибка очистки счетчиков использования: %w", err)
	}

	sessions, err := h.sessionRepo.DeleteExpired(ctx, h.clock.Now())
	if err != nil {
		return fmt.Errorf("ошибка очистки просроченных диалогов: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"usage_rows": usageRows,
		"sessions":   sessions,
		"cutoff":     clock.FormatDate(cutoff),
	}).Info("Очистка завершена")
	return nil
}
