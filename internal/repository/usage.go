package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
)

// UsageRepository суточный счетчик вызовов классификатора (общий для бота)
type UsageRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewUsageRepository(db *DB, logger *logrus.Logger) *UsageRepository {
	return &UsageRepository{db: db, logger: logger}
}

// Get возвращает значение счетчика за день; 0, если записей не было
func (r *UsageRepository) Get(ctx context.Context, day time.Time) (int, error) {
	var count int
	query := `SELECT count FROM usage_counter WHERE date = ?`
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), clock.FormatDate(day)).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get usage counter: %w", err)
	}
	return count, nil
}

// Increment атомарно увеличивает счетчик за день на delta
func (r *UsageRepository) Increment(ctx context.Context, day time.Time, delta int) error {
	query := `
		INSERT INTO usage_counter (date, count)
		VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET count = usage_counter.count + excluded.count
	`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), clock.FormatDate(day), delta); err != nil {
		return fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return nil
}

// DeleteBefore удаляет счетчики за дни раньше указанного
func (r *UsageRepository) DeleteBefore(ctx context.Context, day time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM usage_counter WHERE date < ?`), clock.FormatDate(day))
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage counter: %w", err)
	}
	return res.RowsAffected()
}

// AlertRepository время последнего напоминания о платежах по пользователю
type AlertRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewAlertRepository(db *DB, logger *logrus.Logger) *AlertRepository {
	return &AlertRepository{db: db, logger: logger}
}

// LastAlertAt возвращает время последнего напоминания или nil
func (r *AlertRepository) LastAlertAt(ctx context.Context, userID string) (*time.Time, error) {
	var raw string
	query := `SELECT last_alert_at FROM alert_meta WHERE user_id = ?`
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last alert time: %w", err)
	}

	t, err := parseTimestamp(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *AlertRepository) SetLastAlertAt(ctx context.Context, userID string, at time.Time) error {
	query := `
		INSERT INTO alert_meta (user_id, last_alert_at)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET last_alert_at = excluded.last_alert_at
	`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, formatTimestamp(at)); err != nil {
		return fmt.Errorf("failed to save last alert time: %w", err)
	}
	return nil
}
