package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/model"
)

type UserRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewUserRepository(db *DB, logger *logrus.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Ensure создает пользователя при первом обращении, а при повторных
// обновляет только имя. Возвращает true, если пользователь новый.
func (r *UserRepository) Ensure(ctx context.Context, id, name string, now time.Time) (bool, error) {
	query := `
		INSERT INTO users (id, name, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(query),
		id,
		name,
		model.DefaultTimezone,
		formatTimestamp(now),
		formatTimestamp(now),
	)
	if err == nil {
		r.logger.WithField("user_id", id).Info("Зарегистрирован новый пользователь")
		return true, nil
	}

	if !isUniqueViolation(err) {
		return false, fmt.Errorf("failed to create user: %w", err)
	}

	update := `UPDATE users SET name = ?, updated_at = ? WHERE id = ? AND name <> ?`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(update), name, formatTimestamp(now), id, name); err != nil {
		return false, fmt.Errorf("failed to update user name: %w", err)
	}

	return false, nil
}

// GetByID возвращает пользователя или nil, если его нет
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	var (
		user                 model.User
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), id).Scan(
		&user.ID,
		&user.Name,
		&user.Timezone,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	if user.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}

	return &user, nil
}
