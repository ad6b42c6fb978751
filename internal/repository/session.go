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

// SessionRepository хранит не более одного открытого диалога на пользователя
type SessionRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewSessionRepository(db *DB, logger *logrus.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

// Get возвращает открытый диалог или nil. Просроченная или поврежденная
// запись считается отсутствующей и удаляется.
func (r *SessionRepository) Get(ctx context.Context, userID string, now time.Time) (*model.Session, error) {
	var payload string
	query := `SELECT payload FROM conversation_state WHERE user_id = ?`
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), userID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	state, expiresAt, err := model.DecodeSession([]byte(payload))
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("Поврежденная сессия удалена")
		if _, err := r.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	session := &model.Session{UserID: userID, State: state, ExpiresAt: expiresAt}
	if session.Expired(now) {
		r.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"action":  state.Action(),
		}).Debug("Сессия истекла")
		if _, err := r.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return session, nil
}

// Set открывает или перезаписывает диалог пользователя
func (r *SessionRepository) Set(ctx context.Context, userID string, state model.SessionState, expiresAt time.Time) error {
	payload, err := model.EncodeSession(state, expiresAt)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO conversation_state (user_id, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at
	`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, string(payload), formatTimestamp(expiresAt)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Clear удаляет диалог; возвращает true, если он был
func (r *SessionRepository) Clear(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM conversation_state WHERE user_id = ?`), userID)
	if err != nil {
		return false, fmt.Errorf("failed to clear session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to clear session: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired удаляет все просроченные диалоги
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM conversation_state WHERE expires_at <= ?`), formatTimestamp(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
