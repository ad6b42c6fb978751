package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
)

// RecordRepository хранит доходы и расходы. Записи только добавляются.
type RecordRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewRecordRepository(db *DB, logger *logrus.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

func (r *RecordRepository) CreateIncome(ctx context.Context, income *model.Income) error {
	r.logger.WithFields(logrus.Fields{
		"income_id": income.ID,
		"user_id":   income.UserID,
		"amount":    income.Amount,
		"type":      income.Type,
	}).Info("Создание записи о доходе")

	query := `
		INSERT INTO income (id, user_id, amount, type, note, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(query),
		income.ID,
		income.UserID,
		income.Amount,
		income.Type,
		nullString(income.Note),
		clock.FormatDate(income.Date),
		formatTimestamp(income.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user %s not found", income.UserID)
		}
		return fmt.Errorf("failed to create income: %w", err)
	}

	return nil
}

func (r *RecordRepository) CreateExpense(ctx context.Context, expense *model.Expense) error {
	r.logger.WithFields(logrus.Fields{
		"expense_id": expense.ID,
		"user_id":    expense.UserID,
		"amount":     expense.Amount,
		"category":   expense.Category,
	}).Info("Создание записи о расходе")

	query := `
		INSERT INTO expenses (id, user_id, amount, category, note, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(query),
		expense.ID,
		expense.UserID,
		expense.Amount,
		expense.Category,
		nullString(expense.Note),
		clock.FormatDate(expense.Date),
		formatTimestamp(expense.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user %s not found", expense.UserID)
		}
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return nil
}

// GetTotals суммирует доходы по типам и расходы по категориям за период [from, to]
func (r *RecordRepository) GetTotals(ctx context.Context, userID string, from, to time.Time) (*model.RecordTotals, error) {
	totals := &model.RecordTotals{
		IncomeByType: make(map[model.IncomeType]float64),
		ByCategory:   make(map[model.ExpenseCategory]float64),
	}

	incomeQuery := `
		SELECT type, COALESCE(SUM(amount), 0), COUNT(*)
		FROM income
		WHERE user_id = ? AND date >= ? AND date <= ?
		GROUP BY type
	`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(incomeQuery), userID, clock.FormatDate(from), clock.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query income totals: %w", err)
	}
	for rows.Next() {
		var (
			incomeType model.IncomeType
			sum        float64
			count      int
		)
		if err := rows.Scan(&incomeType, &sum, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan income totals: %w", err)
		}
		totals.IncomeByType[incomeType] = sum
		totals.TotalIncome += sum
		totals.IncomeCount += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate income totals: %w", err)
	}

	expenseQuery := `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date <= ?
		GROUP BY category
	`
	rows, err = r.db.QueryContext(ctx, r.db.Rebind(expenseQuery), userID, clock.FormatDate(from), clock.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query expense totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category model.ExpenseCategory
			sum      float64
			count    int
		)
		if err := rows.Scan(&category, &sum, &count); err != nil {
			return nil, fmt.Errorf("failed to scan expense totals: %w", err)
		}
		totals.ByCategory[category] = sum
		totals.TotalExpenses += sum
		totals.ExpenseCount += count
	}

	return totals, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
