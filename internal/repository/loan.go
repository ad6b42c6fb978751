package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
)

var (
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrInstallmentSettled  = errors.New("installment already paid")
	ErrDuplicateLoan       = errors.New("loan already exists")
)

type LoanRepository struct {
	db     *DB
	logger *logrus.Logger
}

func NewLoanRepository(db *DB, logger *logrus.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger}
}

const loanColumns = `id, user_id, platform, original_amount, total_with_interest, total_installments,
		paid_installments, monthly_amount, due_day, late_fee_type, late_fee_value, status, note,
		start_date, created_at, updated_at`

const installmentColumns = `id, loan_id, installment_no, amount, due_date, status, paid_amount,
		paid_date, late_fee, note`

// CreateWithSchedule сохраняет займ и весь график платежей в одной транзакции
func (r *LoanRepository) CreateWithSchedule(ctx context.Context, loan *model.Loan, schedule []model.Installment) error {
	r.logger.WithFields(logrus.Fields{
		"loan_id":      loan.ID,
		"user_id":      loan.UserID,
		"platform":     loan.Platform,
		"installments": len(schedule),
	}).Info("Сохранение займа с графиком платежей")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(
		ctx,
		r.db.Rebind(query),
		loan.ID,
		loan.UserID,
		loan.Platform,
		loan.OriginalAmount,
		loan.TotalWithInterest,
		loan.TotalInstallments,
		loan.PaidInstallments,
		loan.MonthlyAmount,
		loan.DueDay,
		loan.LateFeeType,
		loan.LateFeeValue,
		loan.Status,
		nullString(loan.Note),
		clock.FormatDate(loan.StartDate),
		formatTimestamp(loan.CreatedAt),
		formatTimestamp(loan.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLoan
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user %s not found", loan.UserID)
		}
		return fmt.Errorf("failed to create loan: %w", err)
	}

	insert := r.db.Rebind(`
		INSERT INTO installments (id, loan_id, installment_no, amount, due_date, status, paid_amount, late_fee)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, inst := range schedule {
		if _, err := tx.ExecContext(
			ctx,
			insert,
			inst.ID,
			loan.ID,
			inst.InstallmentNo,
			inst.Amount,
			clock.FormatDate(inst.DueDate),
			inst.Status,
			inst.PaidAmount,
			inst.LateFee,
		); err != nil {
			return fmt.Errorf("failed to create installment %d: %w", inst.InstallmentNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit loan: %w", err)
	}

	return nil
}

// GetByID возвращает займ пользователя или nil
func (r *LoanRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ? AND user_id = ?`

	loan, err := scanLoan(r.db.QueryRowContext(ctx, r.db.Rebind(query), id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// ListByUser возвращает займы пользователя; пустой status означает все статусы
func (r *LoanRepository) ListByUser(ctx context.Context, userID string, status model.LoanStatus) ([]model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, platform`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, *loan)
	}

	return loans, rows.Err()
}

// GetSchedule возвращает график платежей займа по порядку
func (r *LoanRepository) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]model.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = ? ORDER BY installment_no`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment schedule: %w", err)
	}
	defer rows.Close()

	var schedule []model.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		schedule = append(schedule, *inst)
	}

	return schedule, rows.Err()
}

// NextOutstanding возвращает самый ранний неоплаченный взнос займа или nil
func (r *LoanRepository) NextOutstanding(ctx context.Context, loanID uuid.UUID) (*model.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE loan_id = ? AND status IN ('unpaid', 'late')
		ORDER BY installment_no
		LIMIT 1
	`

	inst, err := scanInstallment(r.db.QueryRowContext(ctx, r.db.Rebind(query), loanID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get next installment: %w", err)
	}
	return inst, nil
}

// ListOutstanding возвращает неоплаченные взносы активных займов пользователя
// со сроком до until включительно, отсортированные по сроку
func (r *LoanRepository) ListOutstanding(ctx context.Context, userID string, until time.Time) ([]model.DueInstallment, error) {
	query := `
		SELECT i.id, i.loan_id, i.installment_no, i.amount, i.due_date, i.status, i.paid_amount,
		       i.paid_date, i.late_fee, i.note, l.platform, l.late_fee_type, l.late_fee_value,
		       l.total_installments
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.user_id = ? AND l.status = 'active'
		  AND i.status IN ('unpaid', 'late') AND i.due_date <= ?
		ORDER BY i.due_date, l.platform
	`
	return r.queryDue(ctx, query, userID, clock.FormatDate(until))
}

// ListDueInMonth возвращает все взносы пользователя со сроком в указанном месяце
func (r *LoanRepository) ListDueInMonth(ctx context.Context, userID string, year int, month time.Month) ([]model.DueInstallment, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	query := `
		SELECT i.id, i.loan_id, i.installment_no, i.amount, i.due_date, i.status, i.paid_amount,
		       i.paid_date, i.late_fee, i.note, l.platform, l.late_fee_type, l.late_fee_value,
		       l.total_installments
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.user_id = ? AND l.status <> 'cancelled'
		  AND i.due_date >= ? AND i.due_date <= ?
		ORDER BY i.due_date, l.platform
	`
	return r.queryDue(ctx, query, userID, clock.FormatDate(first), clock.FormatDate(last))
}

func (r *LoanRepository) queryDue(ctx context.Context, query string, args ...any) ([]model.DueInstallment, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var due []model.DueInstallment
	for rows.Next() {
		var d model.DueInstallment
		inst, err := scanInstallment(rows, &d.Platform, &d.LateFeeType, &d.LateFeeValue, &d.TotalInstallments)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		d.Installment = *inst
		due = append(due, d)
	}

	return due, rows.Err()
}

// MarkInstallmentPaid отмечает взнос оплаченным, увеличивает счетчик
// оплаченных взносов и закрывает займ на последнем взносе. Все изменения
// применяются одной транзакцией. Возвращает обновленный займ.
func (r *LoanRepository) MarkInstallmentPaid(
	ctx context.Context,
	userID string,
	installmentID uuid.UUID,
	paidAmount, lateFee float64,
	paidDate time.Time,
	now time.Time,
) (*model.Loan, error) {
	r.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"installment_id": installmentID,
		"paid_amount":    paidAmount,
		"late_fee":       lateFee,
	}).Info("Отметка взноса как оплаченного")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		loanID uuid.UUID
		status model.InstallmentStatus
	)
	lookup := `
		SELECT i.loan_id, i.status
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.id = ? AND l.user_id = ?
	`
	if err := tx.QueryRowContext(ctx, r.db.Rebind(lookup), installmentID, userID).Scan(&loanID, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstallmentNotFound
		}
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	if !status.Outstanding() {
		return nil, ErrInstallmentSettled
	}

	updateInstallment := `
		UPDATE installments
		SET status = 'paid', paid_amount = ?, late_fee = ?, paid_date = ?
		WHERE id = ?
	`
	if _, err := tx.ExecContext(
		ctx,
		r.db.Rebind(updateInstallment),
		paidAmount,
		lateFee,
		clock.FormatDate(paidDate),
		installmentID,
	); err != nil {
		return nil, fmt.Errorf("failed to update installment: %w", err)
	}

	updateLoan := `
		UPDATE loans
		SET paid_installments = paid_installments + 1,
		    status = CASE WHEN paid_installments + 1 >= total_installments THEN 'paid_off' ELSE status END,
		    updated_at = ?
		WHERE id = ? AND paid_installments < total_installments
	`
	res, err := tx.ExecContext(ctx, r.db.Rebind(updateLoan), formatTimestamp(now), loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("loan %s has no installments left to pay", loanID)
	}

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ?`
	loan, err := scanLoan(tx.QueryRowContext(ctx, r.db.Rebind(query), loanID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	if loan.Status == model.LoanStatusPaidOff {
		r.logger.WithField("loan_id", loan.ID).Info("Займ полностью погашен")
	}
	return loan, nil
}

func scanLoan(row scanner) (*model.Loan, error) {
	var (
		loan                 model.Loan
		note                 sql.NullString
		startDate            string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&loan.ID,
		&loan.UserID,
		&loan.Platform,
		&loan.OriginalAmount,
		&loan.TotalWithInterest,
		&loan.TotalInstallments,
		&loan.PaidInstallments,
		&loan.MonthlyAmount,
		&loan.DueDay,
		&loan.LateFeeType,
		&loan.LateFeeValue,
		&loan.Status,
		&note,
		&startDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	loan.Note = note.String
	if loan.StartDate, err = clock.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	if loan.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if loan.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &loan, nil
}

// scanInstallment читает колонки installmentColumns и, при необходимости,
// дополнительные колонки запроса в extra
func scanInstallment(row scanner, extra ...any) (*model.Installment, error) {
	var (
		inst     model.Installment
		dueDate  string
		paidDate sql.NullString
		note     sql.NullString
	)
	dest := []any{
		&inst.ID,
		&inst.LoanID,
		&inst.InstallmentNo,
		&inst.Amount,
		&dueDate,
		&inst.Status,
		&inst.PaidAmount,
		&paidDate,
		&inst.LateFee,
		&note,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	inst.Note = note.String
	if inst.DueDate, err = clock.ParseDate(dueDate); err != nil {
		return nil, fmt.Errorf("invalid due date: %w", err)
	}
	if paidDate.Valid {
		d, err := clock.ParseDate(paidDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid paid date: %w", err)
		}
		inst.PaidDate = &d
	}
	return &inst, nil
}
