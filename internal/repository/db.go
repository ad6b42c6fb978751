package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timestampLayout фиксированной ширины, чтобы строки сравнивались как время
const timestampLayout = "2006-01-02 15:04:05"

// DB соединение с базой и диалект SQL. Запросы в репозиториях пишутся
// с плейсхолдерами "?", Rebind переводит их в $1, $2... для Postgres.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open подключается к базе и применяет миграции
func Open(driver, dsn string, logger *logrus.Logger) (*DB, error) {
	dialect := Dialect(driver)
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// одно соединение: иначе :memory: у каждого соединения своя, а запись все равно последовательная
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: conn, dialect: dialect}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}

	logger.WithField("driver", driver).Info("База данных готова")
	return db, nil
}

// PostgresDSN собирает строку подключения в формате lib/pq
func PostgresDSN(host, port, user, password, name string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, name,
	)
}

// Rebind заменяет "?" на позиционные параметры Postgres
func (db *DB) Rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (db *DB) migrate(ctx context.Context) error {
	money := "REAL"
	if db.dialect == DialectPostgres {
		money = "DOUBLE PRECISION"
	}

	for i, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{{money}}", money)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'Asia/Jakarta',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS income (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		amount {{money}} NOT NULL CHECK (amount > 0),
		type TEXT NOT NULL CHECK (type IN ('food', 'spx')),
		note TEXT,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_income_user_date ON income(user_id, date)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		amount {{money}} NOT NULL CHECK (amount > 0),
		category TEXT NOT NULL CHECK (category IN ('fuel', 'parking', 'meals', 'cigarettes', 'data_plan',
			'vehicle_service', 'household', 'electricity', 'emergency', 'other')),
		note TEXT,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		platform TEXT NOT NULL,
		original_amount {{money}} NOT NULL,
		total_with_interest {{money}} NOT NULL DEFAULT 0,
		total_installments INTEGER NOT NULL CHECK (total_installments > 0),
		paid_installments INTEGER NOT NULL DEFAULT 0,
		monthly_amount {{money}} NOT NULL,
		due_day INTEGER NOT NULL CHECK (due_day BETWEEN 1 AND 31),
		late_fee_type TEXT NOT NULL DEFAULT 'none'
			CHECK (late_fee_type IN ('percent_monthly', 'percent_daily', 'fixed', 'none')),
		late_fee_value {{money}} NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paid_off', 'cancelled')),
		note TEXT,
		start_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (paid_installments >= 0 AND paid_installments <= total_installments)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_user_status ON loans(user_id, status)`,
	`CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
		installment_no INTEGER NOT NULL,
		amount {{money}} NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unpaid' CHECK (status IN ('unpaid', 'late', 'paid', 'partial')),
		paid_amount {{money}} NOT NULL DEFAULT 0,
		paid_date TEXT,
		late_fee {{money}} NOT NULL DEFAULT 0,
		note TEXT,
		UNIQUE (loan_id, installment_no)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_installments_due ON installments(due_date, status)`,
	`CREATE TABLE IF NOT EXISTS conversation_state (
		user_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS usage_counter (
		date TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS alert_meta (
		user_id TEXT PRIMARY KEY,
		last_alert_at TEXT NOT NULL
	)`,
}

// isUniqueViolation распознает нарушение уникальности в обоих драйверах
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// isForeignKeyViolation распознает нарушение внешнего ключа в обоих драйверах
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "foreign_key_violation"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
			strings.Contains(sqliteErr.Error(), "FOREIGN KEY constraint failed")
	}
	return false
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// scanner общий интерфейс *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}
