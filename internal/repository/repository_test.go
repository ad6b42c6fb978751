package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"driver-finance/internal/model"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *DB
	users    *UserRepository
	records  *RecordRepository
	loans    *LoanRepository
	sessions *SessionRepository
	usage    *UsageRepository
	alerts   *AlertRepository
	now      time.Time
}

func (s *RepositoryTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := Open("sqlite", ":memory:", logger)
	require.NoError(s.T(), err, "failed to create test database")

	s.ctx = context.Background()
	s.db = db
	s.users = NewUserRepository(db, logger)
	s.records = NewRecordRepository(db, logger)
	s.loans = NewLoanRepository(db, logger)
	s.sessions = NewSessionRepository(db, logger)
	s.usage = NewUsageRepository(db, logger)
	s.alerts = NewAlertRepository(db, logger)
	s.now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	_, err = s.users.Ensure(s.ctx, "1001", "Budi", s.now)
	require.NoError(s.T(), err)
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *RepositoryTestSuite) newLoan(total int) (*model.Loan, []model.Installment) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	loan := &model.Loan{
		ID:                uuid.New(),
		UserID:            "1001",
		Platform:          "Kredivo",
		OriginalAmount:    3000000,
		TotalWithInterest: 3600000,
		TotalInstallments: total,
		MonthlyAmount:     1200000,
		DueDay:            15,
		LateFeeType:       model.LateFeePercentMonthly,
		LateFeeValue:      5,
		Status:            model.LoanStatusActive,
		StartDate:         start,
		CreatedAt:         s.now,
		UpdatedAt:         s.now,
	}

	schedule := make([]model.Installment, 0, total)
	for i := 1; i <= total; i++ {
		schedule = append(schedule, model.Installment{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			InstallmentNo: i,
			Amount:        1200000,
			DueDate:       start.AddDate(0, i, 0),
			Status:        model.InstallmentUnpaid,
		})
	}

	require.NoError(s.T(), s.loans.CreateWithSchedule(s.ctx, loan, schedule))
	return loan, schedule
}

func (s *RepositoryTestSuite) TestEnsureUser() {
	created, err := s.users.Ensure(s.ctx, "2002", "Sari", s.now)
	require.NoError(s.T(), err)
	assert.True(s.T(), created)

	created, err = s.users.Ensure(s.ctx, "2002", "Sari Dewi", s.now.Add(time.Hour))
	require.NoError(s.T(), err)
	assert.False(s.T(), created)

	user, err := s.users.GetByID(s.ctx, "2002")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), user)
	assert.Equal(s.T(), "Sari Dewi", user.Name)
	assert.Equal(s.T(), model.DefaultTimezone, user.Timezone)
	assert.Equal(s.T(), s.now, user.CreatedAt)
}

func (s *RepositoryTestSuite) TestGetMissingUserReturnsNil() {
	user, err := s.users.GetByID(s.ctx, "nobody")
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), user)
}

func (s *RepositoryTestSuite) TestRecordTotals() {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(s.T(), s.records.CreateIncome(s.ctx, &model.Income{
		ID: uuid.New(), UserID: "1001", Amount: 150000, Type: model.IncomeFood, Date: day, CreatedAt: s.now,
	}))
	require.NoError(s.T(), s.records.CreateIncome(s.ctx, &model.Income{
		ID: uuid.New(), UserID: "1001", Amount: 80000, Type: model.IncomeSPX, Date: day, CreatedAt: s.now,
	}))
	require.NoError(s.T(), s.records.CreateExpense(s.ctx, &model.Expense{
		ID: uuid.New(), UserID: "1001", Amount: 20000, Category: model.ExpenseFuel, Note: "bensin", Date: day, CreatedAt: s.now,
	}))
	// outside the window
	require.NoError(s.T(), s.records.CreateExpense(s.ctx, &model.Expense{
		ID: uuid.New(), UserID: "1001", Amount: 5000, Category: model.ExpenseParking, Date: day.AddDate(0, 0, -1), CreatedAt: s.now,
	}))

	totals, err := s.records.GetTotals(s.ctx, "1001", day, day)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 230000.0, totals.TotalIncome)
	assert.Equal(s.T(), 150000.0, totals.IncomeByType[model.IncomeFood])
	assert.Equal(s.T(), 20000.0, totals.TotalExpenses)
	assert.Equal(s.T(), 1, totals.ExpenseCount)
	assert.Equal(s.T(), 210000.0, totals.Net())
}

func (s *RepositoryTestSuite) TestIncomeRejectsUnknownType() {
	err := s.records.CreateIncome(s.ctx, &model.Income{
		ID: uuid.New(), UserID: "1001", Amount: 1000, Type: "crypto", Date: s.now, CreatedAt: s.now,
	})
	assert.Error(s.T(), err)
}

func (s *RepositoryTestSuite) TestCreateLoanWithSchedule() {
	loan, _ := s.newLoan(3)

	got, err := s.loans.GetByID(s.ctx, "1001", loan.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got)
	assert.Equal(s.T(), "Kredivo", got.Platform)
	assert.Equal(s.T(), model.LateFeePercentMonthly, got.LateFeeType)
	assert.Equal(s.T(), loan.StartDate, got.StartDate)

	schedule, err := s.loans.GetSchedule(s.ctx, loan.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), schedule, 3)
	for i, inst := range schedule {
		assert.Equal(s.T(), i+1, inst.InstallmentNo)
		assert.Equal(s.T(), model.InstallmentUnpaid, inst.Status)
		assert.Nil(s.T(), inst.PaidDate)
	}

	// other users cannot see it
	other, err := s.loans.GetByID(s.ctx, "9999", loan.ID)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), other)
}

func (s *RepositoryTestSuite) TestCreateLoanRollsBackOnBadSchedule() {
	loan := &model.Loan{
		ID: uuid.New(), UserID: "1001", Platform: "Akulaku", OriginalAmount: 1, TotalInstallments: 2,
		MonthlyAmount: 1, DueDay: 1, LateFeeType: model.LateFeeNone, Status: model.LoanStatusActive,
		StartDate: s.now, CreatedAt: s.now, UpdatedAt: s.now,
	}
	dup := []model.Installment{
		{ID: uuid.New(), InstallmentNo: 1, Amount: 1, DueDate: s.now, Status: model.InstallmentUnpaid},
		{ID: uuid.New(), InstallmentNo: 1, Amount: 1, DueDate: s.now, Status: model.InstallmentUnpaid},
	}

	assert.Error(s.T(), s.loans.CreateWithSchedule(s.ctx, loan, dup))

	got, err := s.loans.GetByID(s.ctx, "1001", loan.ID)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), got, "loan row must not survive a failed schedule insert")
}

func (s *RepositoryTestSuite) TestMarkInstallmentPaidCompletesLoan() {
	loan, schedule := s.newLoan(2)
	paidOn := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	updated, err := s.loans.MarkInstallmentPaid(s.ctx, "1001", schedule[0].ID, 1260000, 60000, paidOn, s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, updated.PaidInstallments)
	assert.Equal(s.T(), model.LoanStatusActive, updated.Status)

	next, err := s.loans.NextOutstanding(s.ctx, loan.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), next)
	assert.Equal(s.T(), 2, next.InstallmentNo)

	updated, err = s.loans.MarkInstallmentPaid(s.ctx, "1001", schedule[1].ID, 1200000, 0, paidOn, s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, updated.PaidInstallments)
	assert.Equal(s.T(), model.LoanStatusPaidOff, updated.Status)

	next, err = s.loans.NextOutstanding(s.ctx, loan.ID)
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), next)

	paid, err := s.loans.GetSchedule(s.ctx, loan.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.InstallmentPaid, paid[0].Status)
	assert.Equal(s.T(), 1260000.0, paid[0].PaidAmount)
	assert.Equal(s.T(), 60000.0, paid[0].LateFee)
	require.NotNil(s.T(), paid[0].PaidDate)
	assert.Equal(s.T(), paidOn, *paid[0].PaidDate)
}

func (s *RepositoryTestSuite) TestMarkInstallmentPaidTwice() {
	_, schedule := s.newLoan(2)

	_, err := s.loans.MarkInstallmentPaid(s.ctx, "1001", schedule[0].ID, 1200000, 0, s.now, s.now)
	require.NoError(s.T(), err)

	_, err = s.loans.MarkInstallmentPaid(s.ctx, "1001", schedule[0].ID, 1200000, 0, s.now, s.now)
	assert.ErrorIs(s.T(), err, ErrInstallmentSettled)

	_, err = s.loans.MarkInstallmentPaid(s.ctx, "someone-else", schedule[1].ID, 1200000, 0, s.now, s.now)
	assert.ErrorIs(s.T(), err, ErrInstallmentNotFound)
}

func (s *RepositoryTestSuite) TestListOutstandingAndMonth() {
	s.newLoan(3) // due 2026-02-15, 2026-03-15, 2026-04-15

	due, err := s.loans.ListOutstanding(s.ctx, "1001", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(s.T(), err)
	require.Len(s.T(), due, 2)
	assert.Equal(s.T(), "Kredivo", due[0].Platform)
	assert.Equal(s.T(), model.LateFeePercentMonthly, due[0].LateFeeType)
	assert.Equal(s.T(), 5.0, due[0].LateFeeValue)

	month, err := s.loans.ListDueInMonth(s.ctx, "1001", 2026, time.April)
	require.NoError(s.T(), err)
	require.Len(s.T(), month, 1)
	assert.Equal(s.T(), 3, month[0].InstallmentNo)
}

func (s *RepositoryTestSuite) TestDeletingLoanCascadesToInstallments() {
	loan, _ := s.newLoan(3)

	_, err := s.db.ExecContext(s.ctx, `DELETE FROM loans WHERE id = ?`, loan.ID)
	require.NoError(s.T(), err)

	schedule, err := s.loans.GetSchedule(s.ctx, loan.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), schedule)
}

func (s *RepositoryTestSuite) TestSessionLifecycle() {
	state := model.ConfirmLoanState{Draft: model.LoanDraft{}}
	require.NoError(s.T(), s.sessions.Set(s.ctx, "1001", state, s.now.Add(5*time.Minute)))

	session, err := s.sessions.Get(s.ctx, "1001", s.now.Add(time.Minute))
	require.NoError(s.T(), err)
	require.NotNil(s.T(), session)
	assert.Equal(s.T(), model.ActionConfirmLoan, session.State.Action())

	// overwrite keeps a single row
	require.NoError(s.T(), s.sessions.Set(s.ctx, "1001", model.LoanEditSelectState{}, s.now.Add(5*time.Minute)))
	session, err = s.sessions.Get(s.ctx, "1001", s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ActionLoanEditSelect, session.State.Action())

	cleared, err := s.sessions.Clear(s.ctx, "1001")
	require.NoError(s.T(), err)
	assert.True(s.T(), cleared)

	cleared, err = s.sessions.Clear(s.ctx, "1001")
	require.NoError(s.T(), err)
	assert.False(s.T(), cleared)
}

func (s *RepositoryTestSuite) TestExpiredSessionIsRemovedOnRead() {
	require.NoError(s.T(), s.sessions.Set(s.ctx, "1001", model.ConfirmLoanState{}, s.now.Add(5*time.Minute)))

	session, err := s.sessions.Get(s.ctx, "1001", s.now.Add(5*time.Minute+time.Second))
	require.NoError(s.T(), err)
	assert.Nil(s.T(), session)

	var count int
	require.NoError(s.T(), s.db.QueryRowContext(s.ctx, `SELECT COUNT(*) FROM conversation_state`).Scan(&count))
	assert.Zero(s.T(), count)
}

func (s *RepositoryTestSuite) TestMalformedSessionIsRemovedOnRead() {
	_, err := s.db.ExecContext(s.ctx,
		`INSERT INTO conversation_state (user_id, payload, expires_at) VALUES (?, ?, ?)`,
		"1001", `{"pending_action":"confirm_loan"`, "2099-01-01 00:00:00")
	require.NoError(s.T(), err)

	session, err := s.sessions.Get(s.ctx, "1001", s.now)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), session)

	cleared, err := s.sessions.Clear(s.ctx, "1001")
	require.NoError(s.T(), err)
	assert.False(s.T(), cleared)
}

func (s *RepositoryTestSuite) TestDeleteExpiredSessions() {
	require.NoError(s.T(), s.sessions.Set(s.ctx, "1001", model.ConfirmLoanState{}, s.now.Add(-time.Minute)))
	require.NoError(s.T(), s.sessions.Set(s.ctx, "2002", model.ConfirmLoanState{}, s.now.Add(time.Minute)))

	n, err := s.sessions.DeleteExpired(s.ctx, s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)
}

func (s *RepositoryTestSuite) TestUsageCounter() {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	count, err := s.usage.Get(s.ctx, day)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)

	require.NoError(s.T(), s.usage.Increment(s.ctx, day, 5))
	require.NoError(s.T(), s.usage.Increment(s.ctx, day, 5))
	require.NoError(s.T(), s.usage.Increment(s.ctx, day.AddDate(0, 0, -40), 5))

	count, err = s.usage.Get(s.ctx, day)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 10, count)

	n, err := s.usage.DeleteBefore(s.ctx, day.AddDate(0, 0, -30))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)
}

func (s *RepositoryTestSuite) TestAlertMeta() {
	last, err := s.alerts.LastAlertAt(s.ctx, "1001")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), last)

	require.NoError(s.T(), s.alerts.SetLastAlertAt(s.ctx, "1001", s.now))
	require.NoError(s.T(), s.alerts.SetLastAlertAt(s.ctx, "1001", s.now.Add(time.Hour)))

	last, err = s.alerts.LastAlertAt(s.ctx, "1001")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), last)
	assert.Equal(s.T(), s.now.Add(time.Hour), *last)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	lite := &DB{dialect: DialectSQLite}

	q := `SELECT * FROM loans WHERE user_id = ? AND status = ?`
	assert.Equal(t, `SELECT * FROM loans WHERE user_id = $1 AND status = $2`, pg.Rebind(q))
	assert.Equal(t, q, lite.Rebind(q))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "", logrus.New())
	assert.Error(t, err)
}
