package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
	"driver-finance/internal/repository"
)

const (
	CallbackIncomeYes  = "confirm_income_yes"
	CallbackIncomeNo   = "confirm_income_no"
	CallbackExpenseYes = "confirm_expense_yes"
	CallbackExpenseNo  = "confirm_expense_no"
)

// Records подтверждение и сохранение доходов и расходов
type Records struct {
	recordRepo  *repository.RecordRepository
	sessionRepo *repository.SessionRepository
	clock       clock.Clock
	location    *time.Location
	sessionTTL  time.Duration
	logger      *logrus.Logger
}

func NewRecords(
	recordRepo *repository.RecordRepository,
	sessionRepo *repository.SessionRepository,
	c clock.Clock,
	location *time.Location,
	sessionTTL time.Duration,
	logger *logrus.Logger,
) *Records {
	return &Records{
		recordRepo:  recordRepo,
		sessionRepo: sessionRepo,
		clock:       c,
		location:    location,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// StartIncome показывает распознанный доход и открывает confirm_income
func (s *Records) StartIncome(ctx context.Context, userID string, intent model.RecordIncomeIntent) (model.Response, error) {
	if intent.Amount <= 0 {
		return model.Text(incomeAmountMissingMessage), nil
	}

	state := model.ConfirmIncomeState{
		Amount: intent.Amount,
		Type:   intent.Type,
		Note:   strings.TrimSpace(intent.Note),
		Date:   s.effectiveDate(intent.Date),
	}
	if !state.Type.Valid() {
		state.Type = model.IncomeFood
	}
	if err := s.sessionRepo.Set(ctx, userID, state, s.clock.Now().Add(s.sessionTTL)); err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	b.WriteString("📝 <b>Catat Pendapatan</b>\n\n")
	fmt.Fprintf(&b, "%s\n", incomeTypeLabel(state.Type))
	fmt.Fprintf(&b, "💰 Jumlah: <b>%s</b>\n", formatRupiah(state.Amount))
	fmt.Fprintf(&b, "📅 Tanggal: %s\n", formatDate(state.Date))
	if state.Note != "" {
		fmt.Fprintf(&b, "📌 Catatan: %s\n", escape(state.Note))
	}
	b.WriteString("\nSudah benar?")

	return model.WithButtons(b.String(), [][]model.Button{{
		{Text: "✅ Ya, Simpan", Data: CallbackIncomeYes},
		{Text: "❌ Batal", Data: CallbackIncomeNo},
	}}), nil
}

// StartExpense показывает распознанный расход и открывает confirm_expense
func (s *Records) StartExpense(ctx context.Context, userID string, intent model.RecordExpenseIntent) (model.Response, error) {
	if intent.Amount <= 0 {
		return model.Text(expenseAmountMissingMessage), nil
	}

	state := model.ConfirmExpenseState{
		Amount:   intent.Amount,
		Category: intent.Category,
		Note:     strings.TrimSpace(intent.Note),
		Date:     s.effectiveDate(intent.Date),
	}
	if !state.Category.Valid() {
		state.Category = model.ExpenseOther
	}
	if err := s.sessionRepo.Set(ctx, userID, state, s.clock.Now().Add(s.sessionTTL)); err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	b.WriteString("📝 <b>Catat Pengeluaran</b>\n\n")
	fmt.Fprintf(&b, "Kategori: %s\n", expenseCategoryLabel(state.Category))
	fmt.Fprintf(&b, "💸 Jumlah: <b>%s</b>\n", formatRupiah(state.Amount))
	fmt.Fprintf(&b, "📅 Tanggal: %s\n", formatDate(state.Date))
	if state.Note != "" {
		fmt.Fprintf(&b, "📌 Catatan: %s\n", escape(state.Note))
	}
	b.WriteString("\nSudah benar?")

	return model.WithButtons(b.String(), [][]model.Button{{
		{Text: "✅ Ya, Simpan", Data: CallbackExpenseYes},
		{Text: "❌ Batal", Data: CallbackExpenseNo},
	}}), nil
}

// ConfirmIncome сохраняет доход из открытого диалога и показывает итоги дня
func (s *Records) ConfirmIncome(ctx context.Context, userID string, session *model.Session, messageText string) (model.Response, error) {
	if session == nil {
		return model.Response{}, ErrSessionMismatch
	}
	state, ok := session.State.(model.ConfirmIncomeState)
	if !ok {
		return model.Response{}, ErrSessionMismatch
	}

	income := &model.Income{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    state.Amount,
		Type:      state.Type,
		Note:      state.Note,
		Date:      state.Date,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.recordRepo.CreateIncome(ctx, income); err != nil {
		return model.Response{}, err
	}
	s.clearSession(ctx, userID)

	totals, err := s.recordRepo.GetTotals(ctx, userID, state.Date, state.Date)
	if err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	b.WriteString("✅ <b>Pendapatan dicatat!</b>\n\n")
	fmt.Fprintf(&b, "%s: %s\n\n", incomeTypeLabel(income.Type), formatRupiah(income.Amount))
	b.WriteString("📊 <b>Total Hari Ini:</b>\n")
	fmt.Fprintf(&b, "🍔 Food: %s\n", formatRupiah(totals.IncomeByType[model.IncomeFood]))
	fmt.Fprintf(&b, "📦 SPX: %s\n", formatRupiah(totals.IncomeByType[model.IncomeSPX]))
	fmt.Fprintf(&b, "💰 Total: <b>%s</b> (%d transaksi)", formatRupiah(totals.TotalIncome), totals.IncomeCount)

	return model.Response{
		Notice:   savedNotice,
		Edit:     messageText,
		Messages: []model.Reply{{Text: b.String()}},
	}, nil
}

// ConfirmExpense сохраняет расход из открытого диалога и показывает расходы дня
func (s *Records) ConfirmExpense(ctx context.Context, userID string, session *model.Session, messageText string) (model.Response, error) {
	if session == nil {
		return model.Response{}, ErrSessionMismatch
	}
	state, ok := session.State.(model.ConfirmExpenseState)
	if !ok {
		return model.Response{}, ErrSessionMismatch
	}

	expense := &model.Expense{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    state.Amount,
		Category:  state.Category,
		Note:      state.Note,
		Date:      state.Date,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.recordRepo.CreateExpense(ctx, expense); err != nil {
		return model.Response{}, err
	}
	s.clearSession(ctx, userID)

	totals, err := s.recordRepo.GetTotals(ctx, userID, state.Date, state.Date)
	if err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	b.WriteString("✅ <b>Pengeluaran dicatat!</b>\n\n")
	fmt.Fprintf(&b, "%s: %s\n\n", expenseCategoryLabel(expense.Category), formatRupiah(expense.Amount))
	b.WriteString("📊 <b>Pengeluaran Hari Ini:</b>\n")
	b.WriteString(categoryBreakdown(totals))
	fmt.Fprintf(&b, "💸 Total: <b>%s</b> (%d transaksi)", formatRupiah(totals.TotalExpenses), totals.ExpenseCount)

	return model.Response{
		Notice:   savedNotice,
		Edit:     messageText,
		Messages: []model.Reply{{Text: b.String()}},
	}, nil
}

// Decline закрывает диалог подтверждения без сохранения
func (s *Records) Decline(ctx context.Context, userID string, edit string) (model.Response, error) {
	if _, err := s.sessionRepo.Clear(ctx, userID); err != nil {
		return model.Response{}, err
	}
	return model.Response{Notice: cancelledNotice, Edit: edit}, nil
}

func (s *Records) effectiveDate(d time.Time) time.Time {
	if d.IsZero() {
		return clock.Today(s.clock, s.location)
	}
	return d
}

func (s *Records) clearSession(ctx context.Context, userID string) {
	if _, err := s.sessionRepo.Clear(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Не удалось закрыть диалог")
	}
}

// categoryBreakdown строки "категория: сумма" в порядке категорий
func categoryBreakdown(totals *model.RecordTotals) string {
	var b strings.Builder
	for _, c := range model.ExpenseCategories {
		if sum, ok := totals.ByCategory[c]; ok {
			fmt.Fprintf(&b, "%s: %s\n", expenseCategoryLabel(c), formatRupiah(sum))
		}
	}
	return b.String()
}
