package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"driver-finance/internal/classifier"
	"driver-finance/internal/clock"
	"driver-finance/internal/model"
	"driver-finance/internal/repository"
)

const testUser = "1001"

type fakeClassifier struct {
	result   classifier.Result
	calls    int
	lastText string
}

func (f *fakeClassifier) Classify(ctx context.Context, req classifier.Request) classifier.Result {
	f.calls++
	f.lastText = req.Text
	return f.result
}

type FlowTestSuite struct {
	suite.Suite
	ctx        context.Context
	db         *repository.DB
	now        time.Time
	users      *repository.UserRepository
	loans      *repository.LoanRepository
	records    *repository.RecordRepository
	sessions   *repository.SessionRepository
	usage      *repository.UsageRepository
	classifier *fakeClassifier
	wizard     *LoanRegistration
	router     *Router
	cleanup    *Housekeeping
}

func (s *FlowTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := repository.Open("sqlite", ":memory:", logger)
	require.NoError(s.T(), err)

	s.ctx = context.Background()
	s.db = db
	// 15:00 по Джакарте
	s.now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	c := clock.FuncClock(func() time.Time { return s.now })
	loc := clock.LoadLocation("Asia/Jakarta")

	s.users = repository.NewUserRepository(db, logger)
	s.loans = repository.NewLoanRepository(db, logger)
	s.records = repository.NewRecordRepository(db, logger)
	s.sessions = repository.NewSessionRepository(db, logger)
	s.usage = repository.NewUsageRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)

	s.classifier = &fakeClassifier{result: classifier.Result{Intent: model.UnknownIntent{}}}
	s.wizard = NewLoanRegistration(s.loans, s.sessions, c, loc, 5*time.Minute, logger)

	s.router = NewRouter(RouterDeps{
		Users:        s.users,
		Sessions:     s.sessions,
		Usage:        s.usage,
		Vocabulary:   DefaultVocabulary(),
		Classifier:   s.classifier,
		Registration: s.wizard,
		Payments:     NewPayments(s.loans, s.sessions, c, loc, 5*time.Minute, logger),
		Records:      NewRecords(s.records, s.sessions, c, loc, 5*time.Minute, logger),
		Reports:      NewReports(s.loans, s.records, c, loc, logger),
		Alerts:       NewAlerts(s.loans, alertRepo, c, loc, 6*time.Hour, logger),
		Clock:        c,
		Location:     loc,
		CallCost:     5,
	}, logger)
	s.cleanup = NewHousekeeping(s.usage, s.sessions, c, loc, 30, logger)
}

func (s *FlowTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *FlowTestSuite) send(text string) model.Response {
	return s.router.HandleMessage(s.ctx, model.Inbound{UserID: testUser, ChatID: 1001, Name: "Budi", Text: text})
}

func (s *FlowTestSuite) press(data string) model.Response {
	return s.router.HandleCallback(s.ctx, model.Callback{UserID: testUser, ChatID: 1001, Data: data, MessageID: 7, MessageText: "Konfirmasi"})
}

func (s *FlowTestSuite) session() model.SessionState {
	session, err := s.sessions.Get(s.ctx, testUser, s.now)
	require.NoError(s.T(), err)
	if session == nil {
		return nil
	}
	return session.State
}

// seedLoan займ с одним просроченным взносом (срок 2026-03-05)
func (s *FlowTestSuite) seedLoan(platform string, installments int) *model.Loan {
	_, err := s.users.Ensure(s.ctx, testUser, "Budi", s.now)
	require.NoError(s.T(), err)

	loan := &model.Loan{
		ID:                uuid.New(),
		UserID:            testUser,
		Platform:          platform,
		OriginalAmount:    float64(installments) * 400000,
		TotalInstallments: installments,
		MonthlyAmount:     500000,
		DueDay:            5,
		LateFeeType:       model.LateFeePercentMonthly,
		LateFeeValue:      5,
		Status:            model.LoanStatusActive,
		StartDate:         date(2026, 2, 1),
		CreatedAt:         s.now,
		UpdatedAt:         s.now,
	}
	schedule := GenerateSchedule(loan.ID, installments, loan.MonthlyAmount, loan.DueDay, loan.StartDate)
	require.NoError(s.T(), s.loans.CreateWithSchedule(s.ctx, loan, schedule))
	return loan
}

func lastText(resp model.Response) string {
	if len(resp.Messages) == 0 {
		return ""
	}
	return resp.Messages[len(resp.Messages)-1].Text
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func (s *FlowTestSuite) TestWizardAsksMissingFieldsInOrder() {
	t := s.T()

	resp, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{Platform: strPtr("Kredivo")})
	require.NoError(t, err)
	assert.Contains(t, lastText(resp), "Langkah 1/7")
	assert.Contains(t, lastText(resp), "2. Total harus dibayar <i>(opsional)</i>")
	assert.Contains(t, lastText(resp), "1. Jumlah pinjaman\n")

	state, ok := s.session().(model.LoanFillMissingState)
	require.True(t, ok)
	assert.Equal(t, []model.LoanField{
		model.FieldOriginalAmount,
		model.FieldTotalWithInterest,
		model.FieldTotalInstallments,
		model.FieldMonthlyAmount,
		model.FieldDueDay,
		model.FieldLateFeeType,
		model.FieldLateFeeValue,
	}, state.Missing)

	// некорректный ответ не двигает курсор
	resp = s.send("banyak")
	assert.Contains(t, lastText(resp), "❌")
	assert.Equal(t, 0, s.session().(model.LoanFillMissingState).Cursor)

	for _, answer := range []string{"5jt", "skip", "12", "500rb", "tgl 31"} {
		resp = s.send(answer)
		require.NotEmpty(t, resp.Messages, answer)
	}
	assert.Equal(t, model.FieldLateFeeType, s.session().(model.LoanFillMissingState).Current())

	// тип "none" убирает вопрос о значении штрафа
	resp = s.press(CallbackLateFeePref + string(model.LateFeeNone))
	assert.Contains(t, resp.Edit, "Jenis denda")
	assert.Contains(t, lastText(resp), "Konfirmasi Pinjaman")
	require.IsType(t, model.ConfirmLoanState{}, s.session())

	resp = s.press(CallbackLoanSave)
	assert.Equal(t, savedNotice, resp.Notice)
	assert.Contains(t, lastText(resp), "Pinjaman Berhasil Didaftarkan")
	assert.Nil(t, s.session())

	loans, err := s.loans.ListByUser(s.ctx, testUser, model.LoanStatusActive)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, 5000000.0, loans[0].OriginalAmount)
	assert.Zero(t, loans[0].TotalWithInterest)
	assert.Equal(t, model.LateFeeNone, loans[0].LateFeeType)

	schedule, err := s.loans.GetSchedule(s.ctx, loans[0].ID)
	require.NoError(t, err)
	require.Len(t, schedule, 12)
	assert.Equal(t, date(2026, 4, 30), schedule[0].DueDate)
	assert.Equal(t, date(2027, 2, 28), schedule[10].DueDate)
}

func (s *FlowTestSuite) TestWizardCompleteDraftGoesToConfirmation() {
	fee := model.LateFeeFixed
	count, day := 10, 13
	draft := model.LoanDraft{
		Platform:          strPtr("Shopee Pinjam"),
		OriginalAmount:    floatPtr(3500000),
		TotalWithInterest: floatPtr(4900000),
		TotalInstallments: &count,
		MonthlyAmount:     floatPtr(490000),
		DueDay:            &day,
		LateFeeType:       &fee,
		LateFeeValue:      floatPtr(50000),
	}

	resp, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, draft)
	require.NoError(s.T(), err)
	require.Len(s.T(), resp.Messages, 1)
	assert.Len(s.T(), resp.Messages[0].Buttons, 2)
	assert.IsType(s.T(), model.ConfirmLoanState{}, s.session())
}

func (s *FlowTestSuite) TestWizardEmptyDraftShowsUsage() {
	resp, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), loanUsageMessage, lastText(resp))
	assert.Nil(s.T(), s.session())
}

func (s *FlowTestSuite) TestWizardEditChangesFeeUnit() {
	t := s.T()
	fee := model.LateFeePercentMonthly
	count, day := 10, 13
	_, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{
		Platform:          strPtr("SeaBank"),
		OriginalAmount:    floatPtr(1500000),
		TotalWithInterest: floatPtr(1624000),
		TotalInstallments: &count,
		MonthlyAmount:     floatPtr(232000),
		DueDay:            &day,
		LateFeeType:       &fee,
		LateFeeValue:      floatPtr(5),
	})
	require.NoError(t, err)

	s.press(CallbackLoanEdit)
	require.IsType(t, model.LoanEditSelectState{}, s.session())

	resp := s.send("9")
	assert.Contains(t, lastText(resp), "1-7")

	s.send("7")
	s.press(CallbackLateFeePref + string(model.LateFeeFixed))
	edit, ok := s.session().(model.LoanEditFieldState)
	require.True(t, ok)
	assert.Equal(t, model.FieldLateFeeValue, edit.Field)

	s.send("50rb")
	confirm, ok := s.session().(model.ConfirmLoanState)
	require.True(t, ok)
	assert.Equal(t, model.LateFeeFixed, *confirm.Draft.LateFeeType)
	assert.Equal(t, 50000.0, *confirm.Draft.LateFeeValue)
}

func (s *FlowTestSuite) TestWizardRejectsOtherFeatureText() {
	t := s.T()
	_, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{OriginalAmount: floatPtr(5000000)})
	require.NoError(t, err)

	resp := s.send("bensin 20rb")
	assert.Contains(t, lastText(resp), "batal")

	state := s.session().(model.LoanFillMissingState)
	assert.Nil(t, state.Draft.Platform)
	assert.Equal(t, 0, state.Cursor)
	assert.Zero(t, s.classifier.calls)

	// одно слово считается ответом
	s.send("Kredivo")
	state = s.session().(model.LoanFillMissingState)
	assert.Equal(t, "Kredivo", *state.Draft.Platform)
}

func (s *FlowTestSuite) TestWizardRejectsLoanQuery() {
	t := s.T()
	_, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{OriginalAmount: floatPtr(5000000)})
	require.NoError(t, err)

	for _, text := range []string{"lihat hutang", "cek pinjaman", "hutang saya"} {
		resp := s.send(text)
		assert.Equal(t, fmt.Sprintf(wizardLeakMessage, featureActions[FeatureLoan]), lastText(resp), text)

		state := s.session().(model.LoanFillMissingState)
		assert.Nil(t, state.Draft.Platform, text)
		assert.Equal(t, 0, state.Cursor, text)
	}
}

func (s *FlowTestSuite) TestCancel() {
	resp := s.send("batal")
	assert.Equal(s.T(), nothingToCancelMessage, lastText(resp))

	_, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{Platform: strPtr("Kredivo")})
	require.NoError(s.T(), err)

	resp = s.send("Batal")
	assert.Equal(s.T(), cancelledMessage, lastText(resp))
	assert.Nil(s.T(), s.session())
}

func (s *FlowTestSuite) TestExpiredSessionIsNothingToCancel() {
	_, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{Platform: strPtr("Kredivo")})
	require.NoError(s.T(), err)

	s.now = s.now.Add(6 * time.Minute)
	resp := s.send("/batal")
	assert.Equal(s.T(), nothingToCancelMessage, lastText(resp))
}

func (s *FlowTestSuite) TestCommandsBypassSession() {
	_, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{Platform: strPtr("Kredivo")})
	require.NoError(s.T(), err)

	resp := s.send("/hutang@driver_finance_bot")
	assert.NotEmpty(s.T(), lastText(resp))
	assert.IsType(s.T(), model.LoanFillMissingState{}, s.session())

	resp = s.send("/foo")
	assert.Equal(s.T(), unknownCommandMessage, lastText(resp))

	resp = s.send("/start")
	assert.Contains(s.T(), lastText(resp), "Halo, <b>Budi</b>")
	assert.Contains(s.T(), lastText(resp), welcomeMessage)
}

func (s *FlowTestSuite) TestConfirmationSessionAsksForButtons() {
	s.classifier.result = classifier.Result{Intent: model.RecordIncomeIntent{Amount: 45000, Type: model.IncomeFood}}
	s.send("dapet 45rb food")
	require.IsType(s.T(), model.ConfirmIncomeState{}, s.session())

	resp := s.send("dapet 50rb spx")
	assert.Equal(s.T(), useButtonsMessage, lastText(resp))
	assert.Equal(s.T(), 1, s.classifier.calls)
}

func (s *FlowTestSuite) TestPreRouteSkipsClassifier() {
	resp := s.send("lihat hutang")
	assert.NotEmpty(s.T(), lastText(resp))
	assert.Zero(s.T(), s.classifier.calls)
}

func (s *FlowTestSuite) TestClassifierUsageCounted() {
	today := date(2026, 3, 10)

	s.classifier.result = classifier.Result{Intent: model.HelpIntent{}, Primary: true}
	resp := s.send("bisa ngapain aja bot ini")
	assert.Equal(s.T(), helpMessage, lastText(resp))

	count, err := s.usage.Get(s.ctx, today)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 5, count)

	s.classifier.result = classifier.Result{Intent: model.HelpIntent{}, Primary: false}
	s.send("bisa ngapain aja bot ini")
	count, err = s.usage.Get(s.ctx, today)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 5, count)
}

func (s *FlowTestSuite) TestIncomeConfirmed() {
	t := s.T()
	s.classifier.result = classifier.Result{Intent: model.RecordIncomeIntent{Amount: 45000, Type: model.IncomeSPX}}

	resp := s.send("spx 45rb")
	require.Len(t, resp.Messages, 1)
	require.Len(t, resp.Messages[0].Buttons, 1)
	assert.Equal(t, CallbackIncomeYes, resp.Messages[0].Buttons[0][0].Data)

	resp = s.press(CallbackIncomeYes)
	assert.Equal(t, savedNotice, resp.Notice)
	assert.Equal(t, "Konfirmasi", resp.Edit)
	assert.Contains(t, lastText(resp), "Rp 45.000")
	assert.Nil(t, s.session())

	totals, err := s.records.GetTotals(s.ctx, testUser, date(2026, 3, 10), date(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 45000.0, totals.IncomeByType[model.IncomeSPX])

	// повторное нажатие после закрытия диалога
	resp = s.press(CallbackIncomeYes)
	assert.Equal(t, sessionExpiredNotice, resp.Notice)
	assert.Empty(t, resp.Messages)
}

func (s *FlowTestSuite) TestExpenseWithoutAmount() {
	s.classifier.result = classifier.Result{Intent: model.RecordExpenseIntent{Category: model.ExpenseFuel}}
	resp := s.send("isi bensin tadi")
	assert.Equal(s.T(), expenseAmountMissingMessage, lastText(resp))
	assert.Nil(s.T(), s.session())
}

func (s *FlowTestSuite) TestExpenseDeclined() {
	s.classifier.result = classifier.Result{Intent: model.RecordExpenseIntent{Amount: 20000, Category: model.ExpenseFuel}}
	s.send("bensin 20rb")

	resp := s.press(CallbackExpenseNo)
	assert.Equal(s.T(), "❌ Pencatatan pengeluaran dibatalkan.", resp.Edit)
	assert.Nil(s.T(), s.session())
}

func (s *FlowTestSuite) TestCallbackSessionMismatch() {
	s.classifier.result = classifier.Result{Intent: model.RecordIncomeIntent{Amount: 45000, Type: model.IncomeFood}}
	s.send("dapet 45rb")

	resp := s.press(CallbackPaymentYes)
	assert.Equal(s.T(), sessionExpiredNotice, resp.Notice)
	assert.IsType(s.T(), model.ConfirmIncomeState{}, s.session())

	resp = s.press("something_else")
	assert.Equal(s.T(), unknownActionNotice, resp.Notice)
}

func (s *FlowTestSuite) TestPaymentCompletesLoan() {
	t := s.T()
	loan := s.seedLoan("Kredivo", 1)
	s.classifier.result = classifier.Result{Intent: model.PayInstallmentIntent{Platform: "kredivo"}}

	resp := s.send("bayar cicilan kredivo")
	text := lastText(resp)
	assert.Contains(t, text, "TELAT 5 hari")
	assert.Contains(t, text, "Rp 525.000")

	state, ok := s.session().(model.ConfirmPaymentState)
	require.True(t, ok)
	assert.Equal(t, 25000.0, state.LateFee)
	assert.Equal(t, 525000.0, state.Total)

	resp = s.press(CallbackPaymentYes)
	assert.Equal(t, savedNotice, resp.Notice)
	assert.Contains(t, lastText(resp), "LUNAS")

	saved, err := s.loans.GetByID(s.ctx, testUser, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LoanStatusPaidOff, saved.Status)
	assert.Equal(t, 1, saved.PaidInstallments)

	schedule, err := s.loans.GetSchedule(s.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstallmentPaid, schedule[0].Status)
	assert.Equal(t, 525000.0, schedule[0].PaidAmount)

	resp = s.send("bayar cicilan kredivo")
	assert.Contains(t, lastText(resp), "Tidak menemukan")
}

func (s *FlowTestSuite) TestPaymentConfirmForInactiveLoan() {
	t := s.T()
	loan := s.seedLoan("Kredivo", 3)
	s.classifier.result = classifier.Result{Intent: model.PayInstallmentIntent{Platform: "kredivo"}}

	s.send("bayar cicilan kredivo")
	require.IsType(t, model.ConfirmPaymentState{}, s.session())

	_, err := s.db.ExecContext(s.ctx, "UPDATE loans SET status = 'cancelled' WHERE id = ?", loan.ID)
	require.NoError(t, err)

	resp := s.press(CallbackPaymentYes)
	assert.Equal(t, sessionExpiredNotice, resp.Notice)
	assert.Nil(t, s.session())

	schedule, err := s.loans.GetSchedule(s.ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstallmentUnpaid, schedule[0].Status)

	saved, err := s.loans.GetByID(s.ctx, testUser, loan.ID)
	require.NoError(t, err)
	assert.Zero(t, saved.PaidInstallments)
}

func (s *FlowTestSuite) TestPaymentAmbiguousPlatform() {
	s.seedLoan("Shopee Pinjam", 3)
	s.seedLoan("ShopeePayLater", 3)
	s.classifier.result = classifier.Result{Intent: model.PayInstallmentIntent{Platform: "shopee"}}

	resp := s.send("bayar cicilan shopee")
	assert.Contains(s.T(), lastText(resp), "Ditemukan 2")
	assert.Nil(s.T(), s.session())
}

func (s *FlowTestSuite) TestAlertThrottled() {
	s.seedLoan("Kredivo", 3)

	resp := s.send("halo")
	require.Len(s.T(), resp.Messages, 2)
	assert.Contains(s.T(), resp.Messages[0].Text, "TELAT BAYAR")
	assert.Equal(s.T(), unknownIntentMessage, resp.Messages[1].Text)

	s.now = s.now.Add(time.Hour)
	resp = s.send("halo")
	assert.Len(s.T(), resp.Messages, 1)

	s.now = s.now.Add(6 * time.Hour)
	resp = s.send("halo")
	assert.Len(s.T(), resp.Messages, 2)
}

func (s *FlowTestSuite) TestPhotoStub() {
	resp := s.router.HandleMessage(s.ctx, model.Inbound{UserID: testUser, Name: "Budi", HasPhoto: true})
	assert.Equal(s.T(), photoNotSupportedMessage, lastText(resp))
}

func (s *FlowTestSuite) TestReportsRender() {
	t := s.T()
	s.seedLoan("Kredivo", 3)

	for _, text := range []string{"/hutang", "/denda", "/denda kredivo", "/ringkasan 3", "/ringkasan 2026-04", "/progres"} {
		resp := s.send(text)
		assert.NotEmpty(t, lastText(resp), text)
		assert.NotEqual(t, internalErrorMessage, lastText(resp), text)
	}

	s.classifier.result = classifier.Result{Intent: model.ViewReportIntent{Period: model.PeriodWeek}}
	resp := s.send("rekap gue seminggu")
	assert.NotEqual(t, internalErrorMessage, lastText(resp))
}

func (s *FlowTestSuite) TestHousekeeping() {
	t := s.T()
	old := date(2026, 1, 1)
	require.NoError(t, s.usage.Increment(s.ctx, old, 10))
	require.NoError(t, s.usage.Increment(s.ctx, date(2026, 3, 9), 10))

	_, err := s.wizard.StartFromExtractedFields(s.ctx, testUser, model.LoanDraft{Platform: strPtr("Kredivo")})
	require.NoError(t, err)
	s.now = s.now.Add(10 * time.Minute)

	require.NoError(t, s.cleanup.Run(s.ctx))

	count, err := s.usage.Get(s.ctx, old)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = s.usage.Get(s.ctx, date(2026, 3, 9))
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	deleted, err := s.sessions.DeleteExpired(s.ctx, s.now)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestFlowTestSuite(t *testing.T) {
	suite.Run(t, new(FlowTestSuite))
}
