package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/classifier"
	"driver-finance/internal/clock"
	"driver-finance/internal/model"
	"driver-finance/internal/repository"
)

// IntentClassifier распознает намерение в свободном тексте
type IntentClassifier interface {
	Classify(ctx context.Context, req classifier.Request) classifier.Result
}

var featureActions = map[Feature]string{
	FeatureLoan:    "melihat hutang",
	FeaturePayment: "mencatat pembayaran cicilan",
	FeatureIncome:  "mencatat pendapatan",
	FeatureExpense: "mencatat pengeluaran",
	FeatureReport:  "melihat laporan",
}

// Router решает, куда направить входящее событие: команда, отмена,
// ответ на шаг диалога, ключевая фраза или классификатор.
type Router struct {
	userRepo     *repository.UserRepository
	sessionRepo  *repository.SessionRepository
	usageRepo    *repository.UsageRepository
	vocabulary   *Vocabulary
	classifier   IntentClassifier
	registration *LoanRegistration
	payments     *Payments
	records      *Records
	reports      *Reports
	alerts       *Alerts
	clock        clock.Clock
	location     *time.Location
	callCost     int
	logger       *logrus.Logger
}

// RouterDeps зависимости маршрутизатора
type RouterDeps struct {
	Users        *repository.UserRepository
	Sessions     *repository.SessionRepository
	Usage        *repository.UsageRepository
	Vocabulary   *Vocabulary
	Classifier   IntentClassifier
	Registration *LoanRegistration
	Payments     *Payments
	Records      *Records
	Reports      *Reports
	Alerts       *Alerts
	Clock        clock.Clock
	Location     *time.Location
	// CallCost сколько единиц бесплатного лимита стоит один вызов классификатора
	CallCost int
}

func NewRouter(deps RouterDeps, logger *logrus.Logger) *Router {
	return &Router{
		userRepo:     deps.Users,
		sessionRepo:  deps.Sessions,
		usageRepo:    deps.Usage,
		vocabulary:   deps.Vocabulary,
		classifier:   deps.Classifier,
		registration: deps.Registration,
		payments:     deps.Payments,
		records:      deps.Records,
		reports:      deps.Reports,
		alerts:       deps.Alerts,
		clock:        deps.Clock,
		location:     deps.Location,
		callCost:     deps.CallCost,
		logger:       logger,
	}
}

// HandleMessage обрабатывает текстовое сообщение или фото.
// Ошибки хранилища логируются, пользователь получает общее сообщение.
func (r *Router) HandleMessage(ctx context.Context, msg model.Inbound) model.Response {
	resp, err := r.handleMessage(ctx, msg)
	if err != nil {
		if errors.Is(err, ErrSessionMismatch) {
			return model.Text(sessionExpiredNotice)
		}
		r.logger.WithError(err).WithField("user_id", msg.UserID).Error("Ошибка обработки сообщения")
		return model.Text(internalErrorMessage)
	}
	return resp
}

func (r *Router) handleMessage(ctx context.Context, msg model.Inbound) (model.Response, error) {
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		return r.handleCommand(ctx, msg, text)
	}
	if r.vocabulary.IsCancel(text) {
		return r.cancel(ctx, msg.UserID)
	}

	if err := r.ensureUser(ctx, msg); err != nil {
		return model.Response{}, err
	}
	alert := r.checkAlerts(ctx, msg.UserID)

	resp, err := r.handleFreeText(ctx, msg, text)
	if err != nil {
		return model.Response{}, err
	}
	if alert != "" {
		resp = resp.Prepend(alert)
	}
	return resp, nil
}

func (r *Router) handleFreeText(ctx context.Context, msg model.Inbound, text string) (model.Response, error) {
	session, err := r.sessionRepo.Get(ctx, msg.UserID, r.clock.Now())
	if err != nil {
		return model.Response{}, err
	}

	if session != nil {
		if !session.State.Action().IsWizard() {
			return model.Text(useButtonsMessage), nil
		}
		if feature, leaked := r.vocabulary.LeaksIntent(text); leaked {
			r.logger.WithFields(logrus.Fields{
				"user_id": msg.UserID,
				"feature": feature,
			}).Info("Ответ на шаг мастера похож на другую команду")
			return model.Text(fmt.Sprintf(wizardLeakMessage, featureActions[feature])), nil
		}
		return r.registration.HandleText(ctx, msg.UserID, session, text)
	}

	if msg.HasPhoto || text == "" {
		return model.Text(photoNotSupportedMessage), nil
	}

	if intent, ok := r.vocabulary.PreRoute(text); ok {
		r.logger.WithFields(logrus.Fields{
			"user_id": msg.UserID,
			"intent":  intent.Name(),
		}).Debug("Намерение определено по ключевой фразе")
		return r.dispatch(ctx, msg.UserID, intent)
	}

	return r.classify(ctx, msg.UserID, text)
}

func (r *Router) classify(ctx context.Context, userID, text string) (model.Response, error) {
	today := clock.Today(r.clock, r.location)
	usage, err := r.usageRepo.Get(ctx, today)
	if err != nil {
		return model.Response{}, err
	}

	res := r.classifier.Classify(ctx, classifier.Request{Text: text, Today: today, UsageCount: usage})
	if res.Primary {
		if err := r.usageRepo.Increment(ctx, today, r.callCost); err != nil {
			r.logger.WithError(err).Warn("Не удалось обновить счетчик использования")
		}
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"intent":     res.Intent.Name(),
		"confidence": res.Confidence,
		"backend":    res.Backend,
	}).Info("Сообщение классифицировано")

	return r.dispatch(ctx, userID, res.Intent)
}

func (r *Router) dispatch(ctx context.Context, userID string, intent model.Intent) (model.Response, error) {
	switch in := intent.(type) {
	case model.RecordIncomeIntent:
		return r.records.StartIncome(ctx, userID, in)
	case model.RecordExpenseIntent:
		return r.records.StartExpense(ctx, userID, in)
	case model.RegisterLoanIntent:
		return r.registration.StartFromExtractedFields(ctx, userID, in.Draft)
	case model.PayInstallmentIntent:
		return r.payments.Start(ctx, userID, in.Platform)
	case model.ViewLoansIntent:
		return r.reports.Dashboard(ctx, userID)
	case model.ViewPenaltyIntent:
		return r.reports.Penalty(ctx, userID, in.Platform)
	case model.ViewProgressIntent:
		return r.reports.Progress(ctx, userID)
	case model.ViewReportIntent:
		return r.reports.FinancialReport(ctx, userID, in.Period)
	case model.SetTargetIntent, model.ViewTargetIntent:
		return model.Text(targetComingSoonMessage), nil
	case model.HelpIntent:
		return model.Text(helpMessage), nil
	default:
		return model.Text(unknownIntentMessage), nil
	}
}

// handleCommand команды работают независимо от открытого диалога
func (r *Router) handleCommand(ctx context.Context, msg model.Inbound, text string) (model.Response, error) {
	fields := strings.Fields(text)
	command := strings.ToLower(fields[0])
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	arg := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	switch command {
	case "/start":
		if err := r.ensureUser(ctx, msg); err != nil {
			return model.Response{}, err
		}
		user, err := r.userRepo.GetByID(ctx, msg.UserID)
		if err != nil {
			return model.Response{}, err
		}
		greeting := ""
		if user != nil && user.Name != "" {
			greeting = fmt.Sprintf("Halo, <b>%s</b>! 👋\n\n", escape(user.Name))
		}
		return model.Text(greeting + welcomeMessage), nil
	case "/help":
		return model.Text(helpMessage), nil
	case "/batal", "/cancel":
		return r.cancel(ctx, msg.UserID)
	case "/hutang", "/dashboard":
		return r.reports.Dashboard(ctx, msg.UserID)
	case "/denda", "/penalty":
		return r.reports.Penalty(ctx, msg.UserID, arg)
	case "/ringkasan", "/summary":
		return r.reports.MonthlySummary(ctx, msg.UserID, arg)
	case "/progres", "/progress":
		return r.reports.Progress(ctx, msg.UserID)
	default:
		return model.Text(unknownCommandMessage), nil
	}
}

// cancel закрывает открытый диалог. Get удаляет просроченный диалог,
// поэтому истекшая сессия дает "нечего отменять".
func (r *Router) cancel(ctx context.Context, userID string) (model.Response, error) {
	if _, err := r.sessionRepo.Get(ctx, userID, r.clock.Now()); err != nil {
		return model.Response{}, err
	}
	cleared, err := r.sessionRepo.Clear(ctx, userID)
	if err != nil {
		return model.Response{}, err
	}
	if !cleared {
		return model.Text(nothingToCancelMessage), nil
	}
	r.logger.WithField("user_id", userID).Info("Диалог отменен пользователем")
	return model.Text(cancelledMessage), nil
}

func (r *Router) ensureUser(ctx context.Context, msg model.Inbound) error {
	_, err := r.userRepo.Ensure(ctx, msg.UserID, msg.Name, r.clock.Now())
	return err
}

// checkAlerts сбой напоминаний не должен мешать обработке сообщения
func (r *Router) checkAlerts(ctx context.Context, userID string) string {
	if r.alerts == nil {
		return ""
	}
	alert, err := r.alerts.Check(ctx, userID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("Не удалось проверить напоминания")
		return ""
	}
	return alert
}

// HandleCallback обрабатывает нажатие кнопки
func (r *Router) HandleCallback(ctx context.Context, cb model.Callback) model.Response {
	resp, err := r.handleCallback(ctx, cb)
	if err != nil {
		if errors.Is(err, ErrSessionMismatch) {
			r.logger.WithFields(logrus.Fields{
				"user_id": cb.UserID,
				"data":    cb.Data,
			}).Info("Нажатие кнопки без подходящего диалога")
			return model.Response{Notice: sessionExpiredNotice}
		}
		r.logger.WithError(err).WithField("user_id", cb.UserID).Error("Ошибка обработки нажатия кнопки")
		return model.Response{Notice: failedNotice}
	}
	return resp
}

func (r *Router) handleCallback(ctx context.Context, cb model.Callback) (model.Response, error) {
	session, err := r.sessionRepo.Get(ctx, cb.UserID, r.clock.Now())
	if err != nil {
		return model.Response{}, err
	}
	// текст из Telegram приходит без разметки, а ответы уходят в HTML
	messageText := escape(cb.MessageText)

	switch cb.Data {
	case CallbackIncomeYes:
		return r.records.ConfirmIncome(ctx, cb.UserID, session, messageText)
	case CallbackIncomeNo:
		return r.records.Decline(ctx, cb.UserID, "❌ Pencatatan pendapatan dibatalkan.")
	case CallbackExpenseYes:
		return r.records.ConfirmExpense(ctx, cb.UserID, session, messageText)
	case CallbackExpenseNo:
		return r.records.Decline(ctx, cb.UserID, "❌ Pencatatan pengeluaran dibatalkan.")
	case CallbackLoanSave, CallbackLoanEdit, CallbackLoanCancel:
		return r.registration.HandleConfirmation(ctx, cb.UserID, session, cb.Data, messageText)
	case CallbackPaymentYes:
		return r.payments.Confirm(ctx, cb.UserID, session, messageText)
	case CallbackPaymentNo:
		return r.payments.Decline(ctx, cb.UserID)
	}

	if strings.HasPrefix(cb.Data, CallbackLateFeePref) {
		return r.registration.HandleLateFeeButton(ctx, cb.UserID, session, cb.Data)
	}
	return model.Response{Notice: unknownActionNotice}, nil
}
