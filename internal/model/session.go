package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PendingAction string

const (
	ActionConfirmIncome   PendingAction = "confirm_income"
	ActionConfirmExpense  PendingAction = "confirm_expense"
	ActionConfirmLoan     PendingAction = "confirm_loan"
	ActionLoanFillMissing PendingAction = "loan_fill_missing"
	ActionLoanEditSelect  PendingAction = "loan_edit_select"
	ActionLoanEditField   PendingAction = "loan_edit_field"
	ActionConfirmPayment  PendingAction = "confirm_payment"
	ActionConfirmOCR      PendingAction = "confirm_ocr"
)

// IsWizard сообщает, ждет ли действие свободный текст (шаг мастера),
// а не нажатие кнопки.
func (a PendingAction) IsWizard() bool {
	switch a {
	case ActionLoanFillMissing, ActionLoanEditSelect, ActionLoanEditField:
		return true
	}
	return false
}

var ErrMalformedSession = errors.New("malformed session")

// SessionState данные открытого диалога; у каждого действия свой тип
type SessionState interface {
	Action() PendingAction
	isSessionState()
}

type ConfirmIncomeState struct {
	Amount float64    `json:"amount"`
	Type   IncomeType `json:"type"`
	Note   string     `json:"note,omitempty"`
	Date   time.Time  `json:"date"`
}

type ConfirmExpenseState struct {
	Amount   float64         `json:"amount"`
	Category ExpenseCategory `json:"category"`
	Note     string          `json:"note,omitempty"`
	Date     time.Time       `json:"date"`
}

type ConfirmLoanState struct {
	Draft LoanDraft `json:"draft"`
}

// LoanFillMissingState очередь недостающих полей и курсор текущего вопроса
type LoanFillMissingState struct {
	Draft   LoanDraft   `json:"draft"`
	Missing []LoanField `json:"missing"`
	Cursor  int         `json:"cursor"`
}

// Current поле, которое сейчас спрашивают
func (s LoanFillMissingState) Current() LoanField {
	return s.Missing[s.Cursor]
}

type LoanEditSelectState struct {
	Draft LoanDraft `json:"draft"`
}

type LoanEditFieldState struct {
	Draft LoanDraft `json:"draft"`
	Field LoanField `json:"field"`
}

type ConfirmPaymentState struct {
	LoanID        uuid.UUID `json:"loan_id"`
	InstallmentID uuid.UUID `json:"installment_id"`
	InstallmentNo int       `json:"installment_no"`
	Amount        float64   `json:"amount"`
	LateFee       float64   `json:"late_fee"`
	Total         float64   `json:"total_amount"`
	Platform      string    `json:"platform"`
}

// ConfirmOCRState зарезервировано под распознавание чеков
type ConfirmOCRState struct {
	Text string `json:"text,omitempty"`
}

func (ConfirmIncomeState) Action() PendingAction   { return ActionConfirmIncome }
func (ConfirmExpenseState) Action() PendingAction  { return ActionConfirmExpense }
func (ConfirmLoanState) Action() PendingAction     { return ActionConfirmLoan }
func (LoanFillMissingState) Action() PendingAction { return ActionLoanFillMissing }
func (LoanEditSelectState) Action() PendingAction  { return ActionLoanEditSelect }
func (LoanEditFieldState) Action() PendingAction   { return ActionLoanEditField }
func (ConfirmPaymentState) Action() PendingAction  { return ActionConfirmPayment }
func (ConfirmOCRState) Action() PendingAction      { return ActionConfirmOCR }

func (ConfirmIncomeState) isSessionState()   {}
func (ConfirmExpenseState) isSessionState()  {}
func (ConfirmLoanState) isSessionState()     {}
func (LoanFillMissingState) isSessionState() {}
func (LoanEditSelectState) isSessionState()  {}
func (LoanEditFieldState) isSessionState()   {}
func (ConfirmPaymentState) isSessionState()  {}
func (ConfirmOCRState) isSessionState()      {}

// Session открытый диалог пользователя
type Session struct {
	UserID    string
	State     SessionState
	ExpiresAt time.Time
}

// Expired сообщает, истек ли срок диалога к моменту now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type sessionEnvelope struct {
	PendingAction PendingAction   `json:"pending_action"`
	PendingData   json.RawMessage `json:"pending_data"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// EncodeSession сериализует состояние в JSON-конверт для хранения
func EncodeSession(state SessionState, expiresAt time.Time) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session data: %w", err)
	}
	return json.Marshal(sessionEnvelope{
		PendingAction: state.Action(),
		PendingData:   data,
		ExpiresAt:     expiresAt.UTC(),
	})
}

// DecodeSession разбирает конверт. Любое расхождение с ожидаемой формой
// возвращает ErrMalformedSession.
func DecodeSession(raw []byte) (SessionState, time.Time, error) {
	var env sessionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if len(env.PendingData) == 0 || env.ExpiresAt.IsZero() {
		return nil, time.Time{}, fmt.Errorf("%w: missing fields", ErrMalformedSession)
	}

	var state SessionState
	var err error
	switch env.PendingAction {
	case ActionConfirmIncome:
		state, err = decodeState[ConfirmIncomeState](env.PendingData)
	case ActionConfirmExpense:
		state, err = decodeState[ConfirmExpenseState](env.PendingData)
	case ActionConfirmLoan:
		state, err = decodeState[ConfirmLoanState](env.PendingData)
	case ActionLoanFillMissing:
		var s LoanFillMissingState
		s, err = decodeState[LoanFillMissingState](env.PendingData)
		if err == nil && (s.Cursor < 0 || s.Cursor >= len(s.Missing)) {
			err = fmt.Errorf("cursor %d out of range", s.Cursor)
		}
		state = s
	case ActionLoanEditSelect:
		state, err = decodeState[LoanEditSelectState](env.PendingData)
	case ActionLoanEditField:
		state, err = decodeState[LoanEditFieldState](env.PendingData)
	case ActionConfirmPayment:
		state, err = decodeState[ConfirmPaymentState](env.PendingData)
	case ActionConfirmOCR:
		state, err = decodeState[ConfirmOCRState](env.PendingData)
	default:
		err = fmt.Errorf("unknown pending action %q", env.PendingAction)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}

	return state, env.ExpiresAt, nil
}

func decodeState[T SessionState](data json.RawMessage) (T, error) {
	var state T
	if err := json.Unmarshal(data, &state); err != nil {
		return state, err
	}
	return state, nil
}
