package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
	"driver-finance/internal/repository"
)

// ErrSessionMismatch нажатие или ответ не относится к открытому диалогу
var ErrSessionMismatch = errors.New("session does not match action")

// Данные кнопок экрана подтверждения займа
const (
	CallbackLoanSave    = "confirm_loan_yes"
	CallbackLoanEdit    = "confirm_loan_edit"
	CallbackLoanCancel  = "confirm_loan_no"
	CallbackLateFeePref = "loan_late_fee:"
)

type loanChoice string

const (
	choiceSave   loanChoice = "save"
	choiceEdit   loanChoice = "edit"
	choiceCancel loanChoice = "cancel"
)

// wizardInput проверенный ввод для шага мастера: текст, нажатая кнопка
// типа штрафа или решение на экране подтверждения
type wizardInput struct {
	Text        string
	FeeType     model.LateFeeType
	Choice      loanChoice
	MessageText string
}

type stepFunc func(ctx context.Context, userID string, state model.SessionState, in wizardInput) (model.Response, error)

// LoanRegistration мастер регистрации займа: объединяет поля, извлеченные
// классификатором, с ответами пользователя и сохраняет займ с графиком.
type LoanRegistration struct {
	loanRepo    *repository.LoanRepository
	sessionRepo *repository.SessionRepository
	clock       clock.Clock
	location    *time.Location
	sessionTTL  time.Duration
	logger      *logrus.Logger
	steps       map[model.PendingAction]stepFunc
}

func NewLoanRegistration(
	loanRepo *repository.LoanRepository,
	sessionRepo *repository.SessionRepository,
	c clock.Clock,
	location *time.Location,
	sessionTTL time.Duration,
	logger *logrus.Logger,
) *LoanRegistration {
	r := &LoanRegistration{
		loanRepo:    loanRepo,
		sessionRepo: sessionRepo,
		clock:       c,
		location:    location,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
	r.steps = map[model.PendingAction]stepFunc{
		model.ActionLoanFillMissing: r.fillMissingStep,
		model.ActionLoanEditSelect:  r.editSelectStep,
		model.ActionLoanEditField:   r.editFieldStep,
		model.ActionConfirmLoan:     r.confirmStep,
	}
	return r
}

// StartFromExtractedFields начинает регистрацию с полей из одного сообщения.
// Пустой черновик получает подсказку без открытия диалога; полный переходит
// сразу к подтверждению; иначе мастер спрашивает недостающие поля по очереди.
func (r *LoanRegistration) StartFromExtractedFields(ctx context.Context, userID string, draft model.LoanDraft) (model.Response, error) {
	if draft.Platform != nil {
		p := strings.TrimSpace(*draft.Platform)
		draft.Platform = &p
	}

	extracted := draft.Extracted()
	if len(extracted) == 0 {
		return model.Text(loanUsageMessage), nil
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"extracted": len(extracted),
	}).Info("Начало регистрации займа")

	if len(draft.MissingRequired()) == 0 {
		return r.openConfirmation(ctx, userID, draft, "")
	}

	state := model.LoanFillMissingState{
		Draft:   draft,
		Missing: draft.Missing(),
		Cursor:  0,
	}
	if err := r.save(ctx, userID, state); err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	b.WriteString("🏦 <b>Daftar Pinjaman Baru</b>\n\nYang sudah aku tangkap:\n")
	for _, f := range extracted {
		fmt.Fprintf(&b, "✅ %s: %s\n", loanFieldLabel(f), draftFieldValue(draft, f))
	}
	b.WriteString("\nMasih perlu diisi:\n")
	for i, f := range state.Missing {
		if f.Required() {
			fmt.Fprintf(&b, "%d. %s\n", i+1, loanFieldLabel(f))
		} else {
			fmt.Fprintf(&b, "%d. %s <i>(opsional)</i>\n", i+1, loanFieldLabel(f))
		}
	}
	b.WriteString("\n")

	return r.promptStep(state, b.String()), nil
}

// HandleText передает свободный текст текущему шагу мастера
func (r *LoanRegistration) HandleText(ctx context.Context, userID string, session *model.Session, text string) (model.Response, error) {
	return r.transition(ctx, userID, session, wizardInput{Text: strings.TrimSpace(text)})
}

// HandleLateFeeButton обрабатывает нажатие кнопки "loan_late_fee:<type>"
func (r *LoanRegistration) HandleLateFeeButton(ctx context.Context, userID string, session *model.Session, data string) (model.Response, error) {
	feeType := model.LateFeeType(strings.TrimPrefix(data, CallbackLateFeePref))
	if !feeType.Valid() {
		return model.Response{}, ErrSessionMismatch
	}

	resp, err := r.transition(ctx, userID, session, wizardInput{FeeType: feeType})
	if err != nil {
		return resp, err
	}
	resp.Notice = lateFeeTypeLabel(feeType)
	if resp.Edit == "" {
		resp.Edit = fmt.Sprintf("✅ Jenis denda: <b>%s</b>", lateFeeTypeLabel(feeType))
	}
	return resp, nil
}

// HandleConfirmation обрабатывает кнопки экрана подтверждения займа
func (r *LoanRegistration) HandleConfirmation(ctx context.Context, userID string, session *model.Session, data, messageText string) (model.Response, error) {
	in := wizardInput{MessageText: messageText}
	switch data {
	case CallbackLoanSave:
		in.Choice = choiceSave
	case CallbackLoanEdit:
		in.Choice = choiceEdit
	case CallbackLoanCancel:
		in.Choice = choiceCancel
	default:
		return model.Response{}, ErrSessionMismatch
	}
	return r.transition(ctx, userID, session, in)
}

func (r *LoanRegistration) transition(ctx context.Context, userID string, session *model.Session, in wizardInput) (model.Response, error) {
	if session == nil {
		return model.Response{}, ErrSessionMismatch
	}
	step, ok := r.steps[session.State.Action()]
	if !ok {
		return model.Response{}, ErrSessionMismatch
	}
	return step(ctx, userID, session.State, in)
}

func (r *LoanRegistration) fillMissingStep(ctx context.Context, userID string, state model.SessionState, in wizardInput) (model.Response, error) {
	s, ok := state.(model.LoanFillMissingState)
	if !ok || in.Choice != "" {
		return model.Response{}, ErrSessionMismatch
	}

	field := s.Current()
	if in.FeeType != "" && field != model.FieldLateFeeType {
		return model.Response{}, ErrSessionMismatch
	}

	draft, ok := applyField(s.Draft, field, in)
	if !ok {
		return r.reprompt(field, s.Draft), nil
	}

	s.Draft = draft
	s.Cursor++
	if field == model.FieldLateFeeType && *draft.LateFeeType == model.LateFeeNone {
		s.Missing = withoutField(s.Missing, s.Cursor, model.FieldLateFeeValue)
	}

	ack := fmt.Sprintf("✅ %s: %s", loanFieldLabel(field), draftFieldValue(draft, field))

	if s.Cursor >= len(s.Missing) {
		return r.openConfirmation(ctx, userID, s.Draft, ack)
	}

	if err := r.save(ctx, userID, s); err != nil {
		return model.Response{}, err
	}
	return r.promptStep(s, ack+"\n\n"), nil
}

func (r *LoanRegistration) editSelectStep(ctx context.Context, userID string, state model.SessionState, in wizardInput) (model.Response, error) {
	s, ok := state.(model.LoanEditSelectState)
	if !ok || in.Choice != "" || in.FeeType != "" {
		return model.Response{}, ErrSessionMismatch
	}

	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || n < 1 || n > len(model.EditableLoanFields) {
		return model.Text("❌ Pilih angka 1-" + strconv.Itoa(len(model.EditableLoanFields)) + ".\n\n" + editMenu(s.Draft)), nil
	}

	next := model.LoanEditFieldState{Draft: s.Draft, Field: model.EditableLoanFields[n-1]}
	if err := r.save(ctx, userID, next); err != nil {
		return model.Response{}, err
	}
	return fieldPrompt(next.Field, next.Draft, ""), nil
}

func (r *LoanRegistration) editFieldStep(ctx context.Context, userID string, state model.SessionState, in wizardInput) (model.Response, error) {
	s, ok := state.(model.LoanEditFieldState)
	if !ok || in.Choice != "" {
		return model.Response{}, ErrSessionMismatch
	}
	if in.FeeType != "" && s.Field != model.FieldLateFeeType {
		return model.Response{}, ErrSessionMismatch
	}

	previousType := s.Draft.LateFeeType
	draft, ok := applyField(s.Draft, s.Field, in)
	if !ok {
		return r.reprompt(s.Field, s.Draft), nil
	}

	// новый тип штрафа без значения или с другой единицей: сначала спросить значение
	if s.Field == model.FieldLateFeeType && *draft.LateFeeType != model.LateFeeNone && needsLateFeeValue(draft, previousType) {
		draft.LateFeeValue = nil
		next := model.LoanEditFieldState{Draft: draft, Field: model.FieldLateFeeValue}
		if err := r.save(ctx, userID, next); err != nil {
			return model.Response{}, err
		}
		return fieldPrompt(next.Field, next.Draft, ""), nil
	}

	ack := fmt.Sprintf("✅ %s: %s", loanFieldLabel(s.Field), draftFieldValue(draft, s.Field))
	return r.openConfirmation(ctx, userID, draft, ack)
}

func (r *LoanRegistration) confirmStep(ctx context.Context, userID string, state model.SessionState, in wizardInput) (model.Response, error) {
	s, ok := state.(model.ConfirmLoanState)
	if !ok || in.FeeType != "" {
		return model.Response{}, ErrSessionMismatch
	}

	switch in.Choice {
	case choiceSave:
		return r.persist(ctx, userID, s.Draft, in.MessageText)
	case choiceEdit:
		next := model.LoanEditSelectState{Draft: s.Draft}
		if err := r.save(ctx, userID, next); err != nil {
			return model.Response{}, err
		}
		return model.Response{
			Edit:     in.MessageText,
			Messages: []model.Reply{{Text: editMenu(s.Draft)}},
		}, nil
	case choiceCancel:
		if _, err := r.sessionRepo.Clear(ctx, userID); err != nil {
			return model.Response{}, err
		}
		return model.Response{Notice: cancelledNotice, Edit: "❌ Pendaftaran pinjaman dibatalkan."}, nil
	}

	return model.Text(useButtonsMessage), nil
}

// persist сохраняет займ с графиком и закрывает диалог
func (r *LoanRegistration) persist(ctx context.Context, userID string, draft model.LoanDraft, messageText string) (model.Response, error) {
	if missing := draft.MissingRequired(); len(missing) > 0 {
		r.logger.WithField("user_id", userID).Warnf("Неполный черновик займа на подтверждении: %v", missing)
		return model.Response{}, ErrSessionMismatch
	}

	now := r.clock.Now().UTC()
	loan := draft.ToLoan(userID, clock.Today(r.clock, r.location))
	loan.ID = uuid.New()
	loan.CreatedAt = now
	loan.UpdatedAt = now

	schedule := GenerateSchedule(loan.ID, loan.TotalInstallments, loan.MonthlyAmount, loan.DueDay, loan.StartDate)
	if err := r.loanRepo.CreateWithSchedule(ctx, loan, schedule); err != nil {
		return model.Response{}, fmt.Errorf("failed to save loan: %w", err)
	}
	if _, err := r.sessionRepo.Clear(ctx, userID); err != nil {
		r.logger.WithError(err).Warn("Не удалось закрыть диалог после сохранения займа")
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"loan_id":  loan.ID,
		"platform": loan.Platform,
	}).Info("Займ зарегистрирован")

	var b strings.Builder
	b.WriteString("✅ <b>Pinjaman Berhasil Didaftarkan!</b>\n\n")
	b.WriteString(loanDetails(loan))
	fmt.Fprintf(&b, "\n📆 Cicilan pertama: %s\n", formatDate(schedule[0].DueDate))
	b.WriteString("\n📊 Semua cicilan sudah otomatis terjadwal. Ketik \"lihat hutang\" untuk melihat detail.")

	return model.Response{
		Notice:   savedNotice,
		Edit:     messageText,
		Messages: []model.Reply{{Text: b.String()}},
	}, nil
}

// openConfirmation показывает полный черновик с кнопками Simpan/Edit/Batal
func (r *LoanRegistration) openConfirmation(ctx context.Context, userID string, draft model.LoanDraft, ack string) (model.Response, error) {
	if err := r.save(ctx, userID, model.ConfirmLoanState{Draft: draft}); err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	if ack != "" {
		b.WriteString(ack + "\n\n")
	}
	b.WriteString("📋 <b>Konfirmasi Pinjaman</b>\n\n")
	b.WriteString(loanDetails(draft.ToLoan("", time.Time{})))
	b.WriteString("\nSudah benar?")

	return model.WithButtons(b.String(), [][]model.Button{
		{{Text: "✅ Simpan", Data: CallbackLoanSave}, {Text: "✏️ Edit", Data: CallbackLoanEdit}},
		{{Text: "❌ Batal", Data: CallbackLoanCancel}},
	}), nil
}

func (r *LoanRegistration) save(ctx context.Context, userID string, state model.SessionState) error {
	return r.sessionRepo.Set(ctx, userID, state, r.clock.Now().Add(r.sessionTTL))
}

// promptStep вопрос о текущем поле очереди с номером шага
func (r *LoanRegistration) promptStep(s model.LoanFillMissingState, prefix string) model.Response {
	header := fmt.Sprintf("<b>Langkah %d/%d: %s</b>\n", s.Cursor+1, len(s.Missing), loanFieldLabel(s.Current()))
	return fieldPrompt(s.Current(), s.Draft, prefix+header)
}

// reprompt сообщение об ошибке ввода; курсор не двигается
func (r *LoanRegistration) reprompt(field model.LoanField, draft model.LoanDraft) model.Response {
	if field == model.FieldLateFeeType {
		return model.WithButtons("❌ Pilih jenis denda dengan tombol di bawah.", lateFeeKeyboard())
	}
	return model.Text(validationMessage(field, draft))
}

// applyField разбирает ответ для поля и возвращает обновленную копию черновика
func applyField(draft model.LoanDraft, field model.LoanField, in wizardInput) (model.LoanDraft, bool) {
	if field == model.FieldLateFeeType {
		feeType := in.FeeType
		if feeType == "" {
			var ok bool
			if feeType, ok = ParseLateFeeType(in.Text); !ok {
				return draft, false
			}
		}
		draft.LateFeeType = &feeType
		if feeType == model.LateFeeNone {
			zero := 0.0
			draft.LateFeeValue = &zero
		}
		return draft, true
	}
	if in.FeeType != "" {
		return draft, false
	}

	text := in.Text
	switch field {
	case model.FieldPlatform:
		if text == "" {
			return draft, false
		}
		draft.Platform = &text
	case model.FieldOriginalAmount, model.FieldMonthlyAmount:
		v, ok := ParsePositiveAmount(text)
		if !ok {
			return draft, false
		}
		if field == model.FieldOriginalAmount {
			draft.OriginalAmount = &v
		} else {
			draft.MonthlyAmount = &v
		}
	case model.FieldTotalWithInterest:
		v, ok := ParseTotalWithInterest(text)
		if !ok {
			return draft, false
		}
		draft.TotalWithInterest = &v
	case model.FieldTotalInstallments:
		n, ok := ParseInstallmentCount(text)
		if !ok {
			return draft, false
		}
		draft.TotalInstallments = &n
	case model.FieldDueDay:
		d, ok := ParseDueDay(text)
		if !ok {
			return draft, false
		}
		draft.DueDay = &d
	case model.FieldLateFeeValue:
		feeType := model.LateFeePercentMonthly
		if draft.LateFeeType != nil {
			feeType = *draft.LateFeeType
		}
		v, ok := ParseLateFeeValue(text, feeType)
		if !ok {
			return draft, false
		}
		draft.LateFeeValue = &v
	default:
		return draft, false
	}
	return draft, true
}

// needsLateFeeValue значение штрафа нужно спросить заново, если его нет
// или сменилась единица измерения (проценты и рупии)
func needsLateFeeValue(draft model.LoanDraft, previous *model.LateFeeType) bool {
	if draft.LateFeeValue == nil || *draft.LateFeeValue <= 0 {
		return true
	}
	if previous == nil || *previous == model.LateFeeNone {
		return true
	}
	return previous.IsPercent() != draft.LateFeeType.IsPercent()
}

func withoutField(fields []model.LoanField, from int, drop model.LoanField) []model.LoanField {
	out := append([]model.LoanField{}, fields[:from]...)
	for _, f := range fields[from:] {
		if f != drop {
			out = append(out, f)
		}
	}
	return out
}

// fieldPrompt вопрос для поля; тип штрафа выбирается кнопками
func fieldPrompt(field model.LoanField, draft model.LoanDraft, prefix string) model.Response {
	if field == model.FieldLateFeeType {
		return model.WithButtons(prefix+"Pilih jenis denda keterlambatan:", lateFeeKeyboard())
	}

	var prompt string
	switch field {
	case model.FieldPlatform:
		prompt = "Ketik nama platform pinjaman (contoh: Shopee Pinjam, Kredivo, SPayLater, SeaBank):"
	case model.FieldOriginalAmount:
		prompt = "Berapa jumlah uang yang kamu pinjam (pokok)? Contoh: 3500000 atau 3.5jt"
	case model.FieldTotalWithInterest:
		prompt = "Berapa total yang harus kamu bayar (termasuk bunga)? Contoh: 4904446\nKetik <i>skip</i> kalau tidak tahu."
	case model.FieldTotalInstallments:
		prompt = "Berapa kali cicilan? Contoh: 10"
	case model.FieldMonthlyAmount:
		prompt = "Berapa cicilan per bulan? Contoh: 435917"
	case model.FieldDueDay:
		prompt = "Tanggal berapa setiap bulan cicilan harus dibayar? (1-31)\nContoh: 13"
	case model.FieldLateFeeValue:
		prompt = lateFeeValuePrompt(draft)
	}
	return model.Text(prefix + prompt)
}

func lateFeeValuePrompt(draft model.LoanDraft) string {
	if draft.LateFeeType == nil {
		return "Berapa nilai dendanya? Contoh: 5"
	}
	switch *draft.LateFeeType {
	case model.LateFeePercentDaily:
		return "Berapa persen per hari? Contoh: 0.25"
	case model.LateFeeFixed:
		return "Berapa nominal denda tetap? Contoh: 50000"
	default:
		return "Berapa persen per bulan? Contoh: 5"
	}
}

func validationMessage(field model.LoanField, draft model.LoanDraft) string {
	switch field {
	case model.FieldPlatform:
		return "❌ Nama platform tidak boleh kosong. Contoh: Kredivo"
	case model.FieldOriginalAmount:
		return "❌ Jumlah tidak valid. Coba lagi dengan angka, contoh: 3500000"
	case model.FieldTotalWithInterest:
		return "❌ Jumlah tidak valid. Ketik angka (contoh: 4904446) atau <i>skip</i>."
	case model.FieldTotalInstallments:
		return "❌ Jumlah cicilan tidak valid. Coba lagi dengan angka, contoh: 10"
	case model.FieldMonthlyAmount:
		return "❌ Jumlah tidak valid. Coba lagi dengan angka, contoh: 435917"
	case model.FieldDueDay:
		return "❌ Tanggal tidak valid. Masukkan angka 1-31, contoh: 13"
	case model.FieldLateFeeValue:
		if draft.LateFeeType != nil && *draft.LateFeeType == model.LateFeeFixed {
			return "❌ Nilai tidak valid. Coba lagi dengan angka, contoh: 50000"
		}
		return "❌ Nilai tidak valid. Coba lagi dengan angka, contoh: 5 atau 0.25"
	}
	return "❌ Input tidak valid."
}

func lateFeeKeyboard() [][]model.Button {
	return [][]model.Button{
		{{Text: "📊 Persen per bulan (5%/bln)", Data: CallbackLateFeePref + string(model.LateFeePercentMonthly)}},
		{{Text: "📅 Persen per hari (0.25%/hari)", Data: CallbackLateFeePref + string(model.LateFeePercentDaily)}},
		{{Text: "💵 Nominal tetap", Data: CallbackLateFeePref + string(model.LateFeeFixed)}},
		{{Text: "✅ Tidak ada denda", Data: CallbackLateFeePref + string(model.LateFeeNone)}},
	}
}

// editMenu список из семи редактируемых полей с текущими значениями
func editMenu(draft model.LoanDraft) string {
	var b strings.Builder
	b.WriteString("✏️ <b>Edit Pinjaman</b>\n\nPilih data yang mau diubah:\n")
	for i, f := range model.EditableLoanFields {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, loanFieldLabel(f), draftFieldValue(draft, f))
	}
	fmt.Fprintf(&b, "\nKetik angka 1-%d.", len(model.EditableLoanFields))
	return b.String()
}

// loanDetails строки с условиями займа для подтверждения и итогового ответа
func loanDetails(loan *model.Loan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏦 Platform: <b>%s</b>\n", escape(loan.Platform))
	fmt.Fprintf(&b, "💰 Pinjaman: %s\n", formatRupiah(loan.OriginalAmount))
	if interest, pct, ok := InterestRate(loan.OriginalAmount, loan.TotalWithInterest); ok {
		fmt.Fprintf(&b, "💸 Total bayar: %s\n", formatRupiah(loan.TotalWithInterest))
		fmt.Fprintf(&b, "📈 Bunga: %s (%s%%)\n", formatRupiah(interest), formatNumber(pct))
	} else {
		b.WriteString("💸 Total bayar: tidak diketahui\n")
	}
	fmt.Fprintf(&b, "🔢 Cicilan: %dx × %s/bulan\n", loan.TotalInstallments, formatRupiah(loan.MonthlyAmount))
	fmt.Fprintf(&b, "📅 Jatuh tempo: Tanggal %d\n", loan.DueDay)
	fmt.Fprintf(&b, "⚠️ Denda: %s\n", formatLateFee(loan.LateFeeType, loan.LateFeeValue))
	return b.String()
}
