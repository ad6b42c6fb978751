package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
	"driver-finance/internal/repository"
)

const (
	CallbackPaymentYes = "payment_confirm_yes"
	CallbackPaymentNo  = "payment_confirm_no"
)

// Payments подтверждение оплаты очередного взноса по займу
type Payments struct {
	loanRepo    *repository.LoanRepository
	sessionRepo *repository.SessionRepository
	clock       clock.Clock
	location    *time.Location
	sessionTTL  time.Duration
	logger      *logrus.Logger
}

func NewPayments(
	loanRepo *repository.LoanRepository,
	sessionRepo *repository.SessionRepository,
	c clock.Clock,
	location *time.Location,
	sessionTTL time.Duration,
	logger *logrus.Logger,
) *Payments {
	return &Payments{
		loanRepo:    loanRepo,
		sessionRepo: sessionRepo,
		clock:       c,
		location:    location,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// Start ищет активный займ по фрагменту названия платформы и показывает
// ближайший неоплаченный взнос с кнопками подтверждения
func (p *Payments) Start(ctx context.Context, userID, platform string) (model.Response, error) {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return model.Text("🏦 <b>Bayar Cicilan</b>\n\n" +
			"Ketik nama platform pinjamannya, contoh:\n" +
			"• <i>\"bayar cicilan Kredivo\"</i>\n" +
			"• <i>\"sudah bayar Shopee\"</i>\n" +
			"• <i>\"lunas SeaBank bulan ini\"</i>"), nil
	}

	loans, err := p.loanRepo.ListByUser(ctx, userID, model.LoanStatusActive)
	if err != nil {
		return model.Response{}, err
	}

	matched := MatchLoans(loans, platform)
	switch len(matched) {
	case 0:
		return model.Text(fmt.Sprintf("❌ Tidak menemukan pinjaman aktif dengan nama <b>%s</b>.\n\n", escape(platform)) +
			"Ketik \"lihat hutang\" untuk melihat semua pinjaman, atau ketik nama platform yang tepat."), nil
	case 1:
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "🔍 Ditemukan %d pinjaman yang cocok:\n\n", len(matched))
		for i, loan := range matched {
			fmt.Fprintf(&b, "%d. <b>%s</b> (%d/%d dibayar)\n", i+1, escape(loan.Platform), loan.PaidInstallments, loan.TotalInstallments)
		}
		b.WriteString("\nKetik nama platform yang lebih spesifik.")
		return model.Text(b.String()), nil
	}

	loan := matched[0]
	next, err := p.loanRepo.NextOutstanding(ctx, loan.ID)
	if err != nil {
		return model.Response{}, err
	}
	if next == nil {
		return model.Text(fmt.Sprintf("✅ <b>%s</b>\n\nSemua cicilan sudah lunas! 🎉\n\nTotal: %d/%d cicilan dibayar.",
			escape(loan.Platform), loan.PaidInstallments, loan.TotalInstallments)), nil
	}

	today := clock.Today(p.clock, p.location)
	daysLate, lateFee := InstallmentLateFee(model.DueInstallment{
		Installment:  *next,
		Platform:     loan.Platform,
		LateFeeType:  loan.LateFeeType,
		LateFeeValue: loan.LateFeeValue,
	}, today)

	state := model.ConfirmPaymentState{
		LoanID:        loan.ID,
		InstallmentID: next.ID,
		InstallmentNo: next.InstallmentNo,
		Amount:        next.Amount,
		LateFee:       lateFee,
		Total:         next.Amount + lateFee,
		Platform:      loan.Platform,
	}
	if err := p.sessionRepo.Set(ctx, userID, state, p.clock.Now().Add(p.sessionTTL)); err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	b.WriteString("💳 <b>Konfirmasi Pembayaran Cicilan</b>\n\n")
	fmt.Fprintf(&b, "🏦 Platform: <b>%s</b>\n", escape(loan.Platform))
	fmt.Fprintf(&b, "🔢 Cicilan ke-%d dari %d\n", next.InstallmentNo, loan.TotalInstallments)
	fmt.Fprintf(&b, "💰 Jumlah: <b>%s</b>\n", formatRupiah(next.Amount))
	fmt.Fprintf(&b, "📅 Jatuh tempo: <b>%s</b>", formatDate(next.DueDate))

	switch {
	case daysLate > 0:
		fmt.Fprintf(&b, " <b>(TELAT %d hari!)</b>", daysLate)
		if lateFee > 0 {
			fmt.Fprintf(&b, "\n⚠️ Denda: <b>%s</b>", formatRupiah(lateFee))
			fmt.Fprintf(&b, "\n💸 <b>Total bayar: %s</b>", formatRupiah(state.Total))
		}
	case daysLate == 0:
		b.WriteString(" <b>(HARI INI)</b>")
	default:
		fmt.Fprintf(&b, " (%d hari lagi)", -daysLate)
	}
	b.WriteString("\n\nSudah dibayar?")

	return model.WithButtons(b.String(), [][]model.Button{{
		{Text: "✅ Sudah Bayar", Data: CallbackPaymentYes},
		{Text: "❌ Belum", Data: CallbackPaymentNo},
	}}), nil
}

// Confirm отмечает взнос из открытого диалога оплаченным
func (p *Payments) Confirm(ctx context.Context, userID string, session *model.Session, messageText string) (model.Response, error) {
	if session == nil {
		return model.Response{}, ErrSessionMismatch
	}
	state, ok := session.State.(model.ConfirmPaymentState)
	if !ok {
		return model.Response{}, ErrSessionMismatch
	}

	// займ могли закрыть, пока висело подтверждение
	current, err := p.loanRepo.GetByID(ctx, userID, state.LoanID)
	if err != nil {
		return model.Response{}, err
	}
	if current == nil || current.Status != model.LoanStatusActive {
		p.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"loan_id": state.LoanID,
		}).Info("Подтверждение оплаты для неактивного займа")
		if _, clearErr := p.sessionRepo.Clear(ctx, userID); clearErr != nil {
			p.logger.WithError(clearErr).Warn("Не удалось закрыть диалог оплаты")
		}
		return model.Response{}, ErrSessionMismatch
	}

	loan, err := p.loanRepo.MarkInstallmentPaid(
		ctx,
		userID,
		state.InstallmentID,
		state.Total,
		state.LateFee,
		clock.Today(p.clock, p.location),
		p.clock.Now(),
	)
	if err != nil {
		if errors.Is(err, repository.ErrInstallmentNotFound) || errors.Is(err, repository.ErrInstallmentSettled) {
			if _, clearErr := p.sessionRepo.Clear(ctx, userID); clearErr != nil {
				p.logger.WithError(clearErr).Warn("Не удалось закрыть диалог оплаты")
			}
			return model.Response{}, ErrSessionMismatch
		}
		return model.Response{}, err
	}
	if _, err := p.sessionRepo.Clear(ctx, userID); err != nil {
		p.logger.WithError(err).Warn("Не удалось закрыть диалог оплаты")
	}

	var b strings.Builder
	b.WriteString("✅ <b>Pembayaran Berhasil Dicatat!</b>\n\n")
	fmt.Fprintf(&b, "🏦 %s\n", escape(state.Platform))
	fmt.Fprintf(&b, "🔢 Cicilan ke-%d\n", state.InstallmentNo)
	fmt.Fprintf(&b, "💰 Dibayar: %s", formatRupiah(state.Amount))
	if state.LateFee > 0 {
		fmt.Fprintf(&b, "\n⚠️ Denda: %s", formatRupiah(state.LateFee))
		fmt.Fprintf(&b, "\n💸 Total: %s", formatRupiah(state.Total))
	}
	fmt.Fprintf(&b, "\n\n📊 <b>Progress:</b> %d/%d cicilan lunas", loan.PaidInstallments, loan.TotalInstallments)
	fmt.Fprintf(&b, "\n%s", progressBar(percentOf(loan.PaidInstallments, loan.TotalInstallments), 20))

	if remaining := loan.RemainingInstallments(); remaining == 0 {
		b.WriteString("\n\n🎉 <b>LUNAS!</b> Semua cicilan sudah dibayar!")
	} else {
		fmt.Fprintf(&b, "\n💳 Sisa: %dx × %s = %s", remaining, formatRupiah(loan.MonthlyAmount),
			formatRupiah(float64(remaining)*loan.MonthlyAmount))
	}

	return model.Response{
		Notice:   savedNotice,
		Edit:     messageText,
		Messages: []model.Reply{{Text: b.String()}},
	}, nil
}

// Decline закрывает диалог оплаты без изменений
func (p *Payments) Decline(ctx context.Context, userID string) (model.Response, error) {
	if _, err := p.sessionRepo.Clear(ctx, userID); err != nil {
		return model.Response{}, err
	}
	return model.Response{Notice: cancelledNotice, Edit: "❌ Pembayaran tidak dicatat."}, nil
}

// MatchLoans займы, в названии платформы которых есть фрагмент (без учета регистра).
// Точное совпадение названия выигрывает у частичных.
func MatchLoans(loans []model.Loan, fragment string) []model.Loan {
	needle := strings.ToLower(strings.TrimSpace(fragment))
	var matched []model.Loan
	for _, loan := range loans {
		name := strings.ToLower(loan.Platform)
		if name == needle {
			return []model.Loan{loan}
		}
		if strings.Contains(name, needle) {
			matched = append(matched, loan)
		}
	}
	return matched
}

func percentOf(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
