package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"driver-finance/internal/clock"
	"driver-finance/internal/model"
	"driver-finance/internal/repository"
)

const separator = "────────────────────────"

// Reports отчеты по займам, штрафам и доходам; только чтение
type Reports struct {
	loanRepo   *repository.LoanRepository
	recordRepo *repository.RecordRepository
	clock      clock.Clock
	location   *time.Location
	logger     *logrus.Logger
}

func NewReports(
	loanRepo *repository.LoanRepository,
	recordRepo *repository.RecordRepository,
	c clock.Clock,
	location *time.Location,
	logger *logrus.Logger,
) *Reports {
	return &Reports{
		loanRepo:   loanRepo,
		recordRepo: recordRepo,
		clock:      c,
		location:   location,
		logger:     logger,
	}
}

// Dashboard активные займы по ближайшему сроку и список погашенных
func (s *Reports) Dashboard(ctx context.Context, userID string) (model.Response, error) {
	portfolio, err := s.portfolio(ctx, userID)
	if err != nil {
		return model.Response{}, err
	}
	today := clock.Today(s.clock, s.location)

	if portfolio.ActiveCount == 0 && portfolio.PaidOffCount == 0 {
		return model.Text("🏦 <b>Dashboard Pinjaman</b>\n\n" +
			"Belum ada pinjaman tercatat.\n\n" +
			"Daftarkan dengan pesan seperti <i>\"Kredivo 5jt 12 bulan 500rb/bln tgl 13\"</i>"), nil
	}

	var b strings.Builder
	b.WriteString("🏦 <b>Dashboard Pinjaman</b>\n")
	fmt.Fprintf(&b, "📅 %s\n%s\n", formatDate(today), separator)

	var paidOff []string
	for _, lp := range portfolio.Loans {
		if lp.Status == model.LoanStatusPaidOff {
			paidOff = append(paidOff, escape(lp.Platform))
			continue
		}

		fmt.Fprintf(&b, "\n🏦 <b>%s</b>\n", escape(lp.Platform))
		fmt.Fprintf(&b, "  %s %d%% (%d/%d)\n", progressBar(lp.PercentComplete, 10), int(lp.PercentComplete), lp.PaidCount, lp.TotalCount)
		fmt.Fprintf(&b, "  💳 Cicilan: %s/bulan\n", formatRupiah(lp.MonthlyAmount))
		fmt.Fprintf(&b, "  📉 Sisa: %s\n", formatRupiah(lp.RemainingAmount))
		if lp.NextDueDate != nil {
			fmt.Fprintf(&b, "  📅 Berikutnya: %s %s\n", formatDate(*lp.NextDueDate), dueHint(today, *lp.NextDueDate))
		}
	}

	fmt.Fprintf(&b, "\n%s\n", separator)
	fmt.Fprintf(&b, "📊 Pinjaman aktif: %d\n", portfolio.ActiveCount)
	fmt.Fprintf(&b, "💳 Cicilan per bulan: <b>%s</b>\n", formatRupiah(portfolio.MonthlyObligation))
	fmt.Fprintf(&b, "📉 Total sisa: <b>%s</b>", formatRupiah(portfolio.TotalRemaining))
	if len(paidOff) > 0 {
		fmt.Fprintf(&b, "\n\n✅ <b>Lunas:</b> %s", strings.Join(paidOff, ", "))
	}

	return model.Text(b.String()), nil
}

// Penalty штрафы по просроченным взносам на сегодня, опционально по одной платформе
func (s *Reports) Penalty(ctx context.Context, userID, platform string) (model.Response, error) {
	today := clock.Today(s.clock, s.location)
	due, err := s.loanRepo.ListOutstanding(ctx, userID, today)
	if err != nil {
		return model.Response{}, err
	}

	lines := ComputePenalties(due, today, platform)
	if len(lines) == 0 {
		if platform != "" {
			return model.Text(fmt.Sprintf("✅ Tidak ada cicilan telat untuk <b>%s</b>. Mantap!", escape(platform))), nil
		}
		return model.Text("✅ <b>Tidak ada cicilan telat.</b>\n\nSemua cicilan masih aman, pertahankan!"), nil
	}

	var b strings.Builder
	b.WriteString("🧮 <b>Kalkulator Denda</b>\n")
	fmt.Fprintf(&b, "📅 Per tanggal: %s\n%s\n", formatDate(today), separator)

	feeTotal, owedTotal := decimal.Zero, decimal.Zero
	current := ""
	for _, line := range lines {
		if line.Platform != current {
			current = line.Platform
			fmt.Fprintf(&b, "\n🏦 <b>%s</b>\n", escape(line.Platform))
		}
		fmt.Fprintf(&b, "  Cicilan ke-%d: telat <b>%d hari</b>\n", line.InstallmentNo, line.DaysLate)
		fmt.Fprintf(&b, "  💰 Pokok: %s\n", formatRupiah(line.Amount))
		if line.LateFee > 0 {
			fmt.Fprintf(&b, "  ⚠️ Denda: <b>%s</b>\n", formatRupiah(line.LateFee))
		} else {
			b.WriteString("  ✅ Denda: Rp 0 (tidak ada denda)\n")
		}
		feeTotal = feeTotal.Add(decimal.NewFromFloat(line.LateFee))
		owedTotal = owedTotal.Add(decimal.NewFromFloat(line.Amount + line.LateFee))
	}

	fmt.Fprintf(&b, "\n%s\n", separator)
	fmt.Fprintf(&b, "⚠️ Total denda: <b>%s</b>\n", formatRupiah(feeTotal.InexactFloat64()))
	fmt.Fprintf(&b, "💸 Total harus bayar: <b>%s</b>\n\n", formatRupiah(owedTotal.InexactFloat64()))
	b.WriteString("💡 Ketik <i>\"bayar cicilan [nama]\"</i> untuk bayar")

	return model.Text(b.String()), nil
}

// MonthlySummary сводка за месяц: "" текущий, "3" март, "2026-03"
func (s *Reports) MonthlySummary(ctx context.Context, userID, arg string) (model.Response, error) {
	today := clock.Today(s.clock, s.location)
	year, month := today.Year(), today.Month()
	if strings.TrimSpace(arg) != "" {
		var ok bool
		if year, month, ok = ParseMonthArg(arg, today.Year()); !ok {
			return model.Text("❌ Format bulan tidak valid.\n\n" +
				"Contoh:\n" +
				"• /ringkasan: bulan ini\n" +
				"• /ringkasan 3: Maret\n" +
				"• /ringkasan 2026-03: Maret 2026"), nil
		}
	}

	due, err := s.loanRepo.ListDueInMonth(ctx, userID, year, month)
	if err != nil {
		return model.Response{}, err
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	totals, err := s.recordRepo.GetTotals(ctx, userID, first, first.AddDate(0, 1, -1))
	if err != nil {
		return model.Response{}, err
	}

	summary := ComputeMonthlySummary(due, *totals, year, month)
	title := fmt.Sprintf("📋 <b>Ringkasan %s</b>\n", formatMonth(year, month))
	if len(summary.Due) == 0 && totals.IncomeCount == 0 && totals.ExpenseCount == 0 {
		return model.Text(title + "\nTidak ada data untuk bulan ini.\n\n" +
			"Daftar pinjaman dulu atau catat pendapatan/pengeluaran."), nil
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString(separator + "\n")

	if totals.IncomeCount > 0 || totals.ExpenseCount > 0 {
		b.WriteString("\n💰 <b>Pendapatan & Pengeluaran</b>\n")
		fmt.Fprintf(&b, "  📈 Pendapatan: %s\n", formatRupiah(totals.TotalIncome))
		fmt.Fprintf(&b, "  📉 Pengeluaran: %s\n", formatRupiah(totals.TotalExpenses))
		if net := totals.Net(); net >= 0 {
			fmt.Fprintf(&b, "  💵 Sisa: %s\n", formatRupiah(net))
		} else {
			fmt.Fprintf(&b, "  ⚠️ Defisit: %s\n", formatRupiah(-net))
		}
	}

	if len(summary.Due) == 0 {
		b.WriteString("\n✅ Tidak ada cicilan jatuh tempo bulan ini.\n")
		return model.Text(b.String()), nil
	}

	paidCount := 0
	for _, d := range summary.Due {
		if d.Status == model.InstallmentPaid {
			paidCount++
		}
	}
	b.WriteString("\n📊 <b>Kewajiban Cicilan</b>\n")
	fmt.Fprintf(&b, "  Total cicilan: %dx = %s\n", len(summary.Due), formatRupiah(summary.DueTotal))
	fmt.Fprintf(&b, "  ✅ Terbayar: %dx = %s\n", paidCount, formatRupiah(summary.PaidTotal))
	fmt.Fprintf(&b, "  🟡 Belum bayar: %dx = %s\n", len(summary.Due)-paidCount, formatRupiah(summary.UnpaidTotal))
	pct := percentOf(paidCount, len(summary.Due))
	fmt.Fprintf(&b, "  %s %d%%\n", progressBar(pct, 20), int(math.Round(pct)))

	if summary.DebtToIncome > 0 {
		ratio := math.Round(summary.DebtToIncome * 100)
		b.WriteString("\n💡 <b>Rasio Hutang</b>\n")
		fmt.Fprintf(&b, "  Cicilan = %d%% dari pendapatan\n", int(ratio))
		switch {
		case ratio > 50:
			b.WriteString("  ⚠️ Cicilan lebih dari 50% pendapatan, hati-hati!\n")
		case ratio >= 30:
			b.WriteString("  🟡 Cicilan 30-50% pendapatan, masih bisa diatur\n")
		default:
			b.WriteString("  ✅ Rasio cicilan sehat (di bawah 30%)\n")
		}
	}

	b.WriteString("\n📝 <b>Detail Per Pinjaman</b>\n")
	current := ""
	for _, d := range summary.Due {
		if d.Platform != current {
			current = d.Platform
			fmt.Fprintf(&b, "\n🏦 <b>%s</b>\n", escape(d.Platform))
		}
		icon, status := "🟡", "belum bayar"
		switch {
		case d.Status == model.InstallmentPaid:
			icon, status = "✅", "lunas"
		case DaysLate(today, d.DueDate) > 0:
			icon, status = "🔴", "telat"
		}
		fmt.Fprintf(&b, "  %s tgl %d: ke-%d/%d %s (%s)\n", icon, d.DueDate.Day(), d.InstallmentNo, d.TotalInstallments, formatRupiah(d.Amount), status)
	}

	return model.Text(b.String()), nil
}

// Progress прогресс погашения с прогнозом даты полного погашения
func (s *Reports) Progress(ctx context.Context, userID string) (model.Response, error) {
	portfolio, err := s.portfolio(ctx, userID)
	if err != nil {
		return model.Response{}, err
	}
	if len(portfolio.Loans) == 0 {
		return model.Text("📊 <b>Progres Pelunasan Hutang</b>\n\nBelum ada pinjaman tercatat."), nil
	}

	var b strings.Builder
	b.WriteString("📊 <b>Progres Pelunasan Hutang</b>\n")
	fmt.Fprintf(&b, "\n%s <b>%d%%</b>\n\n", progressBar(portfolio.PercentComplete, 20), int(portfolio.PercentComplete))
	fmt.Fprintf(&b, "✅ Sudah bayar: %s", formatRupiah(portfolio.TotalPaid))
	if portfolio.TotalLateFees > 0 {
		fmt.Fprintf(&b, " (termasuk denda %s)", formatRupiah(portfolio.TotalLateFees))
	}
	fmt.Fprintf(&b, "\n📉 Sisa hutang: <b>%s</b>\n", formatRupiah(portfolio.TotalRemaining))
	fmt.Fprintf(&b, "🏦 Pinjaman: %d lunas, %d aktif\n", portfolio.PaidOffCount, portfolio.ActiveCount)
	if portfolio.ProjectedPayoff != nil {
		fmt.Fprintf(&b, "\n📅 <b>Perkiraan lunas:</b> %s (~%d bulan lagi)\n",
			formatMonth(portfolio.ProjectedPayoff.Year(), portfolio.ProjectedPayoff.Month()), portfolio.MonthsToPayoff)
	}

	for _, lp := range portfolio.Loans {
		if lp.Status != model.LoanStatusActive {
			continue
		}
		fmt.Fprintf(&b, "\n<b>%s</b>\n", escape(lp.Platform))
		fmt.Fprintf(&b, "  %s %d%% (%d/%d)\n", progressBar(lp.PercentComplete, 10), int(lp.PercentComplete), lp.PaidCount, lp.TotalCount)
		fmt.Fprintf(&b, "  ✅ Dibayar: %s\n", formatRupiah(lp.PaidAmount))
		fmt.Fprintf(&b, "  📉 Sisa: %s\n", formatRupiah(lp.RemainingAmount))
		if lp.OverdueCount > 0 {
			fmt.Fprintf(&b, "  🔴 %d cicilan telat\n", lp.OverdueCount)
		}
	}

	switch pct := portfolio.PercentComplete; {
	case portfolio.ActiveCount == 0:
		b.WriteString("\n🎊 <b>SELAMAT! Semua hutang lunas!</b> 🎊")
	case pct >= 75:
		b.WriteString("\n💪 <b>Hampir lunas!</b> Tinggal sedikit lagi, semangat!")
	case pct >= 50:
		b.WriteString("\n👍 <b>Sudah lewat setengah jalan!</b> Terus konsisten bayar.")
	case pct > 0:
		b.WriteString("\n🌱 <b>Awal yang bagus!</b> Setiap cicilan mendekatkanmu ke bebas hutang.")
	default:
		b.WriteString("\n⏳ Belum ada pembayaran. Ketik <i>\"bayar cicilan [nama]\"</i> untuk mulai.")
	}

	return model.Text(b.String()), nil
}

// FinancialReport доходы и расходы за сегодня, неделю (с понедельника) или месяц
func (s *Reports) FinancialReport(ctx context.Context, userID string, period model.ReportPeriod) (model.Response, error) {
	today := clock.Today(s.clock, s.location)
	from, title := ReportRange(today, period)

	totals, err := s.recordRepo.GetTotals(ctx, userID, from, today)
	if err != nil {
		return model.Response{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Laporan %s</b>\n", title)
	fmt.Fprintf(&b, "📅 %s - %s\n%s\n", formatDate(from), formatDate(today), separator)
	if totals.IncomeCount == 0 && totals.ExpenseCount == 0 {
		b.WriteString("\nBelum ada catatan di periode ini.")
		return model.Text(b.String()), nil
	}

	b.WriteString("\n📈 <b>Pendapatan</b>\n")
	fmt.Fprintf(&b, "🍔 Food: %s\n", formatRupiah(totals.IncomeByType[model.IncomeFood]))
	fmt.Fprintf(&b, "📦 SPX: %s\n", formatRupiah(totals.IncomeByType[model.IncomeSPX]))
	fmt.Fprintf(&b, "💰 Total: <b>%s</b> (%d transaksi)\n", formatRupiah(totals.TotalIncome), totals.IncomeCount)

	b.WriteString("\n📉 <b>Pengeluaran</b>\n")
	b.WriteString(categoryBreakdown(totals))
	fmt.Fprintf(&b, "💸 Total: <b>%s</b> (%d transaksi)\n", formatRupiah(totals.TotalExpenses), totals.ExpenseCount)

	if net := totals.Net(); net >= 0 {
		fmt.Fprintf(&b, "\n💵 Bersih: <b>%s</b>", formatRupiah(net))
	} else {
		fmt.Fprintf(&b, "\n⚠️ Defisit: <b>%s</b>", formatRupiah(-net))
	}
	return model.Text(b.String()), nil
}

func (s *Reports) portfolio(ctx context.Context, userID string) (model.PortfolioProgress, error) {
	loans, err := s.loanRepo.ListByUser(ctx, userID, "")
	if err != nil {
		return model.PortfolioProgress{}, err
	}

	schedules := make(map[uuid.UUID][]model.Installment, len(loans))
	for _, loan := range loans {
		if loan.Status == model.LoanStatusCancelled {
			continue
		}
		schedule, err := s.loanRepo.GetSchedule(ctx, loan.ID)
		if err != nil {
			return model.PortfolioProgress{}, err
		}
		schedules[loan.ID] = schedule
	}

	return ComputeProgress(loans, schedules, clock.Today(s.clock, s.location)), nil
}

// ComputePenalties штрафы по просроченным взносам, сгруппированные по платформе
func ComputePenalties(due []model.DueInstallment, today time.Time, platform string) []model.PenaltyLine {
	needle := strings.ToLower(strings.TrimSpace(platform))

	var lines []model.PenaltyLine
	for _, d := range due {
		if !d.Status.Outstanding() {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(d.Platform), needle) {
			continue
		}
		days, fee := InstallmentLateFee(d, today)
		if days <= 0 {
			continue
		}
		lines = append(lines, model.PenaltyLine{
			Platform:      d.Platform,
			InstallmentNo: d.InstallmentNo,
			Amount:        d.Amount,
			DueDate:       d.DueDate,
			DaysLate:      days,
			LateFee:       fee,
		})
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Platform != lines[j].Platform {
			return lines[i].Platform < lines[j].Platform
		}
		return lines[i].InstallmentNo < lines[j].InstallmentNo
	})
	return lines
}

// ComputeMonthlySummary итоги месяца по взносам и доходам
func ComputeMonthlySummary(due []model.DueInstallment, totals model.RecordTotals, year int, month time.Month) model.MonthlySummary {
	summary := model.MonthlySummary{Year: year, Month: month, Records: totals}

	dueTotal, paidTotal, unpaidTotal := decimal.Zero, decimal.Zero, decimal.Zero
	for _, d := range due {
		amount := decimal.NewFromFloat(d.Amount)
		dueTotal = dueTotal.Add(amount)
		if d.Status == model.InstallmentPaid {
			paidTotal = paidTotal.Add(amount)
		} else {
			unpaidTotal = unpaidTotal.Add(amount)
		}
	}

	sorted := append([]model.DueInstallment(nil), due...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Platform != sorted[j].Platform {
			return sorted[i].Platform < sorted[j].Platform
		}
		return sorted[i].InstallmentNo < sorted[j].InstallmentNo
	})

	summary.Due = sorted
	summary.DueTotal = dueTotal.InexactFloat64()
	summary.PaidTotal = paidTotal.InexactFloat64()
	summary.UnpaidTotal = unpaidTotal.InexactFloat64()
	if totals.TotalIncome > 0 {
		summary.DebtToIncome = dueTotal.Div(decimal.NewFromFloat(totals.TotalIncome)).InexactFloat64()
	}
	return summary
}

// ParseMonthArg разбирает "3", "03" (месяц текущего года) или "2026-03"
func ParseMonthArg(arg string, defaultYear int) (int, time.Month, bool) {
	arg = strings.TrimSpace(arg)
	year := defaultYear
	if y, m, found := strings.Cut(arg, "-"); found {
		var err error
		if year, err = strconv.Atoi(y); err != nil || year < 2000 || year > 2100 {
			return 0, 0, false
		}
		arg = m
	}

	m, err := strconv.Atoi(arg)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	return year, time.Month(m), true
}

// ReportRange начало периода отчета и его название
func ReportRange(today time.Time, period model.ReportPeriod) (time.Time, string) {
	switch period {
	case model.PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -offset), "Minggu Ini"
	case model.PeriodMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), "Bulan Ini"
	default:
		return today, "Hari Ini"
	}
}

// dueHint "(TELAT 3 hari)", "(HARI INI)", "(5 hari lagi)"
func dueHint(today, due time.Time) string {
	switch days := DaysLate(today, due); {
	case days > 0:
		return fmt.Sprintf("🔴 (TELAT %d hari)", days)
	case days == 0:
		return "⚠️ (HARI INI)"
	default:
		return fmt.Sprintf("(%d hari lagi)", -days)
	}
}
