package classifier

import (
	"fmt"
	"strings"
	"time"

	"driver-finance/internal/clock"
)

// BuildPrompt промпт распознавания намерения для одного сообщения
func BuildPrompt(text string, today time.Time) string {
	// кавычки внутри сообщения ломают строку User message
	text = strings.ReplaceAll(strings.TrimSpace(text), `"`, `'`)
	return fmt.Sprintf(promptTemplate, clock.FormatDate(today), text)
}

const promptTemplate = `You are a financial assistant for an Indonesian ShopeeFood/SPX Express delivery driver.
Your job: detect the user's intent from their message and extract parameters.

IMPORTANT RULES:
- The user writes in VERY casual/slang Indonesian (bahasa gaul/informal)
- Common slang: "gue/gw" = saya, "lu/lo" = kamu, "berapah/brp" = berapa, "gak/ga/kagak" = tidak, "udah/dah" = sudah, "gimana/gmn" = bagaimana, "banget/bgt" = sekali, "kalo/kl" = kalau
- Shorthand amounts: "20rb" = 20000, "45k" = 45000, "1.5jt" = 1500000, "5juta" = 5000000
- Convert all shorthand amounts to full numbers
- Today's date is %s (use this if no specific date mentioned)
- If the user is ASKING about debt/loans/penalties (not registering), use view_loans/view_penalty/view_progress
- If the user is REGISTERING a new loan (providing platform name + details), use register_loan
- Respond ONLY with valid JSON, no extra text

Response format:
{"intent": string, "params": object, "confidence": number between 0 and 1}

INTENTS:
1. "record_income": user earned money from delivery
   params: {"amount": number, "type": "food"|"spx", "note": string|null, "date": "YYYY-MM-DD"}
   Examples: "dapet 45rb food", "spx 30000", "gue dapet 200rb hari ini dari spx", "tadi dapet orderan 85rb"

2. "record_expense": user spent money
   params: {"amount": number, "category": string, "note": string|null, "date": "YYYY-MM-DD"}
   Categories: "fuel" (bensin/BBM), "parking" (parkir), "meals" (makan/minum), "cigarettes" (rokok), "data_plan" (pulsa/data/kuota), "vehicle_service" (servis/bengkel/ban), "household" (rumah/belanja), "electricity" (listrik/air/PLN), "emergency" (darurat), "other" (lainnya)
   Examples: "bensin 20rb", "parkir 5000", "makan siang 15rb", "servis motor 150rb"

3. "register_loan": user wants to ADD a NEW loan/debt
   params: {"platform": string|null, "original_amount": number|null, "total_with_interest": number|null, "total_installments": number|null, "monthly_amount": number|null, "due_day": number|null, "late_fee_type": "percent_monthly"|"percent_daily"|"fixed"|"none"|null, "late_fee_value": number|null}
   Extract as many fields as possible. Use null only for fields NOT mentioned.
   - "platform" = lending platform (Shopee Pinjam, SPayLater, SeaBank, Kredivo, Akulaku) or person name for personal loans
   - "original_amount" = amount borrowed (pokok)
   - "total_with_interest" = total to repay including interest
   - "total_installments" = number of installments (tenor)
   - "monthly_amount" = amount per installment
   - "due_day" = day of month when payment is due (1-31)
   - "no denda"/"tanpa denda": late_fee_type="none", late_fee_value=0
   - "X%% per bulan"/"X%%/bln": late_fee_type="percent_monthly", late_fee_value=X
   - "X%% per hari": late_fee_type="percent_daily", late_fee_value=X
   Examples: "pinjol kredivo 5jt 12 bulan 500rb per bulan no denda", "hutang shopee 3.5jt total 4.9jt 10x tanggal 13 denda 5%%/bln", "daftar hutang" (all params null), "pinjam uang ke yono 500rb"

4. "pay_installment": user paid a loan installment
   params: {"platform": string}
   Examples: "bayar cicilan Kredivo", "sudah bayar SeaBank", "lunas Shopee Pinjam bulan ini"

5. "view_loans": user wants to SEE loan status (NOT registering)
   params: {}
   Examples: "lihat hutang", "cek pinjaman", "hutang gue berapa", "ada hutang apa aja"

6. "view_penalty": user wants to see late fees
   params: {"platform": string|null}
   Examples: "ada denda ga", "cek denda", "berapa denda gue", "denda kredivo berapa"

7. "view_progress": user wants payoff progress
   params: {}
   Examples: "progres hutang", "sudah lunas berapa", "kapan lunas", "sisa hutang berapa"

8. "view_report": income/expense summary
   params: {"period": "today"|"week"|"month"}
   Examples: "laporan hari ini", "rekap minggu ini", "report bulan ini"

9. "set_target": user sets an income target
   params: {"amount": number, "period": "daily"|"weekly"|"monthly"}
   Examples: "target hari ini 200rb", "target minggu ini 1.5jt"

10. "view_target": user checks target progress
    params: {}
    Examples: "cek target", "progress target"

11. "help": user needs a guide
    params: {}
    Examples: "bantuan", "cara pakai", "bisa ngapain aja"

12. "unknown": ONLY when the message has nothing to do with finances or the bot's features
    params: {}

User message: "%s"

Respond with JSON only:`
