package service

// Тексты ответов бота. Все ответы на индонезийском, parse_mode=HTML.
const (
	welcomeMessage = "🏍️💰 <b>Selamat datang di SF Driver Finance!</b>\n\n" +
		"Bot ini membantu kamu mencatat keuangan sebagai driver ojol.\n\n" +
		"💬 <b>Cara Pakai:</b>\n" +
		"Cukup kirim pesan biasa, bot mengerti bahasa sehari-hari:\n" +
		"• <i>\"Dapet 150rb food\"</i>: catat pendapatan\n" +
		"• <i>\"Bensin 20rb\"</i>: catat pengeluaran\n" +
		"• <i>\"Kredivo 5jt 12 bulan 500rb/bln\"</i>: daftar pinjaman\n" +
		"• <i>\"Bayar cicilan Kredivo\"</i>: catat pembayaran\n" +
		"• <i>\"Hutang gue berapa\"</i>: cek pinjaman\n" +
		"• <i>\"Ada denda ga\"</i>: hitung denda\n" +
		"• <i>\"Ringkasan bulan ini\"</i>: ringkasan keuangan\n" +
		"• <i>\"Progres hutang\"</i>: progres pelunasan\n\n" +
		"Ketik /help untuk panduan lengkap."

	helpMessage = "📖 <b>Panduan SF Driver Finance</b>\n\n" +
		"Kirim pesan biasa, bot mengerti bahasa sehari-hari kamu.\n\n" +
		"<b>📝 Catat Pendapatan:</b>\n" +
		"• <i>\"Dapet 150rb food\"</i>\n" +
		"• <i>\"SPX hari ini 80rb\"</i>\n" +
		"• <i>\"Gue dapet 200rb dari makanan\"</i>\n\n" +
		"<b>💸 Catat Pengeluaran:</b>\n" +
		"• <i>\"Bensin 20rb\"</i>\n" +
		"• <i>\"Parkir 5000\"</i>\n" +
		"• <i>\"Makan siang 15rb\"</i>\n" +
		"• <i>\"Servis motor 150rb\"</i>\n\n" +
		"<b>🏦 Pinjaman / Hutang:</b>\n" +
		"• <i>\"Kredivo 5jt 12 bulan 500rb/bln\"</i>: daftar baru\n" +
		"• <i>\"Bayar cicilan Kredivo\"</i>: catat pembayaran\n" +
		"• <i>\"Hutang gue berapa\"</i>: cek semua pinjaman\n" +
		"• <i>\"Ada denda ga\"</i>: hitung denda telat\n" +
		"• <i>\"Progres hutang\"</i>: progres pelunasan\n\n" +
		"<b>📊 Laporan:</b>\n" +
		"• <i>\"Rekap hari ini\"</i>: rekap harian\n" +
		"• <i>\"Rekap minggu ini\"</i>: rekap mingguan\n\n" +
		"<b>⌨️ Shortcut Perintah:</b>\n" +
		"/hutang: Dashboard pinjaman\n" +
		"/denda [platform]: Hitung denda telat\n" +
		"/ringkasan [bulan]: Ringkasan bulanan\n" +
		"/progres: Progres pelunasan\n" +
		"/batal: Batalkan proses\n" +
		"/help: Panduan ini\n\n" +
		"<b>💡 Tips:</b>\n" +
		"• Pakai bahasa sehari-hari, bot ngerti bahasa gaul\n" +
		"• Ketik \"batal\" kapan saja untuk membatalkan"

	cancelledMessage         = "✅ Proses dibatalkan. Silakan mulai pesan baru."
	nothingToCancelMessage   = "ℹ️ Tidak ada proses yang sedang berjalan."
	unknownCommandMessage    = "❓ Perintah tidak dikenal. Ketik /help untuk panduan."
	useButtonsMessage        = "⏳ Gunakan tombol di atas untuk konfirmasi, atau ketik /batal untuk membatalkan."
	photoNotSupportedMessage = "📷 Fitur baca foto (OCR) akan hadir di update berikutnya!"
	targetComingSoonMessage  = "🎯 Fitur target pendapatan akan hadir segera!"
	internalErrorMessage     = "⚠️ Maaf, terjadi gangguan. Coba lagi beberapa saat lagi."

	unknownIntentMessage = "🤔 Maaf, aku belum mengerti pesanmu.\n\n" +
		"Coba kirim seperti:\n" +
		"• <i>\"Dapet 150rb food\"</i>: catat pendapatan\n" +
		"• <i>\"Bensin 20rb\"</i>: catat pengeluaran\n" +
		"• <i>\"Lihat hutang\"</i>: cek pinjaman\n\n" +
		"Ketik /help untuk panduan lengkap."

	incomeAmountMissingMessage  = "❌ Tidak bisa mendeteksi jumlah pendapatan. Coba lagi, contoh: \"dapet 150rb food\""
	expenseAmountMissingMessage = "❌ Tidak bisa mendeteksi jumlah pengeluaran. Coba lagi, contoh: \"bensin 20rb\""

	loanUsageMessage = "🏦 <b>Daftar Pinjaman Baru</b>\n\n" +
		"Kirim detail pinjaman dalam satu pesan, contoh:\n" +
		"• <i>\"Kredivo 5jt 12 bulan 500rb/bln tgl 13\"</i>\n" +
		"• <i>\"Pinjam di SPayLater 3.5jt, cicilan 435rb 10x\"</i>\n\n" +
		"Yang belum ada akan aku tanyakan satu per satu."

	// %s: что пользователь, похоже, хотел сделать
	wizardLeakMessage = "⚠️ Kamu sedang mendaftarkan pinjaman baru.\n\n" +
		"Sepertinya kamu mau %s. Ketik <b>batal</b> dulu untuk membatalkan pendaftaran, " +
		"atau jawab pertanyaan di atas."

	sessionExpiredNotice = "Sesi sudah berakhir."
	savedNotice          = "Disimpan! ✅"
	cancelledNotice      = "Dibatalkan"
	unknownActionNotice  = "Aksi tidak dikenal"
	failedNotice         = "⚠️ Gagal, coba lagi."
)
