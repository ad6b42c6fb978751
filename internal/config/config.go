package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config содержит настройки приложения
type Config struct {
	ListenAddr string // Адрес HTTP сервера
	LogLevel   string // Уровень логирования

	TelegramToken  string // Токен бота
	WebhookSecret  string // Секрет заголовка X-Telegram-Bot-Api-Secret-Token
	TelegramAPIURL string // Базовый адрес Bot API

	DBDriver   string // sqlite или postgres
	DBPath     string // Путь к файлу SQLite
	DBHost     string // Хост базы данных
	DBPort     string // Порт базы данных
	DBUser     string // Пользователь базы данных
	DBPassword string // Пароль базы данных
	DBName     string // Имя базы данных

	CFAccountID   string // Аккаунт Cloudflare для Workers AI
	CFAPIToken    string // Токен Cloudflare
	CFModel       string // Модель Workers AI
	CFBaseURL     string
	DeepSeekKey   string // Ключ DeepSeek (резервный классификатор)
	DeepSeekURL   string
	DeepSeekModel string

	PrimaryThreshold  int           // Суточный лимит бесплатного классификатора
	PrimaryCallCost   int           // Сколько единиц списывать за вызов
	ClassifierTimeout time.Duration // Таймаут одного вызова классификатора

	SessionTTL    time.Duration // Время жизни незавершенного диалога
	AlertThrottle time.Duration // Минимальный интервал между напоминаниями
	Timezone      string        // Часовой пояс для "сегодня"

	HousekeepingSchedule string // Расписание очистки (cron)
	UsageRetentionDays   int    // Сколько дней хранить счетчик использования
}

// LoadConfig загружает конфигурацию из .env файла
func LoadConfig() (*Config, error) {
	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		logrus.Warn("Файл .env не найден")
	}

	config := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookSecret:  getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramAPIURL: getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "driver-finance.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "driver_finance"),

		CFAccountID:   getEnv("CF_ACCOUNT_ID", ""),
		CFAPIToken:    getEnv("CF_API_TOKEN", ""),
		CFModel:       getEnv("CF_AI_MODEL", "@cf/qwen/qwen3-30b-a3b-fp8"),
		CFBaseURL:     getEnv("CF_API_BASE", "https://api.cloudflare.com/client/v4"),
		DeepSeekKey:   getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekURL:   getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/chat/completions"),
		DeepSeekModel: getEnv("DEEPSEEK_MODEL", "deepseek-chat"),

		PrimaryThreshold:  getEnvInt("PRIMARY_THRESHOLD", 8000),
		PrimaryCallCost:   getEnvInt("PRIMARY_CALL_COST", 5),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 20*time.Second),

		SessionTTL:    getEnvDuration("SESSION_TTL", 5*time.Minute),
		AlertThrottle: getEnvDuration("ALERT_THROTTLE", 6*time.Hour),
		Timezone:      getEnv("TIMEZONE", "Asia/Jakarta"),

		HousekeepingSchedule: getEnv("HOUSEKEEPING_SCHEDULE", "30 3 * * *"),
		UsageRetentionDays:   getEnvInt("USAGE_RETENTION_DAYS", 30),
	}

	return config, nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration парсит длительность вида "5m"; при ошибке возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
