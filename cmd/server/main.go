package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"driver-finance/internal/classifier"
	"driver-finance/internal/clock"
	"driver-finance/internal/config"
	"driver-finance/internal/dispatch"
	"driver-finance/internal/handler"
	"driver-finance/internal/repository"
	"driver-finance/internal/service"
	"driver-finance/internal/telegram"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Загрузка конфигурации приложения
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Неизвестный уровень логирования %q, используется info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.TelegramToken == "" {
		logger.Fatal("Переменная окружения TELEGRAM_BOT_TOKEN не установлена")
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("TELEGRAM_WEBHOOK_SECRET не задан, проверка секрета вебхука отключена")
	}

	// Подключение к базе данных
	dsn := cfg.DBPath
	if cfg.DBDriver == string(repository.DialectPostgres) {
		dsn = repository.PostgresDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	}
	db, err := repository.Open(cfg.DBDriver, dsn, logger)
	if err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	realClock := clock.RealClock{}
	location := clock.LoadLocation(cfg.Timezone)

	// Инициализация репозиториев
	logger.Info("Инициализация репозиториев...")
	userRepo := repository.NewUserRepository(db, logger)
	loanRepo := repository.NewLoanRepository(db, logger)
	recordRepo := repository.NewRecordRepository(db, logger)
	sessionRepo := repository.NewSessionRepository(db, logger)
	usageRepo := repository.NewUsageRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)

	// Классификатор: бесплатный Workers AI, при сбое или исчерпании лимита DeepSeek
	var primary, secondary classifier.Backend
	if cfg.CFAccountID != "" && cfg.CFAPIToken != "" {
		primary = classifier.NewWorkersAI(cfg.CFBaseURL, cfg.CFAccountID, cfg.CFAPIToken, cfg.CFModel, cfg.ClassifierTimeout, logger)
	} else {
		logger.Warn("Workers AI не настроен")
	}
	if cfg.DeepSeekKey != "" {
		secondary = classifier.NewDeepSeek(cfg.DeepSeekURL, cfg.DeepSeekKey, cfg.DeepSeekModel, cfg.ClassifierTimeout, logger)
	} else {
		logger.Warn("DeepSeek не настроен")
	}
	intentClassifier := classifier.NewClassifier(primary, secondary, cfg.PrimaryThreshold, logger)

	// Инициализация сервисов
	logger.Info("Инициализация сервисов...")
	registration := service.NewLoanRegistration(loanRepo, sessionRepo, realClock, location, cfg.SessionTTL, logger)
	payments := service.NewPayments(loanRepo, sessionRepo, realClock, location, cfg.SessionTTL, logger)
	records := service.NewRecords(recordRepo, sessionRepo, realClock, location, cfg.SessionTTL, logger)
	reports := service.NewReports(loanRepo, recordRepo, realClock, location, logger)
	alerts := service.NewAlerts(loanRepo, alertRepo, realClock, location, cfg.AlertThrottle, logger)
	housekeeping := service.NewHousekeeping(usageRepo, sessionRepo, realClock, location, cfg.UsageRetentionDays, logger)

	botRouter := service.NewRouter(service.RouterDeps{
		Users:        userRepo,
		Sessions:     sessionRepo,
		Usage:        usageRepo,
		Vocabulary:   service.DefaultVocabulary(),
		Classifier:   intentClassifier,
		Registration: registration,
		Payments:     payments,
		Records:      records,
		Reports:      reports,
		Alerts:       alerts,
		Clock:        realClock,
		Location:     location,
		CallCost:     cfg.PrimaryCallCost,
	}, logger)

	// Инициализация HTTP обработчиков
	logger.Info("Инициализация обработчиков...")
	botClient := telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramToken, logger)
	dispatcher := dispatch.NewDispatcher(logger)
	webhookHandler := handler.NewWebhookHandler(botRouter, botClient, dispatcher, cfg.WebhookSecret, logger)

	router := mux.NewRouter()
	webhookHandler.RegisterRoutes(router)

	// Настройка планировщика очистки
	logger.Info("Настройка планировщика очистки...")
	c := cron.New()
	_, err = c.AddFunc(cfg.HousekeepingSchedule, func() {
		logger.Info("Запуск очистки устаревших данных")
		if err := housekeeping.Run(context.Background()); err != nil {
			logger.WithError(err).Error("Ошибка очистки")
		}
	})
	if err != nil {
		logger.Fatalf("Ошибка настройки планировщика: %v", err)
	}
	c.Start()

	// Настройка и запуск HTTP сервера
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Запуск сервера на %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Ошибка сервера: %v", err)
		}
	}()

	// Ожидание сигналов для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Завершение работы сервера...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Ошибка при завершении работы сервера: %v", err)
	}
	// дождаться обработки уже принятых обновлений
	if err := dispatcher.Close(ctx); err != nil {
		logger.Errorf("Не все обновления обработаны до остановки: %v", err)
	}
	<-c.Stop().Done()
	logger.Info("Сервер успешно остановлен")
}
