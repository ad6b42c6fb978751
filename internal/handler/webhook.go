package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"driver-finance/internal/dispatch"
	"driver-finance/internal/model"
	"driver-finance/internal/telegram"
)

// UpdateRouter обработка входящих событий бота
type UpdateRouter interface {
	HandleMessage(ctx context.Context, msg model.Inbound) model.Response
	HandleCallback(ctx context.Context, cb model.Callback) model.Response
}

// Sender исходящие вызовы Bot API
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, reply model.Reply) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Queue очередь задач по ключу пользователя
type Queue interface {
	Enqueue(key string, job dispatch.Job) error
}

type WebhookHandler struct {
	router UpdateRouter
	sender Sender
	queue  Queue
	secret string
	logger *logrus.Logger
}

func NewWebhookHandler(router UpdateRouter, sender Sender, queue Queue, secret string, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		router: router,
		sender: sender,
		queue:  queue,
		secret: secret,
		logger: logger,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, RequestLogger(h.logger))
	router.HandleFunc("/healthz", h.Health).Methods("GET")

	webhook := router.PathPrefix("/webhook").Subrouter()
	webhook.Use(SecretTokenMiddleware(h.secret, h.logger))
	webhook.HandleFunc("", h.Webhook).Methods("POST")
}

func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Webhook ставит обновление в очередь отправителя и сразу отвечает 200,
// иначе Telegram будет повторять доставку
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.WithError(err).Error("Failed to decode telegram update")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	key := update.SenderID()
	if key == "" {
		h.logger.WithField("update_id", update.UpdateID).Debug("Обновление без отправителя пропущено")
		w.WriteHeader(http.StatusOK)
		return
	}

	err := h.queue.Enqueue(key, func(ctx context.Context) {
		h.process(ctx, update)
	})
	if err != nil {
		h.logger.WithError(err).WithField("update_id", update.UpdateID).Error("Не удалось поставить обновление в очередь")
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) process(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		cb := q.ToCallback()
		resp := h.router.HandleCallback(ctx, cb)

		if err := h.sender.AnswerCallbackQuery(ctx, q.ID, resp.Notice); err != nil {
			h.logger.WithError(err).Warn("Не удалось ответить на нажатие кнопки")
		}
		if resp.Edit != "" && cb.MessageID != 0 {
			if err := h.sender.EditMessageText(ctx, cb.ChatID, cb.MessageID, resp.Edit); err != nil {
				h.logger.WithError(err).Warn("Не удалось изменить сообщение")
			}
		}
		h.send(ctx, cb.ChatID, resp.Messages)

	case update.Message != nil:
		msg := update.Message.ToInbound()
		resp := h.router.HandleMessage(ctx, msg)
		h.send(ctx, msg.ChatID, resp.Messages)
	}
}

func (h *WebhookHandler) send(ctx context.Context, chatID int64, replies []model.Reply) {
	for _, reply := range replies {
		if err := h.sender.SendMessage(ctx, chatID, reply); err != nil {
			h.logger.WithError(err).WithField("chat_id", chatID).Error("Не удалось отправить сообщение")
		}
	}
}
