package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"driver-finance/internal/model"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logrus.Logger
}

// NewClient создает клиент Bot API; baseURL обычно https://api.telegram.org
func NewClient(baseURL, token string, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logger,
	}
}

type inlineKeyboard struct {
	InlineKeyboard [][]model.Button `json:"inline_keyboard"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendMessage отправляет HTML-сообщение, при наличии кнопок с клавиатурой
func (c *Client) SendMessage(ctx context.Context, chatID int64, reply model.Reply) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       reply.Text,
		"parse_mode": "HTML",
	}
	if len(reply.Buttons) > 0 {
		payload["reply_markup"] = inlineKeyboard{InlineKeyboard: reply.Buttons}
	}
	return c.call(ctx, "sendMessage", payload)
}

// EditMessageText заменяет текст сообщения и убирает его клавиатуру
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	})
}

// AnswerCallbackQuery убирает "часики" на кнопке, text показывается всплывающим уведомлением
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{"callback_query_id": callbackID}
	if text != "" {
		payload["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", payload)
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка вызова %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа %s: %w", method, err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("ошибка разбора ответа %s (статус %d): %w", method, resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("%s: %s", method, out.Description)
	}

	c.logger.WithField("method", method).Debug("Вызов Bot API выполнен")
	return nil
}
