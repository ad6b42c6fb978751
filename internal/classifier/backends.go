package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrEmptyResponse = errors.New("пустой ответ модели")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WorkersAI клиент Cloudflare Workers AI (основной, бесплатный)
type WorkersAI struct {
	httpClient *http.Client
	baseURL    string
	accountID  string
	token      string
	model      string
	logger     *logrus.Logger
}

func NewWorkersAI(baseURL, accountID, token, model string, timeout time.Duration, logger *logrus.Logger) *WorkersAI {
	return &WorkersAI{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountID:  accountID,
		token:      token,
		model:      model,
		logger:     logger,
	}
}

func (w *WorkersAI) Name() string { return "workers_ai" }

func (w *WorkersAI) Complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", w.baseURL, w.accountID, w.model)
	body := map[string]any{
		"messages": []chatMessage{{Role: "user", Content: prompt}},
	}

	var out struct {
		Result struct {
			Response string `json:"response"`
		} `json:"result"`
	}
	if err := postJSON(ctx, w.httpClient, url, w.token, body, &out); err != nil {
		return "", fmt.Errorf("workers ai: %w", err)
	}
	if strings.TrimSpace(out.Result.Response) == "" {
		return "", fmt.Errorf("workers ai: %w", ErrEmptyResponse)
	}

	w.logger.WithField("model", w.model).Debug("Ответ Workers AI получен")
	return out.Result.Response, nil
}

// DeepSeek клиент DeepSeek chat completions (резервный, платный)
type DeepSeek struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
	logger     *logrus.Logger
}

func NewDeepSeek(url, apiKey, model string, timeout time.Duration, logger *logrus.Logger) *DeepSeek {
	return &DeepSeek{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

func (d *DeepSeek) Name() string { return "deepseek" }

func (d *DeepSeek) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       d.model,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
		"temperature": 0.1,
		"max_tokens":  512,
	}

	var out struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, d.httpClient, d.url, d.apiKey, body, &out); err != nil {
		return "", fmt.Errorf("deepseek: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("deepseek: %w", ErrEmptyResponse)
	}

	d.logger.WithField("model", d.model).Debug("Ответ DeepSeek получен")
	return out.Choices[0].Message.Content, nil
}

// postJSON отправляет JSON с Bearer-токеном и разбирает JSON-ответ.
// Статус вне 2xx считается ошибкой.
func postJSON(ctx context.Context, client *http.Client, url, token string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка при выполнении HTTP-запроса: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка при чтении ответа: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("неожиданный статус %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("ошибка при разборе ответа: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
