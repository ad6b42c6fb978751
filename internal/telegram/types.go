// Package telegram минимальный клиент Bot API: типы входящих обновлений
// и отправка ответов бота.
package telegram

import (
	"strconv"

	"driver-finance/internal/model"
)

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
}

type Message struct {
	MessageID int         `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// SenderID идентификатор отправителя обновления или пустая строка
func (u *Update) SenderID() string {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return strconv.FormatInt(u.Message.From.ID, 10)
	case u.CallbackQuery != nil:
		return strconv.FormatInt(u.CallbackQuery.From.ID, 10)
	}
	return ""
}

func displayName(u *User) string {
	if u == nil {
		return ""
	}
	if u.FirstName == "" && u.LastName == "" && u.Username != "" {
		return u.Username
	}
	return model.DisplayName(u.FirstName, u.LastName)
}

// ToInbound сообщение в виде, понятном маршрутизатору
func (m *Message) ToInbound() model.Inbound {
	in := model.Inbound{
		ChatID:   m.Chat.ID,
		Name:     displayName(m.From),
		Text:     m.Text,
		HasPhoto: len(m.Photo) > 0,
	}
	if m.From != nil {
		in.UserID = strconv.FormatInt(m.From.ID, 10)
	}
	return in
}

// ToCallback нажатие кнопки в виде, понятном маршрутизатору
func (q *CallbackQuery) ToCallback() model.Callback {
	cb := model.Callback{
		UserID: strconv.FormatInt(q.From.ID, 10),
		Name:   displayName(&q.From),
		Data:   q.Data,
	}
	if q.Message != nil {
		cb.ChatID = q.Message.Chat.ID
		cb.MessageID = q.Message.MessageID
		cb.MessageText = q.Message.Text
	}
	return cb
}
