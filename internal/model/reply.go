package model

// Button кнопка встроенной клавиатуры; Data уходит в callback как есть
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// Reply одно исходящее сообщение (HTML)
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Response результат обработки одного входящего события
type Response struct {
	// Notice короткий ответ на нажатие кнопки (answerCallbackQuery)
	Notice string
	// Edit новый текст сообщения, на кнопку которого нажали
	Edit string
	// Messages новые сообщения пользователю
	Messages []Reply
}

// Text ответ из одного текстового сообщения
func Text(text string) Response {
	return Response{Messages: []Reply{{Text: text}}}
}

// WithButtons ответ из одного сообщения с клавиатурой
func WithButtons(text string, buttons [][]Button) Response {
	return Response{Messages: []Reply{{Text: text, Buttons: buttons}}}
}

// Prepend добавляет сообщение в начало ответа (например, напоминание)
func (r Response) Prepend(text string) Response {
	r.Messages = append([]Reply{{Text: text}}, r.Messages...)
	return r
}

// Inbound входящее текстовое сообщение или фото
type Inbound struct {
	UserID   string
	ChatID   int64
	Name     string
	Text     string
	HasPhoto bool
}

// Callback нажатие кнопки
type Callback struct {
	UserID    string
	ChatID    int64
	Name      string
	Data      string
	MessageID int
	// MessageText текст сообщения с кнопками
	MessageText string
}
