package tg

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// ReplyKeyboard mirrors the Bot API ReplyKeyboardMarkup including web_app
// buttons, which tgbotapi v5.5 does not model. It is marshalled as-is into
// reply_markup.
type ReplyKeyboard struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

type KeyboardButton struct {
	Text   string      `json:"text"`
	WebApp *WebAppInfo `json:"web_app,omitempty"`
}

type WebAppInfo struct {
	URL string `json:"url"`
}

// Button is a plain text reply button.
func Button(text string) KeyboardButton {
	return KeyboardButton{Text: text}
}

// WebAppButton opens the Web App at url.
func WebAppButton(text, url string) KeyboardButton {
	return KeyboardButton{Text: text, WebApp: &WebAppInfo{URL: url}}
}

// Row groups buttons on one keyboard line.
func Row(buttons ...KeyboardButton) []KeyboardButton {
	return buttons
}

// NewReplyKeyboard builds a resized, persistent keyboard.
func NewReplyKeyboard(rows ...[]KeyboardButton) ReplyKeyboard {
	return ReplyKeyboard{Keyboard: rows, ResizeKeyboard: true}
}

// InlineButton is a callback-data inline button.
func InlineButton(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

// NewInlineKeyboard lays out one button per row.
func NewInlineKeyboard(buttons ...tgbotapi.InlineKeyboardButton) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(b))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
