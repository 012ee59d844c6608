package bot

import (
	"support-bot/internal/tg"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Inline callback data of the group export keyboard.
const (
	cbAllUsers        = "all_users"
	cbAllClients      = "all_clients"
	cbAllGuests       = "all_guests"
	cbInactiveClients = "inactive_clients"
)

// RemindPresets are the delays offered under every admin notification.
var RemindPresets = []string{"5 минут", "15 минут", "30 минут", "60 минут"}

type keyboards struct {
	start    tg.ReplyKeyboard
	services tg.ReplyKeyboard
	prices   tg.ReplyKeyboard
	projects tg.ReplyKeyboard
	remind   tg.ReplyKeyboard
	group    tgbotapi.InlineKeyboardMarkup
}

func newKeyboards(callbackURL, orderURL string, inactiveDays int) keyboards {
	menu := [][]tg.KeyboardButton{
		tg.Row(tg.Button(btnInstallation), tg.Button(btnRepair)),
		tg.Row(tg.Button(btnPrices), tg.Button(btnAbout)),
		tg.Row(tg.Button(btnProjects)),
	}
	withHead := func(head tg.KeyboardButton) tg.ReplyKeyboard {
		rows := append([][]tg.KeyboardButton{tg.Row(head)}, menu...)
		return tg.NewReplyKeyboard(rows...)
	}

	presets := make([]tg.KeyboardButton, 0, len(RemindPresets))
	for _, p := range RemindPresets {
		presets = append(presets, tg.Button(p))
	}

	return keyboards{
		start:    withHead(tg.WebAppButton(btnCallback, callbackURL)),
		services: withHead(tg.WebAppButton(btnConsultation, callbackURL)),
		prices:   withHead(tg.WebAppButton(btnOrder, orderURL)),
		projects: tg.NewReplyKeyboard(
			tg.Row(tg.WebAppButton(btnConsultation, callbackURL)),
			tg.Row(tg.Button(btnPipesCleaning), tg.Button(btnWarmFloor)),
			tg.Row(tg.Button(btnPipesRouting), tg.Button(btnHeaterInstall)),
			tg.Row(tg.Button(btnHome)),
		),
		remind: tg.NewReplyKeyboard(tg.Row(presets[:2]...), tg.Row(presets[2:]...)),
		group: tg.NewInlineKeyboard(
			tg.InlineButton(btnExportUsers, cbAllUsers),
			tg.InlineButton(btnExportClients, cbAllClients),
			tg.InlineButton(btnExportGuests, cbAllGuests),
			tg.InlineButton(btnExportInactive(inactiveDays), cbInactiveClients),
		),
	}
}
