package bot

import (
	"context"

	"support-bot/internal/tg"
)

type handlerFunc func(ctx context.Context, upd tg.Update) error

// route pairs a predicate with its handler. Routes are tried in order.
type route struct {
	name   string
	match  func(upd tg.Update) bool
	handle handlerFunc
}

func (b *Bot) match(upd tg.Update) (route, bool) {
	for _, r := range b.routes {
		if r.match(upd) {
			return r, true
		}
	}
	return route{}, false
}

func (b *Bot) buildRoutes() []route {
	return []route{
		{name: "start", match: privateCommand("start"), handle: b.handleStart},
		{name: "web_app_data", match: privateWebApp, handle: b.handleWebAppData},
		{name: "attachment", match: privateAttachment, handle: b.handleAttachment},
		{name: "menu", match: b.isMenuButton, handle: b.handleMenu},

		{name: "start_group", match: groupCommand("start_group"), handle: b.handleStartGroup},
		{name: "commands", match: groupCommand("c"), handle: b.handleCommandList},
		{name: "export_users", match: groupCommand("all_users"), handle: b.adminOnly(b.exportAll)},
		{name: "export_guests", match: groupCommand("guests"), handle: b.adminOnly(b.exportGuests)},
		{name: "export_clients", match: groupCommand("clients"), handle: b.adminOnly(b.exportClients)},
		{name: "export_inactive", match: groupCommand("inactive"), handle: b.adminOnly(b.exportInactive)},

		{name: "cb_all_users", match: groupCallback(cbAllUsers), handle: b.callback(b.exportAll)},
		{name: "cb_all_clients", match: groupCallback(cbAllClients), handle: b.callback(b.exportClients)},
		{name: "cb_all_guests", match: groupCallback(cbAllGuests), handle: b.callback(b.exportGuests)},
		{name: "cb_inactive_clients", match: groupCallback(cbInactiveClients), handle: b.callback(b.exportInactive)},

		{name: "remind", match: groupText, handle: b.handleRemind},
	}
}

func privateCommand(name string) func(tg.Update) bool {
	return func(u tg.Update) bool {
		return u.IsPrivate() && u.Callback == nil && u.Command == name
	}
}

func groupCommand(name string) func(tg.Update) bool {
	return func(u tg.Update) bool {
		return u.IsGroup() && u.Callback == nil && u.Command == name
	}
}

func groupCallback(data string) func(tg.Update) bool {
	return func(u tg.Update) bool {
		return u.IsGroup() && u.Callback != nil && u.Callback.Data == data
	}
}

func privateWebApp(u tg.Update) bool {
	return u.IsPrivate() && u.WebAppData != ""
}

func privateAttachment(u tg.Update) bool {
	return u.IsPrivate() && u.Callback == nil && u.Attachment != nil
}

func groupText(u tg.Update) bool {
	return u.IsGroup() && u.Callback == nil && u.Command == "" && u.Text != ""
}

func (b *Bot) isMenuButton(u tg.Update) bool {
	if !u.IsPrivate() || u.Callback != nil {
		return false
	}
	_, ok := b.pages[u.Text]
	return ok
}

// adminOnly drops updates from users who do not administer the group.
func (b *Bot) adminOnly(next handlerFunc) handlerFunc {
	return func(ctx context.Context, upd tg.Update) error {
		ok, err := b.tg.IsChatAdmin(ctx, upd.ChatID, upd.From.ID)
		if err != nil {
			return err
		}
		if !ok {
			b.logger.Info("ignoring export from non-admin", "chat_id", upd.ChatID, "user_id", upd.From.ID)
			return nil
		}
		return next(ctx, upd)
	}
}

// callback acknowledges the button press before running next as an admin-only handler.
func (b *Bot) callback(next handlerFunc) handlerFunc {
	guarded := b.adminOnly(next)
	return func(ctx context.Context, upd tg.Update) error {
		if err := b.tg.AnswerCallback(ctx, upd.Callback.ID, ""); err != nil {
			b.logger.Debug("answer callback", "error", err)
		}
		return guarded(ctx, upd)
	}
}
