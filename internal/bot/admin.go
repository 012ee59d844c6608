package bot

import (
	"context"
	"fmt"
	"strings"

	"support-bot/internal/export"
	"support-bot/internal/reminder"
	"support-bot/internal/repo"
	"support-bot/internal/tg"
)

// Bot API text messages are capped at 4096 characters.
const maxMessageLen = 4096

func (b *Bot) handleStartGroup(ctx context.Context, upd tg.Update) error {
	b.logger.Info("group started", "chat_id", upd.ChatID)
	_, err := b.tg.SendText(ctx, upd.ChatID, textGroupIntro+textCommands, tg.WithMarkup(b.kb.group))
	return err
}

func (b *Bot) handleCommandList(ctx context.Context, upd tg.Update) error {
	_, err := b.tg.SendText(ctx, upd.ChatID, textCommands)
	return err
}

func (b *Bot) handleRemind(ctx context.Context, upd tg.Update) error {
	ok, err := b.reminders.HandleInstruction(ctx, reminder.Instruction{
		ChatID:    upd.ChatID,
		MessageID: upd.MessageID,
		Text:      upd.Text,
		Operator:  upd.From,
	})
	if err != nil {
		return err
	}
	if ok {
		b.logger.Info("reminder set", "chat_id", upd.ChatID, "operator", upd.From.ID, "text", upd.Text)
	}
	return nil
}

func (b *Bot) exportAll(ctx context.Context, upd tg.Update) error {
	list, err := b.users.All(ctx)
	if err != nil {
		return err
	}
	return b.sendUsers(ctx, upd.ChatID, "Таблица всех пользователей из базы данных:", "all_users.xlsx", list)
}

func (b *Bot) exportGuests(ctx context.Context, upd tg.Update) error {
	list, err := b.users.ByStatus(ctx, repo.StatusGuest)
	if err != nil {
		return err
	}
	return b.sendUsers(ctx, upd.ChatID, "Таблица клиентов с статусом Guest:", "guests.xlsx", list)
}

func (b *Bot) exportClients(ctx context.Context, upd tg.Update) error {
	list, err := b.users.ByStatus(ctx, repo.StatusClient)
	if err != nil {
		return err
	}
	return b.sendUsers(ctx, upd.ChatID, "Таблица клиентов с статусом Client:", "clients.xlsx", list)
}

func (b *Bot) exportInactive(ctx context.Context, upd tg.Update) error {
	return b.sendInactive(ctx, upd.ChatID, true)
}

// SendInactiveDigest posts the inactive-client list to the admin chat.
// Nothing is sent when there are no inactive clients.
func (b *Bot) SendInactiveDigest(ctx context.Context) error {
	return b.sendInactive(ctx, b.cfg.AdminChatID, false)
}

func (b *Bot) sendInactive(ctx context.Context, chatID int64, reportEmpty bool) error {
	clients, err := b.users.InactiveClients(ctx, b.cfg.InactiveDays)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		if !reportEmpty {
			b.logger.Debug("no inactive clients")
			return nil
		}
		_, err := b.tg.SendText(ctx, chatID, textNoClients)
		return err
	}

	for _, part := range splitMessage(inactiveList(b.cfg.InactiveDays, clients), maxMessageLen) {
		if _, err := b.tg.SendText(ctx, chatID, part); err != nil {
			return err
		}
	}
	return b.sendUsers(ctx, chatID, "", "inactive.xlsx", clients)
}

func inactiveList(days int, clients []repo.User) string {
	var sb strings.Builder
	sb.WriteString(inactiveHeader(days))
	for _, u := range clients {
		phone := textNoPhone
		if u.PhoneNumber != nil && *u.PhoneNumber != "" {
			phone = *u.PhoneNumber
		}
		last := ""
		if u.LastUpdatedDate != nil {
			last = u.LastUpdatedDate.Format("2006-01-02")
		}
		fmt.Fprintf(&sb, "Имя пользователя: @%s — Имя: %s — Номер: %s,  последняя дата обращения: %s\n\n",
			deref(u.Username), deref(u.FirstName), phone, last)
	}
	return sb.String()
}

// sendUsers posts an optional heading followed by the users workbook.
func (b *Bot) sendUsers(ctx context.Context, chatID int64, heading, filename string, list []repo.User) error {
	data, err := export.Users(list)
	if err != nil {
		return fmt.Errorf("export %s: %w", filename, err)
	}
	if heading != "" {
		if _, err := b.tg.SendText(ctx, chatID, heading); err != nil {
			return err
		}
	}
	if _, err := b.tg.SendDocument(ctx, chatID, filename, data, ""); err != nil {
		return err
	}
	b.metrics.Export(strings.TrimSuffix(filename, ".xlsx"))
	b.logger.Info("users exported", "chat_id", chatID, "file", filename, "rows", len(list))
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
