package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"support-bot/internal/tg"
)

// page is the reply to a private menu button.
type page func(ctx context.Context, upd tg.Update) error

func (b *Bot) menuPages() map[string]page {
	return map[string]page{
		btnServices:     b.textPage(textServices, b.kb.services),
		btnInstallation: b.textPage(textInstallation, b.kb.services),
		btnRepair:       b.textPage(textRepair, b.kb.services),
		btnPrices:       b.textPage(textPrices, b.kb.prices),
		btnAbout:        b.textPage(textAbout, b.kb.start),
		btnProjects:     b.textPage(textProjects, b.kb.projects),
		btnHome: func(ctx context.Context, upd tg.Update) error {
			b.deleteQuietly(ctx, upd.ChatID, upd.MessageID)
			return b.sendGreeting(ctx, upd)
		},

		btnPipesCleaning: b.portfolioPage("calc_plaque", captionPipesCleaning),
		btnWarmFloor:     b.portfolioPage("warm_floor_installation", captionWarmFloor),
		btnPipesRouting:  b.portfolioPage("water_supply_routing", captionPipesRouting),
		btnHeaterInstall: b.portfolioPage("heater_installation", captionHeaterInstall),
	}
}

func (b *Bot) handleMenu(ctx context.Context, upd tg.Update) error {
	b.logger.Info("menu requested", "button", upd.Text, "user_id", upd.From.ID, "username", upd.From.Username)
	return b.pages[upd.Text](ctx, upd)
}

func (b *Bot) handleStart(ctx context.Context, upd tg.Update) error {
	b.logger.Info("start command", "user_id", upd.From.ID, "chat_id", upd.ChatID)
	return b.sendGreeting(ctx, upd)
}

// sendGreeting registers the sender and shows the start menu.
func (b *Bot) sendGreeting(ctx context.Context, upd tg.Update) error {
	u, err := b.users.Register(ctx, upd.ChatID, upd.From)
	if err != nil {
		return err
	}
	name := u.DisplayName()
	if name == "" {
		name = upd.From.Mention()
	}
	_, err = b.tg.SendText(ctx, upd.ChatID, greeting(name), tg.WithMarkup(b.kb.start))
	return err
}

func (b *Bot) textPage(text string, markup tg.ReplyKeyboard) page {
	return func(ctx context.Context, upd tg.Update) error {
		b.deleteQuietly(ctx, upd.ChatID, upd.MessageID)
		_, err := b.tg.SendText(ctx, upd.ChatID, text, tg.WithMarkdown(), tg.WithMarkup(markup))
		return err
	}
}

// portfolioPage sends every .jpg of folder as an album captioned on the first photo.
func (b *Bot) portfolioPage(folder, caption string) page {
	return func(ctx context.Context, upd tg.Update) error {
		items, err := portfolio(filepath.Join(b.cfg.ProjectsDir, folder), caption)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			b.logger.Error("no portfolio photos", "folder", folder)
			return nil
		}
		return b.tg.SendMediaGroup(ctx, upd.ChatID, items)
	}
}

func portfolio(dir, caption string) ([]tg.MediaItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read portfolio %s: %w", dir, err)
	}
	var items []tg.MediaItem
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			continue
		}
		items = append(items, tg.MediaItem{Path: filepath.Join(dir, e.Name())})
	}
	if len(items) > 0 {
		items[0].Caption = caption
		items[0].Markdown = true
	}
	return items, nil
}
