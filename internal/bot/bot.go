// Package bot routes Telegram updates to the support bot's handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"support-bot/internal/metrics"
	"support-bot/internal/pending"
	"support-bot/internal/reminder"
	"support-bot/internal/repo"
	"support-bot/internal/tg"
	"support-bot/internal/users"
)

// Messenger is the outbound Telegram surface used by handlers.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts ...tg.SendOption) (int, error)
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) (int, error)
	SendAttachment(ctx context.Context, chatID int64, a tg.Attachment) (int, error)
	SendMediaGroup(ctx context.Context, chatID int64, items []tg.MediaItem) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// Users is the user directory consulted by handlers.
type Users interface {
	Register(ctx context.Context, chatID int64, from tg.User) (*repo.User, error)
	MarkClient(ctx context.Context, userID int64, phone string) error
	All(ctx context.Context) ([]repo.User, error)
	ByStatus(ctx context.Context, status repo.UserStatus) ([]repo.User, error)
	InactiveClients(ctx context.Context, days int) ([]repo.User, error)
}

var _ Users = (*users.Service)(nil)

// Reminders saves notification records and handles "N минут" instructions.
type Reminders interface {
	Save(ctx context.Context, chatID int64, messageID int, category repo.ReminderCategory, requester string) (*repo.Reminder, error)
	HandleInstruction(ctx context.Context, in reminder.Instruction) (bool, error)
}

var _ Reminders = (*reminder.Engine)(nil)

// Config holds the bot's behavioural settings.
type Config struct {
	AdminChatID  int64
	InactiveDays int
	ProjectsDir  string
	CallbackURL  string
	OrderURL     string
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Messenger Messenger
	Users     Users
	Reminders Reminders
	Pending   *pending.Buffer
	Metrics   *metrics.Metrics
}

// Bot implements tg.UpdateProcessor.
type Bot struct {
	cfg       Config
	tg        Messenger
	users     Users
	reminders Reminders
	pending   *pending.Buffer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	kb        keyboards
	routes    []route
	pages     map[string]page
}

var _ tg.UpdateProcessor = (*Bot)(nil)

// New assembles a Bot.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Bot, error) {
	if deps.Messenger == nil || deps.Users == nil || deps.Reminders == nil || deps.Pending == nil {
		return nil, errors.New("bot requires messenger, users, reminders and pending buffer")
	}
	if cfg.AdminChatID == 0 {
		return nil, errors.New("admin chat id is required")
	}
	if cfg.InactiveDays <= 0 {
		cfg.InactiveDays = 7
	}
	b := &Bot{
		cfg:       cfg,
		tg:        deps.Messenger,
		users:     deps.Users,
		reminders: deps.Reminders,
		pending:   deps.Pending,
		metrics:   deps.Metrics,
		logger:    logger.With("component", "bot"),
		kb:        newKeyboards(cfg.CallbackURL, cfg.OrderURL, cfg.InactiveDays),
	}
	b.pages = b.menuPages()
	b.routes = b.buildRoutes()
	return b, nil
}

// Commands lists the menu registered in the admin chat.
func (b *Bot) Commands() []tg.Command {
	return []tg.Command{{Name: "start_group", Description: "Запуск"}}
}

// ProcessUpdate runs the first matching route. Failures are logged and
// answered with a generic message; they never escape to the poll loop.
func (b *Bot) ProcessUpdate(ctx context.Context, upd tg.Update) {
	r, ok := b.match(upd)
	if !ok {
		b.logger.Debug("no route for update", "update_id", upd.ID, "kind", upd.Kind(), "chat_id", upd.ChatID)
		return
	}

	started := time.Now()
	defer b.metrics.ObserveHandler(r.name, started)
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("handler panic", "route", r.name, "panic", rec, "stack", string(debug.Stack()))
			b.fail(ctx, r.name, upd, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := r.handle(ctx, upd); err != nil {
		b.fail(ctx, r.name, upd, err)
	}
}

func (b *Bot) fail(ctx context.Context, routeName string, upd tg.Update, err error) {
	b.metrics.Error("bot")
	b.logger.Error("handler failed", "route", routeName, "chat_id", upd.ChatID, "user_id", upd.From.ID, "error", err)
	if ctx.Err() != nil || upd.ChatID == 0 {
		return
	}
	if _, sendErr := b.tg.SendText(ctx, upd.ChatID, textUnexpectedError); sendErr != nil {
		b.logger.Warn("send error reply", "chat_id", upd.ChatID, "error", sendErr)
	}
}

// deleteQuietly removes a message, logging failures only.
func (b *Bot) deleteQuietly(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := b.tg.DeleteMessage(ctx, chatID, messageID); err != nil {
		b.logger.Debug("delete message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}
