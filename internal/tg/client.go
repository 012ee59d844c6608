package tg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"support-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	pollRetryDelay = 3 * time.Second
	// Bot API rejects media groups larger than this.
	maxMediaGroup = 10
)

// Config holds configuration to initialise the Telegram client.
type Config struct {
	Token       string
	PollTimeout int
	Debug       bool
	Metrics     *metrics.Metrics
}

// UpdateProcessor handles inbound updates.
type UpdateProcessor interface {
	ProcessUpdate(ctx context.Context, upd Update)
}

// Client wraps tgbotapi with long polling and the outbound calls the bot uses.
type Client struct {
	api         *tgbotapi.BotAPI
	logger      *slog.Logger
	metrics     *metrics.Metrics
	pollTimeout int
	processor   UpdateProcessor
}

// New authenticates against the Bot API with the static token.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("bot token is required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("init bot api: %w", err)
	}
	api.Debug = cfg.Debug

	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 60
	}

	c := &Client{
		api:         api,
		logger:      logger.With("component", "tg"),
		metrics:     cfg.Metrics,
		pollTimeout: timeout,
	}
	c.logger.Info("authorised on telegram", "username", api.Self.UserName)
	return c, nil
}

// SetUpdateProcessor registers the update processor callback.
func (c *Client) SetUpdateProcessor(processor UpdateProcessor) {
	c.processor = processor
}

// Start long-polls getUpdates until ctx is cancelled, then waits for queued
// updates to finish.
func (c *Client) Start(ctx context.Context) error {
	if c.processor == nil {
		return errors.New("update processor is not set")
	}
	d := newDispatcher(c.processor.ProcessUpdate)
	defer d.wait()

	c.logger.Info("long polling started", "timeout", c.pollTimeout)
	offset := 0
	for {
		raws, err := c.fetch(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("long polling stopped")
				return nil
			}
			c.logger.Error("get updates failed", "error", err)
			c.metrics.Error("tg")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, raw := range raws {
			var head struct {
				UpdateID int `json:"update_id"`
			}
			if err := json.Unmarshal(raw, &head); err == nil && head.UpdateID >= offset {
				offset = head.UpdateID + 1
			}

			upd, ok, err := decodeUpdate(raw)
			if err != nil {
				c.logger.Warn("skipping undecodable update", "update_id", head.UpdateID, "error", err)
				continue
			}
			if !ok {
				continue
			}
			c.metrics.Incoming(upd.Kind())
			d.dispatch(ctx, upd)
		}
	}
}

func (c *Client) fetch(ctx context.Context, offset int) ([]json.RawMessage, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", c.pollTimeout)
	if err := params.AddInterface("allowed_updates", []string{"message", "callback_query"}); err != nil {
		return nil, fmt.Errorf("encode allowed updates: %w", err)
	}

	type result struct {
		resp *tgbotapi.APIResponse
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := c.api.MakeRequest("getUpdates", params)
		ch <- result{resp, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.err != nil {
		return nil, fmt.Errorf("get updates: %w", res.err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(res.resp.Result, &raws); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return raws, nil
}

// SendOptions tunes an outgoing text message.
type SendOptions struct {
	Markup   any
	Markdown bool
	ReplyTo  int
}

type SendOption func(*SendOptions)

// WithMarkup attaches a reply or inline keyboard.
func WithMarkup(markup any) SendOption {
	return func(o *SendOptions) { o.Markup = markup }
}

// WithMarkdown enables legacy Markdown parse mode.
func WithMarkdown() SendOption {
	return func(o *SendOptions) { o.Markdown = true }
}

// WithReplyTo quotes messageID. The message is still sent if the quoted one is gone.
func WithReplyTo(messageID int) SendOption {
	return func(o *SendOptions) { o.ReplyTo = messageID }
}

// ApplySendOptions folds opts into a SendOptions value.
func ApplySendOptions(opts []SendOption) SendOptions {
	var o SendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MediaItem is one photo of a media group read from local disk.
type MediaItem struct {
	Path     string
	Caption  string
	Markdown bool
}

// SendText sends a text message and returns its message id.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, opts ...SendOption) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	o := ApplySendOptions(opts)
	msg := tgbotapi.NewMessage(chatID, text)
	if o.Markup != nil {
		msg.ReplyMarkup = o.Markup
	}
	if o.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if o.ReplyTo != 0 {
		msg.ReplyToMessageID = o.ReplyTo
		msg.AllowSendingWithoutReply = true
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send text: %w", err)
	}
	c.metrics.Outgoing("text")
	return sent.MessageID, nil
}

// SendDocument uploads data as a named document.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	sent, err := c.api.Send(doc)
	if err != nil {
		return 0, fmt.Errorf("send document %s: %w", filename, err)
	}
	c.metrics.Outgoing("document")
	return sent.MessageID, nil
}

// SendAttachment re-sends a file by its Telegram file id using the method matching its kind.
func (c *Client) SendAttachment(ctx context.Context, chatID int64, a Attachment) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	file := tgbotapi.FileID(a.FileID)
	var cfg tgbotapi.Chattable
	switch a.Kind {
	case AttachmentPhoto:
		cfg = tgbotapi.NewPhoto(chatID, file)
	case AttachmentVideo:
		cfg = tgbotapi.NewVideo(chatID, file)
	case AttachmentDocument:
		cfg = tgbotapi.NewDocument(chatID, file)
	case AttachmentVoice:
		cfg = tgbotapi.NewVoice(chatID, file)
	case AttachmentVideoNote:
		cfg = tgbotapi.NewVideoNote(chatID, 0, file)
	default:
		return 0, fmt.Errorf("send attachment: unsupported kind %q", a.Kind)
	}
	sent, err := c.api.Send(cfg)
	if err != nil {
		return 0, fmt.Errorf("send %s: %w", a.Kind, err)
	}
	c.metrics.Outgoing(string(a.Kind))
	return sent.MessageID, nil
}

// SendMediaGroup sends local photos as albums of up to ten items.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, items []MediaItem) error {
	for start := 0; start < len(items); start += maxMediaGroup {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+maxMediaGroup, len(items))
		chunk := items[start:end]

		if len(chunk) == 1 {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(chunk[0].Path))
			photo.Caption = chunk[0].Caption
			if chunk[0].Markdown {
				photo.ParseMode = tgbotapi.ModeMarkdown
			}
			if _, err := c.api.Send(photo); err != nil {
				return fmt.Errorf("send photo: %w", err)
			}
			c.metrics.Outgoing("photo")
			continue
		}

		media := make([]interface{}, 0, len(chunk))
		for _, item := range chunk {
			photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(item.Path))
			photo.Caption = item.Caption
			if item.Markdown {
				photo.ParseMode = tgbotapi.ModeMarkdown
			}
			media = append(media, photo)
		}
		if _, err := c.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
			return fmt.Errorf("send media group: %w", err)
		}
		c.metrics.Outgoing("media_group")
	}
	return nil
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	c.metrics.Outgoing("delete")
	return nil
}

// AnswerCallback acknowledges an inline button press.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// IsChatAdmin reports whether userID administers or owns chatID.
func (c *Client) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	return member.IsAdministrator() || member.IsCreator(), nil
}

// Command is a bot menu entry.
type Command struct {
	Name        string
	Description string
}

// RegisterCommands sets the command menu shown in chatID.
func (c *Client) RegisterCommands(ctx context.Context, chatID int64, commands ...Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	list := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		list = append(list, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	cfg := tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(chatID), list...)
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("set my commands: %w", err)
	}
	return nil
}
