package bot

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"support-bot/internal/pending"
	"support-bot/internal/repo"
	"support-bot/internal/tg"

	"github.com/go-playground/validator/v10"
)

const (
	formCallback = "callback"
	formProblem  = "problem"
)

// formPayload is the JSON sent by the Web App forms.
type formPayload struct {
	Form  string `json:"form" validate:"required,oneof=callback problem"`
	Name  string `json:"name" validate:"max=256"`
	Phone string `json:"phone" validate:"max=64"`
	Topic string `json:"topic" validate:"max=2048"`
	Time  string `json:"time" validate:"max=128"`
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var (
	errUnknownForm = errors.New("unknown form")
	errBadForm     = errors.New("malformed form")
)

// parseForm decodes and validates raw. Empty text fields become "не указано".
func parseForm(raw string) (formPayload, error) {
	var p formPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, errBadForm
	}
	p.Form = strings.TrimSpace(p.Form)
	if err := formValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "form" {
					return p, errUnknownForm
				}
			}
		}
		return p, errBadForm
	}
	p.Name = orDefault(p.Name)
	p.Phone = orDefault(p.Phone)
	p.Topic = orDefault(p.Topic)
	p.Time = orDefault(p.Time)
	return p, nil
}

func orDefault(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return textNotSpecified
	}
	return v
}

// providedPhone returns the phone unless it is the placeholder.
func providedPhone(p formPayload) string {
	if p.Phone == textNotSpecified {
		return ""
	}
	return p.Phone
}

func usernameOrPlaceholder(u tg.User) string {
	if u.Username == "" {
		return textNoUsername
	}
	return u.Username
}

func (b *Bot) handleWebAppData(ctx context.Context, upd tg.Update) error {
	b.logger.Info("web app data received", "user_id", upd.From.ID)
	b.logger.Debug("raw web app data", "data", upd.WebAppData)

	form, err := parseForm(upd.WebAppData)
	switch {
	case errors.Is(err, errUnknownForm):
		b.logger.Warn("unknown form type", "user_id", upd.From.ID, "form", form.Form)
		_, err = b.tg.SendText(ctx, upd.ChatID, textUnknownForm)
		return err
	case err != nil:
		b.logger.Warn("bad web app data", "user_id", upd.From.ID, "error", err)
		_, err = b.tg.SendText(ctx, upd.ChatID, textBadFormData)
		return err
	}

	// Users who open the Web App without /start still get a row.
	if _, err := b.users.Register(ctx, upd.ChatID, upd.From); err != nil {
		return err
	}

	if form.Form == formCallback {
		return b.handleCallbackForm(ctx, upd, form)
	}
	return b.handleProblemForm(ctx, upd, form)
}

// handleCallbackForm forwards the request straight to the admin chat.
func (b *Bot) handleCallbackForm(ctx context.Context, upd tg.Update, form formPayload) error {
	report := callbackReport(form.Name, form.Phone, form.Time, form.Topic, usernameOrPlaceholder(upd.From))
	msgID, err := b.tg.SendText(ctx, b.cfg.AdminChatID, report, tg.WithMarkup(b.kb.remind))
	if err != nil {
		return err
	}
	if _, err := b.reminders.Save(ctx, b.cfg.AdminChatID, msgID, repo.CategoryCallback, upd.From.Username); err != nil {
		return err
	}

	if _, err := b.tg.SendText(ctx, upd.ChatID, callbackThanks(upd.From.FirstName)); err != nil {
		return err
	}
	if err := b.users.MarkClient(ctx, upd.From.ID, providedPhone(form)); err != nil {
		return err
	}
	b.logger.Info("callback request forwarded", "user_id", upd.From.ID, "message_id", msgID)
	return nil
}

// handleProblemForm parks the report until the user sends an attachment.
func (b *Bot) handleProblemForm(ctx context.Context, upd tg.Update, form formPayload) error {
	sub, err := b.pending.Begin(ctx, pending.Submission{
		ChatID:   upd.ChatID,
		UserID:   upd.From.ID,
		Username: upd.From.Username,
		Name:     form.Name,
		Phone:    form.Phone,
		Problem:  form.Topic,
	})
	if err != nil {
		return err
	}
	b.metrics.PendingEvent("started")
	b.logger.Info("problem request started", "user_id", upd.From.ID, "submission_id", sub.ID)

	if _, err := b.tg.SendText(ctx, upd.ChatID, problemSaved(sub.Name, sub.Phone, sub.Problem), tg.WithMarkdown()); err != nil {
		return err
	}
	return b.users.MarkClient(ctx, upd.From.ID, providedPhone(form))
}

// handleAttachment finalises the pending problem report with the first file.
func (b *Bot) handleAttachment(ctx context.Context, upd tg.Update) error {
	sub, err := b.pending.Attach(ctx, upd.ChatID, *upd.Attachment)
	if errors.Is(err, pending.ErrNoActiveRequest) {
		b.logger.Warn("attachment without active request", "user_id", upd.From.ID)
		b.metrics.PendingEvent("rejected")
		_, err = b.tg.SendText(ctx, upd.ChatID, textNoActiveRequest)
		return err
	}
	if err != nil {
		return err
	}

	report := problemReport(sub.Name, sub.Phone, sub.Problem, usernameOrPlaceholder(upd.From))
	msgID, err := b.tg.SendText(ctx, b.cfg.AdminChatID, report, tg.WithMarkup(b.kb.remind))
	if err != nil {
		return err
	}
	if _, err := b.reminders.Save(ctx, b.cfg.AdminChatID, msgID, repo.CategoryProblem, upd.From.Username); err != nil {
		return err
	}

	for _, f := range sub.Files {
		if _, err := b.tg.SendAttachment(ctx, b.cfg.AdminChatID, f); err != nil {
			b.logger.Error("forward attachment", "kind", f.Kind, "error", err)
			b.metrics.Error("bot")
		}
	}
	b.metrics.PendingEvent("finalised")

	_, err = b.tg.SendText(ctx, upd.ChatID, textRequestSent)
	b.logger.Info("problem request finalised", "user_id", upd.From.ID, "submission_id", sub.ID, "files", len(sub.Files))
	return err
}
