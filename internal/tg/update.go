package tg

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AttachmentKind names the Bot API send method family of a file.
type AttachmentKind string

const (
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentDocument  AttachmentKind = "document"
	AttachmentVoice     AttachmentKind = "voice"
	AttachmentVideoNote AttachmentKind = "video_note"
)

// Attachment references a file already stored on Telegram servers.
type Attachment struct {
	Kind   AttachmentKind `json:"kind"`
	FileID string         `json:"file_id"`
}

// User is the sender of an update.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Mention returns the username, falling back to the first name.
func (u User) Mention() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// Callback is an inline keyboard press.
type Callback struct {
	ID   string
	Data string
}

// Update is the transport-neutral view of an inbound message or callback.
type Update struct {
	ID         int
	ChatID     int64
	ChatType   string
	MessageID  int
	From       User
	Text       string
	Command    string
	WebAppData string
	Attachment *Attachment
	Callback   *Callback
}

// IsGroup reports whether the update comes from a group or supergroup.
func (u Update) IsGroup() bool {
	return u.ChatType == "group" || u.ChatType == "supergroup"
}

// IsPrivate reports whether the update comes from a one-to-one chat.
func (u Update) IsPrivate() bool {
	return u.ChatType == "private"
}

// Kind is a short label used for logs and metrics.
func (u Update) Kind() string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.WebAppData != "":
		return "web_app_data"
	case u.Attachment != nil:
		return string(u.Attachment.Kind)
	case u.Command != "":
		return "command"
	case u.Text != "":
		return "text"
	default:
		return "other"
	}
}

// webAppEnvelope picks the fields tgbotapi v5.5 does not model.
type webAppEnvelope struct {
	Message *struct {
		WebAppData *struct {
			Data       string `json:"data"`
			ButtonText string `json:"button_text"`
		} `json:"web_app_data"`
	} `json:"message"`
}

// decodeUpdate converts one raw getUpdates element. ok is false for update
// kinds the bot does not handle.
func decodeUpdate(raw json.RawMessage) (upd Update, ok bool, err error) {
	var base tgbotapi.Update
	if err := json.Unmarshal(raw, &base); err != nil {
		return Update{}, false, fmt.Errorf("decode update: %w", err)
	}
	var ext webAppEnvelope
	if err := json.Unmarshal(raw, &ext); err != nil {
		return Update{}, false, fmt.Errorf("decode web app data: %w", err)
	}

	upd.ID = base.UpdateID
	switch {
	case base.Message != nil:
		fillFromMessage(&upd, base.Message)
		if ext.Message != nil && ext.Message.WebAppData != nil {
			upd.WebAppData = ext.Message.WebAppData.Data
		}
		return upd, true, nil
	case base.CallbackQuery != nil:
		cq := base.CallbackQuery
		upd.Callback = &Callback{ID: cq.ID, Data: cq.Data}
		upd.From = userFrom(cq.From)
		if cq.Message != nil {
			upd.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				upd.ChatID = cq.Message.Chat.ID
				upd.ChatType = cq.Message.Chat.Type
			}
		}
		return upd, true, nil
	default:
		return upd, false, nil
	}
}

func fillFromMessage(upd *Update, msg *tgbotapi.Message) {
	upd.MessageID = msg.MessageID
	if msg.Chat != nil {
		upd.ChatID = msg.Chat.ID
		upd.ChatType = msg.Chat.Type
	}
	upd.From = userFrom(msg.From)
	upd.Text = msg.Text
	if msg.IsCommand() {
		upd.Command = msg.Command()
	}
	upd.Attachment = attachmentFrom(msg)
}

func userFrom(u *tgbotapi.User) User {
	if u == nil {
		return User{}
	}
	return User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}

func attachmentFrom(msg *tgbotapi.Message) *Attachment {
	switch {
	case len(msg.Photo) > 0:
		// Sizes are ascending; the last one is the original.
		return &Attachment{Kind: AttachmentPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}
	case msg.Video != nil:
		return &Attachment{Kind: AttachmentVideo, FileID: msg.Video.FileID}
	case msg.Document != nil:
		return &Attachment{Kind: AttachmentDocument, FileID: msg.Document.FileID}
	case msg.Voice != nil:
		return &Attachment{Kind: AttachmentVoice, FileID: msg.Voice.FileID}
	case msg.VideoNote != nil:
		return &Attachment{Kind: AttachmentVideoNote, FileID: msg.VideoNote.FileID}
	default:
		return nil
	}
}
