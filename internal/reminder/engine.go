// Package reminder persists admin-notification correlation records and fires
// delayed follow-up notifications for them.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"support-bot/internal/metrics"
	"support-bot/internal/repo"
	"support-bot/internal/schedule"
	"support-bot/internal/tg"
)

const (
	AckText = "Напоминание установлено"

	defaultFireTimeout = 30 * time.Second
)

// ErrInvalidDelay is returned by Schedule for non-positive delays.
var ErrInvalidDelay = errors.New("reminder delay must be positive")

// Store is the persistence subset the engine needs.
type Store interface {
	GetReminder(ctx context.Context, messageID int) (*repo.Reminder, error)
	InsertReminder(ctx context.Context, rem repo.Reminder) (*repo.Reminder, bool, error)
	DeleteReminder(ctx context.Context, messageID int) error
	LatestReminder(ctx context.Context, chatID int64) (*repo.Reminder, error)
}

// Messenger sends and deletes chat messages.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts ...tg.SendOption) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Scheduler runs fn once after delay.
type Scheduler interface {
	After(name string, delay time.Duration, fn func()) (schedule.Handle, error)
}

// Config wires an Engine.
type Config struct {
	Store       Store
	Messenger   Messenger
	Scheduler   Scheduler
	Metrics     *metrics.Metrics
	FireTimeout time.Duration
}

// Scheduled describes a fire that has not run yet.
type Scheduled struct {
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	FireAt    time.Time `json:"fire_at"`
}

type pendingFire struct {
	seq    uint64
	chatID int64
	handle schedule.Handle
	// Admin chat messages removed when the fire runs or is cancelled.
	cleanup []int
}

// Engine owns reminder records and their scheduled fires.
type Engine struct {
	store       Store
	messenger   Messenger
	scheduler   Scheduler
	metrics     *metrics.Metrics
	logger      *slog.Logger
	fireTimeout time.Duration

	mu    sync.Mutex
	seq   uint64
	fires map[int]pendingFire
}

// New returns an Engine. Store, Messenger and Scheduler are required.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Store == nil || cfg.Messenger == nil || cfg.Scheduler == nil {
		return nil, errors.New("reminder engine requires store, messenger and scheduler")
	}
	timeout := cfg.FireTimeout
	if timeout <= 0 {
		timeout = defaultFireTimeout
	}
	return &Engine{
		store:       cfg.Store,
		messenger:   cfg.Messenger,
		scheduler:   cfg.Scheduler,
		metrics:     cfg.Metrics,
		logger:      logger.With("component", "reminder"),
		fireTimeout: timeout,
		fires:       make(map[int]pendingFire),
	}, nil
}

// Save records that messageID in chatID is awaiting follow-up. Saving the same
// message id twice returns the first record unchanged.
func (e *Engine) Save(ctx context.Context, chatID int64, messageID int, category repo.ReminderCategory, requester string) (*repo.Reminder, error) {
	rem := repo.Reminder{
		ChatID:    chatID,
		MessageID: messageID,
		Category:  category,
	}
	if requester != "" {
		rem.Username = &requester
	}
	stored, created, err := e.store.InsertReminder(ctx, rem)
	if err != nil {
		return nil, fmt.Errorf("save reminder %d: %w", messageID, err)
	}
	if created {
		e.metrics.Reminder("saved")
	} else {
		e.metrics.Reminder("duplicate")
	}
	return stored, nil
}

// FindLatest returns the newest record of chatID or repo.ErrNotFound.
func (e *Engine) FindLatest(ctx context.Context, chatID int64) (*repo.Reminder, error) {
	rem, err := e.store.LatestReminder(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("latest reminder for chat %d: %w", chatID, err)
	}
	return rem, nil
}

// Delete removes the record of messageID; a missing record is not an error.
func (e *Engine) Delete(ctx context.Context, messageID int) error {
	if err := e.store.DeleteReminder(ctx, messageID); err != nil {
		return fmt.Errorf("delete reminder %d: %w", messageID, err)
	}
	return nil
}

// Schedule arranges for onFire to run once after delay. A fire already
// scheduled for targetMessageID is cancelled and replaced.
func (e *Engine) Schedule(chatID int64, targetMessageID int, delay time.Duration, onFire func(ctx context.Context)) (schedule.Handle, error) {
	return e.schedule(chatID, targetMessageID, delay, nil, onFire)
}

// schedule is Schedule with messages to delete before onFire runs. A replaced
// fire hands its cleanup list to the new one.
func (e *Engine) schedule(chatID int64, targetMessageID int, delay time.Duration, cleanup []int, onFire func(ctx context.Context)) (schedule.Handle, error) {
	if delay <= 0 {
		return nil, ErrInvalidDelay
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	seq := e.seq
	name := fmt.Sprintf("reminder-%d-%d", targetMessageID, seq)
	handle, err := e.scheduler.After(name, delay, func() {
		claimed, ok := e.claim(targetMessageID, seq)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), e.fireTimeout)
		defer cancel()
		e.deleteMessages(ctx, claimed.chatID, claimed.cleanup)
		onFire(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reminder %d: %w", targetMessageID, err)
	}

	var carried []int
	if prev, ok := e.fires[targetMessageID]; ok {
		if err := prev.handle.Cancel(); err != nil {
			e.logger.Warn("cancel replaced reminder", "message_id", targetMessageID, "error", err)
		}
		carried = prev.cleanup
		e.metrics.Reminder("replaced")
	}
	e.fires[targetMessageID] = pendingFire{
		seq:     seq,
		chatID:  chatID,
		handle:  handle,
		cleanup: append(append([]int(nil), carried...), cleanup...),
	}
	e.metrics.Reminder("scheduled")
	e.logger.Info("reminder scheduled", "chat_id", chatID, "message_id", targetMessageID, "delay", delay)
	return handle, nil
}

// claim removes the pending fire for messageID if it still belongs to seq.
// A replaced or cancelled fire loses the claim and does nothing.
func (e *Engine) claim(messageID int, seq uint64) (pendingFire, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, ok := e.fires[messageID]
	if !ok || cur.seq != seq {
		return pendingFire{}, false
	}
	delete(e.fires, messageID)
	return cur, true
}

func (e *Engine) deleteMessages(ctx context.Context, chatID int64, ids []int) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if err := e.messenger.DeleteMessage(ctx, chatID, id); err != nil {
			e.logger.Warn("delete reminder message", "chat_id", chatID, "deleted_id", id, "error", err)
		}
	}
}

// Cancel stops the scheduled fire for messageID. It reports whether a fire was pending.
func (e *Engine) Cancel(messageID int) bool {
	e.mu.Lock()
	cur, ok := e.fires[messageID]
	if ok {
		delete(e.fires, messageID)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}
	if err := cur.handle.Cancel(); err != nil {
		e.logger.Warn("cancel reminder", "message_id", messageID, "error", err)
	}
	if len(cur.cleanup) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.fireTimeout)
		e.deleteMessages(ctx, cur.chatID, cur.cleanup)
		cancel()
	}
	e.metrics.Reminder("cancelled")
	return true
}

// Scheduled lists fires that have not run, soonest first.
func (e *Engine) Scheduled() []Scheduled {
	e.mu.Lock()
	out := make([]Scheduled, 0, len(e.fires))
	for messageID, f := range e.fires {
		out = append(out, Scheduled{ChatID: f.chatID, MessageID: messageID, FireAt: f.handle.FireAt()})
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// Instruction is an operator's "N минут" message in the admin chat.
type Instruction struct {
	ChatID    int64
	MessageID int
	Text      string
	Operator  tg.User
}

// HandleInstruction schedules a follow-up for the latest record of the chat.
// It reports false without side effects when the text is not a duration or
// the chat has no record.
func (e *Engine) HandleInstruction(ctx context.Context, in Instruction) (bool, error) {
	minutes, ok := ParseMinutes(in.Text)
	if !ok {
		return false, nil
	}

	record, err := e.FindLatest(ctx, in.ChatID)
	if errors.Is(err, repo.ErrNotFound) {
		e.logger.Debug("no reminder record for instruction", "chat_id", in.ChatID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ackID, err := e.messenger.SendText(ctx, in.ChatID, AckText)
	if err != nil {
		return false, fmt.Errorf("send reminder ack: %w", err)
	}

	target := *record
	mention := in.Operator.Mention()
	fire := func(ctx context.Context) {
		e.fire(ctx, target, mention)
	}
	delay := time.Duration(minutes) * time.Minute
	if _, err := e.schedule(in.ChatID, target.MessageID, delay, []int{in.MessageID, ackID}, fire); err != nil {
		return false, err
	}
	return true, nil
}

// fire runs every step regardless of earlier failures and always deletes the record.
func (e *Engine) fire(ctx context.Context, record repo.Reminder, mention string) {
	log := e.logger.With("chat_id", record.ChatID, "message_id", record.MessageID)

	if _, err := e.messenger.SendText(ctx, record.ChatID, FireText(mention), tg.WithReplyTo(record.MessageID)); err != nil {
		log.Error("send reminder", "error", err)
		e.metrics.Error("reminder")
	}

	if err := e.Delete(ctx, record.MessageID); err != nil {
		log.Error("delete reminder record", "error", err)
		e.metrics.Error("reminder")
	}
	e.metrics.Reminder("fired")
	log.Info("reminder fired")
}

// FireText is the follow-up notification for mention.
func FireText(mention string) string {
	return fmt.Sprintf("⏰@%s, напоминаю об отложенном обращении клиента!", mention)
}

var minuteSuffixes = []string{"минут", "минуты", "минута"}

// ParseMinutes extracts a positive minute count from texts like "15 минут".
// Every digit in the text is concatenated; other characters are ignored.
func ParseMinutes(text string) (int, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	matched := false
	for _, suffix := range minuteSuffixes {
		if strings.HasSuffix(text, suffix) {
			matched = true
			break
		}
	}
	if !matched {
		return 0, false
	}

	n := 0
	digits := 0
	for _, r := range text {
		if r < '0' || r > '9' {
			continue
		}
		// Upper bound keeps minutes*time.Minute within int64.
		if n > 1_000_000 {
			return 0, false
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 || n <= 0 {
		return 0, false
	}
	return n, true
}
