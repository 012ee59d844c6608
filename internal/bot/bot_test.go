package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"support-bot/internal/logging"
	"support-bot/internal/pending"
	"support-bot/internal/reminder"
	"support-bot/internal/repo"
	"support-bot/internal/schedule"
	"support-bot/internal/tg"
	"support-bot/internal/users"
	"support-bot/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminChat  int64 = -1001
	clientChat int64 = 555
)

type outText struct {
	ChatID int64
	ID     int
	Text   string
	Opts   tg.SendOptions
}

type outDoc struct {
	ChatID   int64
	Filename string
	Size     int
}

type fakeTG struct {
	mu          sync.Mutex
	next        int
	texts       []outText
	docs        []outDoc
	attachments []tg.Attachment
	albums      [][]tg.MediaItem
	deleted     []int
	answered    []string
	admins      map[int64]bool
	adminErr    error
}

func newFakeTG() *fakeTG {
	return &fakeTG{next: 100, admins: map[int64]bool{}}
}

func (f *fakeTG) id() int {
	f.next++
	return f.next
}

func (f *fakeTG) SendText(_ context.Context, chatID int64, text string, opts ...tg.SendOption) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.texts = append(f.texts, outText{ChatID: chatID, ID: id, Text: text, Opts: tg.ApplySendOptions(opts)})
	return id, nil
}

func (f *fakeTG) SendDocument(_ context.Context, chatID int64, filename string, data []byte, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, outDoc{ChatID: chatID, Filename: filename, Size: len(data)})
	return f.id(), nil
}

func (f *fakeTG) SendAttachment(_ context.Context, _ int64, a tg.Attachment) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments = append(f.attachments, a)
	return f.id(), nil
}

func (f *fakeTG) SendMediaGroup(_ context.Context, _ int64, items []tg.MediaItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.albums = append(f.albums, items)
	return nil
}

func (f *fakeTG) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTG) AnswerCallback(_ context.Context, callbackID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeTG) IsChatAdmin(_ context.Context, _ int64, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return false, f.adminErr
	}
	return f.admins[userID], nil
}

func (f *fakeTG) textsTo(chatID int64) []outText {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []outText
	for _, t := range f.texts {
		if t.ChatID == chatID {
			out = append(out, t)
		}
	}
	return out
}

type fakeJob struct {
	delay time.Duration
	fn    func()
}

func (j *fakeJob) ID() string        { return "job" }
func (j *fakeJob) FireAt() time.Time { return time.Time{}.Add(j.delay) }
func (j *fakeJob) Cancel() error     { return nil }

type fakeScheduler struct{ jobs []*fakeJob }

func (s *fakeScheduler) After(_ string, delay time.Duration, fn func()) (schedule.Handle, error) {
	j := &fakeJob{delay: delay, fn: fn}
	s.jobs = append(s.jobs, j)
	return j, nil
}

type harness struct {
	bot       *Bot
	tg        *fakeTG
	store     *repo.SQLiteRepository
	buffer    *pending.Buffer
	scheduler *fakeScheduler
}

func newHarness(t *testing.T) harness {
	t.Helper()
	ctx := context.Background()
	store, err := repo.NewSQLite(ctx, filepath.Join(t.TempDir(), "bot.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.RunMigrations(ctx, migrations.Files))

	h := harness{
		tg:        newFakeTG(),
		store:     store,
		buffer:    pending.NewBuffer(pending.NewMemoryStore(0)),
		scheduler: &fakeScheduler{},
	}
	engine, err := reminder.New(reminder.Config{Store: store, Messenger: h.tg, Scheduler: h.scheduler}, logging.Discard())
	require.NoError(t, err)

	projects := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projects, "calc_plaque"), 0o755))
	for _, name := range []string{"2.jpg", "1.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(projects, "calc_plaque", name), []byte("x"), 0o644))
	}

	h.bot, err = New(Config{
		AdminChatID:  adminChat,
		InactiveDays: 7,
		ProjectsDir:  projects,
		CallbackURL:  "https://example.test/callback.html",
		OrderURL:     "https://example.test/order.html",
	}, Deps{
		Messenger: h.tg,
		Users:     users.NewService(store, logging.Discard()),
		Reminders: engine,
		Pending:   h.buffer,
	}, logging.Discard())
	require.NoError(t, err)
	return h
}

var client = tg.User{ID: clientChat, Username: "ivan", FirstName: "Иван"}

func private(upd tg.Update) tg.Update {
	upd.ChatID = clientChat
	upd.ChatType = "private"
	upd.From = client
	return upd
}

func group(upd tg.Update, from int64) tg.Update {
	upd.ChatID = adminChat
	upd.ChatType = "supergroup"
	upd.From = tg.User{ID: from, Username: "operator"}
	return upd
}

const problemForm = `{"form":"problem","name":"Иван","phone":"+70000000000","topic":"труба течёт"}`

func TestProblemReportEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 1, WebAppData: problemForm}))

	sub, err := h.buffer.Get(ctx, clientChat)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "труба течёт", sub.Problem)
	assert.Empty(t, h.tg.textsTo(adminChat))

	replies := h.tg.textsTo(clientChat)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Заявка сохранена")
	assert.True(t, replies[0].Opts.Markdown)

	photo := tg.Attachment{Kind: tg.AttachmentPhoto, FileID: "photo-1"}
	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 2, Attachment: &photo}))

	sub, err = h.buffer.Get(ctx, clientChat)
	require.NoError(t, err)
	assert.Nil(t, sub)

	reports := h.tg.textsTo(adminChat)
	require.Len(t, reports, 1)
	for _, want := range []string{"Иван", "+70000000000", "труба течёт", "@ivan"} {
		assert.Contains(t, reports[0].Text, want)
	}
	_, isKeyboard := reports[0].Opts.Markup.(tg.ReplyKeyboard)
	assert.True(t, isKeyboard)
	assert.Equal(t, []tg.Attachment{photo}, h.tg.attachments)

	rem, err := h.store.GetReminder(ctx, reports[0].ID)
	require.NoError(t, err)
	assert.Equal(t, repo.CategoryProblem, rem.Category)
	assert.Equal(t, adminChat, rem.ChatID)

	replies = h.tg.textsTo(clientChat)
	assert.Equal(t, textRequestSent, replies[len(replies)-1].Text)

	u, err := h.store.GetUser(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusClient, u.Status)

	// Only the first attachment is captured.
	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 3, Attachment: &photo}))
	assert.Len(t, h.tg.textsTo(adminChat), 1)
	replies = h.tg.textsTo(clientChat)
	assert.Equal(t, textNoActiveRequest, replies[len(replies)-1].Text)
}

func TestAttachmentWithoutRequest(t *testing.T) {
	h := newHarness(t)
	video := tg.Attachment{Kind: tg.AttachmentVideo, FileID: "v"}

	h.bot.ProcessUpdate(context.Background(), private(tg.Update{MessageID: 1, Attachment: &video}))

	replies := h.tg.textsTo(clientChat)
	require.Len(t, replies, 1)
	assert.Equal(t, textNoActiveRequest, replies[0].Text)
	assert.Empty(t, h.tg.textsTo(adminChat))
	assert.Empty(t, h.tg.attachments)
}

func TestCallbackForm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.bot.ProcessUpdate(ctx, private(tg.Update{
		MessageID:  1,
		WebAppData: `{"form":"callback","name":"иван","phone":"+71112223344","topic":"котёл","time":"после 18"}`,
	}))

	reports := h.tg.textsTo(adminChat)
	require.Len(t, reports, 1)
	assert.Contains(t, reports[0].Text, "ОБРАТНЫЙ ЗВОНОК от Иван")
	assert.Contains(t, reports[0].Text, `тема звонка: "Котёл"`)
	assert.Contains(t, reports[0].Text, "удобное время звонка: после 18")

	rem, err := h.store.GetReminder(ctx, reports[0].ID)
	require.NoError(t, err)
	assert.Equal(t, repo.CategoryCallback, rem.Category)

	replies := h.tg.textsTo(clientChat)
	require.Len(t, replies, 1)
	assert.Equal(t, callbackThanks("Иван"), replies[0].Text)

	u, err := h.store.GetUser(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusClient, u.Status)
	require.NotNil(t, u.PhoneNumber)
	assert.Equal(t, "+71112223344", *u.PhoneNumber)
}

func TestCallbackFormDefaults(t *testing.T) {
	h := newHarness(t)
	h.bot.ProcessUpdate(context.Background(), private(tg.Update{WebAppData: `{"form":"callback"}`}))

	reports := h.tg.textsTo(adminChat)
	require.Len(t, reports, 1)
	assert.Contains(t, reports[0].Text, "на номер телефона не указано")
}

func TestBadWebAppData(t *testing.T) {
	cases := map[string]string{
		`{"form":"survey"}`: textUnknownForm,
		`{"name":"x"}`:      textUnknownForm,
		`not json`:          textBadFormData,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			h := newHarness(t)
			h.bot.ProcessUpdate(context.Background(), private(tg.Update{WebAppData: raw}))

			replies := h.tg.textsTo(clientChat)
			require.Len(t, replies, 1)
			assert.Equal(t, want, replies[0].Text)
			assert.Empty(t, h.tg.textsTo(adminChat))
		})
	}
}

func TestReminderInstructionEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	photo := tg.Attachment{Kind: tg.AttachmentPhoto, FileID: "p"}
	h.bot.ProcessUpdate(ctx, private(tg.Update{WebAppData: problemForm}))
	h.bot.ProcessUpdate(ctx, private(tg.Update{Attachment: &photo}))
	report := h.tg.textsTo(adminChat)[0]

	h.bot.ProcessUpdate(ctx, group(tg.Update{MessageID: 900, Text: "hello"}, 42))
	assert.Empty(t, h.scheduler.jobs)
	assert.Len(t, h.tg.textsTo(adminChat), 1)

	h.bot.ProcessUpdate(ctx, group(tg.Update{MessageID: 901, Text: "20 минут"}, 42))
	require.Len(t, h.scheduler.jobs, 1)
	assert.Equal(t, 1200*time.Second, h.scheduler.jobs[0].delay)

	admin := h.tg.textsTo(adminChat)
	require.Len(t, admin, 2)
	ack := admin[1]
	assert.Equal(t, reminder.AckText, ack.Text)

	h.scheduler.jobs[0].fn()

	assert.ElementsMatch(t, []int{901, ack.ID}, h.tg.deleted)
	admin = h.tg.textsTo(adminChat)
	require.Len(t, admin, 3)
	assert.Equal(t, reminder.FireText("operator"), admin[2].Text)
	assert.Equal(t, report.ID, admin[2].Opts.ReplyTo)

	_, err := h.store.GetReminder(ctx, report.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestExportsRequireAdmin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.bot.ProcessUpdate(ctx, private(tg.Update{Command: "start", Text: "/start"}))

	h.bot.ProcessUpdate(ctx, group(tg.Update{Command: "all_users", Text: "/all_users"}, 7))
	assert.Empty(t, h.tg.docs)

	h.tg.admins[7] = true
	h.bot.ProcessUpdate(ctx, group(tg.Update{Command: "all_users", Text: "/all_users"}, 7))
	require.Len(t, h.tg.docs, 1)
	assert.Equal(t, "all_users.xlsx", h.tg.docs[0].Filename)
	assert.Positive(t, h.tg.docs[0].Size)

	h.bot.ProcessUpdate(ctx, group(tg.Update{Callback: &tg.Callback{ID: "cb1", Data: cbAllGuests}}, 7))
	require.Len(t, h.tg.docs, 2)
	assert.Equal(t, "guests.xlsx", h.tg.docs[1].Filename)
	assert.Equal(t, []string{"cb1"}, h.tg.answered)
}

func TestInactiveWithoutClients(t *testing.T) {
	h := newHarness(t)
	h.tg.admins[7] = true

	h.bot.ProcessUpdate(context.Background(), group(tg.Update{Command: "inactive", Text: "/inactive"}, 7))

	admin := h.tg.textsTo(adminChat)
	require.Len(t, admin, 1)
	assert.Equal(t, textNoClients, admin[0].Text)
	assert.Empty(t, h.tg.docs)

	require.NoError(t, h.bot.SendInactiveDigest(context.Background()))
	assert.Len(t, h.tg.textsTo(adminChat), 1)
}

func TestStartAndMenu(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 10, Command: "start", Text: "/start"}))
	replies := h.tg.textsTo(clientChat)
	require.Len(t, replies, 1)
	assert.True(t, strings.HasPrefix(replies[0].Text, "👋Добрый день, Иван!"))
	kb, ok := replies[0].Opts.Markup.(tg.ReplyKeyboard)
	require.True(t, ok)
	require.NotNil(t, kb.Keyboard[0][0].WebApp)
	assert.Equal(t, "https://example.test/callback.html", kb.Keyboard[0][0].WebApp.URL)

	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 11, Text: btnPrices}))
	replies = h.tg.textsTo(clientChat)
	require.Len(t, replies, 2)
	assert.Equal(t, textPrices, replies[1].Text)
	assert.Contains(t, h.tg.deleted, 11)

	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 12, Text: btnPipesCleaning}))
	require.Len(t, h.tg.albums, 1)
	album := h.tg.albums[0]
	require.Len(t, album, 2)
	assert.Equal(t, "1.jpg", filepath.Base(album[0].Path))
	assert.Equal(t, captionPipesCleaning, album[0].Caption)
	assert.Empty(t, album[1].Caption)

	// Portfolio folder without photos sends nothing.
	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 13, Text: btnWarmFloor}))
	assert.Len(t, h.tg.albums, 1)

	// Unknown private text is ignored.
	h.bot.ProcessUpdate(ctx, private(tg.Update{MessageID: 14, Text: "что-то"}))
	assert.Len(t, h.tg.textsTo(clientChat), 2)
}

func TestHandlerErrorRepliesGenerically(t *testing.T) {
	h := newHarness(t)
	h.tg.adminErr = errors.New("telegram down")

	h.bot.ProcessUpdate(context.Background(), group(tg.Update{Command: "clients", Text: "/clients"}, 7))

	admin := h.tg.textsTo(adminChat)
	require.Len(t, admin, 1)
	assert.Equal(t, textUnexpectedError, admin[0].Text)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Иван", capitalize("иВАН"))
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Не указано", capitalize(textNotSpecified))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, parts)

	parts = splitMessage(strings.Repeat("я", 25), 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("я", 5), parts[2])
}

func TestInactiveButtonFollowsConfiguredDays(t *testing.T) {
	kb := newKeyboards("https://example.com/cb", "https://example.com/order", 14)

	rows := kb.group.InlineKeyboard
	require.Len(t, rows, 4)
	assert.Equal(t, "Клиенты: Обратная связь 14 дней", rows[3][0].Text)
	require.NotNil(t, rows[3][0].CallbackData)
	assert.Equal(t, cbInactiveClients, *rows[3][0].CallbackData)
}
