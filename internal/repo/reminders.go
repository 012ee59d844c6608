package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const pgReminderColumns = `id, chat_id, message_id, category, username, created_at`

// GetReminder returns the reminder for messageID or ErrNotFound.
func (r *PostgresRepository) GetReminder(ctx context.Context, messageID int) (*Reminder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgReminderColumns+` FROM reminders WHERE message_id = $1`, messageID)
	rem, err := scanPgReminder(row)
	if err != nil {
		return nil, fmt.Errorf("get reminder %d: %w", messageID, notFound(err))
	}
	return rem, nil
}

// InsertReminder inserts rem or returns the row already holding its message id.
// The insert and the fallback read are separate statements so the read sees a
// row committed by a concurrent writer.
func (r *PostgresRepository) InsertReminder(ctx context.Context, rem Reminder) (*Reminder, bool, error) {
	const insert = `
INSERT INTO reminders (chat_id, message_id, category, username, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, NOW()))
ON CONFLICT (message_id) DO NOTHING
RETURNING ` + pgReminderColumns + `;
`
	var createdAt any
	if !rem.CreatedAt.IsZero() {
		createdAt = rem.CreatedAt
	}
	row := r.pool.QueryRow(ctx, insert, rem.ChatID, rem.MessageID, string(rem.Category), rem.Username, createdAt)
	stored, err := scanPgReminder(row)
	switch {
	case err == nil:
		return stored, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, fmt.Errorf("insert reminder: %w", err)
	}

	existing, err := r.GetReminder(ctx, rem.MessageID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// DeleteReminder removes the reminder for messageID. Missing rows are not an error.
func (r *PostgresRepository) DeleteReminder(ctx context.Context, messageID int) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM reminders WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("delete reminder %d: %w", messageID, err)
	}
	return nil
}

// LatestReminder returns the most recently created reminder of a chat or ErrNotFound.
func (r *PostgresRepository) LatestReminder(ctx context.Context, chatID int64) (*Reminder, error) {
	const q = `
SELECT ` + pgReminderColumns + `
FROM reminders
WHERE chat_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1;
`
	rem, err := scanPgReminder(r.pool.QueryRow(ctx, q, chatID))
	if err != nil {
		return nil, fmt.Errorf("latest reminder for chat %d: %w", chatID, notFound(err))
	}
	return rem, nil
}

func scanPgReminder(row pgx.Row) (*Reminder, error) {
	var (
		rem       Reminder
		messageID int64
		category  string
	)
	if err := row.Scan(&rem.ID, &rem.ChatID, &messageID, &category, &rem.Username, &rem.CreatedAt); err != nil {
		return nil, err
	}
	rem.MessageID = int(messageID)
	rem.Category = ReminderCategory(category)
	return &rem, nil
}
