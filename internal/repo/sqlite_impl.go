package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// -- Users --

const sqliteUserColumns = `user_id, chat_id, username, first_name, last_name, phone_number, last_updated_date, status, created_at`

func (r *SQLiteRepository) GetUser(ctx context.Context, userID int64) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanSQLiteUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, sqliteNotFound(err))
	}
	return u, nil
}

func (r *SQLiteRepository) RegisterUser(ctx context.Context, profile UserProfile) (*User, error) {
	const q = `
INSERT INTO users (user_id, chat_id, username, first_name, last_name, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    username = excluded.username,
    first_name = excluded.first_name,
    last_name = excluded.last_name
RETURNING ` + sqliteUserColumns + `;
`
	row := r.db.QueryRowContext(ctx, q,
		profile.UserID,
		profile.ChatID,
		profile.Username,
		profile.FirstName,
		profile.LastName,
		toMillis(r.now()),
	)
	u, err := scanSQLiteUser(row)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUserFields(ctx context.Context, userID int64, update UserUpdate) error {
	if update.empty() {
		return nil
	}
	const q = `
UPDATE users SET
    phone_number = COALESCE(?, phone_number),
    status = COALESCE(?, status),
    last_updated_date = COALESCE(?, last_updated_date)
WHERE user_id = ?;
`
	res, err := r.db.ExecContext(ctx, q, update.PhoneNumber, statusArg(update.Status), nullMillis(update.LastUpdatedDate), userID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %d: %w", userID, err)
	}
	if n == 0 {
		return fmt.Errorf("update user %d: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.UpdatedBefore != nil {
		where = append(where, "last_updated_date < ?")
		args = append(args, toMillis(*filter.UpdatedBefore))
	}

	q := `SELECT ` + sqliteUserColumns + ` FROM users`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// -- Reminders --

const sqliteReminderColumns = `id, chat_id, message_id, category, username, created_at`

func (r *SQLiteRepository) GetReminder(ctx context.Context, messageID int) (*Reminder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteReminderColumns+` FROM reminders WHERE message_id = ?`, messageID)
	rem, err := scanSQLiteReminder(row)
	if err != nil {
		return nil, fmt.Errorf("get reminder %d: %w", messageID, sqliteNotFound(err))
	}
	return rem, nil
}

func (r *SQLiteRepository) InsertReminder(ctx context.Context, rem Reminder) (*Reminder, bool, error) {
	const insert = `
INSERT INTO reminders (chat_id, message_id, category, username, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (message_id) DO NOTHING
RETURNING ` + sqliteReminderColumns + `;
`
	createdAt := rem.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	row := r.db.QueryRowContext(ctx, insert, rem.ChatID, rem.MessageID, string(rem.Category), rem.Username, toMillis(createdAt))
	stored, err := scanSQLiteReminder(row)
	switch {
	case err == nil:
		return stored, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("insert reminder: %w", err)
	}

	existing, err := r.GetReminder(ctx, rem.MessageID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, messageID int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("delete reminder %d: %w", messageID, err)
	}
	return nil
}

func (r *SQLiteRepository) LatestReminder(ctx context.Context, chatID int64) (*Reminder, error) {
	const q = `
SELECT ` + sqliteReminderColumns + `
FROM reminders
WHERE chat_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1;
`
	rem, err := scanSQLiteReminder(r.db.QueryRowContext(ctx, q, chatID))
	if err != nil {
		return nil, fmt.Errorf("latest reminder for chat %d: %w", chatID, sqliteNotFound(err))
	}
	return rem, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*User, error) {
	var (
		u         User
		updated   sql.NullInt64
		status    string
		createdAt int64
	)
	if err := row.Scan(&u.UserID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.PhoneNumber, &updated, &status, &createdAt); err != nil {
		return nil, err
	}
	if updated.Valid {
		t := fromMillis(updated.Int64)
		u.LastUpdatedDate = &t
	}
	u.Status = UserStatus(status)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

func scanSQLiteReminder(row rowScanner) (*Reminder, error) {
	var (
		rem       Reminder
		category  string
		createdAt int64
	)
	if err := row.Scan(&rem.ID, &rem.ChatID, &rem.MessageID, &category, &rem.Username, &createdAt); err != nil {
		return nil, err
	}
	rem.Category = ReminderCategory(category)
	rem.CreatedAt = fromMillis(createdAt)
	return &rem, nil
}

func sqliteNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
