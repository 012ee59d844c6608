package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const pgUserColumns = `user_id, chat_id, username, first_name, last_name, phone_number, last_updated_date, status, created_at`

// GetUser returns the user with the platform id or ErrNotFound.
func (r *PostgresRepository) GetUser(ctx context.Context, userID int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanPgUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, notFound(err))
	}
	return u, nil
}

// RegisterUser stores the profile or refreshes the names of an existing user.
// Phone, status and last interaction are never touched here.
func (r *PostgresRepository) RegisterUser(ctx context.Context, profile UserProfile) (*User, error) {
	const q = `
INSERT INTO users (user_id, chat_id, username, first_name, last_name)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
    username = EXCLUDED.username,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name
RETURNING ` + pgUserColumns + `;
`
	row := r.pool.QueryRow(ctx, q,
		profile.UserID,
		profile.ChatID,
		profile.Username,
		profile.FirstName,
		profile.LastName,
	)
	u, err := scanPgUser(row)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return u, nil
}

// UpdateUserFields applies the non-nil fields of update.
func (r *PostgresRepository) UpdateUserFields(ctx context.Context, userID int64, update UserUpdate) error {
	if update.empty() {
		return nil
	}
	const q = `
UPDATE users SET
    phone_number = COALESCE($2, phone_number),
    status = COALESCE($3, status),
    last_updated_date = COALESCE($4::timestamptz, last_updated_date)
WHERE user_id = $1;
`
	ct, err := r.pool.Exec(ctx, q, userID, update.PhoneNumber, statusArg(update.Status), update.LastUpdatedDate)
	if err != nil {
		return fmt.Errorf("update user %d: %w", userID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// ListUsers returns users matching filter ordered by user id.
func (r *PostgresRepository) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UpdatedBefore != nil {
		args = append(args, *filter.UpdatedBefore)
		where = append(where, fmt.Sprintf("last_updated_date < $%d", len(args)))
	}

	q := `SELECT ` + pgUserColumns + ` FROM users`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY user_id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanPgUser(rows)
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

func scanPgUser(row pgx.Row) (*User, error) {
	var (
		u      User
		status string
	)
	if err := row.Scan(&u.UserID, &u.ChatID, &u.Username, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.LastUpdatedDate, &status, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Status = UserStatus(status)
	return &u, nil
}

func statusArg(s *UserStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
