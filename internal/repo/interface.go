package repo

import (
	"context"
	"io/fs"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Users
	GetUser(ctx context.Context, userID int64) (*User, error)
	RegisterUser(ctx context.Context, profile UserProfile) (*User, error)
	UpdateUserFields(ctx context.Context, userID int64, update UserUpdate) error
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)

	// Reminders
	GetReminder(ctx context.Context, messageID int) (*Reminder, error)
	// InsertReminder stores rem unless a row with the same message id exists,
	// in which case the existing row is returned with created=false.
	InsertReminder(ctx context.Context, rem Reminder) (stored *Reminder, created bool, err error)
	DeleteReminder(ctx context.Context, messageID int) error
	LatestReminder(ctx context.Context, chatID int64) (*Reminder, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*SQLiteRepository)(nil)
)
