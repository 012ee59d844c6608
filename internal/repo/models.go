package repo

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// UserStatus is the lifecycle state of a registered user.
type UserStatus string

const (
	StatusGuest  UserStatus = "Guest"
	StatusClient UserStatus = "Client"
)

// ReminderCategory tags which form produced the admin notification.
type ReminderCategory string

const (
	CategoryCallback ReminderCategory = "callback"
	CategoryProblem  ReminderCategory = "problem"
)

// User represents the users table row.
type User struct {
	UserID          int64
	ChatID          int64
	Username        *string
	FirstName       *string
	LastName        *string
	PhoneNumber     *string
	LastUpdatedDate *time.Time
	Status          UserStatus
	CreatedAt       time.Time
}

// DisplayName returns the first name, falling back to the username.
func (u User) DisplayName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}
	if u.Username != nil {
		return *u.Username
	}
	return ""
}

// UserProfile carries data used to register a user.
type UserProfile struct {
	UserID    int64
	ChatID    int64
	Username  *string
	FirstName *string
	LastName  *string
}

// UserUpdate lists the mutable user fields; nil fields are left untouched.
type UserUpdate struct {
	PhoneNumber     *string
	Status          *UserStatus
	LastUpdatedDate *time.Time
}

func (u UserUpdate) empty() bool {
	return u.PhoneNumber == nil && u.Status == nil && u.LastUpdatedDate == nil
}

// UserFilter narrows ListUsers. Zero value lists everyone.
type UserFilter struct {
	Status        *UserStatus
	UpdatedBefore *time.Time
}

// Reminder represents a row in the reminders table.
type Reminder struct {
	ID        int64
	ChatID    int64
	MessageID int
	Category  ReminderCategory
	Username  *string
	CreatedAt time.Time
}
