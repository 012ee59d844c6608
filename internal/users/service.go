package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"support-bot/internal/repo"
	"support-bot/internal/tg"
)

// Store is the user subset of repo.Repository.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*repo.User, error)
	RegisterUser(ctx context.Context, profile repo.UserProfile) (*repo.User, error)
	UpdateUserFields(ctx context.Context, userID int64, update repo.UserUpdate) error
	ListUsers(ctx context.Context, filter repo.UserFilter) ([]repo.User, error)
}

// Service implements user registration and the listing queries used by exports.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "users"),
		now:    time.Now,
	}
}

// Register upserts the sender of a private chat. New users start as guests.
func (s *Service) Register(ctx context.Context, chatID int64, from tg.User) (*repo.User, error) {
	profile := repo.UserProfile{
		UserID:    from.ID,
		ChatID:    chatID,
		Username:  optional(from.Username),
		FirstName: optional(from.FirstName),
		LastName:  optional(from.LastName),
	}
	u, err := s.store.RegisterUser(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("register user %d: %w", from.ID, err)
	}
	s.logger.Debug("user registered", "user_id", u.UserID, "status", u.Status)
	return u, nil
}

// MarkClient promotes userID to client and stamps the interaction date.
// An empty phone leaves the stored number untouched.
func (s *Service) MarkClient(ctx context.Context, userID int64, phone string) error {
	status := repo.StatusClient
	now := s.now().UTC()
	update := repo.UserUpdate{
		Status:          &status,
		LastUpdatedDate: &now,
		PhoneNumber:     optional(phone),
	}
	if err := s.store.UpdateUserFields(ctx, userID, update); err != nil {
		return fmt.Errorf("mark client %d: %w", userID, err)
	}
	return nil
}

func (s *Service) All(ctx context.Context) ([]repo.User, error) {
	return s.store.ListUsers(ctx, repo.UserFilter{})
}

func (s *Service) ByStatus(ctx context.Context, status repo.UserStatus) ([]repo.User, error) {
	return s.store.ListUsers(ctx, repo.UserFilter{Status: &status})
}

// InactiveClients lists clients whose last interaction is older than days.
func (s *Service) InactiveClients(ctx context.Context, days int) ([]repo.User, error) {
	if days <= 0 {
		return nil, fmt.Errorf("inactive clients: days must be positive, got %d", days)
	}
	status := repo.StatusClient
	before := s.now().UTC().AddDate(0, 0, -days)
	return s.store.ListUsers(ctx, repo.UserFilter{Status: &status, UpdatedBefore: &before})
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
