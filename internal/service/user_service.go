package service

import (
	"context"
	"strings"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"github.com/samber/lo"
)

// UserService resolves and searches user records.
type UserService struct {
	store    *repository.Store
	maxItems int
	log      *observability.ServiceLogger
}

// NewUserService creates a user service. maxItems caps search results.
func NewUserService(store *repository.Store, maxItems int) *UserService {
	return &UserService{store: store, maxItems: maxItems, log: observability.NewServiceLogger("user")}
}

// GetByHandle returns the user with handle, ignoring case.
func (s *UserService) GetByHandle(ctx context.Context, handle string) (*models.UserView, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, models.NewValidationError("Handle is required")
	}
	user, err := s.store.Reader().Users.GetByHandle(ctx, handle)
	if err != nil {
		s.log.LogFailure(ctx, "get_by_handle", err, expectedFailure(err))
		return nil, err
	}
	view := user.ToView()
	return &view, nil
}

// Search returns users whose handle or display name contains query, ignoring
// case. limit <= 0 or above the service cap uses the cap.
func (s *UserService) Search(ctx context.Context, query string, limit int) ([]models.UserView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if limit <= 0 || (s.maxItems > 0 && limit > s.maxItems) {
		limit = s.maxItems
	}
	users, err := s.store.Reader().Users.Search(ctx, query, limit)
	if err != nil {
		s.log.LogFailure(ctx, "search", err, expectedFailure(err))
		return nil, err
	}
	return lo.Map(users, func(u models.User, _ int) models.UserView { return u.ToView() }), nil
}
