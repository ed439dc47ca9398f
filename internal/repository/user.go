package repository

import (
	"context"
	"strings"

	"warbler/internal/database"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines the interface for the user records the core references.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByHandle(ctx context.Context, handle string) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	AdjustFollowCounts(ctx context.Context, followerID, targetID uint, delta int) error
}

// userRepository implements UserRepository
type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return database.Classify(err)
	}
	r.log.LogMutation(ctx, "create", "user_id", user.ID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, lookupError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, database.Classify(err)
	}
	return users, nil
}

// GetByHandle looks a user up by handle, ignoring case.
func (r *userRepository) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(handle) = ?", strings.ToLower(handle)).
		First(&user).Error
	if err != nil {
		return nil, lookupError(err, "User", handle)
	}
	return &user, nil
}

// Search matches a case-insensitive substring of the handle or display name.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	defer observability.TrackQuery("search", "users")()

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var users []models.User
	q := r.db.WithContext(ctx).
		Where(`LOWER(handle) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("handle ASC")
	if err := limitQuery(q, limit).Find(&users).Error; err != nil {
		return nil, database.Classify(err)
	}
	return users, nil
}

func countExpr(col string, delta int) interface{} {
	if delta > 0 {
		return gorm.Expr(col+" + ?", delta)
	}
	return gorm.Expr("CASE WHEN "+col+" >= ? THEN "+col+" - ? ELSE 0 END", -delta, -delta)
}

// AdjustFollowCounts moves following_count on the follower and follower_count
// on the target by delta, floored at zero.
func (r *userRepository) AdjustFollowCounts(ctx context.Context, followerID, targetID uint, delta int) error {
	if delta == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Where("id = ?", followerID).
		UpdateColumn("following_count", countExpr("following_count", delta)).Error; err != nil {
		r.log.LogError(ctx, err, "adjust_follow_counts")
		return database.Classify(err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", targetID).
		UpdateColumn("follower_count", countExpr("follower_count", delta)).Error; err != nil {
		r.log.LogError(ctx, err, "adjust_follow_counts")
		return database.Classify(err)
	}
	observability.RecordCounterAdjustment("following_count", delta)
	observability.RecordCounterAdjustment("follower_count", delta)
	return nil
}
