// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests. Posts it creates are
// root posts; replies and engagement go through the service layer so the
// counters stay consistent.
type Factory struct {
	db      *gorm.DB
	maxDays int
	rnd     *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
// maxDays spreads created_at into the past; zero keeps created_at at now.
func NewFactory(db *gorm.DB, maxDays int) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, maxDays: maxDays, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// BuildUser constructs a sample user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		Handle:      strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(1000, 9999)),
		DisplayName: gofakeit.Name(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a root post for author without persisting it.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		AuthorID: author.ID,
		Content:  gofakeit.Sentence(12),
	}
	if f.maxDays > 0 {
		daysBack := f.rnd.Intn(f.maxDays)
		minsBack := f.rnd.Intn(24 * 60)
		post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(minsBack)*time.Minute)
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample root post for the given user.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Create(&posts).Error
}

// Content returns a short random post body.
func (f *Factory) Content() string {
	return gofakeit.Sentence(8)
}
