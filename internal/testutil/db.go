// Package testutil provides a throwaway sqlite database and fixtures for
// integration tests.
package testutil

import (
	"path/filepath"
	"testing"

	"warbler/internal/database"
	"warbler/internal/models"
	"warbler/internal/seed"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated sqlite database in a temp dir. The pool is
// capped at one connection so concurrent callers serialize on it.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "warbler_test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: database.NewGormLogger().LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Fixtures creates users and root posts for tests.
type Fixtures struct {
	t       testing.TB
	factory *seed.Factory
	db      *gorm.DB
}

// NewFixtures binds fixture helpers to db.
func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, factory: seed.NewFactory(db, 0), db: db}
}

// User persists a user with the given handle.
func (f *Fixtures) User(handle string) *models.User {
	f.t.Helper()
	u, err := f.factory.CreateUser(func(u *models.User) { u.Handle = handle })
	require.NoError(f.t, err)
	return u
}

// Post persists a root post authored by author.
func (f *Fixtures) Post(author *models.User, content string) *models.Post {
	f.t.Helper()
	p, err := f.factory.CreatePost(author, func(p *models.Post) { p.Content = content })
	require.NoError(f.t, err)
	return p
}

// Reload fetches the current row for a post.
func (f *Fixtures) Reload(post *models.Post) *models.Post {
	f.t.Helper()
	var fresh models.Post
	require.NoError(f.t, f.db.First(&fresh, post.ID).Error)
	return &fresh
}

// ReloadUser fetches the current row for a user.
func (f *Fixtures) ReloadUser(user *models.User) *models.User {
	f.t.Helper()
	var fresh models.User
	require.NoError(f.t, f.db.First(&fresh, user.ID).Error)
	return &fresh
}

// CountEdges returns the number of edges of kind pointing at object.
func (f *Fixtures) CountEdges(kind models.EdgeKind, objectID uint) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&models.Edge{}).Where("kind = ? AND object_id = ?", kind, objectID).Count(&n).Error)
	return n
}
