package repository

import (
	"context"

	"warbler/internal/database"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one connection or transaction.
type Store struct {
	db    *gorm.DB
	Edges EdgeRepository
	Posts PostRepository
	Users UserRepository
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		Edges: NewEdgeRepository(db),
		Posts: NewPostRepository(db),
		Users: NewUserRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single transaction. Any
// error returned by fn rolls back every write made through the Store.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	return database.Classify(err)
}

// Reader returns a Store for read-only work, backed by the read replica when
// one is configured.
func (s *Store) Reader() *Store {
	db := readDB(s.db)
	if db == s.db {
		return s
	}
	return NewStore(db)
}
