package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"warbler/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil stays nil", nil, ""},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, models.CodeConflict},
		{"wrapped postgres unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), models.CodeConflict},
		{"sqlite unique violation", errors.New("UNIQUE constraint failed: edges.kind, edges.subject_id, edges.object_id"), models.CodeConflict},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, models.CodeConflict},
		{"other postgres error", &pgconn.PgError{Code: "40001"}, models.CodeTransient},
		{"deadline exceeded", context.DeadlineExceeded, models.CodeTransient},
		{"app error passes through", models.NewNotFoundError("Post", 1), models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.code, models.CodeOf(got))
		})
	}
}

func TestClassify_TransientKeepsCause(t *testing.T) {
	err := Classify(context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPersistentModels(t *testing.T) {
	assert.Len(t, PersistentModels(), 3)
}
