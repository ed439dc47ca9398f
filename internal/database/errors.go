package database

import (
	"errors"
	"strings"

	"warbler/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure on
// either supported dialect.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Classify converts a raw storage error into the application taxonomy.
// Errors that are already AppErrors pass through; unique violations become
// Conflict; everything else, timeouts and cancellation included, is Transient.
// Callers handle gorm.ErrRecordNotFound themselves before classifying.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if IsUniqueViolation(err) {
		return models.NewConflictError("Resource already exists")
	}
	return models.NewTransientError(err)
}
