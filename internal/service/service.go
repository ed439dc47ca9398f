// Package service implements the social graph, engagement ledger, thread
// graph and feed composition on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"warbler/internal/events"
	"warbler/internal/models"
	"warbler/internal/observability"
)

// DefaultPostMaxLength applies when no limit is configured.
const DefaultPostMaxLength = 280

// DefaultFeedMaxItems caps feeds, timelines and listings when no limit is configured.
const DefaultFeedMaxItems = 200

// EventPublisher publishes activity after a mutation commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// FollowingCache caches the set of ids a user follows.
type FollowingCache interface {
	Following(ctx context.Context, userID uint, load func(ctx context.Context) ([]uint, error)) ([]uint, error)
	Invalidate(ctx context.Context, userID uint)
}

// FlagEvaluator reports per-user feature flags.
type FlagEvaluator interface {
	Enabled(name string, userID uint) bool
}

// publish sends ev after commit. A failure is logged and never surfaces to
// the caller because the mutation is already durable.
func publish(ctx context.Context, pub EventPublisher, ev events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		observability.Logger.WarnContext(ctx, "activity event not published",
			slog.String("type", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// expectedFailure reports whether err is a domain outcome rather than a fault.
func expectedFailure(err error) bool {
	switch models.CodeOf(err) {
	case models.CodeNotFound, models.CodeConflict, models.CodeInvalidReference,
		models.CodeUnauthorized, models.CodeValidation:
		return true
	}
	return false
}

func validateContent(content string, maxLen int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Content is required")
	}
	if maxLen <= 0 {
		maxLen = DefaultPostMaxLength
	}
	if utf8.RuneCountInString(content) > maxLen {
		return "", models.NewValidationError("Content too long")
	}
	return content, nil
}

func requirePrincipal(userID uint) error {
	if userID == 0 {
		return models.NewInvalidReferenceError("a principal id is required")
	}
	return nil
}

func capLimit(limit, ceiling int) int {
	if ceiling <= 0 {
		ceiling = DefaultFeedMaxItems
	}
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}
