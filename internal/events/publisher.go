// Package events publishes and consumes activity events over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"warbler/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Type names a committed mutation.
type Type string

const (
	TypePostCreated Type = "post.created"
	TypeReply       Type = "post.replied"
	TypeDelete      Type = "post.deleted"
	TypeLike        Type = "post.liked"
	TypeUnlike      Type = "post.unliked"
	TypeRetweet     Type = "post.retweeted"
	TypeUnretweet   Type = "post.unretweeted"
	TypeFollow      Type = "user.followed"
	TypeUnfollow    Type = "user.unfollowed"
)

// Channel patterns for subscribers.
const (
	PostPattern = "activity:post:*"
	UserPattern = "activity:user:*"
)

// Event is the payload published after a mutation commits.
type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	ActorID      uint      `json:"actor_id"`
	PostID       uint      `json:"post_id,omitempty"`
	TargetUserID uint      `json:"target_user_id,omitempty"`
	At           time.Time `json:"at"`
}

// PostChannel returns the channel carrying events about a post.
func PostChannel(postID uint) string {
	return fmt.Sprintf("activity:post:%d", postID)
}

// UserChannel returns the channel carrying events addressed to a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("activity:user:%d", userID)
}

// Publisher provides helpers to publish activity events into Redis channels
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher using the provided Redis client.
// A nil client turns every call into a no-op.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish sends ev to its post channel and, when set, its target user channel.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var channels []string
	if ev.PostID != 0 {
		channels = append(channels, PostChannel(ev.PostID))
	}
	if ev.TargetUserID != 0 {
		channels = append(channels, UserChannel(ev.TargetUserID))
	}
	for _, channel := range channels {
		if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			observability.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
			return fmt.Errorf("publish %s: %w", channel, err)
		}
	}
	observability.EventsPublished.WithLabelValues(string(ev.Type), "ok").Inc()
	return nil
}

// Subscribe listens on the given channel patterns and calls onEvent for each
// decodable message until ctx is cancelled.
func (p *Publisher) Subscribe(ctx context.Context, onEvent func(Event), patterns ...string) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	if len(patterns) == 0 {
		patterns = []string{PostPattern, UserPattern}
	}
	sub := p.rdb.PSubscribe(ctx, patterns...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					observability.Logger.Warn("dropping malformed activity event",
						slog.String("channel", msg.Channel), slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in activity subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
