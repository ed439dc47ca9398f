package service

import (
	"context"
	"log/slog"

	"warbler/internal/events"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// EventSubscriber delivers activity events until its context ends.
type EventSubscriber interface {
	Subscribe(ctx context.Context, onEvent func(events.Event), patterns ...string) error
}

// Reconciler recomputes denormalized post counters from the edge set, which
// is the source of truth whenever the two disagree.
type Reconciler struct {
	store *repository.Store
	log   *observability.ServiceLogger
}

// NewReconciler creates a counter reconciler.
func NewReconciler(store *repository.Store) *Reconciler {
	return &Reconciler{store: store, log: observability.NewServiceLogger("reconcile")}
}

// ReconcilePost recounts one post and reports whether its stored counters drifted.
func (r *Reconciler) ReconcilePost(ctx context.Context, postID uint) (bool, error) {
	var drifted bool
	err := r.store.Transaction(ctx, func(tx *repository.Store) error {
		// Recount must start after concurrent counter writers on this row
		// have committed, or its edge count misses their edges.
		before, err := tx.Posts.GetForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if err := tx.Posts.Recount(ctx, postID); err != nil {
			return err
		}
		after, err := tx.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		drifted = before.LikeCount != after.LikeCount ||
			before.RetweetCount != after.RetweetCount ||
			before.ReplyCount != after.ReplyCount
		if drifted {
			observability.Logger.WarnContext(ctx, "post counters drifted",
				slog.Uint64("post_id", uint64(postID)),
				slog.Int64("like_count_before", before.LikeCount),
				slog.Int64("like_count_after", after.LikeCount),
				slog.Int64("retweet_count_before", before.RetweetCount),
				slog.Int64("retweet_count_after", after.RetweetCount),
				slog.Int64("reply_count_before", before.ReplyCount),
				slog.Int64("reply_count_after", after.ReplyCount),
			)
		}
		return nil
	})
	if err != nil {
		r.log.LogFailure(ctx, "reconcile_post", err, expectedFailure(err))
		return false, err
	}
	return drifted, nil
}

// ReconcileAll walks every post in id order and returns the ids that drifted.
func (r *Reconciler) ReconcileAll(ctx context.Context, batch int) ([]uint, error) {
	if batch <= 0 {
		batch = 500
	}
	var drifted []uint
	var after uint
	for {
		ids, err := r.store.Posts.ListIDsAfter(ctx, after, batch)
		if err != nil {
			return drifted, err
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return drifted, models.NewTransientError(err)
			}
			changed, err := r.ReconcilePost(ctx, id)
			if err != nil {
				return drifted, err
			}
			if changed {
				observability.ReconcileDrift.WithLabelValues("sweep").Inc()
				drifted = append(drifted, id)
			}
		}
		after = ids[len(ids)-1]
	}
	r.log.LogCall(ctx, "reconcile_all", "drifted", len(drifted))
	return drifted, nil
}

// Watch reconciles every post touched by an activity event until ctx ends.
// A deleted reply also reconciles its parent.
func (r *Reconciler) Watch(ctx context.Context, sub EventSubscriber) error {
	return sub.Subscribe(ctx, func(ev events.Event) {
		r.handle(ctx, ev)
	}, events.PostPattern)
}

func (r *Reconciler) handle(ctx context.Context, ev events.Event) {
	if ev.PostID == 0 {
		return
	}
	targets := []uint{ev.PostID}
	if ev.Type == events.TypeDelete {
		if post, err := r.store.Posts.GetByID(ctx, ev.PostID); err == nil && post.ParentPostID != nil {
			targets = append(targets, *post.ParentPostID)
		}
	}
	for _, id := range targets {
		changed, err := r.ReconcilePost(ctx, id)
		if err != nil {
			continue
		}
		if changed {
			observability.ReconcileDrift.WithLabelValues("watch").Inc()
		}
	}
}
