package service

import (
	"context"

	"warbler/internal/events"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// FollowService manages the follow graph and the follower/following counters.
type FollowService struct {
	store     *repository.Store
	following FollowingCache
	events    EventPublisher
	maxItems  int
	log       *observability.ServiceLogger
}

// NewFollowService creates the follow graph service. following may be nil.
func NewFollowService(store *repository.Store, following FollowingCache, pub EventPublisher, maxItems int) *FollowService {
	return &FollowService{
		store:     store,
		following: following,
		events:    pub,
		maxItems:  maxItems,
		log:       observability.NewServiceLogger("follow"),
	}
}

// Follow makes followerID follow targetID. Following twice returns the
// existing relation; following yourself is an InvalidReference.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID uint) (*models.FollowState, error) {
	if err := requirePrincipal(followerID); err != nil {
		return nil, err
	}
	if followerID == targetID {
		return nil, models.NewInvalidReferenceError("users cannot follow themselves")
	}

	state := &models.FollowState{FollowerID: followerID, TargetID: targetID, Active: true}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.GetByID(ctx, targetID); err != nil {
			return err
		}
		edge, err := tx.Edges.AddEdge(ctx, followerID, targetID, models.EdgeFollow)
		switch {
		case err == nil:
			state.Created = true
			state.Since = edge.CreatedAt
			return tx.Users.AdjustFollowCounts(ctx, followerID, targetID, 1)
		case models.IsConflict(err):
			existing, err := tx.Edges.Get(ctx, followerID, targetID, models.EdgeFollow)
			if err != nil {
				return err
			}
			state.Since = existing.CreatedAt
			return nil
		default:
			return err
		}
	})
	if err != nil {
		s.log.LogFailure(ctx, "follow", err, expectedFailure(err))
		return nil, err
	}

	if state.Created {
		s.invalidate(ctx, followerID)
		s.log.LogCall(ctx, "follow", "follower_id", followerID, "target_id", targetID)
		publish(ctx, s.events, events.Event{Type: events.TypeFollow, ActorID: followerID, TargetUserID: targetID})
	}
	return state, nil
}

// Unfollow removes the relation. NotFound when followerID does not follow targetID.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID uint) (*models.FollowState, error) {
	if err := requirePrincipal(followerID); err != nil {
		return nil, err
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Edges.RemoveEdge(ctx, followerID, targetID, models.EdgeFollow); err != nil {
			return err
		}
		return tx.Users.AdjustFollowCounts(ctx, followerID, targetID, -1)
	})
	if err != nil {
		s.log.LogFailure(ctx, "unfollow", err, expectedFailure(err))
		return nil, err
	}

	s.invalidate(ctx, followerID)
	s.log.LogCall(ctx, "unfollow", "follower_id", followerID, "target_id", targetID)
	publish(ctx, s.events, events.Event{Type: events.TypeUnfollow, ActorID: followerID, TargetUserID: targetID})
	return &models.FollowState{FollowerID: followerID, TargetID: targetID}, nil
}

func (s *FollowService) invalidate(ctx context.Context, userID uint) {
	if s.following != nil {
		s.following.Invalidate(ctx, userID)
	}
}

// IsFollowing reports whether followerID follows targetID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID uint) (bool, error) {
	_, err := s.store.Edges.Get(ctx, followerID, targetID, models.EdgeFollow)
	if models.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Followers lists users following userID, most recent first.
func (s *FollowService) Followers(ctx context.Context, userID uint, limit int) ([]models.Connection, error) {
	reader := s.store.Reader()
	if _, err := reader.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	edges, err := reader.Edges.EdgesTo(ctx, userID, models.EdgeFollow, capLimit(limit, s.maxItems))
	if err != nil {
		return nil, err
	}
	return connections(ctx, reader.Users, edges, subjectOf)
}

// Following lists users userID follows, most recent first.
func (s *FollowService) Following(ctx context.Context, userID uint, limit int) ([]models.Connection, error) {
	reader := s.store.Reader()
	if _, err := reader.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	edges, err := reader.Edges.EdgesFrom(ctx, userID, models.EdgeFollow, capLimit(limit, s.maxItems))
	if err != nil {
		return nil, err
	}
	return connections(ctx, reader.Users, edges, objectOf)
}
