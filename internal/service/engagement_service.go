package service

import (
	"context"

	"warbler/internal/events"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

// EngagementService maintains like and retweet edges together with the
// denormalized counters on the referenced post.
type EngagementService struct {
	store    *repository.Store
	events   EventPublisher
	maxItems int
	log      *observability.ServiceLogger
}

// NewEngagementService creates the engagement ledger.
func NewEngagementService(store *repository.Store, pub EventPublisher, maxItems int) *EngagementService {
	return &EngagementService{
		store:    store,
		events:   pub,
		maxItems: maxItems,
		log:      observability.NewServiceLogger("engagement"),
	}
}

func counterFor(kind models.EdgeKind) models.Counter {
	if kind == models.EdgeRetweet {
		return models.CounterRetweets
	}
	return models.CounterLikes
}

// Like records userID's like on postID. Liking twice is a no-op that returns
// the existing state.
func (s *EngagementService) Like(ctx context.Context, postID, userID uint) (*models.EngagementState, error) {
	return s.engage(ctx, postID, userID, models.EdgeLike, events.TypeLike)
}

// Unlike removes userID's like. NotFound when there is nothing to remove.
func (s *EngagementService) Unlike(ctx context.Context, postID, userID uint) (*models.EngagementState, error) {
	return s.disengage(ctx, postID, userID, models.EdgeLike, events.TypeUnlike)
}

// Retweet records userID's retweet of postID, idempotently.
func (s *EngagementService) Retweet(ctx context.Context, postID, userID uint) (*models.EngagementState, error) {
	return s.engage(ctx, postID, userID, models.EdgeRetweet, events.TypeRetweet)
}

// Unretweet removes userID's retweet. NotFound when there is nothing to remove.
func (s *EngagementService) Unretweet(ctx context.Context, postID, userID uint) (*models.EngagementState, error) {
	return s.disengage(ctx, postID, userID, models.EdgeRetweet, events.TypeUnretweet)
}

func (s *EngagementService) engage(ctx context.Context, postID, userID uint, kind models.EdgeKind, evType events.Type) (*models.EngagementState, error) {
	method := string(kind)
	span, ctx := observability.NewSpan(ctx, "engagement."+method)
	defer span.End()
	span.AddAttributes(attribute.Int64("post.id", int64(postID)), attribute.Int64("user.id", int64(userID)))

	if err := requirePrincipal(userID); err != nil {
		return nil, err
	}

	state := &models.EngagementState{PostID: postID, UserID: userID, Kind: kind, Active: true}
	var authorID uint
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.GetLive(ctx, postID)
		if err != nil {
			return err
		}
		authorID = post.AuthorID

		edge, err := tx.Edges.AddEdge(ctx, userID, postID, kind)
		switch {
		case err == nil:
			if err := tx.Posts.AdjustCounter(ctx, postID, counterFor(kind), 1); err != nil {
				return err
			}
			state.Created = true
			state.Since = edge.CreatedAt
		case models.IsConflict(err):
			existing, err := tx.Edges.Get(ctx, userID, postID, kind)
			if err != nil {
				return err
			}
			state.Since = existing.CreatedAt
		default:
			return err
		}

		fresh, err := tx.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		state.LikeCount, state.RetweetCount = fresh.LikeCount, fresh.RetweetCount
		return nil
	})
	if err != nil {
		span.SetError(err)
		s.log.LogFailure(ctx, method, err, expectedFailure(err))
		return nil, err
	}

	if state.Created {
		s.log.LogCall(ctx, method, "post_id", postID, "user_id", userID)
		publish(ctx, s.events, events.Event{Type: evType, ActorID: userID, PostID: postID, TargetUserID: authorID})
	}
	return state, nil
}

func (s *EngagementService) disengage(ctx context.Context, postID, userID uint, kind models.EdgeKind, evType events.Type) (*models.EngagementState, error) {
	method := "un" + string(kind)
	span, ctx := observability.NewSpan(ctx, "engagement."+method)
	defer span.End()
	span.AddAttributes(attribute.Int64("post.id", int64(postID)), attribute.Int64("user.id", int64(userID)))

	if err := requirePrincipal(userID); err != nil {
		return nil, err
	}

	state := &models.EngagementState{PostID: postID, UserID: userID, Kind: kind}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Edges.RemoveEdge(ctx, userID, postID, kind); err != nil {
			return err
		}
		if err := tx.Posts.AdjustCounter(ctx, postID, counterFor(kind), -1); err != nil {
			return err
		}
		fresh, err := tx.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		state.LikeCount, state.RetweetCount = fresh.LikeCount, fresh.RetweetCount
		return nil
	})
	if err != nil {
		span.SetError(err)
		s.log.LogFailure(ctx, method, err, expectedFailure(err))
		return nil, err
	}

	s.log.LogCall(ctx, method, "post_id", postID, "user_id", userID)
	publish(ctx, s.events, events.Event{Type: evType, ActorID: userID, PostID: postID})
	return state, nil
}

// LikingUsers lists users who liked postID, most recent first.
func (s *EngagementService) LikingUsers(ctx context.Context, postID uint, limit int) ([]models.Connection, error) {
	return s.engagers(ctx, postID, models.EdgeLike, limit)
}

// RetweetingUsers lists users who retweeted postID, most recent first.
func (s *EngagementService) RetweetingUsers(ctx context.Context, postID uint, limit int) ([]models.Connection, error) {
	return s.engagers(ctx, postID, models.EdgeRetweet, limit)
}

func (s *EngagementService) engagers(ctx context.Context, postID uint, kind models.EdgeKind, limit int) ([]models.Connection, error) {
	reader := s.store.Reader()
	if _, err := reader.Posts.GetLive(ctx, postID); err != nil {
		return nil, err
	}
	edges, err := reader.Edges.EdgesTo(ctx, postID, kind, capLimit(limit, s.maxItems))
	if err != nil {
		return nil, err
	}
	return connections(ctx, reader.Users, edges, subjectOf)
}

// LikedPosts lists live posts userID liked, most recently liked first,
// annotated for viewerID.
func (s *EngagementService) LikedPosts(ctx context.Context, userID, viewerID uint) ([]models.FeedItem, error) {
	return s.engagedPosts(ctx, userID, viewerID, models.EdgeLike)
}

// RetweetedPosts lists live posts userID retweeted, most recent first,
// annotated for viewerID.
func (s *EngagementService) RetweetedPosts(ctx context.Context, userID, viewerID uint) ([]models.FeedItem, error) {
	return s.engagedPosts(ctx, userID, viewerID, models.EdgeRetweet)
}

func (s *EngagementService) engagedPosts(ctx context.Context, userID, viewerID uint, kind models.EdgeKind) ([]models.FeedItem, error) {
	reader := s.store.Reader()
	if _, err := reader.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	edges, err := reader.Edges.EdgesFrom(ctx, userID, kind, capLimit(0, s.maxItems))
	if err != nil {
		return nil, err
	}
	posts, err := reader.Posts.ListByIDs(ctx, lo.Map(edges, func(e models.Edge, _ int) uint { return e.ObjectID }))
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(posts, func(p *models.Post) uint { return p.ID })
	live := lo.Filter(edges, func(e models.Edge, _ int) bool {
		_, ok := byID[e.ObjectID]
		return ok
	})
	ordered := lo.Map(live, func(e models.Edge, _ int) *models.Post { return byID[e.ObjectID] })

	items, err := annotate(ctx, reader.Edges, ordered, viewerID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].SortTime = live[i].CreatedAt
	}
	return items, nil
}
