package service

import (
	"context"
	"sort"
	"strings"

	"warbler/internal/featureflags"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

// FeedService composes read-only views over the graph: the home feed, user
// timelines and search. It never writes.
type FeedService struct {
	store     *repository.Store
	following FollowingCache
	flags     FlagEvaluator
	maxItems  int
}

// NewFeedService creates the feed composer. following and flags may be nil.
func NewFeedService(store *repository.Store, following FollowingCache, flags FlagEvaluator, maxItems int) *FeedService {
	return &FeedService{
		store:     store,
		following: following,
		flags:     flags,
		maxItems:  capLimit(0, maxItems),
	}
}

func (s *FeedService) followedIDs(ctx context.Context, viewerID uint) ([]uint, error) {
	load := func(ctx context.Context) ([]uint, error) {
		return s.store.Edges.ObjectIDsFrom(ctx, viewerID, models.EdgeFollow)
	}
	if s.following == nil {
		return load(ctx)
	}
	return s.following.Following(ctx, viewerID, load)
}

// HomeFeed returns live posts authored by users viewerID follows together
// with live posts those users retweeted, newest first. Each item carries the
// viewer's like/retweet state and the followed users who retweeted it.
func (s *FeedService) HomeFeed(ctx context.Context, viewerID uint) ([]models.FeedItem, error) {
	span, ctx := observability.NewSpan(ctx, "feed.home")
	defer span.End()
	done := observability.TrackFeed("home")

	items, err := s.homeFeed(ctx, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Int("feed.items", len(items)))
	done(len(items))
	return items, nil
}

func (s *FeedService) homeFeed(ctx context.Context, viewerID uint) ([]models.FeedItem, error) {
	if err := requirePrincipal(viewerID); err != nil {
		return nil, err
	}
	followed, err := s.followedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(followed) == 0 {
		return []models.FeedItem{}, nil
	}

	reorder := s.flags != nil && s.flags.Enabled(featureflags.FeedRetweetOrder, viewerID)
	reader := s.store.Reader()
	posts, err := reader.Posts.ListFeed(ctx, repository.FeedQuery{
		AuthorIDs:     followed,
		RetweeterIDs:  followed,
		Limit:         s.maxItems,
		ActivityOrder: reorder,
	})
	if err != nil {
		return nil, err
	}
	items, err := annotate(ctx, reader.Edges, posts, viewerID)
	if err != nil {
		return nil, err
	}

	// Newest first, so the first edge seen per post is its latest followed retweet.
	retweets, err := reader.Edges.EdgesBetween(ctx, followed, postIDs(posts), models.EdgeRetweet)
	if err != nil {
		return nil, err
	}
	byPost := lo.GroupBy(retweets, func(e models.Edge) uint { return e.ObjectID })

	for i := range items {
		edges := byPost[items[i].ID]
		if len(edges) == 0 {
			continue
		}
		items[i].FollowedRetweeters = lo.Uniq(lo.Map(edges, func(e models.Edge, _ int) uint { return e.SubjectID }))
		if reorder && edges[0].CreatedAt.After(items[i].SortTime) {
			items[i].SortTime = edges[0].CreatedAt
		}
	}
	if reorder {
		sort.SliceStable(items, func(a, b int) bool {
			return items[a].SortTime.After(items[b].SortTime)
		})
	}
	return items, nil
}

// UserTimeline returns live posts authored or retweeted by userID, newest
// first, annotated for viewerID (0 for anonymous).
func (s *FeedService) UserTimeline(ctx context.Context, userID, viewerID uint) ([]models.FeedItem, error) {
	span, ctx := observability.NewSpan(ctx, "feed.timeline")
	defer span.End()
	done := observability.TrackFeed("timeline")

	reader := s.store.Reader()
	if _, err := reader.Users.GetByID(ctx, userID); err != nil {
		span.SetError(err)
		return nil, err
	}
	posts, err := reader.Posts.ListFeed(ctx, repository.FeedQuery{
		AuthorIDs:    []uint{userID},
		RetweeterIDs: []uint{userID},
		Limit:        s.maxItems,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	items, err := annotate(ctx, reader.Edges, posts, viewerID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	retweetedBy, err := reader.Edges.MatchObjects(ctx, userID, models.EdgeRetweet, postIDs(posts))
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	byUser := idSet(retweetedBy)
	for i := range items {
		items[i].RetweetedByUser = byUser[items[i].ID]
	}

	done(len(items))
	return items, nil
}

// Search returns live posts whose content contains query, ignoring case.
func (s *FeedService) Search(ctx context.Context, query string, viewerID uint) ([]models.FeedItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	done := observability.TrackFeed("search")

	reader := s.store.Reader()
	posts, err := reader.Posts.Search(ctx, query, s.maxItems)
	if err != nil {
		return nil, err
	}
	items, err := annotate(ctx, reader.Edges, posts, viewerID)
	if err != nil {
		return nil, err
	}
	done(len(items))
	return items, nil
}
