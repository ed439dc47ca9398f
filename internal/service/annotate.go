package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/repository"

	"github.com/samber/lo"
)

func postIDs(posts []*models.Post) []uint {
	return lo.Map(posts, func(p *models.Post, _ int) uint { return p.ID })
}

func idSet(ids []uint) map[uint]bool {
	return lo.Associate(ids, func(id uint) (uint, bool) { return id, true })
}

// annotate projects posts into feed items carrying the viewer's like and
// retweet state. It issues at most two queries regardless of len(posts).
func annotate(ctx context.Context, edges repository.EdgeRepository, posts []*models.Post, viewerID uint) ([]models.FeedItem, error) {
	items := make([]models.FeedItem, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}

	liked := map[uint]bool{}
	retweeted := map[uint]bool{}
	if viewerID != 0 {
		ids := postIDs(posts)
		likedIDs, err := edges.MatchObjects(ctx, viewerID, models.EdgeLike, ids)
		if err != nil {
			return nil, err
		}
		retweetedIDs, err := edges.MatchObjects(ctx, viewerID, models.EdgeRetweet, ids)
		if err != nil {
			return nil, err
		}
		liked, retweeted = idSet(likedIDs), idSet(retweetedIDs)
	}

	for _, p := range posts {
		items = append(items, models.FeedItem{
			PostView:  p.ToView(),
			Liked:     liked[p.ID],
			Retweeted: retweeted[p.ID],
			SortTime:  p.CreatedAt,
		})
	}
	return items, nil
}

func views(posts []*models.Post) []models.PostView {
	return lo.Map(posts, func(p *models.Post, _ int) models.PostView { return p.ToView() })
}

// connections resolves edge counterparts to users, keeping edge order.
// Counterparts whose user row is gone are skipped.
func connections(ctx context.Context, users repository.UserRepository, edgeList []models.Edge, counterpart func(models.Edge) uint) ([]models.Connection, error) {
	ids := lo.Uniq(lo.Map(edgeList, func(e models.Edge, _ int) uint { return counterpart(e) }))
	found, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(found, func(u models.User) uint { return u.ID })

	out := make([]models.Connection, 0, len(edgeList))
	for _, e := range edgeList {
		u, ok := byID[counterpart(e)]
		if !ok {
			continue
		}
		out = append(out, models.Connection{User: u.ToView(), Since: e.CreatedAt})
	}
	return out, nil
}

func subjectOf(e models.Edge) uint { return e.SubjectID }
func objectOf(e models.Edge) uint  { return e.ObjectID }
