package service

import (
	"context"
	"testing"
	"time"

	"warbler/internal/featureflags"
	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedFixture struct {
	*env
	follows    *FollowService
	engagement *EngagementService
	threads    *ThreadService
}

func newFeedFixture(t *testing.T) *feedFixture {
	e := newEnv(t)
	return &feedFixture{
		env:        e,
		follows:    NewFollowService(e.store, nil, nil, 0),
		engagement: NewEngagementService(e.store, nil, 0),
		threads:    NewThreadService(e.store, nil, 0, 0),
	}
}

func TestFeedService_HomeFeed(t *testing.T) {
	f := newFeedFixture(t)
	svc := NewFeedService(f.store, nil, nil, 0)
	ctx := context.Background()

	viewer := f.fx.User("viewer")
	followed := f.fx.User("followed")
	stranger := f.fx.User("stranger")
	unrelated := f.fx.User("unrelated")

	_, err := f.follows.Follow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)

	shared := f.fx.Post(stranger, "worth sharing")
	ignored := f.fx.Post(unrelated, "nobody follows me")
	own := f.fx.Post(followed, "hello")
	deleted := f.fx.Post(followed, "oops")
	require.NoError(t, f.threads.Delete(ctx, deleted.ID, followed.ID))

	_, err = f.engagement.Retweet(ctx, shared.ID, followed.ID)
	require.NoError(t, err)
	_, err = f.engagement.Like(ctx, own.ID, viewer.ID)
	require.NoError(t, err)
	_, err = f.engagement.Retweet(ctx, ignored.ID, stranger.ID)
	require.NoError(t, err)

	items, err := svc.HomeFeed(ctx, viewer.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{own.ID, shared.ID}, feedIDs(items))

	assert.True(t, items[0].Liked)
	assert.False(t, items[0].Retweeted)
	assert.Empty(t, items[0].FollowedRetweeters)
	assert.Equal(t, []uint{followed.ID}, items[1].FollowedRetweeters)
	assert.False(t, items[1].Liked)
	require.NotNil(t, items[1].Author)
	assert.Equal(t, "stranger", items[1].Author.Handle)
}

func TestFeedService_HomeFeedWithoutFollowsIsEmpty(t *testing.T) {
	f := newFeedFixture(t)
	svc := NewFeedService(f.store, nil, nil, 0)

	viewer := f.fx.User("viewer")
	other := f.fx.User("other")
	f.fx.Post(other, "unseen")
	f.fx.Post(viewer, "own posts are not part of the home feed")

	items, err := svc.HomeFeed(context.Background(), viewer.ID)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = svc.HomeFeed(context.Background(), 0)
	assert.True(t, models.IsInvalidReference(err))
}

func TestFeedService_HomeFeedRespectsMaxItems(t *testing.T) {
	f := newFeedFixture(t)
	svc := NewFeedService(f.store, nil, nil, 3)
	ctx := context.Background()

	viewer := f.fx.User("viewer")
	author := f.fx.User("author")
	_, err := f.follows.Follow(ctx, viewer.ID, author.ID)
	require.NoError(t, err)

	var newest []uint
	for i := 0; i < 5; i++ {
		p := f.fx.Post(author, "post")
		newest = append([]uint{p.ID}, newest...)
	}

	items, err := svc.HomeFeed(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, newest[:3], feedIDs(items))
}

func TestFeedService_RetweetOrderFlag(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	viewer := f.fx.User("viewer")
	followed := f.fx.User("followed")
	stranger := f.fx.User("stranger")
	_, err := f.follows.Follow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)

	old := f.fx.Post(stranger, "old but retweeted later")
	recent := f.fx.Post(followed, "recent")
	_, err = f.engagement.Retweet(ctx, old.ID, followed.ID)
	require.NoError(t, err)

	byCreation := NewFeedService(f.store, nil, staticFlags{}, 0)
	items, err := byCreation.HomeFeed(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{recent.ID, old.ID}, feedIDs(items))

	byRetweet := NewFeedService(f.store, nil, staticFlags{featureflags.FeedRetweetOrder: true}, 0)
	items, err = byRetweet.HomeFeed(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{old.ID, recent.ID}, feedIDs(items))
	assert.True(t, items[0].SortTime.After(items[0].CreatedAt))
}

func TestFeedService_RetweetOrderAppliesBeforeLimit(t *testing.T) {
	f := newFeedFixture(t)
	ctx := context.Background()

	viewer := f.fx.User("viewer")
	followed := f.fx.User("followed")
	stranger := f.fx.User("stranger")
	_, err := f.follows.Follow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)

	old := &models.Post{AuthorID: stranger.ID, Content: "two days old", CreatedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, f.db.Omit("Author").Create(old).Error)
	var newest []uint
	for i := 0; i < 3; i++ {
		p := f.fx.Post(followed, "fresh")
		newest = append([]uint{p.ID}, newest...)
	}
	_, err = f.engagement.Retweet(ctx, old.ID, followed.ID)
	require.NoError(t, err)

	byCreation := NewFeedService(f.store, nil, staticFlags{}, 2)
	items, err := byCreation.HomeFeed(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, newest[:2], feedIDs(items))

	byRetweet := NewFeedService(f.store, nil, staticFlags{featureflags.FeedRetweetOrder: true}, 2)
	items, err = byRetweet.HomeFeed(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{old.ID, newest[0]}, feedIDs(items))
	assert.Equal(t, []uint{followed.ID}, items[0].FollowedRetweeters)
}

func TestFeedService_UserTimeline(t *testing.T) {
	f := newFeedFixture(t)
	svc := NewFeedService(f.store, nil, nil, 0)
	ctx := context.Background()

	user := f.fx.User("user")
	other := f.fx.User("other")
	viewer := f.fx.User("viewer")

	mine := f.fx.Post(user, "mine")
	theirs := f.fx.Post(other, "theirs")
	skipped := f.fx.Post(other, "not retweeted")
	_, err := f.engagement.Retweet(ctx, theirs.ID, user.ID)
	require.NoError(t, err)
	_, err = f.engagement.Retweet(ctx, mine.ID, viewer.ID)
	require.NoError(t, err)

	items, err := svc.UserTimeline(ctx, user.ID, viewer.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{theirs.ID, mine.ID}, feedIDs(items))
	assert.NotContains(t, feedIDs(items), skipped.ID)

	assert.True(t, items[0].RetweetedByUser)
	assert.False(t, items[0].Retweeted)
	assert.False(t, items[1].RetweetedByUser)
	assert.True(t, items[1].Retweeted, "viewer state is independent of the timeline owner")

	_, err = svc.UserTimeline(ctx, 9999, 0)
	assert.True(t, models.IsNotFound(err))
}

func TestFeedService_Search(t *testing.T) {
	f := newFeedFixture(t)
	svc := NewFeedService(f.store, nil, nil, 0)
	ctx := context.Background()

	author := f.fx.User("author")
	hit := f.fx.Post(author, "Learning GoLang today")
	f.fx.Post(author, "nothing relevant")
	gone := f.fx.Post(author, "golang was here")
	require.NoError(t, f.threads.Delete(ctx, gone.ID, author.ID))

	items, err := svc.Search(ctx, "  golang ", 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{hit.ID}, feedIDs(items))

	_, err = svc.Search(ctx, "   ", 0)
	assertValidationError(t, err)
}
