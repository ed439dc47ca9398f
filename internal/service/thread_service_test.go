package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"warbler/internal/events"
	"warbler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadService_ReplyClassification(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 0, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	bob := e.fx.User("bob")
	root := e.fx.Post(alice, "1/ a thread")

	t.Run("same author continues the thread", func(t *testing.T) {
		child, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: alice.ID, Content: "2/ more"})
		require.NoError(t, err)
		assert.True(t, child.IsThread)
		assert.False(t, child.IsReply)
		require.NotNil(t, child.ThreadID)
		assert.Equal(t, root.ID, *child.ThreadID)

		fresh := e.fx.Reload(root)
		require.NotNil(t, fresh.NextPostInThreadID)
		assert.Equal(t, child.ID, *fresh.NextPostInThreadID)
		require.NotNil(t, fresh.ThreadID)
		assert.Equal(t, root.ID, *fresh.ThreadID)

		third, err := svc.Reply(ctx, ReplyInput{ParentPostID: child.ID, AuthorID: alice.ID, Content: "3/ end"})
		require.NoError(t, err)
		assert.True(t, third.IsThread)
		assert.Equal(t, root.ID, *third.ThreadID)

		chain, err := svc.Thread(ctx, third.ID)
		require.NoError(t, err)
		ids := []uint{}
		for _, v := range chain {
			ids = append(ids, v.ID)
		}
		assert.Equal(t, []uint{root.ID, child.ID, third.ID}, ids)
	})

	t.Run("other author is an ordinary reply", func(t *testing.T) {
		reply, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: bob.ID, Content: "nice"})
		require.NoError(t, err)
		assert.True(t, reply.IsReply)
		assert.False(t, reply.IsThread)
		assert.Nil(t, reply.ThreadID)
		require.NotNil(t, reply.ParentPostID)
		assert.Equal(t, root.ID, *reply.ParentPostID)
	})

	t.Run("second continuation attempt becomes a reply", func(t *testing.T) {
		again, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: alice.ID, Content: "late addition"})
		require.NoError(t, err)
		assert.True(t, again.IsReply)
		assert.False(t, again.IsThread)
		assert.Nil(t, again.ThreadID)
	})

	// continuation + bob + late addition
	assert.Equal(t, int64(3), e.fx.Reload(root).ReplyCount)
}

func TestThreadService_ConcurrentContinuationsHaveOneWinner(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 0, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	root := e.fx.Post(alice, "root")

	const n = 6
	var wg sync.WaitGroup
	results := make([]*models.Post, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: alice.ID, Content: "next"})
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	var continuations []uint
	for _, p := range results {
		require.NotNil(t, p)
		if p.IsThread {
			continuations = append(continuations, p.ID)
		}
	}
	require.Len(t, continuations, 1)
	fresh := e.fx.Reload(root)
	require.NotNil(t, fresh.NextPostInThreadID)
	assert.Equal(t, continuations[0], *fresh.NextPostInThreadID)
	assert.Equal(t, int64(n), fresh.ReplyCount)
}

func TestThreadService_ReplyValidation(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 10, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	root := e.fx.Post(alice, "root")

	_, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: alice.ID, Content: "   "})
	assertValidationError(t, err)

	_, err = svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: alice.ID, Content: strings.Repeat("x", 11)})
	assertValidationError(t, err)

	_, err = svc.Reply(ctx, ReplyInput{ParentPostID: 9999, AuthorID: alice.ID, Content: "orphan"})
	assert.True(t, models.IsNotFound(err))

	_, err = svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: 9999, Content: "ghost"})
	assert.True(t, models.IsNotFound(err))

	assert.Equal(t, int64(0), e.fx.Reload(root).ReplyCount)
	assert.Empty(t, e.pub.types())
}

func TestThreadService_Delete(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 0, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	bob := e.fx.User("bob")
	root := e.fx.Post(alice, "root")
	reply, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: bob.ID, Content: "reply"})
	require.NoError(t, err)
	require.Equal(t, int64(1), e.fx.Reload(root).ReplyCount)

	err = svc.Delete(ctx, reply.ID, alice.ID)
	assert.True(t, models.IsUnauthorized(err), "got %v", err)

	require.NoError(t, svc.Delete(ctx, reply.ID, bob.ID))
	assert.True(t, e.fx.Reload(reply).IsDeleted)
	assert.Equal(t, int64(0), e.fx.Reload(root).ReplyCount)

	err = svc.Delete(ctx, reply.ID, bob.ID)
	assert.True(t, models.IsNotFound(err), "second delete reports NotFound")

	err = svc.Delete(ctx, 424242, bob.ID)
	assert.True(t, models.IsNotFound(err))

	assert.Equal(t, []events.Type{events.TypeReply, events.TypeDelete}, e.pub.types())
}

func TestThreadService_DeleteFloorsParentReplyCount(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 0, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	bob := e.fx.User("bob")
	root := e.fx.Post(alice, "root")
	reply, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: bob.ID, Content: "reply"})
	require.NoError(t, err)
	require.NoError(t, e.db.Exec("UPDATE posts SET reply_count = 0 WHERE id = ?", root.ID).Error)

	require.NoError(t, svc.Delete(ctx, reply.ID, bob.ID))
	assert.Equal(t, int64(0), e.fx.Reload(root).ReplyCount)
}

func TestThreadService_DeleteKeepsChildren(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 0, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	bob := e.fx.User("bob")
	root := e.fx.Post(alice, "root")
	reply, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: bob.ID, Content: "still here"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, root.ID, alice.ID))

	layer, err := svc.Layer1Replies(ctx, root.ID, 0)
	require.NoError(t, err)
	assert.True(t, layer.Parent.IsDeleted)
	assert.Empty(t, layer.Parent.Content, "tombstone marker carries no content")
	assert.Nil(t, layer.Parent.Author)
	require.Len(t, layer.Replies, 1)
	assert.Equal(t, reply.ID, layer.Replies[0].ID)

	_, err = svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: bob.ID, Content: "too late"})
	assert.True(t, models.IsNotFound(err))
}

func TestThreadService_Layer1Replies(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 0, 0)
	engagement := NewEngagementService(e.store, nil, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	bob := e.fx.User("bob")
	carol := e.fx.User("carol")
	root := e.fx.Post(alice, "root")

	cont, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: alice.ID, Content: "continued"})
	require.NoError(t, err)
	first, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: bob.ID, Content: "first"})
	require.NoError(t, err)
	second, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: carol.ID, Content: "second"})
	require.NoError(t, err)
	gone, err := svc.Reply(ctx, ReplyInput{ParentPostID: root.ID, AuthorID: carol.ID, Content: "regret"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, gone.ID, carol.ID))

	_, err = engagement.Like(ctx, first.ID, bob.ID)
	require.NoError(t, err)

	layer, err := svc.Layer1Replies(ctx, root.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, layer.Parent.ID)
	assert.Equal(t, int64(3), layer.Parent.ReplyCount)
	assert.Equal(t, []uint{second.ID, first.ID}, feedIDs(layer.Replies))
	assert.False(t, layer.Replies[0].Liked)
	assert.True(t, layer.Replies[1].Liked)

	require.Len(t, layer.Thread, 2)
	assert.Equal(t, root.ID, layer.Thread[0].ID)
	assert.Equal(t, cont.ID, layer.Thread[1].ID)

	_, err = svc.Layer1Replies(ctx, 9999, 0)
	assert.True(t, models.IsNotFound(err))
}

func TestThreadService_ThreadOfStandalonePost(t *testing.T) {
	e := newEnv(t)
	svc := NewThreadService(e.store, e.pub, 0, 0)
	ctx := context.Background()

	alice := e.fx.User("alice")
	solo := e.fx.Post(alice, "alone")

	chain, err := svc.Thread(ctx, solo.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)

	_, err = svc.Thread(ctx, 9999)
	assert.True(t, models.IsNotFound(err))
}
