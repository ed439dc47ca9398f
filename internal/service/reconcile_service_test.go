package service

import (
	"context"
	"testing"
	"time"

	"warbler/internal/events"
	"warbler/internal/models"
	"warbler/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// The row lock must be taken before the recount statement so the recount
// sees the edges of any counter writer that held the row.
func TestReconciler_ReconcilePost_LocksRowBeforeRecount(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	postCols := []string{"id", "author_id", "content", "like_count", "retweet_count", "reply_count"}
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "posts" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(5, 3, "p", 1, 0, 0))
	mock.ExpectExec(`UPDATE "posts" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "posts"`).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(5, 3, "p", 2, 0, 0))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle"}).AddRow(3, "author"))
	mock.ExpectCommit()

	drifted, err := NewReconciler(repository.NewStore(db)).ReconcilePost(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, drifted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_ReconcilePost(t *testing.T) {
	e := newEnv(t)
	engagement := NewEngagementService(e.store, nil, 0)
	threads := NewThreadService(e.store, nil, 0, 0)
	rec := NewReconciler(e.store)
	ctx := context.Background()

	author := e.fx.User("author")
	fan := e.fx.User("fan")
	post := e.fx.Post(author, "counted")

	_, err := engagement.Like(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	_, err = engagement.Retweet(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	_, err = threads.Reply(ctx, ReplyInput{ParentPostID: post.ID, AuthorID: fan.ID, Content: "hi"})
	require.NoError(t, err)
	gone, err := threads.Reply(ctx, ReplyInput{ParentPostID: post.ID, AuthorID: fan.ID, Content: "bye"})
	require.NoError(t, err)
	require.NoError(t, threads.Delete(ctx, gone.ID, fan.ID))

	drifted, err := rec.ReconcilePost(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, drifted, "service mutations keep counters exact")

	require.NoError(t, e.db.Exec(
		"UPDATE posts SET like_count = 7, retweet_count = 0, reply_count = 5 WHERE id = ?", post.ID,
	).Error)

	drifted, err = rec.ReconcilePost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, drifted)

	fresh := e.fx.Reload(post)
	assert.Equal(t, int64(1), fresh.LikeCount)
	assert.Equal(t, int64(1), fresh.RetweetCount)
	assert.Equal(t, int64(1), fresh.ReplyCount)
}

func TestReconciler_ReconcileAll(t *testing.T) {
	e := newEnv(t)
	rec := NewReconciler(e.store)
	ctx := context.Background()

	author := e.fx.User("author")
	var ids []uint
	for i := 0; i < 7; i++ {
		ids = append(ids, e.fx.Post(author, "post").ID)
	}
	require.NoError(t, e.db.Exec("UPDATE posts SET like_count = 3 WHERE id IN ?", []uint{ids[1], ids[5]}).Error)

	drifted, err := rec.ReconcileAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{ids[1], ids[5]}, drifted)

	drifted, err = rec.ReconcileAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, drifted)
}

func TestReconciler_ReconcileMissingPost(t *testing.T) {
	e := newEnv(t)
	_, err := NewReconciler(e.store).ReconcilePost(context.Background(), 9999)
	assert.Error(t, err)
}

func TestReconciler_WatchRepairsTouchedPosts(t *testing.T) {
	e := newEnv(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	pub := events.NewPublisher(rdb)

	author := e.fx.User("author")
	post := e.fx.Post(author, "watched")
	require.NoError(t, e.db.Exec("UPDATE posts SET like_count = 4 WHERE id = ?", post.ID).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, NewReconciler(e.store).Watch(ctx, pub))

	require.Eventually(t, func() bool {
		_ = pub.Publish(context.Background(), events.Event{Type: events.TypeLike, ActorID: author.ID, PostID: post.ID})
		var count int64
		err := e.db.Model(&models.Post{}).Select("like_count").Where("id = ?", post.ID).Scan(&count).Error
		return err == nil && count == 0
	}, 5*time.Second, 50*time.Millisecond)
}
