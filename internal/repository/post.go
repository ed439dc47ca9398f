package repository

import (
	"context"
	"fmt"
	"strings"

	"warbler/internal/database"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedQuery selects live posts authored by any of AuthorIDs or retweeted by
// any of RetweeterIDs. With ActivityOrder set, a post sorts by the later of
// its creation and its latest retweet by RetweeterIDs, and Limit applies to
// that order.
type FeedQuery struct {
	AuthorIDs     []uint
	RetweeterIDs  []uint
	Limit         int
	ActivityOrder bool
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetLive(ctx context.Context, id uint) (*models.Post, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Post, error)
	AdjustCounter(ctx context.Context, id uint, counter models.Counter, delta int) error
	Tombstone(ctx context.Context, id uint) error
	ClaimContinuation(ctx context.Context, parentID, authorID, childID uint) (bool, error)
	MarkContinuation(ctx context.Context, childID, threadID uint) error
	ListThread(ctx context.Context, threadID uint) ([]*models.Post, error)
	ListReplies(ctx context.Context, parentID uint, limit int) ([]*models.Post, error)
	ListFeed(ctx context.Context, q FeedQuery) ([]*models.Post, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit int) ([]*models.Post, error)
	Recount(ctx context.Context, id uint) error
	ListIDsAfter(ctx context.Context, afterID uint, batch int) ([]uint, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()

	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return database.Classify(err)
	}
	r.log.LogMutation(ctx, "create", "post_id", post.ID, "author_id", post.AuthorID)
	return nil
}

// GetByID returns the post whether or not it is tombstoned.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

// GetLive returns the post, or NotFound when it is missing or tombstoned.
func (r *postRepository) GetLive(ctx context.Context, id uint) (*models.Post, error) {
	post, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// GetForUpdate reads the post row under a row lock held until the enclosing
// transaction ends. Any in-flight counter writer on the row commits first.
func (r *postRepository) GetForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&post, id).Error
	if err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

func counterColumn(counter models.Counter) (string, error) {
	switch counter {
	case models.CounterLikes, models.CounterRetweets, models.CounterReplies:
		return string(counter), nil
	}
	return "", fmt.Errorf("unknown counter %q", counter)
}

// AdjustCounter applies delta to one counter as a single column expression.
// Decrements are floored at zero.
func (r *postRepository) AdjustCounter(ctx context.Context, id uint, counter models.Counter, delta int) error {
	col, err := counterColumn(counter)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	defer observability.TrackQuery("update", "posts")()

	var expr clause.Expr
	if delta > 0 {
		expr = gorm.Expr(col+" + ?", delta)
	} else {
		expr = gorm.Expr("CASE WHEN "+col+" >= ? THEN "+col+" - ? ELSE 0 END", -delta, -delta)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn(col, expr)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "adjust_counter")
		return database.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	observability.RecordCounterAdjustment(col, delta)
	return nil
}

// Tombstone flips is_deleted on a live post. A post that is already
// tombstoned (or missing) yields NotFound, so concurrent deletes apply once.
func (r *postRepository) Tombstone(ctx context.Context, id uint) error {
	defer observability.TrackQuery("update", "posts")()

	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "tombstone")
		return database.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.log.LogMutation(ctx, "tombstone", "post_id", id)
	return nil
}

// ClaimContinuation points the parent's next pointer at childID if the parent
// is live, authored by authorID and has no continuation yet. The parent's
// thread_id is set to its own id when unset. Reports whether the claim won.
func (r *postRepository) ClaimContinuation(ctx context.Context, parentID, authorID, childID uint) (bool, error) {
	defer observability.TrackQuery("update", "posts")()

	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND author_id = ? AND next_post_in_thread_id IS NULL AND is_deleted = ?", parentID, authorID, false).
		Updates(map[string]interface{}{
			"next_post_in_thread_id": childID,
			"thread_id":              gorm.Expr("COALESCE(thread_id, id)"),
		})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "claim_continuation")
		return false, database.Classify(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkContinuation reclassifies a freshly created reply as a thread continuation.
func (r *postRepository) MarkContinuation(ctx context.Context, childID, threadID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", childID).
		Updates(map[string]interface{}{
			"is_thread": true,
			"is_reply":  false,
			"thread_id": threadID,
		})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "mark_continuation")
		return database.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", childID)
	}
	r.log.LogMutation(ctx, "mark_continuation", "post_id", childID, "thread_id", threadID)
	return nil
}

// ListThread returns the live posts of a thread in chain order.
func (r *postRepository) ListThread(ctx context.Context, threadID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("thread_id = ? AND is_deleted = ?", threadID, false).
		Order("created_at ASC").
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return posts, nil
}

// ListReplies returns live ordinary replies to parentID, newest first.
func (r *postRepository) ListReplies(ctx context.Context, parentID uint, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	q := r.db.WithContext(ctx).
		Preload("Author").
		Where("parent_post_id = ? AND is_reply = ? AND is_deleted = ?", parentID, true, false).
		Order("created_at DESC").
		Order("id DESC")
	if err := limitQuery(q, limit).Find(&posts).Error; err != nil {
		return nil, database.Classify(err)
	}
	return posts, nil
}

// ListFeed returns live candidate posts for a feed, newest first, in one query.
func (r *postRepository) ListFeed(ctx context.Context, fq FeedQuery) ([]*models.Post, error) {
	if len(fq.AuthorIDs) == 0 && len(fq.RetweeterIDs) == 0 {
		return []*models.Post{}, nil
	}
	defer observability.TrackQuery("select", "posts")()

	db := r.db.WithContext(ctx)
	var cond *gorm.DB
	switch {
	case len(fq.AuthorIDs) > 0 && len(fq.RetweeterIDs) > 0:
		retweeted := r.db.Model(&models.Edge{}).
			Select("object_id").
			Where("kind = ? AND subject_id IN ?", models.EdgeRetweet, fq.RetweeterIDs)
		cond = db.Where("author_id IN ?", fq.AuthorIDs).Or("id IN (?)", retweeted)
	case len(fq.AuthorIDs) > 0:
		cond = db.Where("author_id IN ?", fq.AuthorIDs)
	default:
		retweeted := r.db.Model(&models.Edge{}).
			Select("object_id").
			Where("kind = ? AND subject_id IN ?", models.EdgeRetweet, fq.RetweeterIDs)
		cond = db.Where("id IN (?)", retweeted)
	}

	var posts []*models.Post
	q := db.
		Preload("Author").
		Where("posts.is_deleted = ?", false).
		Where(cond)
	if fq.ActivityOrder && len(fq.RetweeterIDs) > 0 {
		latest := r.db.Model(&models.Edge{}).
			Select("object_id, MAX(created_at) AS last_retweet_at").
			Where("kind = ? AND subject_id IN ?", models.EdgeRetweet, fq.RetweeterIDs).
			Group("object_id")
		q = q.Select("posts.*").
			Joins("LEFT JOIN (?) AS lr ON lr.object_id = posts.id", latest).
			Order("CASE WHEN lr.last_retweet_at > posts.created_at THEN lr.last_retweet_at ELSE posts.created_at END DESC")
	}
	q = q.Order("posts.created_at DESC").Order("posts.id DESC")
	if err := limitQuery(q, fq.Limit).Find(&posts).Error; err != nil {
		return nil, database.Classify(err)
	}
	return posts, nil
}

// ListByIDs returns the live posts among ids, in no particular order.
func (r *postRepository) ListByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id IN ? AND is_deleted = ?", ids, false).
		Find(&posts).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return posts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Search matches a case-insensitive substring of content.
func (r *postRepository) Search(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	defer observability.TrackQuery("search", "posts")()

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var posts []*models.Post
	q := r.db.WithContext(ctx).
		Preload("Author").
		Where("is_deleted = ?", false).
		Where(`LOWER(content) LIKE ? ESCAPE '\'`, pattern).
		Order("created_at DESC").
		Order("id DESC")
	if err := limitQuery(q, limit).Find(&posts).Error; err != nil {
		return nil, database.Classify(err)
	}
	return posts, nil
}

// Recount recomputes every counter of a post from its edges and live children
// in a single statement.
func (r *postRepository) Recount(ctx context.Context, id uint) error {
	defer observability.TrackQuery("recount", "posts")()

	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"like_count":    gorm.Expr("(SELECT COUNT(*) FROM edges WHERE edges.kind = ? AND edges.object_id = posts.id)", models.EdgeLike),
			"retweet_count": gorm.Expr("(SELECT COUNT(*) FROM edges WHERE edges.kind = ? AND edges.object_id = posts.id)", models.EdgeRetweet),
			"reply_count":   gorm.Expr("(SELECT COUNT(*) FROM posts AS children WHERE children.parent_post_id = posts.id AND children.is_deleted = ?)", false),
		})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "recount")
		return database.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.log.LogMutation(ctx, "recount", "post_id", id)
	return nil
}

// ListIDsAfter pages through post ids in ascending order.
func (r *postRepository) ListIDsAfter(ctx context.Context, afterID uint, batch int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(batch).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return ids, nil
}
