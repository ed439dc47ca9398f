package service

import (
	"context"

	"warbler/internal/events"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

// PostService creates and reads root posts.
type PostService struct {
	store     *repository.Store
	events    EventPublisher
	maxLength int
	log       *observability.ServiceLogger
}

type CreatePostInput struct {
	AuthorID uint
	Content  string
}

// NewPostService creates a post service. maxLength <= 0 uses DefaultPostMaxLength.
func NewPostService(store *repository.Store, pub EventPublisher, maxLength int) *PostService {
	return &PostService{
		store:     store,
		events:    pub,
		maxLength: maxLength,
		log:       observability.NewServiceLogger("post"),
	}
}

// Create stores a new root post for in.AuthorID.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := requirePrincipal(in.AuthorID); err != nil {
		return nil, err
	}
	content, err := validateContent(in.Content, s.maxLength)
	if err != nil {
		return nil, err
	}

	post := &models.Post{AuthorID: in.AuthorID, Content: content}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		author, err := tx.Users.GetByID(ctx, in.AuthorID)
		if err != nil {
			return err
		}
		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}
		post.Author = *author
		return nil
	})
	if err != nil {
		s.log.LogFailure(ctx, "create", err, expectedFailure(err))
		return nil, err
	}

	s.log.LogCall(ctx, "create", "post_id", post.ID, "author_id", post.AuthorID)
	publish(ctx, s.events, events.Event{Type: events.TypePostCreated, ActorID: post.AuthorID, PostID: post.ID})
	return post, nil
}

// Get returns one live post annotated for viewerID (0 for anonymous).
func (s *PostService) Get(ctx context.Context, postID, viewerID uint) (*models.FeedItem, error) {
	reader := s.store.Reader()
	post, err := reader.Posts.GetLive(ctx, postID)
	if err != nil {
		return nil, err
	}
	items, err := annotate(ctx, reader.Edges, []*models.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}
