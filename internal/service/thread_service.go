package service

import (
	"context"

	"warbler/internal/events"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ThreadService classifies and links replies, renders threads and reply
// layers, and tombstones posts.
type ThreadService struct {
	store     *repository.Store
	events    EventPublisher
	maxLength int
	maxItems  int
	log       *observability.ServiceLogger
}

type ReplyInput struct {
	ParentPostID uint
	AuthorID     uint
	Content      string
}

// NewThreadService creates the thread graph service.
func NewThreadService(store *repository.Store, pub EventPublisher, maxLength, maxItems int) *ThreadService {
	return &ThreadService{
		store:     store,
		events:    pub,
		maxLength: maxLength,
		maxItems:  maxItems,
		log:       observability.NewServiceLogger("thread"),
	}
}

// Reply posts a child of in.ParentPostID. When the author also wrote the
// parent and the parent has no continuation yet, the child becomes the
// parent's thread continuation; otherwise it is an ordinary reply.
func (s *ThreadService) Reply(ctx context.Context, in ReplyInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "thread.reply")
	defer span.End()
	span.AddAttributes(attribute.Int64("post.parent_id", int64(in.ParentPostID)))

	if err := requirePrincipal(in.AuthorID); err != nil {
		return nil, err
	}
	content, err := validateContent(in.Content, s.maxLength)
	if err != nil {
		return nil, err
	}

	parentID := in.ParentPostID
	child := &models.Post{
		AuthorID:     in.AuthorID,
		Content:      content,
		ParentPostID: &parentID,
		IsReply:      true,
	}
	var parentAuthor uint
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		parent, err := tx.Posts.GetLive(ctx, parentID)
		if err != nil {
			return err
		}
		parentAuthor = parent.AuthorID

		author, err := tx.Users.GetByID(ctx, in.AuthorID)
		if err != nil {
			return err
		}
		if err := tx.Posts.Create(ctx, child); err != nil {
			return err
		}
		child.Author = *author

		if parent.AuthorID == in.AuthorID && parent.NextPostInThreadID == nil {
			won, err := tx.Posts.ClaimContinuation(ctx, parentID, in.AuthorID, child.ID)
			if err != nil {
				return err
			}
			if won {
				threadID := parent.ID
				if parent.ThreadID != nil {
					threadID = *parent.ThreadID
				}
				if err := tx.Posts.MarkContinuation(ctx, child.ID, threadID); err != nil {
					return err
				}
				child.IsThread, child.IsReply, child.ThreadID = true, false, &threadID
			}
		}

		return tx.Posts.AdjustCounter(ctx, parentID, models.CounterReplies, 1)
	})
	if err != nil {
		span.SetError(err)
		s.log.LogFailure(ctx, "reply", err, expectedFailure(err))
		return nil, err
	}

	span.AddAttributes(attribute.Bool("post.is_thread", child.IsThread))
	s.log.LogCall(ctx, "reply", "post_id", child.ID, "parent_id", parentID, "is_thread", child.IsThread)
	publish(ctx, s.events, events.Event{Type: events.TypeReply, ActorID: in.AuthorID, PostID: parentID, TargetUserID: parentAuthor})
	return child, nil
}

// Thread returns the live posts sharing postID's thread in chain order. A
// post outside any thread yields an empty list.
func (s *ThreadService) Thread(ctx context.Context, postID uint) ([]models.PostView, error) {
	reader := s.store.Reader()
	post, err := reader.Posts.GetLive(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.ThreadID == nil {
		return []models.PostView{}, nil
	}
	posts, err := reader.Posts.ListThread(ctx, *post.ThreadID)
	if err != nil {
		return nil, err
	}
	return views(posts), nil
}

// Layer1Replies returns the direct replies to postID annotated for viewerID,
// plus the thread chain when postID belongs to one. A tombstoned parent is
// rendered as a marker so its surviving replies stay reachable.
func (s *ThreadService) Layer1Replies(ctx context.Context, postID, viewerID uint) (*models.Replies, error) {
	reader := s.store.Reader()
	parent, err := reader.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	replies, err := reader.Posts.ListReplies(ctx, postID, capLimit(0, s.maxItems))
	if err != nil {
		return nil, err
	}
	items, err := annotate(ctx, reader.Edges, replies, viewerID)
	if err != nil {
		return nil, err
	}

	out := &models.Replies{Parent: parent.ToView(), Replies: items}
	if parent.ThreadID != nil {
		chain, err := reader.Posts.ListThread(ctx, *parent.ThreadID)
		if err != nil {
			return nil, err
		}
		out.Thread = views(chain)
	}
	return out, nil
}

// Delete tombstones postID on behalf of requesterID and releases its slot in
// the parent's reply count. Children are left in place.
func (s *ThreadService) Delete(ctx context.Context, postID, requesterID uint) error {
	if err := requirePrincipal(requesterID); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.GetLive(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != requesterID {
			return models.NewUnauthorizedError("Only the author can delete this post")
		}
		if err := tx.Posts.Tombstone(ctx, postID); err != nil {
			return err
		}
		if post.ParentPostID != nil {
			return tx.Posts.AdjustCounter(ctx, *post.ParentPostID, models.CounterReplies, -1)
		}
		return nil
	})
	if err != nil {
		s.log.LogFailure(ctx, "delete", err, expectedFailure(err))
		return err
	}

	s.log.LogCall(ctx, "delete", "post_id", postID, "requester_id", requesterID)
	publish(ctx, s.events, events.Event{Type: events.TypeDelete, ActorID: requesterID, PostID: postID})
	return nil
}
