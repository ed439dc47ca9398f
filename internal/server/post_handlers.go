package server

import (
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts.
// @Summary Create post
// @Description Publish a new root post as the authenticated user.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{content=string} true "Post content"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	content, err := parseContent(c)
	if err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		AuthorID: principal(c),
		Content:  content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post.ToView())
}

// GetPost handles GET /api/posts/:id.
// @Summary Get post
// @Description Fetch a live post with counters, annotated for the caller when authenticated.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.postService.Get(c.UserContext(), id, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// DeletePost handles DELETE /api/posts/:id.
// @Summary Delete post
// @Description Tombstone a post owned by the caller.
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.threadService.Delete(c.UserContext(), id, principal(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search posts
// @Description Case-insensitive substring search over live post content.
// @Tags posts
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {array} models.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	items, err := s.feedService.Search(c.UserContext(), c.Query("q"), principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// ReplyToPost handles POST /api/posts/:id/replies.
// @Summary Reply to post
// @Description Reply to a live post. A self-reply to the tail of an own thread continues it.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{content=string} true "Reply content"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/replies [post]
func (s *Server) ReplyToPost(c *fiber.Ctx) error {
	parentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	content, err := parseContent(c)
	if err != nil {
		return nil
	}

	post, err := s.threadService.Reply(c.UserContext(), service.ReplyInput{
		ParentPostID: parentID,
		AuthorID:     principal(c),
		Content:      content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post.ToView())
}

// GetReplies handles GET /api/posts/:id/replies.
// @Summary List replies
// @Description Layer-one replies to a post, oldest first, with the parent.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Replies
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/replies [get]
func (s *Server) GetReplies(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	replies, err := s.threadService.Layer1Replies(c.UserContext(), id, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(replies)
}

// GetThread handles GET /api/posts/:id/thread.
// @Summary Get thread
// @Description Walk the author's continuation chain starting at the post.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/thread [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.threadService.Thread(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(thread)
}
