package server

import (
	"context"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

type engagementFunc func(ctx context.Context, postID, userID uint) (*models.EngagementState, error)

func (s *Server) engage(c *fiber.Ctx, fn engagementFunc) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := fn(c.UserContext(), postID, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(mutationStatus(state.Created)).JSON(state)
}

// LikePost handles POST /api/posts/:id/like.
// @Summary Like post
// @Description Like a post. Repeating the call returns the current state with 200.
// @Tags engagement
// @Produce json
// @Param id path int true "Post ID"
// @Success 201 {object} models.EngagementState
// @Success 200 {object} models.EngagementState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.engage(c, s.engagementService.Like)
}

// UnlikePost handles DELETE /api/posts/:id/like.
// @Summary Unlike post
// @Description Remove the caller's like.
// @Tags engagement
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.EngagementState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/like [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.engage(c, s.engagementService.Unlike)
}

// RetweetPost handles POST /api/posts/:id/retweet.
// @Summary Retweet post
// @Description Retweet a post. Repeating the call returns the current state with 200.
// @Tags engagement
// @Produce json
// @Param id path int true "Post ID"
// @Success 201 {object} models.EngagementState
// @Success 200 {object} models.EngagementState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/retweet [post]
func (s *Server) RetweetPost(c *fiber.Ctx) error {
	return s.engage(c, s.engagementService.Retweet)
}

// UnretweetPost handles DELETE /api/posts/:id/retweet.
// @Summary Undo retweet
// @Description Remove the caller's retweet.
// @Tags engagement
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.EngagementState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/retweet [delete]
func (s *Server) UnretweetPost(c *fiber.Ctx) error {
	return s.engage(c, s.engagementService.Unretweet)
}

// GetLikingUsers handles GET /api/posts/:id/likes.
// @Summary List likers
// @Description Users who liked the post, newest first.
// @Tags engagement
// @Produce json
// @Param id path int true "Post ID"
// @Param limit query int false "Maximum results"
// @Success 200 {array} models.Connection
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/likes [get]
func (s *Server) GetLikingUsers(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.engagementService.LikingUsers(c.UserContext(), postID, parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetRetweetingUsers handles GET /api/posts/:id/retweets.
// @Summary List retweeters
// @Description Users who retweeted the post, newest first.
// @Tags engagement
// @Produce json
// @Param id path int true "Post ID"
// @Param limit query int false "Maximum results"
// @Success 200 {array} models.Connection
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/retweets [get]
func (s *Server) GetRetweetingUsers(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.engagementService.RetweetingUsers(c.UserContext(), postID, parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetLikedPosts handles GET /api/users/:id/likes.
// @Summary List liked posts
// @Description Live posts the user liked, most recent like first.
// @Tags engagement
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/likes [get]
func (s *Server) GetLikedPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	items, err := s.engagementService.LikedPosts(c.UserContext(), userID, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetRetweetedPosts handles GET /api/users/:id/retweets.
// @Summary List retweeted posts
// @Description Live posts the user retweeted, most recent retweet first.
// @Tags engagement
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/retweets [get]
func (s *Server) GetRetweetedPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	items, err := s.engagementService.RetweetedPosts(c.UserContext(), userID, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}
