package server

import (
	"github.com/gofiber/fiber/v2"
)

// FollowUser handles POST /api/users/:id/follow.
// @Summary Follow user
// @Description Follow a user. Repeating the call returns the current state with 200.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 201 {object} models.FollowState
// @Success 200 {object} models.FollowState
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.followService.Follow(c.UserContext(), principal(c), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(mutationStatus(state.Created)).JSON(state)
}

// UnfollowUser handles DELETE /api/users/:id/follow.
// @Summary Unfollow user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.FollowState
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.followService.Unfollow(c.UserContext(), principal(c), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// GetFollowStatus handles GET /api/users/:id/follow.
// @Summary Get follow status
// @Description Report whether the caller follows the user.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{following=bool}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/{id}/follow [get]
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	following, err := s.followService.IsFollowing(c.UserContext(), principal(c), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": following})
}

// GetFollowers handles GET /api/users/:id/followers.
// @Summary List followers
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Maximum results"
// @Success 200 {array} models.Connection
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.followService.Followers(c.UserContext(), userID, parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:id/following.
// @Summary List followed users
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Maximum results"
// @Success 200 {array} models.Connection
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.followService.Following(c.UserContext(), userID, parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUserTimeline handles GET /api/users/:id/timeline.
// @Summary Get user timeline
// @Description Live posts the user authored or retweeted, newest first.
// @Tags feed
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/timeline [get]
func (s *Server) GetUserTimeline(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	items, err := s.feedService.UserTimeline(c.UserContext(), userID, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetHomeFeed handles GET /api/feed.
// @Summary Get home feed
// @Description Posts authored or retweeted by users the caller follows.
// @Tags feed
// @Produce json
// @Success 200 {array} models.FeedItem
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /feed [get]
func (s *Server) GetHomeFeed(c *fiber.Ctx) error {
	items, err := s.feedService.HomeFeed(c.UserContext(), principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// SearchUsers handles GET /api/users/search?q=...
// @Summary Search users
// @Description Case-insensitive substring search over handle and display name.
// @Tags users
// @Produce json
// @Param q query string true "Search text"
// @Param limit query int false "Maximum results"
// @Success 200 {array} models.UserView
// @Failure 400 {object} models.ErrorResponse
// @Router /users/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.userService.Search(c.UserContext(), c.Query("q"), parseLimit(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetUserByHandle handles GET /api/users/by-handle/:handle.
// @Summary Get user by handle
// @Description Resolve a handle, ignoring case.
// @Tags users
// @Produce json
// @Param handle path string true "User handle"
// @Success 200 {object} models.UserView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/by-handle/{handle} [get]
func (s *Server) GetUserByHandle(c *fiber.Ctx) error {
	user, err := s.userService.GetByHandle(c.UserContext(), c.Params("handle"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
