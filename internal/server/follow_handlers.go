package server

import (
	"github.com/gofiber/fiber/v2"
)

type FollowRequest struct {
	FollowingID uint `json:"following_id" validate:"required"`
}

// Follow handles POST /api/follow
// @Summary Follow a user
// @Description Following someone twice returns the existing follow
// @Tags follows
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FollowRequest true "User to follow"
// @Success 201 {object} models.Follow
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /follow [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	var req FollowRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	follow, err := s.followService.Create(c.UserContext(), userID(c), req.FollowingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(follow)
}

// GetFollowing handles GET /api/follow/following/:userId
// @Summary Users someone follows
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {array} models.User
// @Router /follow/following/{userId} [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	users, err := s.followService.FindFollowing(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetFollowers handles GET /api/follow/followers/:userId
// @Summary Followers of a user
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {array} models.User
// @Router /follow/followers/{userId} [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	users, err := s.followService.FindFollowers(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// DeleteFollow handles DELETE /api/follow/:id
func (s *Server) DeleteFollow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.followService.Remove(c.UserContext(), id, userID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Unfollow handles DELETE /api/follow/user/:userId
func (s *Server) Unfollow(c *fiber.Ctx) error {
	id, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.followService.Unfollow(c.UserContext(), userID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
