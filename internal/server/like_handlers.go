package server

import (
	"socialapi/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseTargetQuery reads exactly one of post_id, comment_id or message_id
// from the query string. On failure it writes a 400 and returns errResponseWritten.
func parseTargetQuery(c *fiber.Ctx) (models.Target, error) {
	var ids models.TargetIDs
	if err := c.QueryParser(&ids); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid query parameters"))
		return models.Target{}, errResponseWritten
	}
	t, err := models.TargetFromIDs(ids)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, err)
		return models.Target{}, errResponseWritten
	}
	return t, nil
}

// LikeRequest names the liked entity by exactly one id.
type LikeRequest struct {
	models.TargetIDs
}

// Like handles POST /api/like
// @Summary Like a post, comment or message
// @Tags likes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LikeRequest true "Exactly one of post_id, comment_id, message_id"
// @Success 201 {object} models.Like
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /like [post]
func (s *Server) Like(c *fiber.Ctx) error {
	var req LikeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	target, err := models.TargetFromIDs(req.TargetIDs)
	if err != nil {
		return respondError(c, err)
	}

	like, err := s.likeService.Create(c.UserContext(), userID(c), target)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// GetLikes handles GET /api/like?post_id=
// @Summary Likes of a target
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param post_id query int false "Post ID"
// @Param comment_id query int false "Comment ID"
// @Param message_id query int false "Message ID"
// @Success 200 {array} models.Like
// @Router /like [get]
func (s *Server) GetLikes(c *fiber.Ctx) error {
	target, err := parseTargetQuery(c)
	if err != nil {
		return nil
	}
	likes, err := s.likeService.ListForTarget(c.UserContext(), target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(likes)
}

// DeleteLike handles DELETE /api/like/:id
func (s *Server) DeleteLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.likeService.Remove(c.UserContext(), id, userID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Unlike handles DELETE /api/like?post_id=
func (s *Server) Unlike(c *fiber.Ctx) error {
	target, err := parseTargetQuery(c)
	if err != nil {
		return nil
	}
	if err := s.likeService.Unlike(c.UserContext(), userID(c), target); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
