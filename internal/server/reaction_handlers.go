package server

import (
	"socialapi/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ReactRequest sets the caller's reaction on one target, replacing any
// previous reaction there.
type ReactRequest struct {
	models.TargetIDs
	Type models.ReactionType `json:"type" validate:"required"`
}

// React handles POST /api/reaction
// @Summary React to a post, comment or message
// @Tags reactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReactRequest true "Target and reaction type"
// @Success 201 {object} models.Reaction
// @Failure 400 {object} models.ErrorResponse
// @Router /reaction [post]
func (s *Server) React(c *fiber.Ctx) error {
	var req ReactRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	target, err := models.TargetFromIDs(req.TargetIDs)
	if err != nil {
		return respondError(c, err)
	}

	reaction, err := s.reactionService.Create(c.UserContext(), userID(c), target, req.Type)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reaction)
}

// GetReactions handles GET /api/reaction?post_id=
func (s *Server) GetReactions(c *fiber.Ctx) error {
	target, err := parseTargetQuery(c)
	if err != nil {
		return nil
	}
	reactions, err := s.reactionService.ListForTarget(c.UserContext(), target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reactions)
}

// DeleteReaction handles DELETE /api/reaction/:id
func (s *Server) DeleteReaction(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.reactionService.Remove(c.UserContext(), id, userID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
