package server

import (
	"socialapi/internal/models"
	"socialapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AttachContentRequest links an uploaded file to a post or message owned by
// the caller. Comments do not take attachments.
type AttachContentRequest struct {
	PostID    *uint              `json:"post_id"`
	MessageID *uint              `json:"message_id"`
	Kind      models.ContentKind `json:"kind" validate:"required"`
	URL       string             `json:"url" validate:"required,url,max=2048"`
	MimeType  string             `json:"mime_type" validate:"max=127"`
	Name      string             `json:"name" validate:"max=255"`
}

// AttachContent handles POST /api/content
// @Summary Attach content
// @Tags content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AttachContentRequest true "Attachment"
// @Success 201 {object} models.Content
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /content [post]
func (s *Server) AttachContent(c *fiber.Ctx) error {
	var req AttachContentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	target, err := models.TargetFromIDs(models.TargetIDs{PostID: req.PostID, MessageID: req.MessageID})
	if err != nil {
		return respondError(c, err)
	}

	content, err := s.contentService.Attach(c.UserContext(), service.AttachContentInput{
		UserID:   userID(c),
		Target:   target,
		Kind:     req.Kind,
		URL:      req.URL,
		MimeType: req.MimeType,
		Name:     req.Name,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(content)
}

// GetContents handles GET /api/content?post_id=
func (s *Server) GetContents(c *fiber.Ctx) error {
	target, err := parseTargetQuery(c)
	if err != nil {
		return nil
	}
	list, err := s.contentService.ListForTarget(c.UserContext(), target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// DeleteContent handles DELETE /api/content/:id
func (s *Server) DeleteContent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.contentService.Remove(c.UserContext(), id, userID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
