package server

import (
	"errors"

	"socialapi/internal/models"
	"socialapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateNotificationRequest is sent by the caller as actor. FOLLOW carries no
// target; every other type names exactly one.
type CreateNotificationRequest struct {
	models.TargetIDs
	RecipientID uint                    `json:"recipient_id" validate:"required"`
	Type        models.NotificationType `json:"type" validate:"required"`
}

type MarkNotificationRequest struct {
	Read *bool `json:"read" validate:"required"`
}

// CreateNotification handles POST /api/notification
// @Summary Create notification
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateNotificationRequest true "Notification"
// @Success 201 {object} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Router /notification [post]
func (s *Server) CreateNotification(c *fiber.Ctx) error {
	var req CreateNotificationRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	in := service.CreateNotificationInput{
		RecipientID: req.RecipientID,
		ActorID:     userID(c),
		Type:        req.Type,
	}
	if req.PostID != nil || req.CommentID != nil || req.MessageID != nil {
		target, err := models.TargetFromIDs(req.TargetIDs)
		if err != nil {
			return respondError(c, err)
		}
		in.Target = &target
	}

	n, err := s.notificationService.Create(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, models.ErrSelfNotification) {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// GetNotifications handles GET /api/notification
// @Summary Notifications of the caller
// @Description Newest first
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Notification
// @Router /notification [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	list, err := s.notificationService.FindAllForUser(c.UserContext(), userID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetUnreadCount handles GET /api/notification/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	n, err := s.notificationService.UnreadCount(c.UserContext(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread": n})
}

// MarkAllNotificationsRead handles POST /api/notification/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notificationService.MarkAllRead(c.UserContext(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

// MarkNotification handles PATCH /api/notification/:id
// @Summary Mark notification read or unread
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Param request body MarkNotificationRequest true "Read state"
// @Success 200 {object} models.Notification
// @Failure 404 {object} models.ErrorResponse
// @Router /notification/{id} [patch]
func (s *Server) MarkNotification(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req MarkNotificationRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	n, err := s.notificationService.MarkRead(c.UserContext(), id, userID(c), *req.Read)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(n)
}

// DeleteNotification handles DELETE /api/notification/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.Remove(c.UserContext(), id, userID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
