package server

import (
	"socialapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateConversationRequest starts a direct or group conversation. A direct
// conversation with the same partner is reused.
type CreateConversationRequest struct {
	Name           string `json:"name" validate:"max=100"`
	IsGroup        bool   `json:"is_group"`
	ParticipantIDs []uint `json:"participant_ids" validate:"required,min=1,max=50,dive,gt=0"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// CreateConversation handles POST /api/conversation
// @Summary Create conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateConversationRequest true "Participants"
// @Success 201 {object} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Router /conversation [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req CreateConversationRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	conv, err := s.conversationService.Create(c.UserContext(), service.CreateConversationInput{
		UserID:         userID(c),
		Name:           req.Name,
		IsGroup:        req.IsGroup,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// GetConversations handles GET /api/conversation
func (s *Server) GetConversations(c *fiber.Ctx) error {
	convs, err := s.conversationService.ListForUser(c.UserContext(), userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convs)
}

// GetConversation handles GET /api/conversation/:id
// @Summary Get conversation
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} models.Conversation
// @Failure 403 {object} models.ErrorResponse
// @Router /conversation/{id} [get]
func (s *Server) GetConversation(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	conv, err := s.conversationService.GetForUser(c.UserContext(), id, userID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conv)
}

// GetMessages handles GET /api/conversation/:id/messages
// @Summary Messages of a conversation
// @Tags conversations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Message
// @Router /conversation/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	msgs, err := s.conversationService.Messages(c.UserContext(), id, userID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/conversation/:id/messages
// @Summary Send message
// @Description Stores the message and emits message:new to the conversation room
// @Tags conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Param request body SendMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Router /conversation/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req SendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.conversationService.SendMessage(c.UserContext(), service.SendMessageInput{
		UserID:         userID(c),
		ConversationID: id,
		Content:        req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
