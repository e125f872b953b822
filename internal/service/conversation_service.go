package service

import (
	"context"
	"strings"

	"socialapi/internal/models"
	"socialapi/internal/repository"
)

const (
	maxMessageContentLen = 10000
	maxGroupNameLen      = 100
)

// ConversationService manages conversations and the messages sent in them.
type ConversationService struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	emitter  RealtimeEmitter
}

type CreateConversationInput struct {
	UserID         uint
	Name           string
	IsGroup        bool
	ParticipantIDs []uint
}

type SendMessageInput struct {
	UserID         uint
	ConversationID uint
	Content        string
}

func NewConversationService(convRepo repository.ConversationRepository, userRepo repository.UserRepository, emitter RealtimeEmitter) *ConversationService {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &ConversationService{
		convRepo: convRepo,
		userRepo: userRepo,
		emitter:  emitter,
	}
}

// Create opens a conversation between the initiator and participants. A
// direct conversation with the same pair is reused instead of duplicated.
func (s *ConversationService) Create(ctx context.Context, in CreateConversationInput) (*models.Conversation, error) {
	in.Name = strings.TrimSpace(in.Name)
	if len(in.Name) > maxGroupNameLen {
		return nil, models.NewValidationError("Conversation name too long (max 100 characters)")
	}

	seen := map[uint]bool{in.UserID: true}
	members := []uint{in.UserID}
	for _, id := range in.ParticipantIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) < 2 {
		return nil, models.NewValidationError("At least one other participant is required")
	}
	if !in.IsGroup && len(members) != 2 {
		return nil, models.NewValidationError("Direct conversations have exactly two participants")
	}

	users, err := s.userRepo.GetByIDs(ctx, members)
	if err != nil {
		return nil, err
	}
	if len(users) != len(members) {
		return nil, models.NewNotFoundError("Participant", "")
	}

	if !in.IsGroup {
		existing, err := s.convRepo.FindDirect(ctx, members[0], members[1])
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	conv := &models.Conversation{
		Name:        in.Name,
		IsGroup:     in.IsGroup,
		InitiatorID: in.UserID,
	}
	if err := s.convRepo.Create(ctx, conv, members); err != nil {
		return nil, err
	}
	return s.convRepo.GetByID(ctx, conv.ID)
}

func (s *ConversationService) ListForUser(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	return s.convRepo.ListForUser(ctx, userID)
}

func (s *ConversationService) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	return s.convRepo.IsParticipant(ctx, convID, userID)
}

// requireParticipant returns NotFound for a missing conversation and
// Unauthorized for an outsider.
func (s *ConversationService) requireParticipant(ctx context.Context, convID, userID uint) error {
	ok, err := s.convRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.convRepo.GetByID(ctx, convID); err != nil {
		return err
	}
	return models.NewUnauthorizedError("You are not a participant in this conversation")
}

// GetForUser returns the conversation if userID takes part in it.
func (s *ConversationService) GetForUser(ctx context.Context, convID, userID uint) (*models.Conversation, error) {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}
	return s.convRepo.GetByID(ctx, convID)
}

// Messages returns a page of the conversation, oldest first within the page.
func (s *ConversationService) Messages(ctx context.Context, convID, userID uint, limit, offset int) ([]*models.Message, error) {
	if err := s.requireParticipant(ctx, convID, userID); err != nil {
		return nil, err
	}
	return s.convRepo.ListMessages(ctx, convID, limit, offset)
}

// SendMessage stores a message and broadcasts message:new to the
// conversation room.
func (s *ConversationService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(in.Content) > maxMessageContentLen {
		return nil, models.NewValidationError("Message content too long (max 10000 characters)")
	}
	if err := s.requireParticipant(ctx, in.ConversationID, in.UserID); err != nil {
		return nil, err
	}

	message := &models.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.UserID,
		Content:        in.Content,
	}
	if err := s.convRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	if sender, err := s.userRepo.GetByID(ctx, in.UserID); err == nil {
		message.Sender = sender
	}

	s.emitter.EmitToConversation(ctx, in.ConversationID, EventMessageNew, message)
	return message, nil
}

// GetMessage returns a message to a participant of its conversation.
func (s *ConversationService) GetMessage(ctx context.Context, messageID, userID uint) (*models.Message, error) {
	message, err := s.convRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, message.ConversationID, userID); err != nil {
		return nil, err
	}
	return message, nil
}
