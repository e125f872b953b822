package repository

import (
	"context"
	"errors"

	"socialapi/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository stores conversations, their participants and messages.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation, participantIDs []uint) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]*models.Conversation, error)
	FindDirect(ctx context.Context, userA, userB uint) (*models.Conversation, error)
	IsParticipant(ctx context.Context, convID, userID uint) (bool, error)
	ParticipantIDs(ctx context.Context, convID uint) ([]uint, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create inserts the conversation and its participant rows together.
func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation, participantIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants", "Messages").Create(conv).Error; err != nil {
			return err
		}
		rows := make([]models.ConversationParticipant, 0, len(participantIDs))
		for _, id := range participantIDs {
			rows = append(rows, models.ConversationParticipant{ConversationID: conv.ID, UserID: id})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&conv, id).Error
	if err != nil {
		return nil, findErr(err, "Conversation", id)
	}
	return &conv, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := readDB(r.db).WithContext(ctx).
		Joins("JOIN conversation_participants cp ON conversations.id = cp.conversation_id").
		Where("cp.user_id = ?", userID).
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			// latest message per conversation is picked below
			return db.Order("created_at DESC")
		}).
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range conversations {
		if len(c.Messages) > 1 {
			c.Messages = c.Messages[:1]
		}
	}
	return conversations, nil
}

// FindDirect returns the non-group conversation between exactly a and b, or (nil, nil).
func (r *conversationRepository) FindDirect(ctx context.Context, userA, userB uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("is_group = ?", false).
		Where("id IN (?)", r.db.Model(&models.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", userA)).
		Where("id IN (?)", r.db.Model(&models.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", userB)).
		Where("NOT EXISTS (SELECT 1 FROM conversation_participants extra WHERE extra.conversation_id = conversations.id AND extra.user_id NOT IN (?, ?))", userA, userB).
		Order("updated_at DESC").
		Preload("Participants").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

func (r *conversationRepository) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *conversationRepository) ParticipantIDs(ctx context.Context, convID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", convID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *conversationRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sender").Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *conversationRepository) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).Preload("Sender").First(&msg, id).Error; err != nil {
		return nil, findErr(err, "Message", id)
	}
	if err := r.attachContents(ctx, []*models.Message{&msg}); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns a page of the newest messages in chronological order.
func (r *conversationRepository) ListMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := readDB(r.db).WithContext(ctx).
		Where("conversation_id = ?", convID).
		Preload("Sender").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if err := r.attachContents(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *conversationRepository) attachContents(ctx context.Context, messages []*models.Message) error {
	ids := make([]uint, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	byMessage, err := contentsByTarget(ctx, readDB(r.db), models.TargetMessage, ids)
	if err != nil {
		return err
	}
	for _, m := range messages {
		m.Contents = byMessage[m.ID]
	}
	return nil
}
