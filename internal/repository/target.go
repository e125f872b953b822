package repository

import (
	"context"
	"fmt"

	"socialapi/internal/models"

	"gorm.io/gorm"
)

// TargetRepository resolves a polymorphic target to the row it points at.
type TargetRepository interface {
	// OwnerOf returns the author of the target: the creator of a post, the
	// writer of a comment or the sender of a message.
	OwnerOf(ctx context.Context, target models.Target) (uint, error)
}

type targetRepository struct {
	db *gorm.DB
}

func NewTargetRepository(db *gorm.DB) TargetRepository {
	return &targetRepository{db: db}
}

func (r *targetRepository) OwnerOf(ctx context.Context, target models.Target) (uint, error) {
	var (
		table, column, resource string
	)
	switch target.Kind {
	case models.TargetPost:
		table, column, resource = "posts", "creator_id", "Post"
	case models.TargetComment:
		table, column, resource = "comments", "user_id", "Comment"
	case models.TargetMessage:
		table, column, resource = "messages", "sender_id", "Message"
	default:
		return 0, models.NewValidationError(fmt.Sprintf("unknown target kind %q", target.Kind))
	}

	var owners []uint
	err := readDB(r.db).WithContext(ctx).
		Table(table).
		Where("id = ?", target.ID).
		Limit(1).
		Pluck(column, &owners).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(owners) == 0 {
		return 0, models.NewNotFoundError(resource, target.ID)
	}
	return owners[0], nil
}
