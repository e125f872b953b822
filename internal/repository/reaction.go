package repository

import (
	"context"
	"errors"

	"socialapi/internal/models"

	"gorm.io/gorm"
)

// ReactionRepository stores at most one reaction per (user, target).
type ReactionRepository interface {
	Replace(ctx context.Context, reaction *models.Reaction) (replaced bool, err error)
	GetByID(ctx context.Context, id uint) (*models.Reaction, error)
	Find(ctx context.Context, userID uint, target models.Target) (*models.Reaction, error)
	Delete(ctx context.Context, reaction *models.Reaction) error
	ListForTarget(ctx context.Context, target models.Target) ([]models.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Replace deletes the user's existing reaction on the same target and
// inserts reaction, in one transaction.
func (r *reactionRepository) Replace(ctx context.Context, reaction *models.Reaction) (bool, error) {
	var replaced bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND target_kind = ? AND target_id = ?",
			reaction.UserID, reaction.TargetKind, reaction.TargetID).
			Delete(&models.Reaction{})
		if res.Error != nil {
			return res.Error
		}
		replaced = res.RowsAffected > 0
		return tx.Create(reaction).Error
	})
	if err != nil {
		return false, writeErr(err, "reaction changed concurrently, retry")
	}
	invalidateTarget(ctx, reaction.Target())
	return replaced, nil
}

func (r *reactionRepository) GetByID(ctx context.Context, id uint) (*models.Reaction, error) {
	var reaction models.Reaction
	if err := r.db.WithContext(ctx).First(&reaction, id).Error; err != nil {
		return nil, findErr(err, "Reaction", id)
	}
	return &reaction, nil
}

// Find returns (nil, nil) when the user has not reacted to target.
func (r *reactionRepository) Find(ctx context.Context, userID uint, target models.Target) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, target.Kind, target.ID).
		First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &reaction, nil
}

func (r *reactionRepository) Delete(ctx context.Context, reaction *models.Reaction) error {
	if err := r.db.WithContext(ctx).Delete(&models.Reaction{}, reaction.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	invalidateTarget(ctx, reaction.Target())
	return nil
}

func (r *reactionRepository) ListForTarget(ctx context.Context, target models.Target) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := readDB(r.db).WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Order("created_at DESC").
		Find(&reactions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reactions, nil
}
