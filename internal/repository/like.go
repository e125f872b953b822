package repository

import (
	"context"
	"errors"

	"socialapi/internal/cache"
	"socialapi/internal/models"

	"gorm.io/gorm"
)

// LikeRepository stores likes keyed by (user, target).
type LikeRepository interface {
	Create(ctx context.Context, like *models.Like) error
	GetByID(ctx context.Context, id uint) (*models.Like, error)
	Find(ctx context.Context, userID uint, target models.Target) (*models.Like, error)
	Delete(ctx context.Context, like *models.Like) error
	ListForTarget(ctx context.Context, target models.Target) ([]models.Like, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func invalidateTarget(ctx context.Context, target models.Target) {
	if target.Kind == models.TargetPost {
		cache.InvalidatePost(ctx, target.ID)
	}
}

func (r *likeRepository) Create(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		return writeErr(err, "already liked")
	}
	invalidateTarget(ctx, like.Target())
	return nil
}

func (r *likeRepository) GetByID(ctx context.Context, id uint) (*models.Like, error) {
	var like models.Like
	if err := r.db.WithContext(ctx).First(&like, id).Error; err != nil {
		return nil, findErr(err, "Like", id)
	}
	return &like, nil
}

// Find returns (nil, nil) when the user has not liked target.
func (r *likeRepository) Find(ctx context.Context, userID uint, target models.Target) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, target.Kind, target.ID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &like, nil
}

func (r *likeRepository) Delete(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).Delete(&models.Like{}, like.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	invalidateTarget(ctx, like.Target())
	return nil
}

func (r *likeRepository) ListForTarget(ctx context.Context, target models.Target) ([]models.Like, error) {
	var likes []models.Like
	err := readDB(r.db).WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Order("created_at DESC").
		Find(&likes).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return likes, nil
}
