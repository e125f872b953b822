package repository

import (
	"context"

	"socialapi/internal/cache"
	"socialapi/internal/models"

	"gorm.io/gorm"
)

// ContentRepository stores attachment rows for posts and messages.
type ContentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	GetByID(ctx context.Context, id uint) (*models.Content, error)
	ListForTarget(ctx context.Context, target models.Target) ([]models.Content, error)
	Delete(ctx context.Context, content *models.Content) error
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(ctx context.Context, content *models.Content) error {
	if err := r.db.WithContext(ctx).Create(content).Error; err != nil {
		return models.NewInternalError(err)
	}
	invalidateTarget(ctx, content.Target())
	return nil
}

func (r *contentRepository) GetByID(ctx context.Context, id uint) (*models.Content, error) {
	var content models.Content
	if err := r.db.WithContext(ctx).First(&content, id).Error; err != nil {
		return nil, findErr(err, "Content", id)
	}
	return &content, nil
}

func (r *contentRepository) ListForTarget(ctx context.Context, target models.Target) ([]models.Content, error) {
	byTarget, err := contentsByTarget(ctx, readDB(r.db), target.Kind, []uint{target.ID})
	if err != nil {
		return nil, err
	}
	if list := byTarget[target.ID]; list != nil {
		return list, nil
	}
	return []models.Content{}, nil
}

func (r *contentRepository) Delete(ctx context.Context, content *models.Content) error {
	if err := r.db.WithContext(ctx).Delete(&models.Content{}, content.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	if content.TargetKind == models.TargetPost {
		cache.InvalidatePost(ctx, content.TargetID)
	}
	return nil
}

// contentsByTarget loads the attachments of many targets of one kind, keyed
// by target id, in upload order.
func contentsByTarget(ctx context.Context, db *gorm.DB, kind models.TargetKind, ids []uint) (map[uint][]models.Content, error) {
	out := make(map[uint][]models.Content, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var contents []models.Content
	if err := db.WithContext(ctx).
		Where("target_kind = ? AND target_id IN ?", kind, ids).
		Order("id ASC").
		Find(&contents).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range contents {
		out[c.TargetID] = append(out[c.TargetID], c)
	}
	return out, nil
}
