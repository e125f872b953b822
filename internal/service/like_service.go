package service

import (
	"context"

	"socialapi/internal/models"
	"socialapi/internal/repository"
)

// LikeService records likes on posts, comments and messages.
type LikeService struct {
	likeRepo   repository.LikeRepository
	targetRepo repository.TargetRepository
	notifier   Notifier
}

func NewLikeService(likeRepo repository.LikeRepository, targetRepo repository.TargetRepository, notifier Notifier) *LikeService {
	return &LikeService{
		likeRepo:   likeRepo,
		targetRepo: targetRepo,
		notifier:   notifier,
	}
}

// Create likes target on behalf of userID and notifies the target's author.
func (s *LikeService) Create(ctx context.Context, userID uint, target models.Target) (*models.Like, error) {
	ownerID, err := s.targetRepo.OwnerOf(ctx, target)
	if err != nil {
		return nil, err
	}

	existing, err := s.likeRepo.Find(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("already liked")
	}

	like := &models.Like{UserID: userID, TargetKind: target.Kind, TargetID: target.ID}
	if err := s.likeRepo.Create(ctx, like); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			return nil, models.NewValidationError("already liked")
		}
		return nil, err
	}

	notify(ctx, s.notifier, CreateNotificationInput{
		RecipientID: ownerID,
		ActorID:     userID,
		Type:        models.LikeNotificationType(target.Kind),
		Target:      &target,
	})
	return like, nil
}

// Remove deletes a like by id. Only the liker may remove it.
func (s *LikeService) Remove(ctx context.Context, likeID, userID uint) error {
	like, err := s.likeRepo.GetByID(ctx, likeID)
	if err != nil {
		return err
	}
	if like.UserID != userID {
		return models.NewUnauthorizedError("You can only remove your own likes")
	}
	return s.likeRepo.Delete(ctx, like)
}

// Unlike removes the user's like on target.
func (s *LikeService) Unlike(ctx context.Context, userID uint, target models.Target) error {
	like, err := s.likeRepo.Find(ctx, userID, target)
	if err != nil {
		return err
	}
	if like == nil {
		return models.NewNotFoundError("Like", target.String())
	}
	return s.likeRepo.Delete(ctx, like)
}

func (s *LikeService) ListForTarget(ctx context.Context, target models.Target) ([]models.Like, error) {
	return s.likeRepo.ListForTarget(ctx, target)
}
