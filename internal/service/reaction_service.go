package service

import (
	"context"
	"fmt"

	"socialapi/internal/models"
	"socialapi/internal/repository"
)

// ReactionService keeps at most one reaction per user and target.
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	targetRepo   repository.TargetRepository
	notifier     Notifier
}

func NewReactionService(reactionRepo repository.ReactionRepository, targetRepo repository.TargetRepository, notifier Notifier) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		targetRepo:   targetRepo,
		notifier:     notifier,
	}
}

// Create replaces any earlier reaction by userID on target with reactionType.
func (s *ReactionService) Create(ctx context.Context, userID uint, target models.Target, reactionType models.ReactionType) (*models.Reaction, error) {
	if !reactionType.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("invalid reaction type %q", reactionType))
	}
	ownerID, err := s.targetRepo.OwnerOf(ctx, target)
	if err != nil {
		return nil, err
	}

	reaction := &models.Reaction{
		UserID:     userID,
		TargetKind: target.Kind,
		TargetID:   target.ID,
		Type:       reactionType,
	}
	if _, err := s.reactionRepo.Replace(ctx, reaction); err != nil {
		return nil, err
	}

	notify(ctx, s.notifier, CreateNotificationInput{
		RecipientID: ownerID,
		ActorID:     userID,
		Type:        models.ReactionNotificationType(target.Kind),
		Target:      &target,
	})
	return reaction, nil
}

// Remove deletes a reaction by id. Only the reacting user may remove it.
func (s *ReactionService) Remove(ctx context.Context, reactionID, userID uint) error {
	reaction, err := s.reactionRepo.GetByID(ctx, reactionID)
	if err != nil {
		return err
	}
	if reaction.UserID != userID {
		return models.NewUnauthorizedError("You can only remove your own reactions")
	}
	return s.reactionRepo.Delete(ctx, reaction)
}

func (s *ReactionService) ListForTarget(ctx context.Context, target models.Target) ([]models.Reaction, error) {
	return s.reactionRepo.ListForTarget(ctx, target)
}
