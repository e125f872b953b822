package service

import (
	"context"

	"socialapi/internal/models"
	"socialapi/internal/repository"
)

// FollowService manages directed follow edges between users.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	notifier   Notifier
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository, notifier Notifier) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		notifier:   notifier,
	}
}

// Create makes followerID follow followingID. Following someone twice
// returns the existing edge without notifying again.
func (s *FollowService) Create(ctx context.Context, followerID, followingID uint) (*models.Follow, error) {
	if followerID == followingID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followerID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, followingID); err != nil {
		return nil, err
	}

	existing, err := s.followRepo.Find(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	follow := &models.Follow{FollowerID: followerID, FollowingID: followingID}
	if err := s.followRepo.Create(ctx, follow); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			// lost a race with an identical request
			return s.followRepo.Find(ctx, followerID, followingID)
		}
		return nil, err
	}

	notify(ctx, s.notifier, CreateNotificationInput{
		RecipientID: followingID,
		ActorID:     followerID,
		Type:        models.NotificationFollow,
	})
	return follow, nil
}

func (s *FollowService) FindFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID)
}

func (s *FollowService) FindFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID)
}

// Remove deletes the edge by id. Only the follower may remove it.
func (s *FollowService) Remove(ctx context.Context, id, userID uint) error {
	follow, err := s.followRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if follow.FollowerID != userID {
		return models.NewUnauthorizedError("You can only remove your own follows")
	}
	return s.followRepo.Delete(ctx, id)
}

// Unfollow removes the edge between the pair if it exists.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint) error {
	removed, err := s.followRepo.DeleteByPair(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Follow", followingID)
	}
	return nil
}
