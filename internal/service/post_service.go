package service

import (
	"context"
	"strings"
	"time"

	"socialapi/internal/models"
	"socialapi/internal/repository"
)

const (
	maxTitleLen = 255
	maxTextLen  = 50000 // characters
)

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

type CreatePostInput struct {
	UserID uint
	Title  string
	Text   string
}

type UpdatePostInput struct {
	UserID uint
	PostID uint
	Title  *string
	Text   *string
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{postRepo: postRepo, userRepo: userRepo}
}

func validatePostFields(title, text string) error {
	if strings.TrimSpace(title) == "" && strings.TrimSpace(text) == "" {
		return models.NewValidationError("Title or text is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 255 characters)")
	}
	if len(text) > maxTextLen {
		return models.NewValidationError("Text too long (max 50000 characters)")
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Text); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:     in.Title,
		Text:      in.Text,
		CreatorID: in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByCreator(ctx, userID, limit, offset)
}

// Update edits title and/or text and stamps edited_at. Creator only.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	title, text := post.Title, post.Text
	if in.Title != nil {
		title = *in.Title
	}
	if in.Text != nil {
		text = *in.Text
	}
	if err := validatePostFields(title, text); err != nil {
		return nil, err
	}

	now := time.Now()
	post.Title = title
	post.Text = text
	post.EditedAt = &now
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) Remove(ctx context.Context, postID, userID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.CreatorID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}
