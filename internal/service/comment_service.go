package service

import (
	"context"
	"strings"

	"socialapi/internal/models"
	"socialapi/internal/repository"
)

const (
	maxCommentLen       = 10000
	DefaultCommentDepth = 1
	MaxCommentDepth     = 5
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	notifier    Notifier
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Text     string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Text      string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

func validateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return models.NewValidationError("Text is required")
	}
	if len(text) > maxCommentLen {
		return models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return nil
}

func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := validateCommentText(in.Text); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if models.ErrorCode(err) == models.CodeNotFound {
				return nil, models.NewValidationError("Parent comment does not exist")
			}
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		Text:     in.Text,
		UserID:   in.UserID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	postTarget := models.PostTarget(post.ID)
	notify(ctx, s.notifier, CreateNotificationInput{
		RecipientID: post.CreatorID,
		ActorID:     in.UserID,
		Type:        models.NotificationPostComment,
		Target:      &postTarget,
	})
	if parent != nil && parent.UserID != post.CreatorID {
		parentTarget := models.CommentTarget(parent.ID)
		notify(ctx, s.notifier, CreateNotificationInput{
			RecipientID: parent.UserID,
			ActorID:     in.UserID,
			Type:        models.NotificationCommentReply,
			Target:      &parentTarget,
		})
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.commentRepo.GetByID(ctx, id)
}

// ListForPost returns the post's top-level comments with replies nested
// depth levels deep. Deeper replies are cut off as empty lists.
func (s *CommentService) ListForPost(ctx context.Context, postID uint, depth int) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	flat, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if depth <= 0 {
		depth = DefaultCommentDepth
	}
	if depth > MaxCommentDepth {
		depth = MaxCommentDepth
	}
	return buildCommentTree(flat, depth), nil
}

// buildCommentTree links a flat, oldest-first list into a forest using an
// id index. Comments whose parent is missing are promoted to roots.
func buildCommentTree(flat []*models.Comment, depth int) []*models.Comment {
	byID := make(map[uint]*models.Comment, len(flat))
	for _, c := range flat {
		c.Replies = []*models.Comment{}
		byID[c.ID] = c
	}

	roots := make([]*models.Comment, 0, len(flat))
	for _, c := range flat {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok && parent != c {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}

	truncateReplies(roots, depth)
	return roots
}

func truncateReplies(level []*models.Comment, depth int) {
	for _, c := range level {
		if depth <= 0 {
			c.Replies = []*models.Comment{}
			continue
		}
		truncateReplies(c.Replies, depth-1)
	}
}

func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own comments")
	}
	if err := validateCommentText(in.Text); err != nil {
		return nil, err
	}

	comment.Text = in.Text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) Remove(ctx context.Context, commentID, userID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewUnauthorizedError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, commentID)
}
