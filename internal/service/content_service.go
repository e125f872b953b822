package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"socialapi/internal/models"
	"socialapi/internal/repository"
)

// ContentService attaches uploaded media to posts and messages.
type ContentService struct {
	contentRepo repository.ContentRepository
	targetRepo  repository.TargetRepository
	// allowedPrefixes restricts attachment URLs to known storage hosts when set.
	allowedPrefixes []string
}

type AttachContentInput struct {
	UserID   uint
	Target   models.Target
	Kind     models.ContentKind
	URL      string
	MimeType string
	Name     string
}

func NewContentService(contentRepo repository.ContentRepository, targetRepo repository.TargetRepository, allowedPrefixes ...string) *ContentService {
	prefixes := make([]string, 0, len(allowedPrefixes))
	for _, p := range allowedPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &ContentService{
		contentRepo:     contentRepo,
		targetRepo:      targetRepo,
		allowedPrefixes: prefixes,
	}
}

func (s *ContentService) validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.NewValidationError("url must be an absolute http(s) URL")
	}
	if len(s.allowedPrefixes) == 0 {
		return nil
	}
	for _, p := range s.allowedPrefixes {
		if strings.HasPrefix(raw, p) {
			return nil
		}
	}
	return models.NewValidationError("url must point at the configured upload storage")
}

// Attach records an uploaded file on a post or message owned by the caller.
func (s *ContentService) Attach(ctx context.Context, in AttachContentInput) (*models.Content, error) {
	if in.Target.Kind != models.TargetPost && in.Target.Kind != models.TargetMessage {
		return nil, models.NewValidationError("content can only be attached to posts and messages")
	}
	if !in.Kind.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("invalid content kind %q", in.Kind))
	}
	if err := s.validateURL(in.URL); err != nil {
		return nil, err
	}

	ownerID, err := s.targetRepo.OwnerOf(ctx, in.Target)
	if err != nil {
		return nil, err
	}
	if ownerID != in.UserID {
		return nil, models.NewUnauthorizedError(fmt.Sprintf("You can only attach content to your own %s", in.Target.Kind))
	}

	content := &models.Content{
		TargetKind: in.Target.Kind,
		TargetID:   in.Target.ID,
		OwnerID:    in.UserID,
		Kind:       in.Kind,
		URL:        in.URL,
		MimeType:   in.MimeType,
		Name:       in.Name,
	}
	if err := s.contentRepo.Create(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *ContentService) ListForTarget(ctx context.Context, target models.Target) ([]models.Content, error) {
	return s.contentRepo.ListForTarget(ctx, target)
}

// Remove deletes an attachment. Only its owner may remove it.
func (s *ContentService) Remove(ctx context.Context, id, userID uint) error {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if content.OwnerID != userID {
		return models.NewUnauthorizedError("You can only remove your own content")
	}
	return s.contentRepo.Delete(ctx, content)
}
