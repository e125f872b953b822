package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"socialapi/internal/featureflags"
	"socialapi/internal/middleware"
	"socialapi/internal/models"
	"socialapi/internal/observability"
	"socialapi/internal/repository"
)

const pushTimeout = 10 * time.Second

// NotificationService persists notifications and fans them out over the
// realtime gateway and, for offline users, mobile push.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	targetRepo       repository.TargetRepository
	emitter          RealtimeEmitter
	push             PushSender
	flags            FlagChecker
}

// CreateNotificationInput describes one notification. Target is nil for FOLLOW.
type CreateNotificationInput struct {
	RecipientID uint
	ActorID     uint
	Type        models.NotificationType
	Target      *models.Target
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	targetRepo repository.TargetRepository,
	emitter RealtimeEmitter,
) *NotificationService {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		targetRepo:       targetRepo,
		emitter:          emitter,
	}
}

// WithPush enables FCM delivery for recipients without a live session.
func (s *NotificationService) WithPush(push PushSender, flags FlagChecker) *NotificationService {
	s.push = push
	s.flags = flags
	return s
}

// DescribeNotification renders the human-readable line shown for a notification.
func DescribeNotification(t models.NotificationType, actorName string) string {
	switch t {
	case models.NotificationFollow:
		return actorName + " started following you"
	case models.NotificationPostLike:
		return actorName + " liked your post"
	case models.NotificationPostComment:
		return actorName + " commented on your post"
	case models.NotificationPostReaction:
		return actorName + " reacted to your post"
	case models.NotificationCommentLike:
		return actorName + " liked your comment"
	case models.NotificationCommentReply:
		return actorName + " replied to your comment"
	case models.NotificationCommentReaction:
		return actorName + " reacted to your comment"
	case models.NotificationMessageLike:
		return actorName + " liked your message"
	case models.NotificationMessageReaction:
		return actorName + " reacted to your message"
	default:
		return actorName + " interacted with you"
	}
}

// Create validates, stores and delivers a notification. Self-notification
// returns models.ErrSelfNotification, which callers fanning out from another
// write are expected to ignore.
func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (*models.Notification, error) {
	if in.RecipientID == in.ActorID {
		return nil, models.ErrSelfNotification
	}

	kind, ok := in.Type.TargetKind()
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unknown notification type %q", in.Type))
	}
	switch {
	case kind == "" && in.Target != nil:
		return nil, models.NewValidationError(fmt.Sprintf("%s notifications do not reference a target", in.Type))
	case kind != "" && (in.Target == nil || in.Target.Kind != kind):
		return nil, models.NewValidationError(fmt.Sprintf("%s notifications require a %s target", in.Type, kind))
	}

	if _, err := s.userRepo.GetByID(ctx, in.RecipientID); err != nil {
		return nil, err
	}
	actor, err := s.userRepo.GetByID(ctx, in.ActorID)
	if err != nil {
		return nil, err
	}
	if in.Target != nil {
		if _, err := s.targetRepo.OwnerOf(ctx, *in.Target); err != nil {
			return nil, err
		}
	}

	n := &models.Notification{
		RecipientID: in.RecipientID,
		ActorID:     in.ActorID,
		Type:        in.Type,
	}
	n.SetTarget(in.Target)
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}
	n.Actor = *actor
	n.Message = DescribeNotification(n.Type, actor.DisplayName())

	s.deliver(ctx, n)
	return n, nil
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) {
	online := s.emitter.IsOnline(n.RecipientID)
	s.emitter.EmitToUser(ctx, n.RecipientID, EventNotification, n)
	if online {
		observability.NotificationsDispatched.WithLabelValues("realtime", "delivered").Inc()
		return
	}
	observability.NotificationsDispatched.WithLabelValues("realtime", "offline").Inc()

	if s.push == nil {
		return
	}
	if s.flags != nil && !s.flags.Enabled(featureflags.PushNotifications, n.RecipientID) {
		return
	}
	go s.sendPush(context.WithoutCancel(ctx), *n)
}

func (s *NotificationService) sendPush(ctx context.Context, n models.Notification) {
	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	token, err := s.userRepo.GetDeviceToken(ctx, n.RecipientID)
	if err != nil || token == "" {
		observability.NotificationsDispatched.WithLabelValues("push", "skipped").Inc()
		return
	}
	data := map[string]string{
		"notification_id": strconv.FormatUint(uint64(n.ID), 10),
		"type":            string(n.Type),
	}
	if err := s.push.Send(ctx, token, "New notification", n.Message, data); err != nil {
		observability.NotificationsDispatched.WithLabelValues("push", "failed").Inc()
		middleware.Logger.WarnContext(ctx, "push delivery failed",
			slog.Uint64("notification_id", uint64(n.ID)),
			slog.String("error", err.Error()))
		return
	}
	observability.NotificationsDispatched.WithLabelValues("push", "sent").Inc()
}

// notify is the fan-out helper used by other services. Self-notification is
// silently skipped; any other failure is logged and swallowed so that the
// originating write still succeeds.
func notify(ctx context.Context, notifier Notifier, in CreateNotificationInput) {
	if notifier == nil {
		return
	}
	if _, err := notifier.Create(ctx, in); err != nil {
		if errors.Is(err, models.ErrSelfNotification) {
			return
		}
		middleware.Logger.WarnContext(ctx, "notification not created",
			slog.String("type", string(in.Type)),
			slog.Uint64("recipient_id", uint64(in.RecipientID)),
			slog.String("error", err.Error()))
	}
}

// Notifier is the slice of NotificationService other services depend on.
type Notifier interface {
	Create(ctx context.Context, in CreateNotificationInput) (*models.Notification, error)
}

// FindAllForUser returns the user's notifications newest first with their
// rendered message.
func (s *NotificationService) FindAllForUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	list, err := s.notificationRepo.ListForRecipient(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, n := range list {
		n.Message = DescribeNotification(n.Type, n.Actor.DisplayName())
	}
	return list, nil
}

// ownNotification loads id and hides rows that belong to someone else.
func (s *NotificationService) ownNotification(ctx context.Context, id, userID uint) (*models.Notification, error) {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, models.NewNotFoundError("Notification", id)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint, read bool) (*models.Notification, error) {
	n, err := s.ownNotification(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.notificationRepo.SetRead(ctx, id, read); err != nil {
		return nil, err
	}
	n.Read = read
	n.Message = DescribeNotification(n.Type, n.Actor.DisplayName())
	return n, nil
}

func (s *NotificationService) Remove(ctx context.Context, id, userID uint) error {
	if _, err := s.ownNotification(ctx, id, userID); err != nil {
		return err
	}
	return s.notificationRepo.Delete(ctx, id)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}

// PruneRead deletes read notifications older than olderThan.
func (s *NotificationService) PruneRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, models.NewValidationError("retention must be positive")
	}
	return s.notificationRepo.DeleteReadBefore(ctx, time.Now().Add(-olderThan))
}
