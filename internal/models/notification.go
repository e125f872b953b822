package models

import "time"

// NotificationType identifies what happened.
type NotificationType string

const (
	NotificationFollow          NotificationType = "FOLLOW"
	NotificationPostLike        NotificationType = "POST_LIKE"
	NotificationPostComment     NotificationType = "POST_COMMENT"
	NotificationPostReaction    NotificationType = "POST_REACTION"
	NotificationCommentLike     NotificationType = "COMMENT_LIKE"
	NotificationCommentReply    NotificationType = "COMMENT_REPLY"
	NotificationCommentReaction NotificationType = "COMMENT_REACTION"
	NotificationMessageLike     NotificationType = "MESSAGE_LIKE"
	NotificationMessageReaction NotificationType = "MESSAGE_REACTION"
)

// TargetKind returns the kind of target a notification of this type refers
// to. ok is false for unknown types; FOLLOW returns ("", true).
func (t NotificationType) TargetKind() (kind TargetKind, ok bool) {
	switch t {
	case NotificationFollow:
		return "", true
	case NotificationPostLike, NotificationPostComment, NotificationPostReaction:
		return TargetPost, true
	case NotificationCommentLike, NotificationCommentReply, NotificationCommentReaction:
		return TargetComment, true
	case NotificationMessageLike, NotificationMessageReaction:
		return TargetMessage, true
	}
	return "", false
}

// LikeNotificationType and ReactionNotificationType pick the type for a
// like or reaction on the given kind.
func LikeNotificationType(kind TargetKind) NotificationType {
	switch kind {
	case TargetComment:
		return NotificationCommentLike
	case TargetMessage:
		return NotificationMessageLike
	default:
		return NotificationPostLike
	}
}

func ReactionNotificationType(kind TargetKind) NotificationType {
	switch kind {
	case TargetComment:
		return NotificationCommentReaction
	case TargetMessage:
		return NotificationMessageReaction
	default:
		return NotificationPostReaction
	}
}

// Notification is a persisted event addressed to one recipient.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index:idx_notification_recipient_created,priority:1" json:"recipient_id"`
	ActorID     uint             `gorm:"not null" json:"actor_id"`
	Actor       User             `gorm:"foreignKey:ActorID" json:"actor"`
	Type        NotificationType `gorm:"size:32;not null" json:"type"`
	TargetKind  *TargetKind      `gorm:"size:16" json:"target_kind,omitempty"`
	TargetID    *uint            `json:"target_id,omitempty"`
	Read        bool             `gorm:"not null;default:false" json:"read"`
	Message     string           `gorm:"-" json:"message"`
	CreatedAt   time.Time        `gorm:"index:idx_notification_recipient_created,priority:2" json:"created_at"`
}

// Target returns the referenced target, if any.
func (n *Notification) Target() (Target, bool) {
	if n.TargetKind == nil || n.TargetID == nil {
		return Target{}, false
	}
	return Target{Kind: *n.TargetKind, ID: *n.TargetID}, true
}

// SetTarget stores t on the row, or clears it when t is nil.
func (n *Notification) SetTarget(t *Target) {
	if t == nil {
		n.TargetKind, n.TargetID = nil, nil
		return
	}
	kind, id := t.Kind, t.ID
	n.TargetKind, n.TargetID = &kind, &id
}
