package models

import "time"

// ReactionType enumerates the supported reactions.
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionHaha  ReactionType = "haha"
	ReactionWow   ReactionType = "wow"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
)

func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry:
		return true
	}
	return false
}

// Reaction is a typed response to a target. A user holds at most one per target.
type Reaction struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	UserID     uint         `gorm:"not null;uniqueIndex:idx_reaction_user_target,priority:1" json:"user_id"`
	TargetKind TargetKind   `gorm:"size:16;not null;uniqueIndex:idx_reaction_user_target,priority:2;index:idx_reaction_target,priority:1" json:"target_kind"`
	TargetID   uint         `gorm:"not null;uniqueIndex:idx_reaction_user_target,priority:3;index:idx_reaction_target,priority:2" json:"target_id"`
	Type       ReactionType `gorm:"size:16;not null" json:"type"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (r *Reaction) Target() Target { return Target{Kind: r.TargetKind, ID: r.TargetID} }
