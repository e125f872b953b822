package models

import "time"

// Like marks a single user's approval of a target.
type Like struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_like_user_target,priority:1" json:"user_id"`
	TargetKind TargetKind `gorm:"size:16;not null;uniqueIndex:idx_like_user_target,priority:2;index:idx_like_target,priority:1" json:"target_kind"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_like_user_target,priority:3;index:idx_like_target,priority:2" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (l *Like) Target() Target { return Target{Kind: l.TargetKind, ID: l.TargetID} }
