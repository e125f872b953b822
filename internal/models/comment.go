package models

import "time"

// Comment is a reply on a post, optionally nested under another comment.
type Comment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Text      string     `gorm:"type:text;not null" json:"text"`
	PostID    uint       `gorm:"not null;index" json:"post_id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID" json:"user"`
	ParentID  *uint      `gorm:"index" json:"parent_id,omitempty"`
	Replies   []*Comment `gorm:"-" json:"replies"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
