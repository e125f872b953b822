package models

import "time"

// Post is a user-authored entry that appears in feeds.
type Post struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255" json:"title"`
	Text      string     `gorm:"type:text" json:"text"`
	CreatorID uint       `gorm:"not null;index" json:"creator_id"`
	Creator   User       `gorm:"foreignKey:CreatorID" json:"creator"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	Contents  []Content  `gorm:"-" json:"contents,omitempty"`
	// Counters are computed at query time and never become columns.
	LikesCount     int       `gorm:"->;-:migration" json:"likes_count"`
	ReactionsCount int       `gorm:"->;-:migration" json:"reactions_count"`
	CommentsCount  int       `gorm:"->;-:migration" json:"comments_count"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
