package models

import "time"

// ContentKind classifies an attachment.
type ContentKind string

const (
	ContentImage ContentKind = "image"
	ContentVideo ContentKind = "video"
	ContentGIF   ContentKind = "gif"
	ContentAudio ContentKind = "audio"
	ContentFile  ContentKind = "file"
)

func (k ContentKind) Valid() bool {
	switch k {
	case ContentImage, ContentVideo, ContentGIF, ContentAudio, ContentFile:
		return true
	}
	return false
}

// Content is an uploaded media item attached to a post or a message. The
// bytes live in object storage; only the final URL is stored.
type Content struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	TargetKind TargetKind  `gorm:"size:16;not null;index:idx_content_target,priority:1" json:"target_kind"`
	TargetID   uint        `gorm:"not null;index:idx_content_target,priority:2" json:"target_id"`
	OwnerID    uint        `gorm:"not null;index" json:"owner_id"`
	Kind       ContentKind `gorm:"size:16;not null" json:"kind"`
	URL        string      `gorm:"not null" json:"url"`
	MimeType   string      `gorm:"size:127" json:"mime_type"`
	Name       string      `gorm:"size:255" json:"name"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (Content) TableName() string {
	return "contents"
}

func (c *Content) Target() Target { return Target{Kind: c.TargetKind, ID: c.TargetID} }
