package models

import "fmt"

// TargetKind names the entity family a like, reaction, notification or
// attachment points at.
type TargetKind string

const (
	TargetMessage TargetKind = "message"
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Valid reports whether k is one of the known kinds.
func (k TargetKind) Valid() bool {
	switch k {
	case TargetMessage, TargetPost, TargetComment:
		return true
	}
	return false
}

// Target identifies exactly one message, post or comment. Rows store it as a
// (target_kind, target_id) column pair.
type Target struct {
	Kind TargetKind `json:"target_kind"`
	ID   uint       `json:"target_id"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// PostTarget, CommentTarget and MessageTarget build targets of a fixed kind.
func PostTarget(id uint) Target    { return Target{Kind: TargetPost, ID: id} }
func CommentTarget(id uint) Target { return Target{Kind: TargetComment, ID: id} }
func MessageTarget(id uint) Target { return Target{Kind: TargetMessage, ID: id} }

// TargetIDs is the request shape accepted by the HTTP layer: callers set
// exactly one of the three ids.
type TargetIDs struct {
	PostID    *uint `json:"post_id,omitempty" query:"post_id"`
	CommentID *uint `json:"comment_id,omitempty" query:"comment_id"`
	MessageID *uint `json:"message_id,omitempty" query:"message_id"`
}

// TargetFromIDs converts the three optional ids into a Target, rejecting
// requests that set none or more than one.
func TargetFromIDs(ids TargetIDs) (Target, error) {
	var (
		t     Target
		count int
	)
	if ids.PostID != nil {
		t = PostTarget(*ids.PostID)
		count++
	}
	if ids.CommentID != nil {
		t = CommentTarget(*ids.CommentID)
		count++
	}
	if ids.MessageID != nil {
		t = MessageTarget(*ids.MessageID)
		count++
	}
	if count != 1 {
		return Target{}, NewValidationError("exactly one of post_id, comment_id or message_id is required")
	}
	if t.ID == 0 {
		return Target{}, NewValidationError(fmt.Sprintf("invalid %s id", t.Kind))
	}
	return t, nil
}
