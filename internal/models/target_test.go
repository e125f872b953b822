package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestTargetFromIDs(t *testing.T) {
	tests := []struct {
		name    string
		ids     TargetIDs
		want    Target
		wantErr bool
	}{
		{"post", TargetIDs{PostID: uintPtr(3)}, PostTarget(3), false},
		{"comment", TargetIDs{CommentID: uintPtr(4)}, CommentTarget(4), false},
		{"message", TargetIDs{MessageID: uintPtr(5)}, MessageTarget(5), false},
		{"none", TargetIDs{}, Target{}, true},
		{"two", TargetIDs{PostID: uintPtr(1), CommentID: uintPtr(2)}, Target{}, true},
		{"zero id", TargetIDs{PostID: uintPtr(0)}, Target{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetFromIDs(tt.ids)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, CodeValidation, ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotificationType_TargetKind(t *testing.T) {
	tests := map[NotificationType]TargetKind{
		NotificationFollow:          "",
		NotificationPostLike:        TargetPost,
		NotificationPostComment:     TargetPost,
		NotificationPostReaction:    TargetPost,
		NotificationCommentLike:     TargetComment,
		NotificationCommentReply:    TargetComment,
		NotificationCommentReaction: TargetComment,
		NotificationMessageLike:     TargetMessage,
		NotificationMessageReaction: TargetMessage,
	}
	for typ, want := range tests {
		got, ok := typ.TargetKind()
		assert.True(t, ok, typ)
		assert.Equal(t, want, got, typ)
	}

	_, ok := NotificationType("SHOUT").TargetKind()
	assert.False(t, ok)
}

func TestLikeAndReactionNotificationTypes(t *testing.T) {
	for _, kind := range []TargetKind{TargetPost, TargetComment, TargetMessage} {
		likeKind, _ := LikeNotificationType(kind).TargetKind()
		reactionKind, _ := ReactionNotificationType(kind).TargetKind()
		assert.Equal(t, kind, likeKind)
		assert.Equal(t, kind, reactionKind)
	}
}

func TestNotification_SetTarget(t *testing.T) {
	var n Notification
	_, ok := n.Target()
	assert.False(t, ok)

	target := CommentTarget(9)
	n.SetTarget(&target)
	got, ok := n.Target()
	require.True(t, ok)
	assert.Equal(t, target, got)

	n.SetTarget(nil)
	assert.Nil(t, n.TargetKind)
	assert.Nil(t, n.TargetID)
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}).DisplayName())
	assert.Equal(t, "ada", (&User{Username: "ada"}).DisplayName())
}
