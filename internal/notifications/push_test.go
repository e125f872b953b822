package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPushMessage(t *testing.T) {
	msg := buildPushMessage("device-1", "New follower", "ana started following you",
		map[string]string{"type": "FOLLOW", "notification_id": "3"})

	assert.Equal(t, "device-1", msg.Token)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "New follower", msg.Notification.Title)
	assert.Equal(t, "ana started following you", msg.Notification.Body)
	assert.Equal(t, "FOLLOW", msg.Data["type"])
	require.NotNil(t, msg.Android)
	assert.Equal(t, "high", msg.Android.Priority)
}

func TestFCMPusher_EmptyTokenIsNoop(t *testing.T) {
	var p *FCMPusher
	assert.NoError(t, p.Send(context.Background(), "", "t", "b", nil))
	assert.NoError(t, (&FCMPusher{}).Send(context.Background(), "", "t", "b", nil))
}

func TestNewFCMPusher_RequiresCredentials(t *testing.T) {
	_, err := NewFCMPusher(context.Background(), "")
	assert.Error(t, err)
}
