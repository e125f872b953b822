package service

import (
	"context"
	"testing"
	"time"

	"socialapi/internal/featureflags"
	"socialapi/internal/models"
	"socialapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushCall struct {
	token, title, body string
	data               map[string]string
}

type chanPusher struct {
	calls chan pushCall
}

func (p *chanPusher) Send(_ context.Context, token, title, body string, data map[string]string) error {
	p.calls <- pushCall{token: token, title: title, body: body, data: data}
	return nil
}

func TestDescribeNotification(t *testing.T) {
	tests := []struct {
		typ  models.NotificationType
		want string
	}{
		{models.NotificationFollow, "Ada started following you"},
		{models.NotificationPostLike, "Ada liked your post"},
		{models.NotificationPostComment, "Ada commented on your post"},
		{models.NotificationPostReaction, "Ada reacted to your post"},
		{models.NotificationCommentLike, "Ada liked your comment"},
		{models.NotificationCommentReply, "Ada replied to your comment"},
		{models.NotificationCommentReaction, "Ada reacted to your comment"},
		{models.NotificationMessageLike, "Ada liked your message"},
		{models.NotificationMessageReaction, "Ada reacted to your message"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeNotification(tt.typ, "Ada"))
		})
	}
}

func TestNotification_CreateValidatesTypeAndTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	post := testutil.CreatePost(t, env.db, b.ID, "p")
	postTarget := models.PostTarget(post.ID)
	commentTarget := models.CommentTarget(1)

	_, err := env.notifications.Create(ctx, CreateNotificationInput{RecipientID: a.ID, ActorID: a.ID, Type: models.NotificationFollow})
	assert.ErrorIs(t, err, models.ErrSelfNotification)

	_, err = env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: "POKE"})
	assertCode(t, err, models.CodeValidation)

	_, err = env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationFollow, Target: &postTarget})
	assertCode(t, err, models.CodeValidation)

	_, err = env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationPostLike, Target: &commentTarget})
	assertCode(t, err, models.CodeValidation)

	_, err = env.notifications.Create(ctx, CreateNotificationInput{RecipientID: 999, ActorID: a.ID, Type: models.NotificationFollow})
	assertCode(t, err, models.CodeNotFound)

	missing := models.PostTarget(999)
	_, err = env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationPostLike, Target: &missing})
	assertCode(t, err, models.CodeNotFound)

	n, err := env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationPostLike, Target: &postTarget})
	require.NoError(t, err)
	assert.False(t, n.Read)
	assert.Equal(t, "a liked your post", n.Message)
	assert.Equal(t, "a", n.Actor.Username)
}

func TestNotification_RecipientOnlyAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")

	n, err := env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationFollow})
	require.NoError(t, err)

	_, err = env.notifications.MarkRead(ctx, n.ID, a.ID, true)
	assertCode(t, err, models.CodeNotFound)
	assertCode(t, env.notifications.Remove(ctx, n.ID, a.ID), models.CodeNotFound)

	read, err := env.notifications.MarkRead(ctx, n.ID, b.ID, true)
	require.NoError(t, err)
	assert.True(t, read.Read)

	count, err := env.notifications.UnreadCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = env.notifications.MarkRead(ctx, n.ID, b.ID, false)
	require.NoError(t, err)
	marked, err := env.notifications.MarkAllRead(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	require.NoError(t, env.notifications.Remove(ctx, n.ID, b.ID))
	assert.Empty(t, env.notificationsFor(t, b.ID))
}

func TestNotification_PruneRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")

	old, err := env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationFollow})
	require.NoError(t, err)
	_, err = env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationFollow})
	require.NoError(t, err)
	_, err = env.notifications.MarkAllRead(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.Notification{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	pruned, err := env.notifications.PruneRead(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
	assert.Len(t, env.notificationsFor(t, b.ID), 1)

	_, err = env.notifications.PruneRead(ctx, 0)
	assertCode(t, err, models.CodeValidation)
}

func TestNotification_PushesOfflineRecipients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	require.NoError(t, env.userRepo.SetDeviceToken(ctx, b.ID, "device-b"))

	pusher := &chanPusher{calls: make(chan pushCall, 1)}
	env.notifications.WithPush(pusher, featureflags.NewManager("push_notifications=on"))

	_, err := env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationFollow})
	require.NoError(t, err)

	select {
	case call := <-pusher.calls:
		assert.Equal(t, "device-b", call.token)
		assert.Equal(t, "a started following you", call.body)
		assert.Equal(t, string(models.NotificationFollow), call.data["type"])
	case <-time.After(5 * time.Second):
		t.Fatal("expected a push for the offline recipient")
	}
}

func TestNotification_NoPushWhenOnlineOrFlagOff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	require.NoError(t, env.userRepo.SetDeviceToken(ctx, b.ID, "device-b"))

	pusher := &chanPusher{calls: make(chan pushCall, 2)}
	flags := featureflags.NewManager("push_notifications=off")
	env.notifications.WithPush(pusher, flags)

	_, err := env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationFollow})
	require.NoError(t, err)

	require.NoError(t, flags.Set(featureflags.PushNotifications, "on"))
	env.emitter.mu.Lock()
	env.emitter.online[b.ID] = true
	env.emitter.mu.Unlock()
	_, err = env.notifications.Create(ctx, CreateNotificationInput{RecipientID: b.ID, ActorID: a.ID, Type: models.NotificationFollow})
	require.NoError(t, err)

	select {
	case call := <-pusher.calls:
		t.Fatalf("unexpected push %+v", call)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Len(t, env.emitter.all(), 2)
}
