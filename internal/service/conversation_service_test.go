package service

import (
	"context"
	"testing"

	"socialapi/internal/models"
	"socialapi/internal/repository"
	"socialapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) EmitToUser(ctx context.Context, userID uint, event string, data interface{}) {
	m.Called(ctx, userID, event, data)
}

func (m *mockEmitter) EmitToConversation(ctx context.Context, conversationID uint, event string, data interface{}) {
	m.Called(ctx, conversationID, event, data)
}

func (m *mockEmitter) IsOnline(userID uint) bool {
	return m.Called(userID).Bool(0)
}

func TestConversation_SendMessageEmitsToRoom(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	conv := testutil.CreateConversation(t, db, a.ID, false, a.ID, b.ID)

	emitter := new(mockEmitter)
	emitter.On("EmitToConversation", mock.Anything, conv.ID, EventMessageNew,
		mock.MatchedBy(func(m *models.Message) bool {
			return m.Content == "hi" && m.SenderID == a.ID && m.Sender != nil
		})).Return().Once()

	svc := NewConversationService(repository.NewConversationRepository(db), repository.NewUserRepository(db), emitter)
	_, err := svc.SendMessage(ctx, SendMessageInput{UserID: a.ID, ConversationID: conv.ID, Content: "hi"})
	require.NoError(t, err)

	// rejected sends never reach the room
	_, err = svc.SendMessage(ctx, SendMessageInput{UserID: a.ID, ConversationID: conv.ID, Content: "   "})
	assertCode(t, err, models.CodeValidation)

	emitter.AssertExpectations(t)
	emitter.AssertNumberOfCalls(t, "EmitToConversation", 1)
}

func TestConversation_DirectIsReused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")

	first, err := env.conversations.Create(ctx, CreateConversationInput{UserID: a.ID, ParticipantIDs: []uint{b.ID}})
	require.NoError(t, err)
	assert.Len(t, first.Participants, 2)

	second, err := env.conversations.Create(ctx, CreateConversationInput{UserID: b.ID, ParticipantIDs: []uint{a.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = env.conversations.Create(ctx, CreateConversationInput{UserID: a.ID, ParticipantIDs: []uint{a.ID}})
	assertCode(t, err, models.CodeValidation)

	_, err = env.conversations.Create(ctx, CreateConversationInput{UserID: a.ID, ParticipantIDs: []uint{404}})
	assertCode(t, err, models.CodeNotFound)
}

func TestConversation_GroupAndMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, env.db, "a")
	b := testutil.CreateUser(t, env.db, "b")
	c := testutil.CreateUser(t, env.db, "c")
	outsider := testutil.CreateUser(t, env.db, "outsider")

	_, err := env.conversations.Create(ctx, CreateConversationInput{UserID: a.ID, ParticipantIDs: []uint{b.ID, c.ID}})
	assertCode(t, err, models.CodeValidation)

	conv, err := env.conversations.Create(ctx, CreateConversationInput{UserID: a.ID, Name: "trio", IsGroup: true, ParticipantIDs: []uint{b.ID, c.ID}})
	require.NoError(t, err)
	assert.Len(t, conv.Participants, 3)

	msg, err := env.conversations.SendMessage(ctx, SendMessageInput{UserID: b.ID, ConversationID: conv.ID, Content: "hello"})
	require.NoError(t, err)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "b", msg.Sender.Username)

	events := env.emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, "conversation", events[0].room)
	assert.Equal(t, conv.ID, events[0].id)
	assert.Equal(t, EventMessageNew, events[0].event)

	_, err = env.conversations.SendMessage(ctx, SendMessageInput{UserID: outsider.ID, ConversationID: conv.ID, Content: "hi"})
	assertCode(t, err, models.CodeUnauthorized)
	_, err = env.conversations.SendMessage(ctx, SendMessageInput{UserID: b.ID, ConversationID: conv.ID, Content: "  "})
	assertCode(t, err, models.CodeValidation)
	_, err = env.conversations.Messages(ctx, 999, a.ID, 10, 0)
	assertCode(t, err, models.CodeNotFound)

	msgs, err := env.conversations.Messages(ctx, conv.ID, c.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)

	_, err = env.conversations.GetForUser(ctx, conv.ID, outsider.ID)
	assertCode(t, err, models.CodeUnauthorized)

	list, err := env.conversations.ListForUser(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestContent_AttachRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, env.db, "author")
	other := testutil.CreateUser(t, env.db, "other")
	post := testutil.CreatePost(t, env.db, author.ID, "p")

	in := AttachContentInput{
		UserID: other.ID,
		Target: models.PostTarget(post.ID),
		Kind:   models.ContentImage,
		URL:    "https://bucket.example.com/uploads/a.png",
	}
	_, err := env.contents.Attach(ctx, in)
	assertCode(t, err, models.CodeUnauthorized)

	in.UserID = author.ID
	content, err := env.contents.Attach(ctx, in)
	require.NoError(t, err)

	bad := in
	bad.URL = "javascript:alert(1)"
	_, err = env.contents.Attach(ctx, bad)
	assertCode(t, err, models.CodeValidation)

	bad = in
	bad.Target = models.CommentTarget(1)
	_, err = env.contents.Attach(ctx, bad)
	assertCode(t, err, models.CodeValidation)

	bad = in
	bad.Kind = "hologram"
	_, err = env.contents.Attach(ctx, bad)
	assertCode(t, err, models.CodeValidation)

	list, err := env.contents.ListForTarget(ctx, models.PostTarget(post.ID))
	require.NoError(t, err)
	require.Len(t, list, 1)

	assertCode(t, env.contents.Remove(ctx, content.ID, other.ID), models.CodeUnauthorized)
	require.NoError(t, env.contents.Remove(ctx, content.ID, author.ID))
}

func TestContent_AllowedPrefixes(t *testing.T) {
	s := NewContentService(nil, nil, "https://cdn.example.com/", " ")
	assert.NoError(t, s.validateURL("https://cdn.example.com/uploads/x.png"))
	assertCode(t, s.validateURL("https://evil.example.net/x.png"), models.CodeValidation)
}
