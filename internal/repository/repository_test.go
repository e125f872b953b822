package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"socialapi/internal/cache"
	"socialapi/internal/models"
	"socialapi/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	return appErr.Code
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: likes.user_id")))
	assert.True(t, isUniqueConstraintError(errors.New(`duplicate key value violates unique constraint "idx_follow_pair"`)))
	assert.False(t, isUniqueConstraintError(errors.New("connection reset")))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0, 20, 100))
	assert.Equal(t, 20, clampLimit(-3, 20, 100))
	assert.Equal(t, 100, clampLimit(500, 20, 100))
	assert.Equal(t, 7, clampLimit(7, 20, 100))
}

func TestPostRepository_GetByID_NotFoundMapsToAppError(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewPostRepository(db).GetByID(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
	assert.Contains(t, err.Error(), "Post with ID 42 not found")
}

func TestFollowRepository_Create_DuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_follow_pair" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	err := NewFollowRepository(db).Create(context.Background(), &models.Follow{FollowerID: 1, FollowingID: 2})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, appCode(t, err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_FollowingAndFollowers(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	testutil.Follow(t, db, alice.ID, bob.ID)
	testutil.Follow(t, db, alice.ID, carol.ID)
	testutil.Follow(t, db, carol.ID, bob.ID)

	repo := NewFollowRepository(db)

	ids, err := repo.FollowingIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, ids)

	followers, err := repo.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "alice", followers[0].Username)
	assert.Equal(t, "carol", followers[1].Username)

	edge, err := repo.Find(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, edge)

	removed, err := repo.DeleteByPair(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.DeleteByPair(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPostRepository_CountsAndContents(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "author")
	fan := testutil.CreateUser(t, db, "fan")
	post := testutil.CreatePost(t, db, author.ID, "hello")
	testutil.CreateComment(t, db, post.ID, fan.ID, nil, "nice")

	require.NoError(t, NewLikeRepository(db).Create(ctx, &models.Like{UserID: fan.ID, TargetKind: models.TargetPost, TargetID: post.ID}))
	_, err := NewReactionRepository(db).Replace(ctx, &models.Reaction{UserID: fan.ID, TargetKind: models.TargetPost, TargetID: post.ID, Type: models.ReactionLove})
	require.NoError(t, err)
	require.NoError(t, NewContentRepository(db).Create(ctx, &models.Content{
		TargetKind: models.TargetPost, TargetID: post.ID, OwnerID: author.ID,
		Kind: models.ContentImage, URL: "https://cdn.example.com/a.png",
	}))

	got, err := NewPostRepository(db).GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 1, got.ReactionsCount)
	assert.Equal(t, 1, got.CommentsCount)
	assert.Equal(t, "author", got.Creator.Username)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "https://cdn.example.com/a.png", got.Contents[0].URL)
}

func TestPostRepository_FeedQueries(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	followed := testutil.CreateUser(t, db, "followed")
	other := testutil.CreateUser(t, db, "other")

	first := testutil.CreatePost(t, db, followed.ID, "first")
	require.NoError(t, db.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)
	second := testutil.CreatePost(t, db, followed.ID, "second")
	stranger := testutil.CreatePost(t, db, other.ID, "stranger")

	repo := NewPostRepository(db)

	posts, err := repo.ListByCreators(ctx, []uint{followed.ID}, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)

	random, err := repo.RandomExcludingCreators(ctx, []uint{followed.ID}, 10)
	require.NoError(t, err)
	require.Len(t, random, 1)
	assert.Equal(t, stranger.ID, random[0].ID)

	oldest, err := repo.Explore(ctx, SortOldest, 1)
	require.NoError(t, err)
	require.Len(t, oldest, 1)
	assert.Equal(t, first.ID, oldest[0].ID)

	empty, err := repo.ListByCreators(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostRepository_CountersAreNotColumns(t *testing.T) {
	db := testutil.NewTestDB(t)
	for _, col := range []string{"likes_count", "reactions_count", "comments_count"} {
		assert.False(t, db.Migrator().HasColumn(&models.Post{}, col), col)
	}
}

func TestPostRepository_ExploreMostLikedOrdersByLikes(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "author")
	fan1 := testutil.CreateUser(t, db, "fan1")
	fan2 := testutil.CreateUser(t, db, "fan2")

	popular := testutil.CreatePost(t, db, author.ID, "popular")
	require.NoError(t, db.Model(popular).Update("created_at", time.Now().Add(-time.Hour)).Error)
	quiet := testutil.CreatePost(t, db, author.ID, "quiet")

	likes := NewLikeRepository(db)
	for _, fan := range []*models.User{fan1, fan2} {
		require.NoError(t, likes.Create(ctx, &models.Like{UserID: fan.ID, TargetKind: models.TargetPost, TargetID: popular.ID}))
	}

	posts, err := NewPostRepository(db).Explore(ctx, SortMostLiked, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, popular.ID, posts[0].ID)
	assert.Equal(t, 2, posts[0].LikesCount)
	assert.Equal(t, quiet.ID, posts[1].ID)
	assert.Zero(t, posts[1].LikesCount)
}

func TestLikeRepository_DuplicateIsConflict(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewLikeRepository(db)
	like := func() *models.Like {
		return &models.Like{UserID: 1, TargetKind: models.TargetComment, TargetID: 9}
	}

	require.NoError(t, repo.Create(ctx, like()))
	err := repo.Create(ctx, like())
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, appCode(t, err))

	found, err := repo.Find(ctx, 1, models.CommentTarget(9))
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NoError(t, repo.Delete(ctx, found))

	found, err = repo.Find(ctx, 1, models.CommentTarget(9))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestReactionRepository_ReplaceKeepsOnePerUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewReactionRepository(db)
	target := models.MessageTarget(3)

	replaced, err := repo.Replace(ctx, &models.Reaction{UserID: 5, TargetKind: target.Kind, TargetID: target.ID, Type: models.ReactionHaha})
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = repo.Replace(ctx, &models.Reaction{UserID: 5, TargetKind: target.Kind, TargetID: target.ID, Type: models.ReactionSad})
	require.NoError(t, err)
	assert.True(t, replaced)

	list, err := repo.ListForTarget(ctx, target)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ReactionSad, list[0].Type)
}

func TestNotificationRepository_ReadStateAndPrune(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	actor := testutil.CreateUser(t, db, "actor")
	recipient := testutil.CreateUser(t, db, "recipient")
	repo := NewNotificationRepository(db)

	for i := 0; i < 3; i++ {
		n := &models.Notification{RecipientID: recipient.ID, ActorID: actor.ID, Type: models.NotificationFollow}
		require.NoError(t, repo.Create(ctx, n))
	}

	list, err := repo.ListForRecipient(ctx, recipient.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Greater(t, list[0].ID, list[1].ID)
	assert.Equal(t, "actor", list[0].Actor.Username)

	require.NoError(t, repo.SetRead(ctx, list[0].ID, true))
	unread, err := repo.CountUnread(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	marked, err := repo.MarkAllRead(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	pruned, err := repo.DeleteReadBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), pruned)
}

func TestConversationRepository_DirectAndMessages(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	c := testutil.CreateUser(t, db, "c")
	repo := NewConversationRepository(db)

	conv := &models.Conversation{InitiatorID: a.ID}
	require.NoError(t, repo.Create(ctx, conv, []uint{a.ID, b.ID}))

	found, err := repo.FindDirect(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, conv.ID, found.ID)
	assert.Len(t, found.Participants, 2)

	none, err := repo.FindDirect(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	ok, err := repo.IsParticipant(ctx, conv.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, repo.CreateMessage(ctx, &models.Message{ConversationID: conv.ID, SenderID: a.ID, Content: text}))
	}
	msgs, err := repo.ListMessages(ctx, conv.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)

	convs, err := repo.ListForUser(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1)
}

func TestTargetRepository_OwnerOf(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "author")
	commenter := testutil.CreateUser(t, db, "commenter")
	post := testutil.CreatePost(t, db, author.ID, "p")
	comment := testutil.CreateComment(t, db, post.ID, commenter.ID, nil, "c")
	repo := NewTargetRepository(db)

	owner, err := repo.OwnerOf(ctx, models.PostTarget(post.ID))
	require.NoError(t, err)
	assert.Equal(t, author.ID, owner)

	owner, err = repo.OwnerOf(ctx, models.CommentTarget(comment.ID))
	require.NoError(t, err)
	assert.Equal(t, commenter.ID, owner)

	_, err = repo.OwnerOf(ctx, models.MessageTarget(999))
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestRefreshTokenRepository_RevokeOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewRefreshTokenRepository(db)
	token := &models.RefreshToken{UserID: 1, TokenHash: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, token))

	got, err := repo.GetByHash(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, got.Active(time.Now()))

	require.NoError(t, repo.Revoke(ctx, got.ID))
	err = repo.Revoke(ctx, got.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestUserRepository_UpdateKeepsCredentials(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "dana")
	repo := NewUserRepository(db)
	require.NoError(t, repo.SetDeviceToken(ctx, u.ID, "fcm-token"))

	profile, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	profile.Bio = "hi"
	profile.Password = ""
	require.NoError(t, repo.Update(ctx, profile))

	stored, err := repo.GetByUsername(ctx, "dana")
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Bio)
	assert.Equal(t, "x", stored.Password)

	token, err := repo.GetDeviceToken(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "fcm-token", token)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_ProfileChangeEvictsCachedPosts(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := testutil.NewTestDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "erin")
	post := testutil.CreatePost(t, db, u.ID, "p")
	users := NewUserRepository(db)
	posts := NewPostRepository(db)

	cached, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin", cached.Creator.Username)
	assert.True(t, mr.Exists(cache.PostKey(post.ID)))

	profile, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	profile.Username = "erin_renamed"
	require.NoError(t, users.Update(ctx, profile))
	assert.False(t, mr.Exists(cache.PostKey(post.ID)))

	fresh, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin_renamed", fresh.Creator.Username)

	require.NoError(t, users.Delete(ctx, u.ID))
	assert.False(t, mr.Exists(cache.PostKey(post.ID)))
}
