package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"socialapi/internal/models"
	"socialapi/internal/testutil"
	"socialapi/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestBuiltinPresets(t *testing.T) {
	ps := BuiltinPresets()
	assert.Equal(t, []string{"demo", "large", "minimal"}, ps.Names())

	_, err := ps.Lookup("nope")
	assert.ErrorContains(t, err, `unknown preset "nope"`)
}

func TestParsePresets_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "presets: {}", "no presets defined"},
		{"no users", "presets:\n  x:\n    users: 0", "users must be at least 1"},
		{"negative", "presets:\n  x:\n    users: 2\n    posts: -1", "must not be negative"},
		{"ratio", "presets:\n  x:\n    users: 2\n    reply_ratio: 1.5", "reply_ratio"},
		{"group", "presets:\n  x:\n    users: 2\n    group_conversations: 1\n    group_size: 1", "group_size"},
		{"malformed", "presets: [", "parse presets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePresets([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadPresets_OverridesBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("presets:\n  minimal:\n    users: 3\n  tiny:\n    users: 1\n"), 0o600))

	ps, err := LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, 3, ps["minimal"].Users)
	assert.Equal(t, 1, ps["tiny"].Users)
	assert.Contains(t, ps.Names(), "demo")

	_, err = LoadPresets(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeeder_RunMinimal(t *testing.T) {
	db := testutil.NewTestDB(t)
	s, err := NewSeeder(db, Options{RandSeed: 42})
	require.NoError(t, err)

	p := BuiltinPresets()["minimal"]
	sum, err := s.Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, p.Users, sum.Users)
	assert.Equal(t, p.Posts, sum.Posts)
	assert.Equal(t, p.Users*p.FollowsPerUser, sum.Follows)
	assert.Equal(t, p.DirectConversations+p.GroupConversations, sum.Conversations)
	assert.Equal(t, sum.Conversations*p.MessagesPerConversation, sum.Messages)

	assert.EqualValues(t, sum.Users, count(t, db, &models.User{}))
	assert.EqualValues(t, sum.Follows, count(t, db, &models.Follow{}))
	assert.EqualValues(t, sum.Posts, count(t, db, &models.Post{}))
	assert.EqualValues(t, sum.Comments, count(t, db, &models.Comment{}))
	assert.EqualValues(t, sum.Likes, count(t, db, &models.Like{}))
	assert.EqualValues(t, sum.Reactions, count(t, db, &models.Reaction{}))
	assert.EqualValues(t, sum.Messages, count(t, db, &models.Message{}))

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = following_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	// replies stay on their parent's post
	var strays int64
	require.NoError(t, db.Table("comments AS c").
		Joins("JOIN comments p ON p.id = c.parent_id").
		Where("p.post_id <> c.post_id").Count(&strays).Error)
	assert.Zero(t, strays)

	var u models.User
	require.NoError(t, db.First(&u).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DefaultPassword)))
}

func TestSeeder_DirectConversationsHaveTwoParticipants(t *testing.T) {
	db := testutil.NewTestDB(t)
	s, err := NewSeeder(db, Options{RandSeed: 7, SkipBcrypt: true})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), Preset{Users: 4, DirectConversations: 3, MessagesPerConversation: 1})
	require.NoError(t, err)

	var convs []models.Conversation
	require.NoError(t, db.Find(&convs).Error)
	require.Len(t, convs, 3)
	for _, c := range convs {
		assert.False(t, c.IsGroup)
		var n int64
		require.NoError(t, db.Model(&models.ConversationParticipant{}).Where("conversation_id = ?", c.ID).Count(&n).Error)
		assert.EqualValues(t, 2, n)
	}
}

func TestSeeder_ApplyPresetAndClearAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	s, err := NewSeeder(db, Options{SkipBcrypt: true})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.ApplyPreset(ctx, BuiltinPresets(), "missing")
	assert.Error(t, err)

	_, err = s.ApplyPreset(ctx, BuiltinPresets(), "minimal")
	require.NoError(t, err)
	require.NotZero(t, count(t, db, &models.User{}))

	require.NoError(t, s.ClearAll(ctx))
	assert.Zero(t, count(t, db, &models.User{}))
	assert.Zero(t, count(t, db, &models.Post{}))
	assert.Zero(t, count(t, db, &models.Message{}))
	assert.Zero(t, count(t, db, &models.ConversationParticipant{}))
}

func TestFactory_UsernamesFitValidation(t *testing.T) {
	db := testutil.NewTestDB(t)
	f, err := NewFactory(db, Options{SkipBcrypt: true})
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 25; i++ {
		u, err := f.CreateUser()
		require.NoError(t, err)
		assert.NoError(t, validation.ValidateUsername(u.Username))
		assert.False(t, seen[u.Username])
		seen[u.Username] = true
	}
}
