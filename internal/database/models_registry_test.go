package database

import (
	"context"
	"testing"

	"socialapi/internal/config"
	"socialapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_IncludesNotification(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*models.Notification); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include Notification")
}

func TestPersistentModels_AutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	// sqlite skips the postgres-only SQL migrations and only auto-migrates
	require.NoError(t, ApplySchema(context.Background(), db, &config.Config{Env: "development"}))

	for _, table := range []string{"users", "follows", "posts", "comments", "likes", "reactions",
		"conversations", "conversation_participants", "messages", "contents", "notifications", "refresh_tokens"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	assert.False(t, db.Migrator().HasTable(&MigrationRecord{}), "sql migrations ran on sqlite")
	for _, col := range []string{"likes_count", "reactions_count", "comments_count"} {
		assert.False(t, db.Migrator().HasColumn(&models.Post{}, col), col)
	}
}
