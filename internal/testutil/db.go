// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"

	"socialapi/internal/database"
	"socialapi/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
// Postgres-only pieces (CHECK constraints, cleanup triggers) are absent.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a user whose unique columns derive from name.
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		FirstName: name,
		Username:  name,
		Email:     fmt.Sprintf("%s@example.com", name),
		Password:  "x",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// CreatePost inserts a post authored by creatorID.
func CreatePost(t *testing.T, db *gorm.DB, creatorID uint, title string) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Text: title + " body", CreatorID: creatorID}
	if err := db.Omit("Creator").Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreateComment inserts a comment on postID, optionally replying to parentID.
func CreateComment(t *testing.T, db *gorm.DB, postID, userID uint, parentID *uint, text string) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, UserID: userID, ParentID: parentID, Text: text}
	if err := db.Omit("User").Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

// Follow makes followerID follow followingID.
func Follow(t *testing.T, db *gorm.DB, followerID, followingID uint) {
	t.Helper()
	if err := db.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error; err != nil {
		t.Fatalf("follow: %v", err)
	}
}

// CreateConversation inserts a conversation with the given participants.
func CreateConversation(t *testing.T, db *gorm.DB, initiatorID uint, isGroup bool, participantIDs ...uint) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{InitiatorID: initiatorID, IsGroup: isGroup}
	if err := db.Omit("Participants", "Messages").Create(conv).Error; err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	for _, id := range participantIDs {
		if err := db.Create(&models.ConversationParticipant{ConversationID: conv.ID, UserID: id}).Error; err != nil {
			t.Fatalf("add participant: %v", err)
		}
	}
	return conv
}
