package database

import "socialapi/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Reaction{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Content{},
		&models.Notification{},
		&models.RefreshToken{},
	}
}
