package repository

import (
	"context"

	"github.com/smartcity/civicdash/app/models"
	"gorm.io/gorm"
)

// messageRepository implements the MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create appends a message to its chat
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListByChat returns the full history of a chat, oldest first
func (r *messageRepository) ListByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// LatestByChats returns the most recent message of each chat that has one, keyed by chat id
func (r *messageRepository) LatestByChats(ctx context.Context, chatIDs []string) (map[string]models.Message, error) {
	latest := make(map[string]models.Message, len(chatIDs))
	if len(chatIDs) == 0 {
		return latest, nil
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id IN ?", chatIDs).
		Where("id = (SELECT m2.id FROM messages m2 WHERE m2.chat_id = messages.chat_id ORDER BY m2.created_at DESC, m2.id DESC LIMIT 1)").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		latest[m.ChatID] = m
	}
	return latest, nil
}
