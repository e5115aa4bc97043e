package repository

import (
	"context"

	"github.com/smartcity/civicdash/app/models"
	"gorm.io/gorm"
)

// chatRepository implements the ChatRepository interface
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository instance
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// Create inserts a chat. Callers canonicalize the pair first.
func (r *chatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

// GetByID retrieves a chat by its ID
func (r *chatRepository) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindByPair looks the pair up in both orderings, so rows written before
// canonicalization are still found.
func (r *chatRepository) FindByPair(ctx context.Context, userA, userB string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("(user1 = ? AND user2 = ?) OR (user1 = ? AND user2 = ?)", userA, userB, userB, userA).
		Order("created_at ASC").
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListByUser returns every chat the user participates in
func (r *chatRepository) ListByUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("user1 = ? OR user2 = ?", userID, userID).
		Order("created_at DESC").
		Find(&chats).Error
	return chats, err
}
