package models

import (
	"time"

	"gorm.io/gorm"
)

const MaxMessageLength = 1000

// Chat is a two-party thread. User1 always sorts before User2.
type Chat struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	User1     string    `gorm:"type:char(36);uniqueIndex:idx_chats_pair,priority:1" json:"user1"`
	User2     string    `gorm:"type:char(36);uniqueIndex:idx_chats_pair,priority:2;index" json:"user2"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// CanonicalPair orders two profile ids the way chats are stored.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func (c *Chat) HasParticipant(profileID string) bool {
	return c.User1 == profileID || c.User2 == profileID
}

// Counterpart returns the participant that is not profileID.
func (c *Chat) Counterpart(profileID string) string {
	if c.User1 == profileID {
		return c.User2
	}
	return c.User1
}

type Message struct {
	ID        string         `gorm:"primaryKey;type:char(36)" json:"id"`
	ChatID    string         `gorm:"type:char(36);index:idx_messages_chat_created,priority:1" json:"chat_id"`
	SenderID  string         `gorm:"type:char(36)" json:"sender_id"`
	Content   string         `gorm:"type:text" json:"content"`
	CreatedAt time.Time      `gorm:"type:datetime(3);index:idx_messages_chat_created,priority:2" json:"created_at"`
	Sender    *PublicProfile `gorm:"-" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

// ChatSummary is one row of a user's inbox.
type ChatSummary struct {
	ID            string        `json:"id"`
	OtherUser     PublicProfile `json:"other_user"`
	LatestMessage *Message      `json:"latest_message"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ActivityAt is the time the inbox sorts by.
func (s ChatSummary) ActivityAt() time.Time {
	if s.LatestMessage != nil {
		return s.LatestMessage.CreatedAt
	}
	return s.CreatedAt
}
