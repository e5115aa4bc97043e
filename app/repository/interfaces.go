package repository

import (
	"context"
	"time"

	"github.com/smartcity/civicdash/app/models"
	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile-related database operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
	UpdateRole(ctx context.Context, id, role, department string) error
	List(ctx context.Context, offset, limit int) ([]models.Profile, error)
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) (map[string]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	Search(ctx context.Context, query, excludeID string, limit int) ([]models.Profile, error)
	ListOfficials(ctx context.Context, department models.Department) ([]models.Profile, error)
}

// IssueFilter holds the equality filters supported by issue listings. Empty fields are ignored.
type IssueFilter struct {
	Department models.Department
	Status     models.IssueStatus
	Category   models.Category
	Priority   models.Priority
	ReportedBy string
	AssignedTo string
}

// IssueRepository defines the interface for issue-related database operations
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id string) (*models.Issue, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	List(ctx context.Context, filter IssueFilter, offset, limit int) ([]models.Issue, int64, error)
	CountByStatus(ctx context.Context, filter IssueFilter) (map[models.IssueStatus]int64, error)
}

// ChatRepository defines the interface for chat-related database operations
type ChatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id string) (*models.Chat, error)
	FindByPair(ctx context.Context, userA, userB string) (*models.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]models.Chat, error)
}

// MessageRepository defines the interface for message-related database operations
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByChat(ctx context.Context, chatID string) ([]models.Message, error)
	LatestByChats(ctx context.Context, chatIDs []string) (map[string]models.Message, error)
}

// ProviderAccountRepository defines the interface for linked OAuth identities
type ProviderAccountRepository interface {
	Create(ctx context.Context, account *models.ProviderAccount) error
	GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ProviderAccount, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Profile         ProfileRepository
	Issue           IssueRepository
	Chat            ChatRepository
	Message         MessageRepository
	ProviderAccount ProviderAccountRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Profile:         NewProfileRepository(db),
		Issue:           NewIssueRepository(db),
		Chat:            NewChatRepository(db),
		Message:         NewMessageRepository(db),
		ProviderAccount: NewProviderAccountRepository(db),
	}
}
