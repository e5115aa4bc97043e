// Package chat implements direct two-party conversations between profiles.
package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/events"
)

type Service struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	profiles repository.ProfileRepository
	events   events.Publisher
	now      func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(chats repository.ChatRepository, messages repository.MessageRepository, profiles repository.ProfileRepository, opts ...Option) *Service {
	s := &Service{
		chats:    chats,
		messages: messages,
		profiles: profiles,
		events:   events.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateChat returns the single chat between two profiles, creating it on first use.
func (s *Service) GetOrCreateChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	if userA == "" || userB == "" {
		return nil, apperror.Validation("both participants are required")
	}
	if userA == userB {
		return nil, apperror.Validation("cannot start a chat with yourself")
	}
	for _, id := range []string{userA, userB} {
		if _, err := s.profiles.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound("user")
			}
			return nil, apperror.Store("load user", err)
		}
	}

	first, second := models.CanonicalPair(userA, userB)
	chat, err := s.chats.FindByPair(ctx, first, second)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Store("find chat", err)
	}

	chat = &models.Chat{
		ID:        models.NewID(),
		User1:     first,
		User2:     second,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Store("create chat", err)
		}
		// lost the race against a concurrent create of the same pair
		existing, findErr := s.chats.FindByPair(ctx, first, second)
		if findErr != nil {
			return nil, apperror.Store("find chat", findErr)
		}
		return existing, nil
	}
	return chat, nil
}

func (s *Service) participantChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("chat")
		}
		return nil, apperror.Store("load chat", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, apperror.Forbidden("you are not a participant of this chat")
	}
	return chat, nil
}

// NormalizeContent trims content and enforces the 1..1000 character bound.
func NormalizeContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", apperror.Validation("message content is required")
	}
	if utf8.RuneCountInString(trimmed) > models.MaxMessageLength {
		return "", apperror.Validation("message content must be at most %d characters", models.MaxMessageLength)
	}
	return trimmed, nil
}

// SendMessage appends a message. It returns once the insert has committed,
// so a following ListMessages always includes it.
func (s *Service) SendMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error) {
	chat, err := s.participantChat(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}
	trimmed, err := NormalizeContent(content)
	if err != nil {
		return nil, err
	}

	sender, err := s.profiles.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user")
		}
		return nil, apperror.Store("load sender", err)
	}

	msg := &models.Message{
		ID:        models.NewID(),
		ChatID:    chat.ID,
		SenderID:  senderID,
		Content:   trimmed,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperror.Store("send message", err)
	}
	pub := sender.Public()
	msg.Sender = &pub

	s.events.MessageSent(ctx, events.MessageEvent{
		Message:    *msg,
		Recipients: []string{chat.Counterpart(senderID), senderID},
	})
	return msg, nil
}

// ListMessages returns the whole history, oldest first, each with its sender.
func (s *Service) ListMessages(ctx context.Context, chatID, requesterID string) ([]models.Message, error) {
	chat, err := s.participantChat(ctx, chatID, requesterID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, apperror.Store("list messages", err)
	}

	senders, err := s.publicProfiles(ctx, []string{chat.User1, chat.User2})
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if p, ok := senders[m.SenderID]; ok {
			p := p
			m.Sender = &p
		}
		out = append(out, m)
	}
	return out, nil
}

// ListChats returns the user's inbox, most recent activity first. Chats whose
// counterpart profile no longer exists are left out.
func (s *Service) ListChats(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Store("list chats", err)
	}
	if len(chats) == 0 {
		return []models.ChatSummary{}, nil
	}

	ids := make([]string, 0, len(chats))
	others := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
		others = append(others, c.Counterpart(userID))
	}

	profiles, err := s.publicProfiles(ctx, others)
	if err != nil {
		return nil, err
	}
	latest, err := s.messages.LatestByChats(ctx, ids)
	if err != nil {
		return nil, apperror.Store("load latest messages", err)
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, c := range chats {
		other, ok := profiles[c.Counterpart(userID)]
		if !ok {
			continue
		}
		summary := models.ChatSummary{ID: c.ID, OtherUser: other, CreatedAt: c.CreatedAt}
		if m, ok := latest[c.ID]; ok {
			m := m
			summary.LatestMessage = &m
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		ai, aj := summaries[i].ActivityAt(), summaries[j].ActivityAt()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return summaries[i].ID > summaries[j].ID
	})
	return summaries, nil
}

func (s *Service) publicProfiles(ctx context.Context, ids []string) (map[string]models.PublicProfile, error) {
	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Store("load profiles", err)
	}
	out := make(map[string]models.PublicProfile, len(profiles))
	for i := range profiles {
		out[profiles[i].ID] = profiles[i].Public()
	}
	return out, nil
}
