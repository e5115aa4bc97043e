// Package memory provides in-process implementations of the repository
// interfaces. Service and handler tests run against it instead of MySQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
)

// Store holds all tables. Set Fail to make every call return that error.
type Store struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	issues   map[string]models.Issue
	chats    map[string]models.Chat
	messages []models.Message
	accounts []models.ProviderAccount

	Fail error
	// BeforeChatCreate runs inside Chat.Create before the uniqueness check.
	BeforeChatCreate func(chat *models.Chat)
}

func New() *Store {
	return &Store{
		profiles: map[string]models.Profile{},
		issues:   map[string]models.Issue{},
		chats:    map[string]models.Chat{},
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Profile:         ProfileRepo{s},
		Issue:           IssueRepo{s},
		Chat:            ChatRepo{s},
		Message:         MessageRepo{s},
		ProviderAccount: ProviderAccountRepo{s},
	}
}

// InsertChatRaw stores a chat without canonicalizing it, as legacy rows may be.
func (s *Store) InsertChatRaw(chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chat.ID] = chat
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

type ProfileRepo struct{ s *Store }

func (r ProfileRepo) Create(_ context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return r.s.Fail
	}
	for _, existing := range r.s.profiles {
		if existing.Email == p.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.ID == "" {
		p.ID = models.NewID()
	}
	stamp(&p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	r.s.profiles[p.ID] = *p
	return nil
}

func (r ProfileRepo) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r ProfileRepo) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	email = models.NormalizeEmail(email)
	for _, p := range r.s.profiles {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r ProfileRepo) GetByIDs(_ context.Context, ids []string) ([]models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	var out []models.Profile
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r ProfileRepo) UpdateRole(_ context.Context, id, role, department string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return r.s.Fail
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Role = role
	p.Department = department
	p.UpdatedAt = time.Now().UTC()
	r.s.profiles[id] = p
	return nil
}

func (r ProfileRepo) sorted() []models.Profile {
	out := make([]models.Profile, 0, len(r.s.profiles))
	for _, p := range r.s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r ProfileRepo) List(_ context.Context, offset, limit int) ([]models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	return window(r.sorted(), offset, limit), nil
}

func (r ProfileRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return 0, r.s.Fail
	}
	return int64(len(r.s.profiles)), nil
}

func (r ProfileRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	counts := map[string]int64{}
	for _, p := range r.s.profiles {
		counts[p.Role]++
	}
	return counts, nil
}

func (r ProfileRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return 0, r.s.Fail
	}
	var n int64
	for _, p := range r.s.profiles {
		if !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r ProfileRepo) Search(_ context.Context, query, excludeID string, limit int) ([]models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.Profile
	for _, p := range r.s.profiles {
		if p.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(p.FullName), q) || strings.Contains(strings.ToLower(p.Email), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return window(out, 0, limit), nil
}

func (r ProfileRepo) ListOfficials(_ context.Context, department models.Department) ([]models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	var out []models.Profile
	for _, p := range r.s.profiles {
		if p.Role == models.ROLE_OFFICIAL && p.Department == string(department) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type IssueRepo struct{ s *Store }

func (r IssueRepo) Create(_ context.Context, issue *models.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return r.s.Fail
	}
	if issue.ID == "" {
		issue.ID = models.NewID()
	}
	stamp(&issue.CreatedAt)
	stamp(&issue.UpdatedAt)
	r.s.issues[issue.ID] = *issue
	return nil
}

func (r IssueRepo) GetByID(_ context.Context, id string) (*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	issue, ok := r.s.issues[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &issue, nil
}

func (r IssueRepo) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return r.s.Fail
	}
	issue, ok := r.s.issues[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for col, v := range fields {
		switch col {
		case "status":
			issue.Status = v.(models.IssueStatus)
		case "assigned_to":
			s := v.(string)
			issue.AssignedTo = &s
		case "resolved_at":
			t := v.(time.Time)
			issue.ResolvedAt = &t
		case "updated_at":
			issue.UpdatedAt = v.(time.Time)
		default:
			panic("memory: unsupported issue column " + col)
		}
	}
	r.s.issues[id] = issue
	return nil
}

func (r IssueRepo) matching(filter repository.IssueFilter) []models.Issue {
	var out []models.Issue
	for _, i := range r.s.issues {
		if filter.Department != "" && i.AssignedDepartment != filter.Department {
			continue
		}
		if filter.Status != "" && i.Status != filter.Status {
			continue
		}
		if filter.Category != "" && i.Category != filter.Category {
			continue
		}
		if filter.Priority != "" && i.Priority != filter.Priority {
			continue
		}
		if filter.ReportedBy != "" && i.ReportedBy != filter.ReportedBy {
			continue
		}
		if filter.AssignedTo != "" && !i.IsAssignedTo(filter.AssignedTo) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (r IssueRepo) List(_ context.Context, filter repository.IssueFilter, offset, limit int) ([]models.Issue, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, 0, r.s.Fail
	}
	out := r.matching(filter)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return window(out, offset, limit), int64(len(out)), nil
}

func (r IssueRepo) CountByStatus(_ context.Context, filter repository.IssueFilter) (map[models.IssueStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	counts := map[models.IssueStatus]int64{}
	for _, i := range r.matching(filter) {
		counts[i.Status]++
	}
	return counts, nil
}

type ChatRepo struct{ s *Store }

func (r ChatRepo) Create(_ context.Context, chat *models.Chat) error {
	if hook := r.s.BeforeChatCreate; hook != nil {
		hook(chat)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return r.s.Fail
	}
	for _, c := range r.s.chats {
		if c.User1 == chat.User1 && c.User2 == chat.User2 {
			return gorm.ErrDuplicatedKey
		}
	}
	if chat.ID == "" {
		chat.ID = models.NewID()
	}
	stamp(&chat.CreatedAt)
	r.s.chats[chat.ID] = *chat
	return nil
}

func (r ChatRepo) GetByID(_ context.Context, id string) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	c, ok := r.s.chats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r ChatRepo) FindByPair(_ context.Context, userA, userB string) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	for _, c := range r.s.chats {
		if (c.User1 == userA && c.User2 == userB) || (c.User1 == userB && c.User2 == userA) {
			c := c
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r ChatRepo) ListByUser(_ context.Context, userID string) ([]models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	var out []models.Chat
	for _, c := range r.s.chats {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MessageRepo struct{ s *Store }

func (r MessageRepo) Create(_ context.Context, m *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return r.s.Fail
	}
	if m.ID == "" {
		m.ID = models.NewID()
	}
	stamp(&m.CreatedAt)
	stored := *m
	stored.Sender = nil
	r.s.messages = append(r.s.messages, stored)
	return nil
}

func (r MessageRepo) ListByChat(_ context.Context, chatID string) ([]models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	var out []models.Message
	for _, m := range r.s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	sortMessages(out)
	return out, nil
}

func (r MessageRepo) LatestByChats(_ context.Context, chatIDs []string) (map[string]models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	wanted := map[string]bool{}
	for _, id := range chatIDs {
		wanted[id] = true
	}
	all := append([]models.Message(nil), r.s.messages...)
	sortMessages(all)
	latest := map[string]models.Message{}
	for _, m := range all {
		if wanted[m.ChatID] {
			latest[m.ChatID] = m
		}
	}
	return latest, nil
}

func sortMessages(ms []models.Message) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

type ProviderAccountRepo struct{ s *Store }

func (r ProviderAccountRepo) Create(_ context.Context, a *models.ProviderAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return r.s.Fail
	}
	for _, existing := range r.s.accounts {
		if existing.Provider == a.Provider && existing.ProviderUserID == a.ProviderUserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.ID == "" {
		a.ID = models.NewID()
	}
	stamp(&a.CreatedAt)
	r.s.accounts = append(r.s.accounts, *a)
	return nil
}

func (r ProviderAccountRepo) GetByProviderUserID(_ context.Context, provider, providerUserID string) (*models.ProviderAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Fail != nil {
		return nil, r.s.Fail
	}
	for _, a := range r.s.accounts {
		if a.Provider == provider && a.ProviderUserID == providerUserID {
			a := a
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
