package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/app/repository/memory"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/events"
)

type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances by one millisecond per call so every write gets its own timestamp.
func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	store    *memory.Store
	repos    *repository.Repositories
	svc      *Service
	recorder *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	repos := store.Repositories()
	recorder := &events.Recorder{}
	clock := &tickingClock{now: time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)}
	return &fixture{
		store:    store,
		repos:    repos,
		recorder: recorder,
		svc: NewService(repos.Chat, repos.Message, repos.Profile,
			WithPublisher(recorder),
			WithClock(clock.Now),
		),
	}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	p := &models.Profile{
		ID:        models.NewID(),
		FullName:  name,
		Email:     strings.ToLower(name) + "@city.example",
		Role:      models.ROLE_CITIZEN,
		AvatarURL: "https://img.example/" + strings.ToLower(name) + ".png",
	}
	require.NoError(t, f.repos.Profile.Create(context.Background(), p))
	return p.ID
}

func TestGetOrCreateChatIsSymmetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "Alice"), f.user(t, "Bob")

	first, err := f.svc.GetOrCreateChat(ctx, a, b)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateChat(ctx, b, a)
	require.NoError(t, err)
	again, err := f.svc.GetOrCreateChat(ctx, a, b)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, again.ID)
	assert.Less(t, first.User1, first.User2)
}

func TestGetOrCreateChatFindsLegacyReversedRow(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "Alice"), f.user(t, "Bob")
	low, high := models.CanonicalPair(a, b)

	legacy := models.Chat{ID: models.NewID(), User1: high, User2: low, CreatedAt: time.Now()}
	f.store.InsertChatRaw(legacy)

	chat, err := f.svc.GetOrCreateChat(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, chat.ID)
}

func TestGetOrCreateChatResolvesInsertRace(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "Alice"), f.user(t, "Bob")
	winner := models.Chat{ID: models.NewID(), CreatedAt: time.Now()}
	winner.User1, winner.User2 = models.CanonicalPair(a, b)

	f.store.BeforeChatCreate = func(*models.Chat) {
		f.store.InsertChatRaw(winner)
	}

	chat, err := f.svc.GetOrCreateChat(context.Background(), b, a)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, chat.ID)
}

func TestGetOrCreateChatErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "Alice")

	_, err := f.svc.GetOrCreateChat(ctx, a, a)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.GetOrCreateChat(ctx, a, models.NewID())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSendAndListMessagesInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "Alice"), f.user(t, "Bob")
	chat, err := f.svc.GetOrCreateChat(ctx, a, b)
	require.NoError(t, err)

	hello, err := f.svc.SendMessage(ctx, chat.ID, a, "Hello")
	require.NoError(t, err)
	require.NotNil(t, hello.Sender)
	assert.Equal(t, "Alice", hello.Sender.FullName)
	assert.Equal(t, "https://img.example/alice.png", hello.Sender.AvatarURL)

	_, err = f.svc.SendMessage(ctx, chat.ID, b, "  Hi  ")
	require.NoError(t, err)

	msgs, err := f.svc.ListMessages(ctx, chat.ID, b)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "Hi", msgs[1].Content)
	assert.Equal(t, "Bob", msgs[1].Sender.FullName)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}

	require.Len(t, f.recorder.Messages, 2)
	assert.ElementsMatch(t, []string{a, b}, f.recorder.Messages[0].Recipients)
}

func TestMessagesWithEqualTimestampsKeepInsertOrder(t *testing.T) {
	store := memory.New()
	repos := store.Repositories()
	frozen := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(repos.Chat, repos.Message, repos.Profile, WithClock(func() time.Time { return frozen }))
	f := &fixture{store: store, repos: repos, svc: svc}
	a, b := f.user(t, "Alice"), f.user(t, "Bob")

	ctx := context.Background()
	chat, err := svc.GetOrCreateChat(ctx, a, b)
	require.NoError(t, err)
	for _, text := range []string{"one", "two", "three", "four"} {
		_, err := svc.SendMessage(ctx, chat.ID, a, text)
		require.NoError(t, err)
	}

	msgs, err := svc.ListMessages(ctx, chat.ID, a)
	require.NoError(t, err)
	var got []string
	for _, m := range msgs {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, got)
}

func TestSendMessageLengthBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "Alice"), f.user(t, "Bob")
	chat, err := f.svc.GetOrCreateChat(ctx, a, b)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, chat.ID, a, strings.Repeat("x", 1000))
	assert.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, chat.ID, a, strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// characters, not bytes
	_, err = f.svc.SendMessage(ctx, chat.ID, a, strings.Repeat("ü", 1000))
	assert.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, chat.ID, a, " \n\t ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	msgs, err := f.svc.ListMessages(ctx, chat.ID, a)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestNonParticipantsAreForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "Alice"), f.user(t, "Bob"), f.user(t, "Carol")
	chat, err := f.svc.GetOrCreateChat(ctx, a, b)
	require.NoError(t, err)

	_, err = f.svc.ListMessages(ctx, chat.ID, c)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.SendMessage(ctx, chat.ID, c, "let me in")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.ListMessages(ctx, models.NewID(), a)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.SendMessage(ctx, models.NewID(), a, "hello?")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListChatsOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := f.user(t, "Me")
	bob, carol, dave := f.user(t, "Bob"), f.user(t, "Carol"), f.user(t, "Dave")

	withBob, err := f.svc.GetOrCreateChat(ctx, me, bob)
	require.NoError(t, err)
	withCarol, err := f.svc.GetOrCreateChat(ctx, carol, me)
	require.NoError(t, err)
	withDave, err := f.svc.GetOrCreateChat(ctx, me, dave)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, withCarol.ID, carol, "first")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, withBob.ID, me, "latest")
	require.NoError(t, err)

	// counterpart deleted: chat is skipped
	f.store.InsertChatRaw(models.Chat{ID: models.NewID(), User1: me, User2: models.NewID(), CreatedAt: time.Now().Add(time.Hour)})

	inbox, err := f.svc.ListChats(ctx, me)
	require.NoError(t, err)
	require.Len(t, inbox, 3)

	assert.Equal(t, withBob.ID, inbox[0].ID)
	assert.Equal(t, "Bob", inbox[0].OtherUser.FullName)
	require.NotNil(t, inbox[0].LatestMessage)
	assert.Equal(t, "latest", inbox[0].LatestMessage.Content)

	assert.Equal(t, withCarol.ID, inbox[1].ID)
	assert.Equal(t, "first", inbox[1].LatestMessage.Content)

	// no messages: sorted by creation time, which is older than any message
	assert.Equal(t, withDave.ID, inbox[2].ID)
	assert.Nil(t, inbox[2].LatestMessage)

	empty, err := f.svc.ListChats(ctx, f.user(t, "Loner"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
