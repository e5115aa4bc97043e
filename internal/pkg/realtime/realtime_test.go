package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/events"
	"github.com/smartcity/civicdash/internal/pkg/redistest"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

const realtimeTestRedisDB = 12

type tokenTable map[string]usercontext.UserContext

func (t tokenTable) VerifyToken(_ context.Context, token string) (usercontext.UserContext, error) {
	u, ok := t[token]
	if !ok {
		return usercontext.UserContext{}, apperror.Unauthorized("invalid or expired token")
	}
	return u, nil
}

var identities = tokenTable{
	"citizen":  {UserID: "c1", Role: models.ROLE_CITIZEN, IsLoggedIn: true},
	"official": {UserID: "o1", Role: models.ROLE_OFFICIAL, Department: "sanitation", IsLoggedIn: true},
	"other":    {UserID: "o2", Role: models.ROLE_OFFICIAL, Department: "transport", IsLoggedIn: true},
	"admin":    {UserID: "a1", Role: models.ROLE_ADMIN, IsLoggedIn: true},
}

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(NewServer("", &Handler{Hub: hub, Verifier: identities}).Handler)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub, base, token string) *websocket.Conn {
	t.Helper()
	want := hub.ClientCount() + 1
	conn, _, err := websocket.Dial(context.Background(), base+"/ws?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	require.Eventually(t, func() bool { return hub.ClientCount() >= want }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) (Event, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var ev Event
	err := wsjson.Read(ctx, conn, &ev)
	return ev, err
}

func TestHandlerRejectsMissingOrBadToken(t *testing.T) {
	hub := NewHub()
	h := &Handler{Hub: hub, Verifier: identities}

	for _, target := range []string{"/ws", "/ws?token=forged"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unauthorized", body["error"])
	}
	assert.Zero(t, hub.ClientCount())
}

func TestHubRoutesByUserAndDepartment(t *testing.T) {
	hub, base := startServer(t)
	citizen := dial(t, hub, base, "citizen")
	official := dial(t, hub, base, "official")
	other := dial(t, hub, base, "other")
	admin := dial(t, hub, base, "admin")

	hub.Deliver(events.Envelope{
		Type:       events.TypeIssue,
		Action:     "created",
		UserIDs:    []string{"c1", "o1"},
		Department: "sanitation",
		Data:       json.RawMessage(`{"id":"i1"}`),
	})

	for name, conn := range map[string]*websocket.Conn{"citizen": citizen, "official": official, "admin": admin} {
		ev, err := read(t, conn)
		require.NoError(t, err, name)
		assert.Equal(t, "issue", ev.Type)
		assert.Equal(t, "created", ev.Action)
		assert.JSONEq(t, `{"id":"i1"}`, string(ev.Data))
	}

	// Named twice (user and department) but delivered once.
	_, err := read(t, official)
	assert.Error(t, err)

	_, err = read(t, other)
	assert.Error(t, err, "other departments see nothing")
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub, base := startServer(t)
	conn := dial(t, hub, base, "citizen")
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		hub.Deliver(events.Envelope{Type: events.TypeMessage, UserIDs: []string{"c1"}, Data: json.RawMessage(`{}`)})
	})
}

func TestSubscriberDeliversPublishedEvents(t *testing.T) {
	client := redistest.Client(t, realtimeTestRedisDB)
	hub, base := startServer(t)
	conn := dial(t, hub, base, "citizen")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	channel := "civicdash:test:" + t.Name()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- NewSubscriber(client, channel, hub).Run(ctx, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not start")
	}

	pub := events.NewRedisPublisher(client, channel)
	pub.MessageSent(context.Background(), events.MessageEvent{
		Message:    models.Message{ID: "m1", ChatID: "chat", SenderID: "o1", Content: "hello"},
		Recipients: []string{"c1"},
	})

	ctxRead, cancelRead := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelRead()
	var ev Event
	require.NoError(t, wsjson.Read(ctxRead, conn, &ev))
	assert.Equal(t, events.TypeMessage, ev.Type)

	var payload events.MessageEvent
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "hello", payload.Message.Content)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
