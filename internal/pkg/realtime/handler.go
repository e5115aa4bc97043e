package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2/log"
	"nhooyr.io/websocket"

	"github.com/smartcity/civicdash/internal/pkg/apperror"
	"github.com/smartcity/civicdash/internal/pkg/constants"
	"github.com/smartcity/civicdash/internal/pkg/usercontext"
)

// Verifier resolves an access token to an identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (usercontext.UserContext, error)
}

// Handler upgrades GET /ws?token=... to a push-only websocket. Browsers cannot
// set headers on websocket requests, hence the query parameter.
type Handler struct {
	Hub            *Hub
	Verifier       Verifier
	OriginPatterns []string
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperror.Unauthorized("missing token"))
		return
	}
	identity, err := h.Verifier.VerifyToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		// Accept has already written the response.
		log.Debugf("[Realtime] Upgrade failed: %v", err)
		return
	}

	// Reading is required for control frames; the returned context ends with the connection.
	ctx := conn.CloseRead(r.Context())

	client := h.Hub.AddClient(subscriptionFor(identity), conn)
	defer h.Hub.RemoveClient(client)

	<-ctx.Done()
}

func subscriptionFor(u usercontext.UserContext) Subscription {
	sub := Subscription{UserID: u.UserID, AllDepartments: u.IsAdmin()}
	if u.IsOfficial() {
		sub.Department = u.Department
	}
	return sub
}

// NewServer returns the listener that serves websockets next to the fiber app.
func NewServer(addr string, h *Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(constants.WSRoute, h)
	return &http.Server{Addr: addr, Handler: mux}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   kind.String(),
		"message": apperror.PublicMessage(err),
	})
}
