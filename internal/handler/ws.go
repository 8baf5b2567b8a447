package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sakif/devforum/internal/realtime"
	"github.com/sakif/devforum/internal/service"
)

// WSHandler upgrades HTTP requests to websocket connections and binds them
// to the realtime hub.
//
// AUTHENTICATION ON THE HANDSHAKE:
// Browsers cannot set an Authorization header on a websocket upgrade, so
// the token rides either in the ?token= query parameter or in the session
// cookie. The token is validated BEFORE the upgrade: an unauthenticated
// request is rejected with 401 and never touches the hub.
type WSHandler struct {
	hub      *realtime.Hub
	auth     *service.AuthService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *realtime.Hub, authSvc *service.AuthService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:  hub,
		auth: authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API and the frontend are served from the same origin in
			// this deployment, so the default same-origin check applies.
		},
		logger: logger,
	}
}

// HandleConnect authenticates and upgrades the request, then hands the
// connection over to the hub.
//
// HTTP: GET /ws?token=<jwt>
//
// A user may hold several connections at once (multiple tabs, multiple
// devices); each one becomes its own session and each receives every push
// addressed to the user.
func (h *WSHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if cookie, err := r.Cookie("token"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	userID, err := h.auth.ValidateToken(token)
	if err != nil {
		h.logger.Warn("websocket auth failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := realtime.NewClient(h.hub, conn, userID, h.logger)
	h.hub.Register(userID, client)
	client.Start()

	h.logger.Info("websocket connected",
		slog.String("userID", userID),
		slog.Int("sessions", h.hub.SessionCount(userID)),
	)
}
