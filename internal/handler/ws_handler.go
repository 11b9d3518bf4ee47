package handler

import (
	"encoding/json"

	"crm-console/internal/authz"
	"crm-console/internal/middleware"
	"crm-console/internal/organization"
	"crm-console/internal/session"
	"crm-console/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SessionUpdate is pushed to a session's sockets on every change of its user
// or organization.
type SessionUpdate struct {
	Type         string                    `json:"type"`
	Loading      bool                      `json:"loading"`
	Closed       bool                      `json:"closed"`
	Menu         []authz.MenuItem          `json:"menu"`
	Organization organizationStateResponse `json:"organization"`
}

// NewSessionUpdate builds the push payload for the current state of sess.
func NewSessionUpdate(menu []authz.MenuItem, sess *session.Context) SessionUpdate {
	snap := sess.Snapshot()
	return SessionUpdate{
		Type:         "session_update",
		Loading:      snap.Loading,
		Closed:       snap.Closed,
		Menu:         authz.FilterMenu(snap.User, menu),
		Organization: stateResponse(sess.Organizations().Snapshot()),
	}
}

type WSHandler struct {
	hub    *ws.Hub
	menu   []authz.MenuItem
	logger *zap.Logger
}

func NewWSHandler(hub *ws.Hub, menu []authz.MenuItem, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{hub: hub, menu: menu, logger: logger}
}

// Upgrade rejects plain HTTP requests on the socket route.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Serve runs one socket. It must sit behind RequireAuth.
// GET /ws?token=...
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sess, ok := conn.Locals(middleware.LocalSession).(*session.Context)
		if !ok {
			_ = conn.Close()
			return
		}

		client := ws.NewClient(sess.ID(), conn)
		if !h.hub.Attach(client) {
			return
		}
		defer h.hub.Detach(client)

		push := func() {
			payload, err := json.Marshal(NewSessionUpdate(h.menu, sess))
			if err != nil {
				h.logger.Error("encode session update", zap.Error(err))
				return
			}
			h.hub.SendTo(client, payload)
		}
		stopSession := sess.Subscribe(func(session.Snapshot) { push() })
		defer stopSession()
		stopOrgs := sess.Organizations().Subscribe(func(organization.Snapshot) { push() })
		defer stopOrgs()

		push()
		for {
			// Inbound frames are ignored; reading detects the close.
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
