package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/milestone-tracker/internal/services"
)

// LatestSource returns the last stored snapshot without calling upstream
type LatestSource interface {
	Latest(ctx context.Context) (services.StatusUpdate, error)
}

type WebSocketHandler struct {
	hub      *services.WebSocketHub
	latest   LatestSource
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins; an empty list
// or "*" allows any origin
func NewWebSocketHandler(hub *services.WebSocketHub, latest LatestSource, allowedOrigins []string, logger *logrus.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &WebSocketHandler{
		hub:    hub,
		latest: latest,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleWebSocket upgrades the connection, sends the latest stored snapshot and
// then streams every change
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	client := services.NewClient(h.hub, conn)

	// queued before Register so the hub cannot have closed the send channel yet
	if h.latest != nil {
		if update, err := h.latest.Latest(c.Request.Context()); err == nil {
			client.SendDirect(services.MessageTypeSnapshot, update)
		}
	}

	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
