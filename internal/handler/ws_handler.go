package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskflow/internal/middleware"
	"taskflow/internal/realtime"
	"taskflow/internal/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated requests to realtime sessions
type WSHandler struct {
	hub        *realtime.Hub
	authorizer realtime.BoardAuthorizer
	logger     *zap.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *realtime.Hub, authorizer realtime.BoardAuthorizer, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, authorizer: authorizer, logger: logger}
}

// Serve handles GET /ws. Auth middleware runs first; the token travels in the
// token query parameter because browsers cannot set websocket headers.
func (h *WSHandler) Serve(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("userId", userID.String()),
			zap.Error(err))
		return
	}

	session := realtime.NewSession(h.hub, h.authorizer, conn, userID, h.logger)
	session.Start()
}
