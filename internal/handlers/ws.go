package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/social-system/social-system/internal/services"
	"github.com/social-system/social-system/pkg/hub"
	"github.com/social-system/social-system/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub      *hub.Hub
	presence *services.PresenceService
	logger   *logger.Logger
}

func NewWSHandler(h *hub.Hub, presence *services.PresenceService, logger *logger.Logger) *WSHandler {
	return &WSHandler{
		hub:      h,
		presence: presence,
		logger:   logger,
	}
}

// Serve 升级连接并注册会话。每条连接在共享在线计数上占一个引用，
// 存活期间入站帧刷新TTL，断开时释放引用，引用归零才算离线。
func (h *WSHandler) Serve(c *gin.Context) {
	profileID, ok := services.ActorID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}

	session := h.hub.Register(profileID)

	ctx := context.Background()
	if err := h.presence.Connect(ctx, profileID); err != nil {
		h.logger.WithError(err).Warn("Failed to set presence on connect")
	}

	h.logger.WithField("profile_id", profileID).Info("Websocket session opened")

	go h.hub.WritePump(session, conn)
	go func() {
		h.hub.ReadPump(session, conn, func() {
			if err := h.presence.Heartbeat(ctx, profileID); err != nil {
				h.logger.WithError(err).Warn("Failed to refresh presence")
			}
		})

		if err := h.presence.Disconnect(ctx, profileID); err != nil {
			h.logger.WithError(err).Warn("Failed to release presence on disconnect")
		}
		h.logger.WithField("profile_id", profileID).Info("Websocket session closed")
	}()
}
