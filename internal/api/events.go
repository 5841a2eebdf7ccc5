package api

import (
	"net/http"
	"time"

	"taskhub_miniapp/internal/notifier"
	"taskhub_miniapp/pkg/auth"
	"taskhub_miniapp/pkg/logger"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeTimeout = 10 * time.Second

type eventRoutes struct {
	hub *notifier.Hub
	a   *auth.TelegramAuth
}

func NewEventRoutes(handler *gin.RouterGroup, hub *notifier.Hub, a *auth.TelegramAuth) {
	r := &eventRoutes{hub: hub, a: a}
	h := handler.Group("/events")
	h.Use(a.TelegramAuthMiddleware())

	h.GET("/ws", r.handleWebSocket)
}

func (r *eventRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := telegramUserFromContext(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := r.hub.Subscribe(tgUser.ID)
	go r.eventLoop(conn, tgUser.ID, events, cancel)
}

func (r *eventRoutes) eventLoop(conn *websocket.Conn, telegramID int64, events <-chan notifier.Event, cancel func()) {
	log := logger.Logger()

	defer func() {
		cancel()
		conn.Close()
	}()

	for event := range events {
		out, err := json.Marshal(event)
		if err != nil {
			log.Error("failed to marshal event", zap.Error(err))
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			log.Info("event subscriber disconnected",
				zap.Int64("telegram_id", telegramID),
				zap.Error(err))
			return
		}
	}
}
