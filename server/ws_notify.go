package server

import (
	"encoding/json"
	"net/http"
	"time"

	"EchoQ/core/bus"
	"EchoQ/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NotifyMessage 推送给浏览器客户端的通知
type NotifyMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NotificationsHandler 将引擎发出的事件通过 WebSocket 推送给已登录客户端。
// tracks-deleted 按身份过滤，曲库级事件全量推送。
func (h *APIHandler) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	send := make(chan NotifyMessage, 16)
	push := func(msgType string, data interface{}) {
		msg := NotifyMessage{Type: msgType, Data: data, Timestamp: time.Now().UnixMilli()}
		select {
		case send <- msg:
		default:
			// 客户端太慢就丢弃，通知不保证必达
		}
	}

	unsubDeleted := h.bus.Subscribe(bus.TopicTracksDeleted, func(event interface{}) {
		if ev, ok := event.(bus.TracksDeleted); ok && ev.Identity == userID {
			push("tracks_deleted", ev)
		}
	})
	defer unsubDeleted()

	unsubCatalog := h.bus.Subscribe(bus.TopicCatalogDeleted, func(event interface{}) {
		if ev, ok := event.(bus.CatalogItemsDeleted); ok {
			push("catalog_deleted", ev)
		}
	})
	defer unsubCatalog()

	// 读循环只用于感知连接关闭
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info("notification stream opened", logger.Int64("user", userID))
	for {
		select {
		case msg := <-send:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("notification write failed", logger.ErrorField(err))
				return
			}
		case <-done:
			logger.Info("notification stream closed", logger.Int64("user", userID))
			return
		}
	}
}
