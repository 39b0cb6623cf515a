package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"indodax-market-sentry/pkg/types"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// Hub 向面板推送实时信号的WebSocket广播中心
type Hub struct {
	mu           sync.RWMutex
	clients      map[*wsClient]struct{}
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	closed       bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub 创建广播中心
func NewHub(pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Hub{
		clients:      make(map[*wsClient]struct{}),
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Publish 广播事件；发送队列已满的客户端会被断开
func (h *Hub) Publish(event types.AlertEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("❌ 序列化推送事件失败", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			zap.L().Warn("⚠️ WebSocket客户端过慢，已断开", zap.String("remote", c.conn.RemoteAddr().String()))
			h.removeLocked(c)
		}
	}
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS 升级连接并注册客户端
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("⚠️ WebSocket升级失败", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	zap.L().Info("🔗 WebSocket客户端已连接", zap.String("remote", conn.RemoteAddr().String()))
	go h.writeLoop(c)
	go h.readLoop(c)
}

// Close 断开所有客户端
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked 关闭发送队列，由writeLoop负责关闭连接
func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readLoop 只处理控制帧，读失败即视为断开
func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("WebSocket读取panic", zap.Any("error", r))
		}
		h.remove(c)
	}()

	pongWait := 2 * h.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop 写出事件和心跳
func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		zap.L().Info("📴 WebSocket客户端已断开", zap.String("remote", c.conn.RemoteAddr().String()))
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Warn("发送心跳失败", zap.Error(err))
				h.remove(c)
				return
			}
		}
	}
}
