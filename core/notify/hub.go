package notify

import (
	"encoding/json"
	"sync"
	"time"

	"TuneLib/core/library"
	"TuneLib/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1024
	sendBufferSize = 64
)

// Client 一个用户的一条 WebSocket 连接。同一用户可以同时有多条（多个标签页）
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte
	Email string
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, email string) *Client {
	return &Client{
		Hub:   hub,
		Conn:  conn,
		Send:  make(chan []byte, sendBufferSize),
		Email: email,
	}
}

// userMessage 发给某个用户所有连接的消息
type userMessage struct {
	Email   string
	Message []byte
}

// Hub 按用户邮箱分组管理连接，推送资料库变更事件
type Hub struct {
	users map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *userMessage

	mu   sync.RWMutex
	done chan struct{}
}

// NewHub 创建 Hub，需要另起 goroutine 调用 Run
func NewHub() *Hub {
	return &Hub{
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.sendToUser(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub 并关闭所有连接的发送通道
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[client.Email] == nil {
		h.users[client.Email] = make(map[*Client]bool)
	}
	h.users[client.Email][client] = true

	logger.Info("[Notify] 客户端已连接",
		logger.Email(client.Email),
		logger.Int("connections", len(h.users[client.Email])))
}

// removeClient 调用方需持有写锁
func (h *Hub) removeClient(client *Client) {
	clients, ok := h.users[client.Email]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.users, client.Email)
	}

	logger.Info("[Notify] 客户端已断开", logger.Email(client.Email))
}

func (h *Hub) sendToUser(msg *userMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.users[msg.Email] {
		select {
		case client.Send <- msg.Message:
		default:
			// 发送缓冲区满，说明对端已经不读了
			h.removeClient(client)
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.users {
		for client := range clients {
			close(client.Send)
		}
	}
	h.users = make(map[string]map[*Client]bool)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish 实现 library.Notifier。不阻塞调用方，队列满时丢弃事件
func (h *Hub) Publish(userEmail string, evt library.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		logger.Error("[Notify] 序列化事件失败", logger.ErrorField(err))
		return
	}

	select {
	case h.broadcast <- &userMessage{Email: userEmail, Message: data}:
	case <-h.done:
	default:
		logger.Warn("[Notify] 推送队列已满，丢弃事件",
			logger.Email(userEmail),
			logger.String("type", string(evt.Type)))
	}
}

// ConnectionCount 用户当前的连接数
func (h *Hub) ConnectionCount(userEmail string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userEmail])
}

// ReadPump 只处理控制帧和关闭，客户端发来的数据直接丢弃
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("[Notify] websocket read error", logger.ErrorField(err), logger.Email(c.Email))
			}
			return
		}
	}
}

// WritePump 发送事件并定时 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
