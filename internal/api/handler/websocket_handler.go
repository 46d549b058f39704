package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
)

const writeWait = 10 * time.Second

// WebSocketManager fans occupancy events out to every connected client.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	stopped    chan struct{}
	logger     *logrus.Logger
}

func NewWebSocketManager(allowedOrigins []string, logger *logrus.Logger) *WebSocketManager {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 64),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Start runs the hub loop until done is closed. Connections that arrive or
// leave after that are closed without going through the hub.
func (wsm *WebSocketManager) Start(done <-chan struct{}) {
	defer close(wsm.stopped)
	for {
		select {
		case <-done:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				client.Close()
				delete(wsm.clients, client)
			}
			wsm.mutex.Unlock()
			return

		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.WithField("clients", total).Debug("websocket client connected")

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.WithField("clients", total).Debug("websocket client disconnected")

		case message := <-wsm.broadcast:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					wsm.logger.WithError(err).Debug("dropping websocket client")
					client.Close()
					delete(wsm.clients, client)
				}
			}
			wsm.mutex.Unlock()
		}
	}
}

// BroadcastOccupancy queues the event for delivery and drops it if the hub is backed up.
func (wsm *WebSocketManager) BroadcastOccupancy(event domain.OccupancyEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		wsm.logger.WithError(err).Error("could not encode occupancy event")
		return
	}

	select {
	case wsm.broadcast <- message:
	default:
		wsm.logger.Warn("websocket broadcast buffer full, dropping event")
	}
}

func (wsm *WebSocketManager) add(conn *websocket.Conn) bool {
	select {
	case wsm.register <- conn:
		return true
	case <-wsm.stopped:
		conn.Close()
		return false
	}
}

func (wsm *WebSocketManager) remove(conn *websocket.Conn) {
	select {
	case wsm.unregister <- conn:
	case <-wsm.stopped:
		conn.Close()
	}
}

func (wsm *WebSocketManager) ClientCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.wsManager.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.wsManager.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	if !h.wsManager.add(conn) {
		return
	}

	go func() {
		defer h.wsManager.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.wsManager.logger.WithError(err).Debug("websocket read error")
				}
				return
			}
		}
	}()
}
