package services

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type    string      `json:"type"`
	UserID  string      `json:"userId,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan WebSocketMessage
	Hub    *Hub
}

// Hub maintains the set of active clients. A user may hold several
// connections (phone plus browser), so the registry is per-user sets.
type Hub struct {
	clients map[*Client]bool

	// User connections - maps userID to that user's clients
	users map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mutex sync.RWMutex
}

// WebSocketService pushes real-time events to connected users
type WebSocketService struct {
	hub      *Hub
	upgrader websocket.Upgrader
	auth     *AuthService
}

// NewWebSocketService creates a new WebSocket service
func NewWebSocketService(auth *AuthService, checkOrigin func(r *http.Request) bool) *WebSocketService {
	hub := &Hub{
		clients:    make(map[*Client]bool),
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	service := &WebSocketService{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
		auth: auth,
	}

	go hub.run()

	return service
}

// HandleWebSocket upgrades the connection and registers the client
func (s *WebSocketService) HandleWebSocket(c *gin.Context) {
	// Auth middleware sets userID; browsers can't set headers on the
	// upgrade request, so a token query parameter is accepted as well.
	userID, exists := c.Get("userID")
	if !exists {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
			return
		}
		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token"})
			return
		}
		userID = claims.UserID
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID.(string),
		Conn:   conn,
		Send:   make(chan WebSocketMessage, 256),
		Hub:    s.hub,
	}

	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SendToUser sends a message to all of a user's connections. Users
// without an open connection are silently skipped.
func (s *WebSocketService) SendToUser(userID string, message WebSocketMessage) {
	s.hub.mutex.RLock()
	defer s.hub.mutex.RUnlock()

	for client := range s.hub.users[userID] {
		select {
		case client.Send <- message:
		default:
			// Slow client; it will be cleaned up by its readPump exit.
		}
	}
}

// ConnectedUsers returns the number of distinct users online
func (s *WebSocketService) ConnectedUsers() int {
	s.hub.mutex.RLock()
	defer s.hub.mutex.RUnlock()
	return len(s.hub.users)
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			if h.users[client.UserID] == nil {
				h.users[client.UserID] = make(map[*Client]bool)
			}
			h.users[client.UserID][client] = true
			h.mutex.Unlock()

			select {
			case client.Send <- WebSocketMessage{Type: "connected", Message: "Connected"}:
			default:
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if userClients, exists := h.users[client.UserID]; exists {
					delete(userClients, client)
					if len(userClients) == 0 {
						delete(h.users, client.UserID)
					}
				}
				close(client.Send)
			}
			h.mutex.Unlock()
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		var message WebSocketMessage
		err := c.Conn.ReadJSON(&message)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch message.Type {
		case "ping":
			select {
			case c.Send <- WebSocketMessage{Type: "pong"}:
			default:
				return
			}
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteJSON(message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
