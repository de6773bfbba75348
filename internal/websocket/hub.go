package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"

	"stockino/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the session token, not the Origin header.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// OrganizationResolver maps an authenticated profile id to its organization id.
type OrganizationResolver func(ctx context.Context, profileID string) (string, error)

// Client is one connection bound to an organization.
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte
	OrgID string
}

type message struct {
	orgID   string
	payload []byte
}

// Hub keeps the connected clients grouped by organization and routes each
// message to one organization only.
type Hub struct {
	clients    map[string]map[*Client]bool
	publish    chan message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		publish:    make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the dispatch loop; start it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.OrgID] == nil {
				h.clients[client.OrgID] = make(map[*Client]bool)
			}
			h.clients[client.OrgID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.publish:
			h.mu.Lock()
			for client := range h.clients[msg.orgID] {
				select {
				case client.Send <- msg.payload:
				default:
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	group, ok := h.clients[client.OrgID]
	if !ok {
		return
	}
	if _, ok := group[client]; ok {
		delete(group, client)
		close(client.Send)
	}
	if len(group) == 0 {
		delete(h.clients, client.OrgID)
	}
}

// PublishToOrganization queues payload for the organization's clients.
// It never blocks: when the queue is full the message is dropped.
func (h *Hub) PublishToOrganization(orgID string, payload []byte) {
	select {
	case h.publish <- message{orgID: orgID, payload: payload}:
	default:
		log.Printf("websocket: publish queue full, dropping event for organization %s", orgID)
	}
}

// ClientCount returns the number of clients connected for an organization.
func (h *Hub) ClientCount(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[orgID])
}

func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: %v", err)
			}
			return
		}
	}
}

// ServeWs authenticates the ?token= query parameter, binds the connection to
// the caller's organization and hands it to the hub.
func ServeWs(hub *Hub, c *gin.Context, secret []byte, resolve OrganizationResolver) {
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	profileID, err := middleware.ParseToken(secret, tokenString)
	if err != nil {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	orgID, err := resolve(c.Request.Context(), profileID)
	if err != nil || orgID == "" {
		log.Println("WebSocket connection rejected: no organization")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), OrgID: orgID}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
