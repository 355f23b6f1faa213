package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"arena-shooter/internal/game"
	"arena-shooter/internal/metrics"
	"arena-shooter/internal/room"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// BroadcastInterval is how often each room's snapshot is pushed
	BroadcastInterval = 100 * time.Millisecond

	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	replyBuffer    = 32
)

// wsClient is one connection bound to one room and one user.
//
// Snapshots and command replies travel on separate queues. snapshots holds
// at most the newest frame; replies are never dropped, so a client that
// stops reading is disconnected instead.
type wsClient struct {
	hub     *WebSocketHub
	conn    *websocket.Conn
	ip      string
	room    *room.Room
	userID  game.UserID
	limiter *rate.Limiter

	snapshots chan []byte
	replies   chan []byte
	done      chan struct{}
	once      sync.Once
}

// wsMessage is the envelope of every outbound message.
type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsCommand is an inbound command. Fields beyond Type depend on the command.
type wsCommand struct {
	Type     string          `json:"type"`
	Location *game.Location  `json:"location,omitempty"`
	Dir      *game.Direction `json:"dir,omitempty"`
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	rooms        RoomDirectory
	upgrader     websocket.Upgrader
	commandLimit RateLimitConfig

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter

	stopChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewWebSocketHub creates a hub. Each connection may issue commands at the
// rate given by commandLimit. No goroutines run until Start.
func NewWebSocketHub(rooms RoomDirectory, origins *OriginChecker, commandLimit RateLimitConfig) *WebSocketHub {
	h := &WebSocketHub{
		rooms:        rooms,
		commandLimit: commandLimit,
		clients:      make(map[*wsClient]struct{}),
		wsLimiter:    NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stopChan:     make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			// Log rejected origin for security monitoring
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Start launches the broadcast loop.
func (h *WebSocketHub) Start() {
	h.startOnce.Do(func() {
		h.wg.Add(1)
		go h.broadcastLoop()
	})
}

// Stop ends the broadcast loop and closes every connection.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
		h.wg.Wait()

		h.mu.RLock()
		clients := make([]*wsClient, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.RUnlock()
		for _, c := range clients {
			c.close()
		}
	})
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("📱 %s connected to room %s from %s (%d total)", c.userID, c.room.Code(), c.ip, count)
	metrics.UpdateWSConnections(count)
}

func (h *WebSocketHub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	// Release the connection slot for this IP
	h.wsLimiter.Release(c.ip)
	log.Printf("📱 %s disconnected (%d remaining)", c.userID, count)
	metrics.UpdateWSConnections(count)
}

// broadcastLoop pushes each room's latest snapshot to its clients. The
// snapshot is encoded once per room per interval. Clients of a stopped room
// are disconnected.
func (h *WebSocketHub) broadcastLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			h.broadcastSnapshots()
		}
	}
}

func (h *WebSocketHub) broadcastSnapshots() {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	byRoom := make(map[*room.Room][]*wsClient)
	for c := range h.clients {
		byRoom[c.room] = append(byRoom[c.room], c)
	}
	h.mu.RUnlock()

	for rm, clients := range byRoom {
		if rm.Stopped() {
			log.Printf("📱 Room %s stopped, closing %d clients", rm.Code(), len(clients))
			for _, c := range clients {
				c.close()
			}
			continue
		}
		msg, err := json.Marshal(wsMessage{Event: "game:state", Data: rm.Snapshot()})
		if err != nil {
			log.Printf("⚠️ Failed to encode snapshot of room %s: %v", rm.Code(), err)
			continue
		}
		for _, c := range clients {
			c.pushSnapshot(msg)
		}
	}
}

// HandleWebSocket upgrades a request on /ws/rooms/{code} with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromRequest(r)
	if !ok {
		writeError(w, "Missing "+UserIDHeader+" header or userId parameter", http.StatusUnauthorized)
		return
	}
	rm, ok := h.rooms.Get(chi.URLParam(r, "code"))
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}

	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		metrics.RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		metrics.RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	c := &wsClient{
		hub:       h,
		conn:      conn,
		ip:        ip,
		room:      rm,
		userID:    userID,
		limiter:   rate.NewLimiter(rate.Limit(h.commandLimit.RequestsPerSecond), h.commandLimit.Burst),
		snapshots: make(chan []byte, 1),
		replies:   make(chan []byte, replyBuffer),
		done:      make(chan struct{}),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

// pushSnapshot replaces any unsent snapshot with msg. Only the broadcast
// loop calls it.
func (c *wsClient) pushSnapshot(msg []byte) {
	select {
	case c.snapshots <- msg:
		return
	default:
	}
	select {
	case <-c.snapshots:
	default:
	}
	select {
	case c.snapshots <- msg:
	default:
	}
}

// reply queues a command response. If the queue stays full for writeWait
// the client is not reading and gets disconnected.
func (c *wsClient) reply(msg []byte) bool {
	select {
	case c.replies <- msg:
		return true
	case <-c.done:
		return false
	default:
	}

	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case c.replies <- msg:
		return true
	case <-c.done:
		return false
	case <-timer.C:
		log.Printf("⚠️ %s not reading replies, disconnecting", c.userID)
		metrics.RecordConnectionRejected("ws_slow_reader")
		c.close()
		return false
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.done)
	})
}

func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var resp commandResponse
		if c.limiter.Allow() {
			resp = c.handleCommand(data)
		} else {
			metrics.RecordConnectionRejected("ws_rate_limit")
			resp = commandResponse{Error: "Rate limited"}
		}

		msg, err := json.Marshal(wsMessage{Event: "response", Data: resp})
		if err != nil {
			continue
		}
		if !c.reply(msg) {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		// Replies go out before any pending snapshot
		select {
		case msg := <-c.replies:
			if !c.write(msg) {
				return
			}
			continue
		default:
		}

		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.replies:
			if !c.write(msg) {
				return
			}
		case msg := <-c.snapshots:
			if !c.write(msg) {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) write(msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return false
	}
	metrics.IncrementWSMessages()
	return true
}

// handleCommand applies one inbound command to the client's room.
func (c *wsClient) handleCommand(data []byte) commandResponse {
	var cmd wsCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return commandResponse{Error: "Invalid message"}
	}

	var err error
	switch cmd.Type {
	case "join":
		err = c.room.Join(c.userID)
	case "moveTo":
		if cmd.Location == nil {
			return commandResponse{Error: "Missing location"}
		}
		err = c.room.MoveTo(c.userID, *cmd.Location)
	case "changeDir":
		if cmd.Dir == nil {
			return commandResponse{Error: "Missing dir"}
		}
		err = c.room.ChangeDir(c.userID, *cmd.Dir)
	case "shoot":
		err = c.room.Shoot(c.userID)
	default:
		return commandResponse{Error: fmt.Sprintf("Unknown command %q", cmd.Type)}
	}

	if err != nil {
		return commandResponse{Error: err.Error()}
	}
	return commandResponse{Success: true}
}
