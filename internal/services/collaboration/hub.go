// Package collaboration pushes dashboard events to websocket clients grouped
// into one room per project.
package collaboration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vantage/internal/models"
	"vantage/internal/notify"
	"vantage/internal/telemetry"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
)

const (
	sendBuffer      = 256
	idleTimeout     = 5 * time.Minute
	cleanupInterval = 30 * time.Second
)

// Hub tracks connected clients by room and fans messages out to them.
// Register, unregister and broadcast are serialized through one loop.
type Hub struct {
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	loopDone  chan struct{}

	logger zerolog.Logger
}

type roomMessage struct {
	room    string // empty means every room
	message []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, sendBuffer),
		done:       make(chan struct{}),
		loopDone:   make(chan struct{}),
		logger:     log.Logger.With().Str("component", "hub").Logger(),
	}
}

// Start runs the event and idle cleanup loops. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.startOnce.Do(func() {
		go h.run()
		h.logger.Info().Msg("websocket hub started")
	})
}

func (h *Hub) run() {
	defer close(h.loopDone)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.deliver(msg)
		case now := <-ticker.C:
			h.evictIdle(now)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	clients := h.rooms[c.Room]
	if clients == nil {
		clients = make(map[*Client]struct{})
		h.rooms[c.Room] = clients
	}
	clients[c] = struct{}{}
	total := len(clients)
	h.mu.Unlock()

	telemetry.AddRealtimeClients(1)
	h.logger.Debug().Str("client_id", c.ID).Str("room", c.Room).Int("clients", total).Msg("client joined")
}

// remove drops c from its room and closes its send queue. It must only run
// on the hub loop or after the loop has exited.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.Room]
	if ok {
		if _, ok = clients[c]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, c.Room)
			}
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	c.shutdown()
	telemetry.AddRealtimeClients(-1)
	h.logger.Debug().Str("client_id", c.ID).Str("room", c.Room).Msg("client left")
}

func (h *Hub) deliver(msg roomMessage) {
	h.mu.RLock()
	var targets []*Client
	for room, clients := range h.rooms {
		if msg.room != "" && room != msg.room {
			continue
		}
		for c := range clients {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg.message) {
			h.logger.Warn().Str("client_id", c.ID).Msg("client buffer full, closing connection")
			h.remove(c)
		}
	}
}

func (h *Hub) evictIdle(now time.Time) {
	h.mu.RLock()
	var idle []*Client
	for _, clients := range h.rooms {
		for c := range clients {
			if now.Sub(c.lastActive()) > idleTimeout {
				idle = append(idle, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range idle {
		h.logger.Info().Str("client_id", c.ID).Msg("closing idle client")
		h.remove(c)
	}
}

// Join registers c with the hub. It reports false once the hub is shut down.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters c. It is safe to call more than once.
func (h *Hub) Leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues message for every client in room.
func (h *Hub) Broadcast(room string, message []byte) {
	if room == "" {
		return
	}
	h.send(roomMessage{room: room, message: message})
}

// BroadcastAll queues message for every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.send(roomMessage{message: message})
}

func (h *Hub) send(msg roomMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Notify pushes n to the viewers of n.Room, or to every connected dashboard
// when it has none.
func (h *Hub) Notify(_ context.Context, n notify.Notification) error {
	msg, err := models.EncodeEvent(models.EventNotification, n)
	if err != nil {
		return err
	}
	if n.Room != "" {
		h.Broadcast(n.Room, msg)
		return nil
	}
	h.BroadcastAll(msg)
	return nil
}

// Clients returns how many clients are connected to room.
func (h *Hub) Clients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Shutdown stops the loop and closes every connection.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)

		started := true
		h.startOnce.Do(func() { started = false })
		if started {
			<-h.loopDone
		}

		h.mu.Lock()
		var all []*Client
		for _, clients := range h.rooms {
			for c := range clients {
				all = append(all, c)
			}
		}
		h.rooms = make(map[string]map[*Client]struct{})
		h.mu.Unlock()

		for _, c := range all {
			c.shutdown()
			if c.Conn != nil {
				_ = c.Conn.Close()
			}
		}
		telemetry.AddRealtimeClients(-len(all))
		h.logger.Info().Int("clients", len(all)).Msg("websocket hub shut down")
	})
}

// Client is one websocket connection watching a room.
type Client struct {
	ID   string
	Room string
	Conn *websocket.Conn

	send    chan []byte
	mu      sync.Mutex
	closed  bool
	onClose []func()

	closeOnce sync.Once

	active atomic.Int64
}

// NewClient wraps conn for room. conn may be nil in tests that only read
// the send queue.
func NewClient(room string, conn *websocket.Conn) *Client {
	c := &Client{
		ID:   ksuid.New().String(),
		Room: room,
		Conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	c.touch()
	return c
}

// OnClose registers fn to run once when the client leaves the hub.
func (c *Client) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, fn)
}

// Send returns the outbound queue. It is closed when the client leaves.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// enqueue reports false when the queue is full. A closed client silently
// drops messages.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		hooks := c.onClose
		c.onClose = nil
		c.mu.Unlock()

		// hooks may still enqueue, so they run before the queue closes
		for _, fn := range hooks {
			fn()
		}

		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *Client) touch() {
	c.active.Store(time.Now().UnixNano())
}

func (c *Client) lastActive() time.Time {
	return time.Unix(0, c.active.Load())
}
