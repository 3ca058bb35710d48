package collaboration

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"vantage/internal/middleware"
	"vantage/internal/models"
	"vantage/internal/presence"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	maxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades dashboard connections and gives each one its
// own presence simulation for the project it is viewing.
type WebSocketHandler struct {
	hub      *Hub
	presence presence.Config
}

func NewWebSocketHandler(hub *Hub, cfg presence.Config) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, presence: cfg}
}

// HandleProjectConnection serves /ws/projects/{id}.
func (h *WebSocketHandler) HandleProjectConnection(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	// the request context ends when this handler returns
	ctx := context.WithoutCancel(r.Context())

	ctx, span := middleware.StartSpan(ctx, "WebSocket.Connect",
		attribute.String("project.id", projectID),
	)
	defer span.End()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("project_id", projectID).Msg("websocket upgrade failed")
		middleware.AddSpanError(ctx, err)
		return
	}

	client := NewClient(projectID, conn)
	sim := presence.NewSimulator(projectID, presence.WithConfig(h.presence))
	sim.OnChange(func(state models.PresenceState) {
		sendPresence(client, state)
	})
	client.OnClose(sim.Stop)

	if !h.hub.Join(client) {
		_ = conn.Close()
		return
	}

	sendPresence(client, sim.Snapshot())
	sim.Start()

	go client.WritePump()
	go client.ReadPump(ctx, h.hub, sim)

	log.Info().Str("client_id", client.ID).Str("project_id", projectID).Msg("websocket connection established")
}

func sendPresence(c *Client, state models.PresenceState) {
	msg, err := models.EncodeEvent(models.EventPresence, state)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode presence event")
		return
	}
	c.enqueue(msg)
}

func sendError(c *Client, text string) {
	msg, err := models.EncodeEvent(models.EventError, map[string]string{"error": text})
	if err != nil {
		return
	}
	c.enqueue(msg)
}

// Apply routes one client message to the local presence user.
func Apply(sim *presence.Simulator, msg models.ClientMessage) bool {
	switch msg.Type {
	case "cursor":
		sim.UpdateCursor(msg.X, msg.Y)
	case "view":
		if msg.View == "" {
			return false
		}
		sim.UpdateView(msg.View)
	default:
		return false
	}
	return true
}

// ReadPump consumes client messages until the connection fails, then
// leaves the hub.
func (c *Client) ReadPump(ctx context.Context, hub *Hub, sim *presence.Simulator) {
	defer func() {
		hub.Leave(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessage)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.ID).Msg("websocket read failed")
			}
			return
		}
		c.touch()

		_, span := middleware.StartSpan(ctx, "WebSocket.ProcessMessage",
			attribute.String("client.id", c.ID),
			attribute.String("project.id", c.Room),
			attribute.Int("message.size", len(raw)),
		)

		var msg models.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || !Apply(sim, msg) {
			sendError(c, "unsupported message")
		}

		span.End()
	}
}

// WritePump drains the send queue to the connection and keeps it alive
// with pings. Each event is its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
