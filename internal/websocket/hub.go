package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel carries pipeline events between server instances.
const clusterChannel = "pipeline_events"

// Message is what a session's sockets receive.
type Message struct {
	Type       string                 `json:"type"`
	SessionId  string                 `json:"session_id"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt string                 `json:"occurred_at"`
}

type clusterEnvelope struct {
	Origin    string          `json:"origin"`
	SessionId string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

// Hub fans pipeline events out to the sockets watching a session. With
// Redis configured, events raised on another instance reach local sockets
// too.
type Hub struct {
	// session id -> connected clients
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb    *redis.Client
	origin string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

// Run serves registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID.String()})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more clients", map[string]interface{}{"session_id": client.SessionID.String()})
	}
}

// Notify delivers an event to the session's local sockets and relays it to
// the other instances.
func (h *Hub) Notify(ctx context.Context, sessionID uuid.UUID, event events.Event) {
	data, err := json.Marshal(Message{
		Type:       event.EventType(),
		SessionId:  sessionID.String(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		h.logger.Warn("Hub", "Failed to encode event", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(sessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterEnvelope{Origin: h.origin, SessionId: sessionID.String(), Message: data})
		if err := h.rdb.Publish(ctx, clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to relay event to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Clients is the number of sockets watching sessionID.
func (h *Hub) Clients(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// deliver drops the message for a client whose buffer is full; the client
// catches up from the turn history.
func (h *Hub) deliver(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping message", map[string]interface{}{"session_id": sessionID.String()})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("Hub", "Malformed cluster message", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == h.origin {
				continue
			}
			sid, err := uuid.Parse(env.SessionId)
			if err != nil {
				continue
			}
			h.deliver(sid, env.Message)
		}
	}
}
