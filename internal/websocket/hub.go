package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"coverage-compare-be/internal/dto"
	"coverage-compare-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FanoutChannel carries session views between instances.
const FanoutChannel = "coverage_session_events"

type fanoutPayload struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: SessionID -> connected displays (multi-tab)
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	// Redis connection for cross-instance communication
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run relays views from other instances until ctx is done, then
// disconnects every local client.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}
	<-ctx.Done()

	h.mu.Lock()
	for sessionID, set := range h.clients {
		for client := range set {
			close(client.Send)
		}
		delete(h.clients, sessionID)
	}
	h.mu.Unlock()
	return nil
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.SessionID] == nil {
		h.clients[client.SessionID] = make(map[*Client]struct{})
	}
	h.clients[client.SessionID][client] = struct{}{}
	h.logger.Info("HUB", "Client registered", map[string]interface{}{"session_id": client.SessionID})
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("HUB", "Session has no connected clients", map[string]interface{}{"session_id": client.SessionID})
	}
}

// ClientCount returns the number of local displays watching sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// PushView sends view to every display of sessionID, here and on the
// other instances.
func (h *Hub) PushView(sessionID string, view dto.SessionViewResponse) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "session_view",
		"data": view,
	})
	if err != nil {
		h.logger.Error("HUB", "Failed to encode session view", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	h.deliverLocal(sessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(fanoutPayload{Origin: h.instanceID, SessionID: sessionID, Message: data})
		if err := h.rdb.Publish(context.Background(), FanoutChannel, payload).Err(); err != nil {
			h.logger.Warn("HUB", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliverLocal(sessionID string, data []byte) {
	var stalled []*Client

	h.mu.RLock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.logger.Warn("HUB", "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
		h.unregister(client)
	}
}

// subscribeToRedis delivers views pushed by other instances to local clients.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, FanoutChannel)
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
			var payload fanoutPayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("HUB", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(payload.SessionID, payload.Message)
		}
	}
}
