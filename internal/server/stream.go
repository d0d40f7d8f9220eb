package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/motionlab/kinema/internal/channel"
	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/session"
	"github.com/motionlab/kinema/pkg/core"
	"github.com/motionlab/kinema/pkg/streaming"
)

const (
	// Outbound frames buffered per stream client. A client that falls
	// this far behind the simulation is disconnected rather than allowed
	// to stall the hub.
	clientBufferSize = 64

	streamWriteWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type streamClient struct {
	out  channel.Channel[[]byte]
	once sync.Once
}

func (c *streamClient) close() {
	c.once.Do(c.out.Close)
}

// Hub fans frames out to the websocket clients of each session.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*streamClient]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty stream hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*streamClient]struct{}),
		logger:  logger,
	}
}

func (h *Hub) add(sessionID string, c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*streamClient]struct{})
	}
	h.clients[sessionID][c] = struct{}{}
}

// drop removes a client and closes its channel. Safe to call twice.
func (h *Hub) drop(sessionID string, c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sessionID, c)
}

func (h *Hub) dropLocked(sessionID string, c *streamClient) {
	if set, ok := h.clients[sessionID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, sessionID)
			}
			c.close()
		}
	}
}

// Clients returns the number of connected clients for a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

// Broadcast delivers one frame to every client of its session. Clients
// whose buffer is full are disconnected.
func (h *Hub) Broadcast(f core.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[f.SessionID]
	if len(set) == 0 {
		return
	}

	env, err := streaming.NewEnvelope(streaming.TypeFrame, streaming.FramesPayload{
		Frames: []core.Frame{f},
	})
	if err != nil {
		return
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return
	}

	for c := range set {
		if !c.out.TrySend(msg) {
			h.logger.Warn("Dropping slow stream client", "session", f.SessionID)
			h.dropLocked(f.SessionID, c)
		}
	}
}

// CloseAll disconnects every client; used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, sessionID)
	}
}

// Publisher mirrors frame events into the hub before forwarding them to
// the recording dispatcher. It sits between the session layer and the
// dispatcher so live streaming does not depend on the storage pipeline.
type Publisher struct {
	hub  *Hub
	next session.Publisher
}

// NewPublisher wraps next with hub mirroring. next may be nil when no
// recording pipeline is configured.
func NewPublisher(hub *Hub, next session.Publisher) *Publisher {
	return &Publisher{hub: hub, next: next}
}

// Publish implements session.Publisher.
func (p *Publisher) Publish(topic string, payload any) (any, error) {
	if topic == dispatcher.TopicFrameRecorded {
		if f, ok := payload.(core.Frame); ok {
			p.hub.Broadcast(f)
		}
	}
	if p.next == nil {
		return nil, nil
	}
	return p.next.Publish(topic, payload)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		writeError(w, http.StatusNotImplemented, "streaming not enabled")
		return
	}

	sessionID := r.PathValue("id")
	if _, err := s.deps.Service.GetSession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	client := &streamClient{out: channel.New[[]byte](clientBufferSize)}
	s.deps.Hub.add(sessionID, client)

	go func() {
		defer conn.Close()
		for msg := range client.out.Receive() {
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}()

	// Block on the read side to notice client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.deps.Hub.drop(sessionID, client)
	conn.Close()
}
