package realtime

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"factorydash.xyz/alert-engine/pkg/common"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	sendBufferSize = 64
)

// Message is the JSON frame written to a recipient's desktop sessions.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub tracks open desktop sessions per recipient.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrLoopback,
		},
		logger: common.GetLoggerWith(common.LoggerNameRealtime),
	}
}

// Serve upgrades the request and blocks until the session closes.
func (h *Hub) Serve(recipientID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return
	}

	s := &session{hub: h, socket: conn, recipientID: recipientID, send: make(chan Message, sendBufferSize)}
	h.register(s)
	h.logger.Debug("Desktop session opened", zap.String("recipient_id", recipientID))

	go s.writeLoop()
	s.readLoop()
}

// BroadcastToUser queues the event on every open session of userID and
// returns how many sessions accepted it.
func (h *Hub) BroadcastToUser(userID, event string, payload any) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.sessions[userID] {
		select {
		case s.send <- Message{Event: event, Data: payload}:
			delivered++
		default:
			h.logger.Warn("Dropping slow desktop session", zap.String("recipient_id", userID))
			go s.close()
		}
	}
	return delivered
}

// Publish fans inbox changes out to the recipient's sessions.
func (h *Hub) Publish(recipientID, event string, payload any) {
	h.BroadcastToUser(recipientID, event, payload)
}

// Sessions returns the number of open sessions for userID.
func (h *Hub) Sessions(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[s.recipientID] == nil {
		h.sessions[s.recipientID] = make(map[*session]struct{})
	}
	h.sessions[s.recipientID][s] = struct{}{}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[s.recipientID], s)
	if len(h.sessions[s.recipientID]) == 0 {
		delete(h.sessions, s.recipientID)
	}
}

type session struct {
	hub         *Hub
	socket      *websocket.Conn
	recipientID string
	send        chan Message
	once        sync.Once
}

// readLoop only services control frames; clients never send data.
func (s *session) readLoop() {
	defer s.close()
	s.socket.SetReadLimit(maxMessageSize)
	_ = s.socket.SetReadDeadline(time.Now().Add(pongWait))
	s.socket.SetPongHandler(func(string) error {
		return s.socket.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Debug("Desktop session closed unexpectedly", zap.String("recipient_id", s.recipientID), zap.Error(err))
			}
			return
		}
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.socket.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.socket.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) close() {
	s.once.Do(func() {
		s.hub.unregister(s)
		close(s.send)
	})
}

func sameOriginOrLoopback(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originHost := hostWithoutPort(origin)
	return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	host, _, _ = strings.Cut(host, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
