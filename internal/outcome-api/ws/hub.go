package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

const writeWait = 5 * time.Second

// client serializa escritas: gorilla/websocket não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por evento
// subs: eventID -> conjunto de clientes inscritos
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP gerencia o ciclo de vida de uma conexão
// Cada cliente pode se inscrever em múltiplos eventIDs
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer conn.Close()
	defer h.drop(c)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.EventID == "" {
				h.reply(c, ServerMsg{Type: "error", Payload: "eventId required"})
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.EventID]; !ok {
				h.subs[msg.EventID] = make(map[*client]struct{})
			}
			h.subs[msg.EventID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			h.unsubscribe(msg.EventID, c)
			h.mu.Unlock()
		case "ping":
			h.reply(c, ServerMsg{Type: "pong"})
		}
	}
}

// Broadcast envia a liquidação para os clientes inscritos no evento
func (h *Hub) Broadcast(n events.BetSettled) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[n.EventID]))
	for c := range h.subs[n.EventID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, _ := json.Marshal(ServerMsg{Type: "bet_settled", EventID: n.EventID, Payload: n})
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

// Subscribers retorna quantos clientes acompanham o evento
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

func (h *Hub) reply(c *client, m ServerMsg) {
	b, _ := json.Marshal(m)
	_ = c.write(b)
}

// chamado com h.mu travado
func (h *Hub) unsubscribe(eventID string, c *client) {
	if set, ok := h.subs[eventID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, eventID)
		}
	}
}

// Remove a conexão de todas as assinaturas ao desconectar
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.subs {
		h.unsubscribe(id, c)
	}
}
