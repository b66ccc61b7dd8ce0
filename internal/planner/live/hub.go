// Package live передает поток событий редактора поверх websocket. Клиенты
// подписываются на дизайн, шлют события ввода и получают новое состояние
// после каждого изменения.
package live

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"floorplan/internal/planner/engine"
)

// Envelope описывает исходящее сообщение.
type Envelope struct {
	Sequence uint64 `json:"sequence"`
	Type     string `json:"type"`
	Payload  any    `json:"payload"`
}

// Hub хранит подключения по дизайнам.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
	seq     atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(designID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[designID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.clients[designID] = set
	}
	set[conn] = struct{}{}
}

func (h *Hub) Remove(designID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[designID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.clients, designID)
		}
	}
}

// Count возвращает число подписчиков дизайна.
func (h *Hub) Count(designID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[designID])
}

// Broadcast рассылает сообщение подписчикам дизайна. Клиенты с ошибкой
// записи отключаются.
func (h *Hub) Broadcast(designID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients[designID] {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			delete(h.clients[designID], conn)
		}
	}
}

// Publish рассылает состояние редактора. Подходит как подписчик
// service.Manager.
func (h *Hub) Publish(designID string, st engine.State) {
	data, err := h.envelope("State", st)
	if err != nil {
		log.Printf("[LIVE] encode state %s: %v", designID, err)
		return
	}
	h.Broadcast(designID, data)
}

func (h *Hub) envelope(typ string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{
		Sequence: h.seq.Add(1),
		Type:     typ,
		Payload:  payload,
	})
}
