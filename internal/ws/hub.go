package ws

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Message is the tagged envelope used in both directions on the wire.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Channel is one player's live connection. Send must be safe to call
// concurrently with other sends on the same channel.
type Channel interface {
	Send(msg Message) error
	Close() error
}

// Hub is the per-(game, player) channel registry. It only tracks
// connections; game state belongs to the engine and is never touched here.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[string]Channel // game code -> player ID -> channel
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[string]Channel)}
}

// Register replaces (and closes) any prior channel for the pair.
func (h *Hub) Register(code, playerID string, ch Channel) {
	h.mu.Lock()
	bucket := h.conns[code]
	if bucket == nil {
		bucket = make(map[string]Channel)
		h.conns[code] = bucket
	}
	prev := bucket[playerID]
	bucket[playerID] = ch
	h.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

// Unregister removes the pair's channel, but only if ch is still the
// registered one, so a stale connection's teardown cannot evict its
// replacement. Empty buckets are dropped.
func (h *Hub) Unregister(code, playerID string, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bucket := h.conns[code]
	if bucket == nil {
		return
	}
	if ch != nil && bucket[playerID] != ch {
		return
	}
	delete(bucket, playerID)
	if len(bucket) == 0 {
		delete(h.conns, code)
	}
}

// SendToOne is a no-op when the player has no registered channel;
// disconnected players resync via rejoin.
func (h *Hub) SendToOne(code, playerID string, msg Message) {
	h.mu.RLock()
	ch := h.conns[code][playerID]
	h.mu.RUnlock()
	if ch == nil {
		return
	}
	if err := ch.Send(msg); err != nil {
		log.Debug().Err(err).Str("code", code).Str("playerId", playerID).Str("type", msg.Type).Msg("send failed")
	}
}

// Broadcast sends to every registered channel for the game, skipping
// individual delivery errors.
func (h *Hub) Broadcast(code string, msg Message) {
	h.mu.RLock()
	channels := make(map[string]Channel, len(h.conns[code]))
	for id, ch := range h.conns[code] {
		channels[id] = ch
	}
	h.mu.RUnlock()

	for id, ch := range channels {
		if err := ch.Send(msg); err != nil {
			log.Debug().Err(err).Str("code", code).Str("playerId", id).Str("type", msg.Type).Msg("broadcast send failed")
		}
	}
}

// DropGame closes and forgets every channel for a game.
func (h *Hub) DropGame(code string) {
	h.mu.Lock()
	bucket := h.conns[code]
	delete(h.conns, code)
	h.mu.Unlock()

	for _, ch := range bucket {
		_ = ch.Close()
	}
}
