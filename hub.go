package main

import (
	"log"
	"sync"
)

// Peer is one connected client as seen by the fan-out.
type Peer interface {
	ID() string
	Send(b []byte) error
	Close() error
}

// Hub delivers encoded events to connected peers. It is safe for concurrent
// use so collaborator callbacks can reply without going through the game loop.
type Hub struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{peers: make(map[string]Peer)}
}

// Add registers a peer
func (h *Hub) Add(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.ID()] = p
}

// Remove unregisters a peer and returns it
func (h *Hub) Remove(id string) (Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.peers[id]
	delete(h.peers, id)
	return p, ok
}

// Count returns the number of registered peers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close closes one peer's connection; its read loop reports the disconnect.
func (h *Hub) Close(id string) {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	if ok {
		_ = p.Close()
	}
}

// CloseAll closes every peer
func (h *Hub) CloseAll() {
	for _, p := range h.snapshot("") {
		_ = p.Close()
	}
}

// SendTo delivers an event to a single peer. Unknown ids are ignored, which
// covers replies that arrive after the peer left.
func (h *Hub) SendTo(id, event string, payload any) {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	b, err := Encode(event, payload)
	if err != nil {
		log.Printf("hub: %v", err)
		return
	}
	h.deliver(p, event, b)
}

// BroadcastExcept delivers an event to every peer but senderID.
func (h *Hub) BroadcastExcept(senderID, event string, payload any) {
	h.broadcast(h.snapshot(senderID), event, payload)
}

// BroadcastAll delivers an event to every peer, sender included.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.broadcast(h.snapshot(""), event, payload)
}

func (h *Hub) broadcast(peers []Peer, event string, payload any) {
	if len(peers) == 0 {
		return
	}
	b, err := Encode(event, payload)
	if err != nil {
		log.Printf("hub: %v", err)
		return
	}
	for _, p := range peers {
		h.deliver(p, event, b)
	}
}

func (h *Hub) deliver(p Peer, event string, b []byte) {
	if err := p.Send(b); err != nil {
		log.Printf("hub: send %s to %s: %v", event, p.ID(), err)
	}
}

// snapshot copies the peer list, leaving out exclude
func (h *Hub) snapshot(exclude string) []Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := make([]Peer, 0, len(h.peers))
	for id, p := range h.peers {
		if id != exclude {
			list = append(list, p)
		}
	}
	return list
}
