package main

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// sessionState tracks where a connection is in its lifecycle.
type sessionState int

const (
	stateConnected sessionState = iota
	stateInGame
	stateTerminated
)

type session struct {
	connID string
	state  sessionState
}

// Commands accepted by the game loop.
type (
	connectCmd struct {
		peer Peer
	}
	eventCmd struct {
		connID string
		env    Envelope
	}
	disconnectCmd struct {
		connID string
	}
	shutdownCmd struct {
		done chan struct{}
	}
)

// Game owns the registry and food pool. Every mutation happens on the
// goroutine running Run; the network layer only enqueues commands.
type Game struct {
	cfg        Config
	registry   *Registry
	food       *FoodPool
	hub        *Hub
	sessions   map[string]*session
	identity   IdentityProvider
	completion TextCompletionProvider
	now        func() time.Time

	inbox   chan any
	stopped chan struct{}
	players atomic.Int64
}

// GameOption customises a Game.
type GameOption func(*Game)

// WithIdentityProvider sets the account backend used by register and login.
func WithIdentityProvider(p IdentityProvider) GameOption {
	return func(g *Game) { g.identity = p }
}

// WithTextCompletion sets the backend used by askAI.
func WithTextCompletion(p TextCompletionProvider) GameOption {
	return func(g *Game) { g.completion = p }
}

// WithClock replaces time.Now for throttling and reaping.
func WithClock(now func() time.Time) GameOption {
	return func(g *Game) { g.now = now }
}

// NewGame creates a game with a full food pool.
func NewGame(cfg Config, hub *Hub, opts ...GameOption) *Game {
	g := &Game{
		cfg:      cfg,
		hub:      hub,
		sessions: make(map[string]*session),
		now:      time.Now,
		inbox:    make(chan any, InboxSize),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.registry = NewRegistry(cfg.MaxSnakeLength, g.now)
	g.food = NewFoodPool(cfg.FieldWidth, cfg.FieldHeight, cfg.FoodTarget)
	return g
}

// Run processes commands and reaper ticks until ctx is done.
func (g *Game) Run(ctx context.Context) {
	defer close(g.stopped)
	ticker := time.NewTicker(g.cfg.ReapInterval)
	defer ticker.Stop()
	log.Printf("game loop started (food target %d, reap every %s)", g.food.Target(), g.cfg.ReapInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-g.inbox:
			g.handleCommand(cmd)
		case <-ticker.C:
			g.reap(g.now())
		}
	}
}

// Connect admits a peer in the Connected state.
func (g *Game) Connect(p Peer) {
	g.submit(connectCmd{peer: p})
}

// Event queues one inbound envelope from connID.
func (g *Game) Event(connID string, env Envelope) {
	g.submit(eventCmd{connID: connID, env: env})
}

// Disconnect removes connID and its player.
func (g *Game) Disconnect(connID string) {
	g.submit(disconnectCmd{connID: connID})
}

// Shutdown tells every client the server is going away and closes their
// connections. It returns once the loop has done so or ctx expires.
func (g *Game) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case g.inbox <- shutdownCmd{done: done}:
	case <-g.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-g.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PlayerCount is safe to call from any goroutine.
func (g *Game) PlayerCount() int {
	return int(g.players.Load())
}

func (g *Game) submit(cmd any) {
	select {
	case g.inbox <- cmd:
	case <-g.stopped:
	}
}

func (g *Game) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case connectCmd:
		g.hub.Add(c.peer)
		g.sessions[c.peer.ID()] = &session{connID: c.peer.ID(), state: stateConnected}
	case eventCmd:
		g.handleEvent(c.connID, c.env)
	case disconnectCmd:
		g.handleDisconnect(c.connID)
	case shutdownCmd:
		g.handleShutdown()
		close(c.done)
	}
}

func (g *Game) handleDisconnect(connID string) {
	if p, ok := g.hub.Remove(connID); ok {
		_ = p.Close()
	}
	delete(g.sessions, connID)
	if player, ok := g.registry.Remove(connID); ok {
		g.syncPlayerCount()
		g.hub.BroadcastAll(EvPlayerDisconnected, PlayerDisconnectedMsg{PlayerID: player.ID})
		log.Printf("player disconnected: %s (%s)", player.Name, player.ID)
	}
}

func (g *Game) handleShutdown() {
	log.Printf("shutting down: notifying %d connections", g.hub.Count())
	g.hub.BroadcastAll(EvServerShutdown, nil)
	g.hub.CloseAll()
	for _, s := range g.sessions {
		s.state = stateTerminated
	}
}

func (g *Game) syncPlayerCount() {
	g.players.Store(int64(g.registry.Len()))
}
