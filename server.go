package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"
)

// ipRateLimiter tracks last connection time per IP to prevent abuse
type ipRateLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	times    map[string]time.Time
	now      func() time.Time
}

func newIPRateLimiter(cooldown time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		cooldown: cooldown,
		times:    make(map[string]time.Time),
		now:      time.Now,
	}
}

// allow returns true if this IP can connect, and records the attempt.
// A zero cooldown disables the check.
func (rl *ipRateLimiter) allow(ip string) bool {
	if rl.cooldown <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if last, ok := rl.times[ip]; ok && now.Sub(last) < rl.cooldown {
		return false
	}
	rl.times[ip] = now
	return true
}

// sweep drops entries older than the cooldown every interval until ctx ends.
func (rl *ipRateLimiter) sweep(ctx context.Context, interval time.Duration) {
	if rl.cooldown <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-rl.cooldown)
			for ip, t := range rl.times {
				if t.Before(cutoff) {
					delete(rl.times, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Server is the HTTP surface: the websocket endpoint and the health check.
type Server struct {
	cfg      Config
	game     *Game
	hub      *Hub
	limiter  *ipRateLimiter
	upgrader websocket.Upgrader
	started  time.Time
	conns    sync.WaitGroup
}

// NewServer wires the HTTP surface to game and hub.
func NewServer(cfg Config, game *Game, hub *Hub) *Server {
	s := &Server{
		cfg:     cfg,
		game:    game,
		hub:     hub,
		limiter: newIPRateLimiter(cfg.IPCooldown),
		started: time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, s.handleHealth)
	r.Get(WebSocketPath, s.handleWebSocket)
	return r
}

// Wait blocks until every websocket read loop has ended or ctx expires.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	// Check limits after upgrade so client can receive error messages
	if s.hub.Count() >= s.cfg.MaxConnections {
		sendErrorAndClose(ws, "Server full. Please try again later.")
		return
	}
	if !s.limiter.allow(ip) {
		sendErrorAndClose(ws, "Too many connections. Please wait and try again.")
		return
	}

	conn := NewConn(ws, ip)
	s.conns.Add(1)
	defer s.conns.Done()

	s.game.Connect(conn)
	log.Printf("client connected: %s (%s)", conn.ID(), ip)
	go conn.WritePump()

	// Blocking read loop, runs until client disconnects
	conn.ReadLoop(
		func(env Envelope) { s.game.Event(conn.ID(), env) },
		func() {
			s.game.Disconnect(conn.ID())
			log.Printf("client disconnected: %s", conn.ID())
		},
	)
}

// sendErrorAndClose sends an error message via WebSocket then closes the connection
func sendErrorAndClose(ws *websocket.Conn, msg string) {
	if data, err := Encode(EvError, ErrorMsg{Message: msg}); err == nil {
		_ = ws.SetWriteDeadline(time.Now().Add(WriteWait))
		_ = ws.WriteMessage(websocket.TextMessage, data)
	}
	ws.Close()
}
