package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T, cfg Config) (*Server, *Game, string) {
	t.Helper()
	hub := NewHub()
	game := NewGame(cfg, hub)
	srv := NewServer(cfg, game, hub)

	ctx, cancel := context.WithCancel(context.Background())
	go game.Run(ctx)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return srv, game, ts.URL
}

func dialWS(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	b, err := Encode(event, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, event string) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		env, err := DecodeEnvelope(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if env.Event == event {
			return env
		}
	}
}

func getHealth(t *testing.T, baseURL string) HealthStatus {
	t.Helper()
	resp, err := http.Get(baseURL + HealthPath)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
	var h HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return h
}

func TestWebSocketJoinMoveAndHealth(t *testing.T) {
	cfg := testConfig()
	_, _, url := startTestServer(t, cfg)

	a := dialWS(t, url)
	writeEvent(t, a, EvStartGameRequest, StartGameRequest{ChatName: "alice"})
	reg := payload[PlayerRegisteredMsg](t, readUntil(t, a, EvPlayerRegistered))
	state := payload[InitialGameStateMsg](t, readUntil(t, a, EvInitialGameState))
	if len(state.InitialFood) != cfg.FoodTarget {
		t.Fatalf("initial food %d, want %d", len(state.InitialFood), cfg.FoodTarget)
	}

	b := dialWS(t, url)
	writeEvent(t, b, EvStartGameRequest, StartGameRequest{ChatName: "bob"})
	readUntil(t, b, EvInitialGameState)
	if np := payload[PlayerInfo](t, readUntil(t, a, EvNewPlayer)); np.Name != "bob" {
		t.Fatalf("newPlayer %+v", np)
	}

	writeEvent(t, b, EvPing, nil)
	readUntil(t, b, EvPong)

	time.Sleep(moveInterval(InitialLength) + 20*time.Millisecond)
	writeEvent(t, a, EvMove, map[string]float64{"x": 420, "y": 300})
	if m := payload[PlayerMovedMsg](t, readUntil(t, a, EvPlayerMoved)); m.DX != 20 {
		t.Fatalf("playerMoved %+v", m)
	}
	if om := payload[OtherPlayerMovedMsg](t, readUntil(t, b, EvOtherPlayerMoved)); om.PlayerID != reg.PlayerID {
		t.Fatalf("otherPlayerMoved %+v", om)
	}

	h := getHealth(t, url)
	if h.Status != "healthy" || h.Players != 2 || h.Connections != 2 || h.Memory.Sys == 0 {
		t.Fatalf("health %+v", h)
	}

	a.Close()
	if d := payload[PlayerDisconnectedMsg](t, readUntil(t, b, EvPlayerDisconnected)); d.PlayerID != reg.PlayerID {
		t.Fatalf("playerDisconnected %+v", d)
	}
}

func TestWebSocketRejectsWhenFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConnections = 1
	_, _, url := startTestServer(t, cfg)

	a := dialWS(t, url)
	writeEvent(t, a, EvPing, nil)
	readUntil(t, a, EvPong)

	b := dialWS(t, url)
	if m := payload[ErrorMsg](t, readUntil(t, b, EvError)); !strings.Contains(m.Message, "full") {
		t.Fatalf("rejection %+v", m)
	}
}

func TestWebSocketShutdownNotifiesClients(t *testing.T) {
	srv, game, url := startTestServer(t, testConfig())

	a := dialWS(t, url)
	writeEvent(t, a, EvStartGameRequest, StartGameRequest{ChatName: "alice"})
	readUntil(t, a, EvInitialGameState)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := game.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	readUntil(t, a, EvServerShutdown)

	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := a.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
	if err := srv.Wait(ctx); err != nil {
		t.Fatalf("connections still open: %v", err)
	}
}

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://snakel.example"}
	srv := NewServer(cfg, NewGame(cfg, NewHub()), NewHub())

	req := httptest.NewRequest(http.MethodGet, WebSocketPath, nil)
	req.Header.Set("Origin", "https://snakel.example")
	if !srv.checkOrigin(req) {
		t.Fatalf("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if srv.checkOrigin(req) {
		t.Fatalf("foreign origin accepted")
	}
}

func TestIPRateLimiter(t *testing.T) {
	clock := newFakeClock()
	rl := newIPRateLimiter(time.Second)
	rl.now = clock.Now

	if !rl.allow("1.2.3.4") {
		t.Fatalf("first connection refused")
	}
	if rl.allow("1.2.3.4") {
		t.Fatalf("second connection inside cooldown allowed")
	}
	if !rl.allow("5.6.7.8") {
		t.Fatalf("other ip refused")
	}
	clock.Advance(time.Second)
	if !rl.allow("1.2.3.4") {
		t.Fatalf("connection after cooldown refused")
	}

	off := newIPRateLimiter(0)
	for i := 0; i < 3; i++ {
		if !off.allow("1.2.3.4") {
			t.Fatalf("disabled limiter refused")
		}
	}
}
