package main

import (
	"encoding/json"
	"errors"
	"log"
	"runtime/debug"
)

// handleEvent dispatches one inbound envelope. A panic is contained here so a
// single bad event cannot take down the loop or affect other connections.
func (g *Game) handleEvent(connID string, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic handling %q from %s: %v\n%s", env.Event, connID, r, debug.Stack())
			g.hub.SendTo(connID, EvError, ErrorMsg{Message: "internal error"})
		}
	}()

	s, ok := g.sessions[connID]
	if !ok || s.state == stateTerminated {
		return
	}
	g.registry.TouchActivity(connID)

	// allowed before the game starts
	switch env.Event {
	case EvPing:
		g.hub.SendTo(connID, EvPong, nil)
		return
	case EvStartGameRequest:
		g.startGame(s, env.Data)
		return
	case EvRegister:
		g.register(connID, env.Data)
		return
	case EvLogin:
		g.login(connID, env.Data)
		return
	}

	if s.state != stateInGame {
		return
	}
	switch env.Event {
	case EvMove:
		g.move(connID, env.Data)
	case EvCollectFood:
		g.collectFood(connID, env.Data)
	case EvSkinChanged:
		g.changeSkin(connID, env.Data)
	case EvChatMessage:
		g.chat(env.Data)
	case EvAskAI:
		g.askAI(connID, env.Data)
	default:
		log.Printf("unknown event %q from %s", env.Event, connID)
	}
}

func (g *Game) startGame(s *session, data json.RawMessage) {
	var req StartGameRequest
	if len(data) > 0 {
		var err error
		if req, err = DecodePayload[StartGameRequest](data); err != nil {
			g.hub.SendTo(s.connID, EvRegistrationFailed, RegistrationFailedMsg{Error: err.Error()})
			return
		}
	}

	player, err := g.registry.Create(s.connID, req.ChatName, DefaultSkin)
	if err != nil {
		g.hub.SendTo(s.connID, EvRegistrationFailed, RegistrationFailedMsg{Error: err.Error()})
		return
	}
	s.state = stateInGame
	g.syncPlayerCount()

	var segments []Point
	if body, ok := g.registry.Body(s.connID); ok {
		segments = body.Segments()
	}
	others := g.registry.Others(s.connID)
	infos := make([]PlayerInfo, 0, len(others))
	for _, o := range others {
		infos = append(infos, playerInfo(o))
	}

	g.hub.SendTo(s.connID, EvPlayerRegistered, PlayerRegisteredMsg{PlayerID: player.ID})
	g.hub.SendTo(s.connID, EvInitialGameState, InitialGameStateMsg{
		InitialFood:  g.food.Snapshot(),
		InitialHead:  player.Position,
		InitialSnake: segments,
		OtherPlayers: infos,
	})
	g.hub.BroadcastExcept(s.connID, EvNewPlayer, playerInfo(player))
	log.Printf("player joined: %s (%s)", player.Name, player.ID)
}

// move is silent on every rejection: bad payloads and throttled moves are
// absorbed by client-side prediction.
func (g *Game) move(connID string, data json.RawMessage) {
	req, err := DecodePayload[MoveRequest](data)
	if err != nil || req.X == nil || req.Y == nil {
		return
	}
	delta, ok := g.registry.ApplyMove(connID, Point{X: *req.X, Y: *req.Y})
	if !ok {
		return
	}
	player, err := g.registry.Get(connID)
	if err != nil {
		return
	}
	g.hub.SendTo(connID, EvPlayerMoved, PlayerMovedMsg{
		Head:  delta.Head,
		DX:    delta.DX,
		DY:    delta.DY,
		Speed: delta.Speed,
	})
	g.hub.BroadcastExcept(connID, EvOtherPlayerMoved, OtherPlayerMovedMsg{
		PlayerID: player.ID,
		Head:     delta.Head,
		Speed:    delta.Speed,
	})
}

// collectFood runs remove, credit and replenish as one step of the loop, so
// two requests for the same id can never both succeed.
func (g *Game) collectFood(connID string, data json.RawMessage) {
	foodID, err := decodeFoodID(data)
	if err != nil {
		g.hub.SendTo(connID, EvFoodCollected, FoodCollectedMsg{Success: false, Message: "Invalid food id"})
		return
	}
	if _, err := g.registry.Get(connID); err != nil {
		g.hub.SendTo(connID, EvFoodCollected, FoodCollectedMsg{Success: false, FoodID: foodID, Message: "Player not found"})
		return
	}

	food, err := g.food.Collect(foodID)
	if err != nil {
		msg := "Food not found"
		if !errors.Is(err, ErrFoodNotFound) {
			msg = err.Error()
		}
		g.hub.SendTo(connID, EvFoodCollected, FoodCollectedMsg{Success: false, FoodID: foodID, Message: msg})
		return
	}
	if _, err := g.registry.ApplyFoodCollection(connID); err != nil {
		return
	}

	g.hub.SendTo(connID, EvFoodCollected, FoodCollectedMsg{Success: true, FoodID: food.ID})
	g.hub.SendTo(connID, EvGrowSnake, nil)
	g.hub.BroadcastAll(EvFoodUpdate, FoodUpdateMsg{Removed: []string{food.ID}})

	if added := g.food.ReplenishIfBelow(g.food.Target()); len(added) > 0 {
		items := make([]Food, 0, len(added))
		for _, f := range added {
			items = append(items, *f)
		}
		g.hub.BroadcastAll(EvFoodUpdate, FoodUpdateMsg{Added: items})
	}
}

func (g *Game) changeSkin(connID string, data json.RawMessage) {
	req, err := DecodePayload[SkinChangedRequest](data)
	if err != nil || req.SkinID == "" {
		return
	}
	player, err := g.registry.SetSkin(connID, req.SkinID)
	if err != nil {
		return
	}
	g.hub.BroadcastAll(EvPlayerSkinUpdated, PlayerSkinUpdatedMsg{PlayerID: player.ID, SkinID: player.SkinID})
}

// chat rebroadcasts the payload untouched
func (g *Game) chat(data json.RawMessage) {
	if len(data) == 0 {
		g.hub.BroadcastAll(EvChatMessage, nil)
		return
	}
	g.hub.BroadcastAll(EvChatMessage, data)
}
