package main

import (
	"encoding/json"
	"fmt"
)

// Every frame is a JSON envelope: {"event":"move","data":{"x":410,"y":300}}.
// data is omitted for events without a payload (ping, pong, growSnake,
// serverShutdown).
//
//   Client → Server:
//     startGameRequest {"chatName":"bob"}
//     move             {"x":410,"y":300}
//     collectFood      {"foodId":"food_..."}  or the bare id string
//     skinChanged      {"skinId":"red"}
//     chat message     anything, rebroadcast verbatim
//     ping
//     register         {"username":"a@b.c","password":"secret"}
//     login            {"username":"a@b.c"}
//     askAI            {"message":"how do I grow?"}
//   Server → Client:
//     playerRegistered, initialGameState, newPlayer, playerMoved,
//     otherPlayerMoved, foodCollected, growSnake, foodUpdate,
//     playerSkinUpdated, playerDisconnected, serverShutdown, pong,
//     registrationFailed, registerResult, loginResult, aiResponse, error

// Event names
const (
	EvStartGameRequest   = "startGameRequest"
	EvPlayerRegistered   = "playerRegistered"
	EvInitialGameState   = "initialGameState"
	EvNewPlayer          = "newPlayer"
	EvRegistrationFailed = "registrationFailed"
	EvMove               = "move"
	EvPlayerMoved        = "playerMoved"
	EvOtherPlayerMoved   = "otherPlayerMoved"
	EvCollectFood        = "collectFood"
	EvFoodCollected      = "foodCollected"
	EvGrowSnake          = "growSnake"
	EvFoodUpdate         = "foodUpdate"
	EvSkinChanged        = "skinChanged"
	EvPlayerSkinUpdated  = "playerSkinUpdated"
	EvChatMessage        = "chat message"
	EvPing               = "ping"
	EvPong               = "pong"
	EvPlayerDisconnected = "playerDisconnected"
	EvServerShutdown     = "serverShutdown"
	EvRegister           = "register"
	EvRegisterResult     = "registerResult"
	EvLogin              = "login"
	EvLoginResult        = "loginResult"
	EvAskAI              = "askAI"
	EvAIResponse         = "aiResponse"
	EvError              = "error"
)

// Envelope wraps every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals payload into an envelope for event. A nil payload produces
// an envelope without data.
func Encode(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("encode: empty event name")
	}
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses one inbound frame.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty frame", ErrInvalidPayload)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrInvalidPayload)
	}
	return env, nil
}

// DecodePayload unmarshals an envelope's data into T.
func DecodePayload[T any](data json.RawMessage) (T, error) {
	var out T
	if len(data) == 0 {
		return out, fmt.Errorf("%w: empty data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, nil
}

// Client → Server payloads

type StartGameRequest struct {
	ChatName string `json:"chatName"`
}

// MoveRequest uses pointers so a missing coordinate is a validation error
// rather than a move to zero.
type MoveRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type CollectFoodRequest struct {
	FoodID string `json:"foodId"`
}

type SkinChangedRequest struct {
	SkinID string `json:"skinId"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
}

type AskAIRequest struct {
	Message string `json:"message"`
}

// decodeFoodID accepts {"foodId":"..."} or a bare JSON string.
func decodeFoodID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		if id == "" {
			return "", fmt.Errorf("%w: empty food id", ErrInvalidPayload)
		}
		return id, nil
	}
	req, err := DecodePayload[CollectFoodRequest](data)
	if err != nil {
		return "", err
	}
	if req.FoodID == "" {
		return "", fmt.Errorf("%w: empty food id", ErrInvalidPayload)
	}
	return req.FoodID, nil
}

// Server → Client payloads

// {"playerId":"player_..."}
type PlayerRegisteredMsg struct {
	PlayerID string `json:"playerId"`
}

// PlayerInfo is the public view of another player.
// {"id":"player_...","position":{"x":400,"y":300},"name":"bob","skinId":"green"}
type PlayerInfo struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`
	Name     string `json:"name"`
	SkinID   string `json:"skinId"`
}

type InitialGameStateMsg struct {
	InitialFood  []Food       `json:"initialFood"`
	InitialHead  Point        `json:"initialHead"`
	InitialSnake []Point      `json:"initialSnake"` // head first
	OtherPlayers []PlayerInfo `json:"otherPlayers"`
}

type RegistrationFailedMsg struct {
	Error string `json:"error"`
}

// {"head":{"x":410,"y":300},"dx":10,"dy":0,"speed":5}
type PlayerMovedMsg struct {
	Head  Point   `json:"head"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Speed float64 `json:"speed"`
}

type OtherPlayerMovedMsg struct {
	PlayerID string  `json:"playerId"`
	Head     Point   `json:"head"`
	Speed    float64 `json:"speed"`
}

// {"success":false,"foodId":"food_...","message":"Food not found"}
type FoodCollectedMsg struct {
	Success bool   `json:"success"`
	FoodID  string `json:"foodId"`
	Message string `json:"message,omitempty"`
}

// Either removed or added is set, never both.
type FoodUpdateMsg struct {
	Removed []string `json:"removed,omitempty"`
	Added   []Food   `json:"added,omitempty"`
}

type PlayerSkinUpdatedMsg struct {
	PlayerID string `json:"playerId"`
	SkinID   string `json:"skinId"`
}

type PlayerDisconnectedMsg struct {
	PlayerID string `json:"playerId"`
}

type AuthResultMsg struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

type AIResponseMsg struct {
	Response string `json:"response"`
}

type ErrorMsg struct {
	Message string `json:"message"`
}

func playerInfo(p *Player) PlayerInfo {
	return PlayerInfo{ID: p.ID, Position: p.Position, Name: p.Name, SkinID: p.SkinID}
}
