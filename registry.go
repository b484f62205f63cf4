package main

import (
	"sort"
	"time"
)

// Player is the server-side state of one joined connection.
type Player struct {
	ID            string
	ConnID        string
	Position      Point
	Score         int
	Name          string
	SkinID        string
	InitialLength int
	CurrentLength int
	Speed         float64
	JoinedAt      time.Time
	LastActive    time.Time
	LastMoveTime  time.Time
}

// MoveDelta is the result of an accepted move.
type MoveDelta struct {
	Head  Point
	DX    float64
	DY    float64
	Speed float64
}

// Registry maps connection ids to players and their snake bodies. Player and
// body are created and removed together. It is not safe for concurrent use;
// the game loop owns it.
type Registry struct {
	players   map[string]*Player
	bodies    map[string]*SnakeBody
	maxLength int
	now       func() time.Time
}

// NewRegistry creates an empty registry whose bodies hold at most maxLength
// segments.
func NewRegistry(maxLength int, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		players:   make(map[string]*Player),
		bodies:    make(map[string]*SnakeBody),
		maxLength: maxLength,
		now:       now,
	}
}

// Create registers a player with default state for connID.
func (r *Registry) Create(connID, name, skin string) (*Player, error) {
	if _, exists := r.players[connID]; exists {
		return nil, ErrPlayerExists
	}
	if name == "" {
		name = DefaultName
	}
	if skin == "" {
		skin = DefaultSkin
	}
	now := r.now()
	p := &Player{
		ID:            "player_" + newTimeID(),
		ConnID:        connID,
		Position:      Point{X: SpawnX, Y: SpawnY},
		Name:          name,
		SkinID:        skin,
		InitialLength: InitialLength,
		CurrentLength: InitialLength,
		Speed:         InitialSpeed,
		JoinedAt:      now,
		LastActive:    now,
		LastMoveTime:  now,
	}
	body := NewSnakeBody(r.maxLength)
	seedBody(body, SpawnX, SpawnY, InitialLength, SpawnSpacing)

	r.players[connID] = p
	r.bodies[connID] = body
	return p, nil
}

// Get returns the player for connID.
func (r *Registry) Get(connID string) (*Player, error) {
	p, ok := r.players[connID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

// Body returns the snake body paired with connID.
func (r *Registry) Body(connID string) (*SnakeBody, bool) {
	b, ok := r.bodies[connID]
	return b, ok
}

// ApplyMove moves the player's head to pos when the throttle allows it.
// Returns false, without touching any state, for unknown or throttled players.
func (r *Registry) ApplyMove(connID string, pos Point) (MoveDelta, bool) {
	p, ok := r.players[connID]
	if !ok {
		return MoveDelta{}, false
	}
	now := r.now()
	if now.Sub(p.LastMoveTime) < moveInterval(p.CurrentLength) {
		return MoveDelta{}, false
	}

	prev := p.Position
	p.LastMoveTime = now
	p.Position = pos
	if body, ok := r.bodies[connID]; ok {
		body.PushHead(pos, p.CurrentLength)
	}
	return MoveDelta{
		Head:  pos,
		DX:    pos.X - prev.X,
		DY:    pos.Y - prev.Y,
		Speed: p.Speed,
	}, true
}

// ApplyFoodCollection credits the player with one collected item.
func (r *Registry) ApplyFoodCollection(connID string) (*Player, error) {
	p, ok := r.players[connID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.Score += FoodReward
	p.CurrentLength += FoodGrowth
	p.Speed = speedFor(p.CurrentLength)
	return p, nil
}

// SetSkin changes the player's skin.
func (r *Registry) SetSkin(connID, skin string) (*Player, error) {
	p, ok := r.players[connID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.SkinID = skin
	return p, nil
}

// TouchActivity records inbound activity for liveness.
func (r *Registry) TouchActivity(connID string) {
	if p, ok := r.players[connID]; ok {
		p.LastActive = r.now()
	}
}

// Remove deletes the player and its body.
func (r *Registry) Remove(connID string) (*Player, bool) {
	p, ok := r.players[connID]
	if !ok {
		return nil, false
	}
	delete(r.players, connID)
	delete(r.bodies, connID)
	return p, true
}

// ReapInactive removes and returns every player whose last activity is older
// than now-timeout.
func (r *Registry) ReapInactive(now time.Time, timeout time.Duration) []*Player {
	cutoff := now.Add(-timeout)
	var reaped []*Player
	for connID, p := range r.players {
		if p.LastActive.Before(cutoff) {
			reaped = append(reaped, p)
			delete(r.players, connID)
			delete(r.bodies, connID)
		}
	}
	sortPlayers(reaped)
	return reaped
}

// Others returns every player except the one on connID, oldest first.
func (r *Registry) Others(connID string) []*Player {
	out := make([]*Player, 0, len(r.players))
	for id, p := range r.players {
		if id != connID {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	return len(r.players)
}

func sortPlayers(ps []*Player) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].ID < ps[j].ID
	})
}

// moveInterval is the minimum gap between accepted moves for a snake of the
// given length.
func moveInterval(length int) time.Duration {
	d := BaseMoveInterval - time.Duration(length)*MoveIntervalStep
	if d < MinMoveInterval {
		return MinMoveInterval
	}
	return d
}

// speedFor returns the snake speed for the given length.
func speedFor(length int) float64 {
	s := InitialSpeed - float64(length)/10
	if s < MinSpeed {
		return MinSpeed
	}
	return s
}
