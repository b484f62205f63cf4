package main

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// Food is a collectible item on the field.
type Food struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// FoodPool keeps a target population of food on a width x height field.
// It is not safe for concurrent use; the game loop owns it.
type FoodPool struct {
	items  map[string]*Food
	width  int
	height int
	target int
}

// NewFoodPool creates a pool and fills it to target.
func NewFoodPool(width, height, target int) *FoodPool {
	p := &FoodPool{
		items:  make(map[string]*Food, target),
		width:  width,
		height: height,
		target: target,
	}
	p.ReplenishIfBelow(target)
	return p
}

// Collect removes and returns the item with the given id.
// ErrFoodNotFound means someone else got there first or the id was never valid.
func (p *FoodPool) Collect(id string) (*Food, error) {
	f, ok := p.items[id]
	if !ok {
		return nil, ErrFoodNotFound
	}
	delete(p.items, id)
	return f, nil
}

// ReplenishIfBelow spawns fresh items until the pool holds target and returns
// what was added.
func (p *FoodPool) ReplenishIfBelow(target int) []*Food {
	var added []*Food
	for len(p.items) < target {
		f := p.newFood()
		p.items[f.ID] = f
		added = append(added, f)
	}
	return added
}

// Target returns the population the pool is kept at.
func (p *FoodPool) Target() int {
	return p.target
}

// Len returns the current population.
func (p *FoodPool) Len() int {
	return len(p.items)
}

// Snapshot returns a copy of every item, oldest first.
func (p *FoodPool) Snapshot() []Food {
	out := make([]Food, 0, len(p.items))
	for _, f := range p.items {
		out = append(out, *f)
	}
	// v7 ids sort by creation time
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (p *FoodPool) newFood() *Food {
	return &Food{
		ID: newFoodID(),
		X:  float64(randIntn(p.width)),
		Y:  float64(randIntn(p.height)),
	}
}

// newFoodID returns a time-ordered random id.
func newFoodID() string {
	return "food_" + newTimeID()
}

func newTimeID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// randIntn is a helper to avoid direct rand.Intn calls in tests
var randIntn = rand.Intn
