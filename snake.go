package main

// Point is a 2D coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// slot is one ring position; set is false for an empty slot.
type slot struct {
	pos Point
	set bool
}

// SnakeBody stores a player's trailing body segments in a fixed-capacity ring.
// The segment at head is the snake's foremost point and the occupied slots
// always form a contiguous run ending at head.
type SnakeBody struct {
	slots    []slot
	capacity int
	head     int // -1 until the first write
	count    int // occupied slots
}

// NewSnakeBody creates an empty ring holding at most capacity segments.
func NewSnakeBody(capacity int) *SnakeBody {
	b := &SnakeBody{capacity: capacity}
	b.Reset()
	return b
}

// Reset clears every slot and forgets the head.
func (b *SnakeBody) Reset() {
	if b.capacity <= 0 {
		b.capacity = DefaultMaxSnakeLength
	}
	b.slots = make([]slot, b.capacity)
	b.head = -1
	b.count = 0
}

// valid reports whether the ring is in a shape PushHead can work with.
func (b *SnakeBody) valid() bool {
	if b.capacity <= 0 || len(b.slots) != b.capacity {
		return false
	}
	if b.head < -1 || b.head >= b.capacity {
		return false
	}
	if b.count < 0 || b.count > b.capacity {
		return false
	}
	return (b.head == -1) == (b.count == 0)
}

// PushHead writes p after the current head and clears the oldest segments
// until no more than length slots remain occupied. length must be the
// owner's length at the time of the call so growth applied just before a
// move is honoured.
func (b *SnakeBody) PushHead(p Point, length int) {
	if !b.valid() {
		b.Reset()
	}
	if length < 1 {
		length = 1
	}

	next := (b.head + 1) % b.capacity
	if !b.slots[next].set {
		b.count++
	}
	b.slots[next] = slot{pos: p, set: true}
	b.head = next

	for b.count > length {
		tail := (b.head - (b.count - 1) + b.capacity) % b.capacity
		b.slots[tail] = slot{}
		b.count--
	}
}

// OccupiedCount returns the number of non-empty slots.
func (b *SnakeBody) OccupiedCount() int {
	return b.count
}

// Capacity returns the ring size.
func (b *SnakeBody) Capacity() int {
	return b.capacity
}

// Head returns the most recently written segment.
func (b *SnakeBody) Head() (Point, bool) {
	if !b.valid() || b.head < 0 {
		return Point{}, false
	}
	return b.slots[b.head].pos, true
}

// Segments returns the occupied segments, head first.
func (b *SnakeBody) Segments() []Point {
	if !b.valid() {
		return []Point{}
	}
	out := make([]Point, 0, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head - i + b.capacity) % b.capacity
		out = append(out, b.slots[idx].pos)
	}
	return out
}

// seedBody lays length segments out behind (x,y) along -x, spacing px apart,
// oldest first so the spawn point ends up at head.
func seedBody(b *SnakeBody, x, y float64, length int, spacing float64) {
	for i := length - 1; i >= 0; i-- {
		b.PushHead(Point{X: x - float64(i)*spacing, Y: y}, length)
	}
}
