// Package game is the authoritative arena simulation: world state, the
// command handlers that mutate it, and the fixed-step tick.
//
// A State is not safe for concurrent use. The host must serialize commands
// and ticks per State (one State per room, one lock or worker per room).
package game

import (
	"math/rand"
	"time"

	"arena-shooter/internal/game/spatial"
)

// gridCellSize is the broad-phase cell edge. It is larger than any hit
// radius so a query touches at most 2x2 cells.
const gridCellSize = 128

// State is the world: players in join order, bullets in spawn order and the
// bullet id counter.
type State struct {
	rules   Rules
	players []*Player
	index   map[UserID]int
	bullets []*Bullet

	// bulletsFired only ever grows; the last assigned bullet id.
	bulletsFired int64

	rng   *rand.Rand
	spawn func() Location

	grid *spatial.Grid
}

// Option configures a new State.
type Option func(*State)

// WithRules overrides the default arena rules.
func WithRules(r Rules) Option {
	return func(s *State) { s.rules = r }
}

// WithRand sets the random source used for spawn locations.
func WithRand(r *rand.Rand) Option {
	return func(s *State) { s.rng = r }
}

// WithSpawnFunc replaces random spawning with a fixed placement function.
func WithSpawnFunc(fn func() Location) Option {
	return func(s *State) { s.spawn = fn }
}

// New creates an empty world.
func New(opts ...Option) *State {
	s := &State{
		rules:   DefaultRules(),
		players: make([]*Player, 0, 16),
		index:   make(map[UserID]int),
		bullets: make([]*Bullet, 0, 64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.grid = spatial.NewGrid(s.rules.ArenaSize, s.rules.ArenaSize, gridCellSize)
	return s
}

// Rules returns the rules this world runs with.
func (s *State) Rules() Rules {
	return s.rules
}

// BulletsFired returns the number of bullets spawned since creation. It is
// also the id of the most recently spawned bullet.
func (s *State) BulletsFired() int64 {
	return s.bulletsFired
}

// PlayerCount returns the number of joined players, dead or alive.
func (s *State) PlayerCount() int {
	return len(s.players)
}

// AliveCount returns the number of players with hp left.
func (s *State) AliveCount() int {
	n := 0
	for _, p := range s.players {
		if !p.IsDead() {
			n++
		}
	}
	return n
}

// BulletCount returns the number of bullets in flight.
func (s *State) BulletCount() int {
	return len(s.bullets)
}

// HasPlayer reports whether userID has joined.
func (s *State) HasPlayer(userID UserID) bool {
	_, ok := s.index[userID]
	return ok
}

func (s *State) findPlayer(userID UserID) *Player {
	i, ok := s.index[userID]
	if !ok {
		return nil
	}
	return s.players[i]
}

// UserState returns a deep copy of the whole world. Every user sees the
// same state; userID is accepted for the accessor contract only.
func (s *State) UserState(userID UserID) GameState {
	gs := GameState{
		Players: make([]PlayerState, 0, len(s.players)),
		Bullets: make([]Bullet, 0, len(s.bullets)),
	}
	for _, p := range s.players {
		gs.Players = append(gs.Players, p.view())
	}
	for _, b := range s.bullets {
		gs.Bullets = append(gs.Bullets, *b)
	}
	return gs
}

// Player returns the visible state of one player.
func (s *State) Player(userID UserID) (PlayerState, bool) {
	p := s.findPlayer(userID)
	if p == nil {
		return PlayerState{}, false
	}
	return p.view(), true
}
