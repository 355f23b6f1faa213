// Package room hosts simulation instances. A Room serializes every command
// and tick against its world behind one lock, runs the fixed-rate loop, and
// publishes a snapshot after each tick for lock-free readers.
package room

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"arena-shooter/internal/eventlog"
	"arena-shooter/internal/game"
	"arena-shooter/internal/metrics"
)

// ErrRoomFull is returned when a new user joins a room at capacity.
var ErrRoomFull = errors.New("room is full")

// Config holds the settings of one room.
type Config struct {
	TickRate   int        // Ticks per second
	MaxPlayers int        // 0 means unlimited
	Rules      game.Rules // Zero value means game.DefaultRules()
	EventLog   *eventlog.Log
	GameOpts   []game.Option // Extra world options (spawn placement, rng)
}

// Snapshot is an immutable copy of a room's world after a tick.
type Snapshot struct {
	Room      string         `json:"room"`
	Tick      uint64         `json:"tick"`
	Timestamp time.Time      `json:"timestamp"`
	State     game.GameState `json:"state"`
}

// Room owns one world. All mutation goes through its methods.
type Room struct {
	code string
	cfg  Config

	mu        sync.Mutex
	state     *game.State
	tickCount uint64
	lastTick  time.Time

	running  bool
	stopped  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	latest atomic.Pointer[Snapshot]
	events *eventlog.Log
}

// New creates a stopped room. Call Start to run the tick loop.
func New(code string, cfg Config) *Room {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 20
	}
	rules := cfg.Rules
	if rules == (game.Rules{}) {
		rules = game.DefaultRules()
	}
	opts := append([]game.Option{game.WithRules(rules)}, cfg.GameOpts...)

	r := &Room{
		code:     code,
		cfg:      cfg,
		state:    game.New(opts...),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		events:   cfg.EventLog,
	}
	if r.events == nil {
		r.events = eventlog.New() // stopped log, drops everything
	}
	r.publish()
	return r
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

// Start begins the tick loop.
func (r *Room) Start() {
	r.mu.Lock()
	if r.running || r.stopped {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.lastTick = time.Now()
	r.ticker = time.NewTicker(time.Second / time.Duration(r.cfg.TickRate))
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		for {
			select {
			case now := <-r.ticker.C:
				r.tickAt(now)
			case <-r.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Room %s started at %d TPS", r.code, r.cfg.TickRate)
}

// Stop halts the tick loop and waits for it to exit. Safe to call twice.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		wasRunning := r.running
		r.running = false
		r.stopped = true
		if r.ticker != nil {
			r.ticker.Stop()
		}
		players, bullets := r.state.PlayerCount(), r.state.BulletCount()
		r.mu.Unlock()

		close(r.stopChan)
		if wasRunning {
			<-r.done
		}
		metrics.AddPlayers(-players)
		metrics.AddBullets(-bullets)
		log.Printf("🛑 Room %s stopped", r.code)
	})
}

// Stopped reports whether Stop has been called.
func (r *Room) Stopped() bool {
	select {
	case <-r.stopChan:
		return true
	default:
		return false
	}
}

// tickAt advances the world by the real time since the previous tick.
func (r *Room) tickAt(now time.Time) {
	r.mu.Lock()
	delta := now.Sub(r.lastTick).Seconds()
	r.lastTick = now
	r.mu.Unlock()

	r.Step(delta)
}

// Step advances the world by delta seconds and publishes a snapshot.
func (r *Room) Step(delta float64) game.TickReport {
	start := time.Now()

	r.mu.Lock()
	before := r.state.BulletCount()
	report := r.state.Tick(delta)
	r.tickCount++
	tick := r.tickCount

	for _, h := range report.Hits {
		r.events.EmitSimple(eventlog.TypeHit, r.code, tick, "", eventlog.HitPayload{
			BulletID: h.BulletID,
			VictimID: string(h.PlayerID),
			VictimHP: h.HP,
		})
	}
	for _, id := range report.Deaths {
		r.events.EmitSimple(eventlog.TypeDeath, r.code, tick, string(id), nil)
		log.Printf("💀 %s died in room %s", id, r.code)
	}
	r.events.EmitSimple(eventlog.TypeTick, r.code, tick, "", eventlog.TickPayload{
		DeltaNs:     int64(delta * 1e9),
		PlayerCount: r.state.PlayerCount(),
		BulletCount: r.state.BulletCount(),
		Pruned:      report.Pruned,
	})
	metrics.AddBullets(r.state.BulletCount() - before)

	r.publishLocked()
	r.mu.Unlock()

	metrics.RecordTick(time.Since(start), len(report.Hits), len(report.Deaths))
	return report
}

// Join adds userID to the world. A repeat join succeeds without change.
func (r *Room) Join(userID game.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.HasPlayer(userID) && r.cfg.MaxPlayers > 0 && r.state.PlayerCount() >= r.cfg.MaxPlayers {
		r.rejectLocked("join", userID, ErrRoomFull)
		log.Printf("⚠️ Room %s full (%d), rejecting: %s", r.code, r.cfg.MaxPlayers, userID)
		return ErrRoomFull
	}

	isNew := !r.state.HasPlayer(userID)
	if err := r.state.Join(userID); err != nil {
		return err
	}
	metrics.RecordCommand("join", "ok")
	if !isNew {
		return nil
	}

	metrics.AddPlayers(1)
	p, _ := r.state.Player(userID)
	spawn := p.Location
	r.events.EmitSimple(eventlog.TypeJoin, r.code, r.tickCount, string(userID),
		eventlog.JoinPayload{SpawnX: spawn.X, SpawnY: spawn.Y})
	log.Printf("👤 %s joined room %s at (%.0f, %.0f)", userID, r.code, spawn.X, spawn.Y)
	return nil
}

// MoveTo queues a movement target for userID.
func (r *Room) MoveTo(userID game.UserID, target game.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.MoveTo(userID, target); err != nil {
		r.rejectLocked("move", userID, err)
		return err
	}
	metrics.RecordCommand("move", "ok")
	r.events.EmitSimple(eventlog.TypeMove, r.code, r.tickCount, string(userID),
		eventlog.MovePayload{X: target.X, Y: target.Y})
	return nil
}

// ChangeDir queues a facing change for userID.
func (r *Room) ChangeDir(userID game.UserID, dir game.Direction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.ChangeDir(userID, dir); err != nil {
		r.rejectLocked("dir", userID, err)
		return err
	}
	metrics.RecordCommand("dir", "ok")
	r.events.EmitSimple(eventlog.TypeChangeDir, r.code, r.tickCount, string(userID),
		eventlog.ChangeDirPayload{Dir: dir.String()})
	return nil
}

// Shoot fires for userID if it has ammo and hp.
func (r *Room) Shoot(userID game.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.state.BulletsFired()
	if err := r.state.Shoot(userID); err != nil {
		r.rejectLocked("shoot", userID, err)
		return err
	}
	metrics.RecordCommand("shoot", "ok")

	p, _ := r.state.Player(userID)
	payload := eventlog.ShootPayload{Ammo: p.Ammo}
	if fired := r.state.BulletsFired(); fired != before {
		payload.BulletID = fired
		metrics.RecordShot()
		metrics.AddBullets(1)
	}
	r.events.EmitSimple(eventlog.TypeShoot, r.code, r.tickCount, string(userID), payload)
	return nil
}

// UserState returns the current world as seen by userID.
func (r *Room) UserState(userID game.UserID) game.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.UserState(userID)
}

// Snapshot returns the snapshot published after the latest tick. It never
// blocks on the room lock.
func (r *Room) Snapshot() *Snapshot {
	return r.latest.Load()
}

// Info summarizes the room for listings.
func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		Code:    r.code,
		Players: r.state.PlayerCount(),
		Alive:   r.state.AliveCount(),
		Bullets: r.state.BulletCount(),
		Tick:    r.tickCount,
	}
}

// Info is the listing entry for a room.
type Info struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Alive   int    `json:"alive"`
	Bullets int    `json:"bullets"`
	Tick    uint64 `json:"tick"`
}

func (r *Room) rejectLocked(command string, userID game.UserID, err error) {
	result := "not_joined"
	if errors.Is(err, ErrRoomFull) {
		result = "room_full"
	}
	metrics.RecordCommand(command, result)
	r.events.EmitSimple(eventlog.TypeRejected, r.code, r.tickCount, string(userID),
		eventlog.RejectedPayload{Command: command, Reason: err.Error()})
}

func (r *Room) publish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishLocked()
}

func (r *Room) publishLocked() {
	r.latest.Store(&Snapshot{
		Room:      r.code,
		Tick:      r.tickCount,
		Timestamp: time.Now(),
		State:     r.state.UserState(""),
	})
}
