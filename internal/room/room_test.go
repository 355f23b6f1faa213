package room

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"arena-shooter/internal/eventlog"
	"arena-shooter/internal/game"
)

// fixedSpawns places joining players at the given locations in join order.
func fixedSpawns(spawns ...game.Location) game.Option {
	i := 0
	return game.WithSpawnFunc(func() game.Location {
		loc := spawns[i%len(spawns)]
		i++
		return loc
	})
}

func newTestRoom(cfg Config, spawns ...game.Location) *Room {
	if len(spawns) > 0 {
		cfg.GameOpts = append(cfg.GameOpts, fixedSpawns(spawns...))
	}
	return New("TEST", cfg)
}

func TestNewRoomPublishesEmptySnapshot(t *testing.T) {
	r := newTestRoom(Config{})
	snap := r.Snapshot()
	if snap == nil {
		t.Fatal("expected an initial snapshot")
	}
	if snap.Room != "TEST" || snap.Tick != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.State.Players) != 0 || len(snap.State.Bullets) != 0 {
		t.Errorf("expected empty world, got %+v", snap.State)
	}
}

func TestCommandsRequireJoin(t *testing.T) {
	r := newTestRoom(Config{})

	tests := []struct {
		name string
		cmd  func() error
	}{
		{"move", func() error { return r.MoveTo("ghost", game.Location{X: 1, Y: 1}) }},
		{"dir", func() error { return r.ChangeDir("ghost", game.Left) }},
		{"shoot", func() error { return r.Shoot("ghost") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd(); !errors.Is(err, game.ErrNotJoined) {
				t.Errorf("err = %v, want ErrNotJoined", err)
			}
		})
	}
}

func TestStepHitScenario(t *testing.T) {
	r := newTestRoom(Config{},
		game.Location{X: 50, Y: 200},
		game.Location{X: 50, Y: 50},
	)
	if err := r.Join("a"); err != nil {
		t.Fatal(err)
	}
	if err := r.Join("b"); err != nil {
		t.Fatal(err)
	}
	if err := r.Shoot("a"); err != nil {
		t.Fatal(err)
	}

	// Bullet spawns at (50,167) and travels 120 units up to (50,47)
	report := r.Step(0.4)
	if len(report.Hits) != 1 || report.Hits[0].PlayerID != "b" || report.Hits[0].HP != 9 {
		t.Fatalf("hits = %+v", report.Hits)
	}

	snap := r.Snapshot()
	if snap.Tick != 1 {
		t.Errorf("snapshot tick = %d, want 1", snap.Tick)
	}
	if len(snap.State.Bullets) != 0 {
		t.Errorf("bullet should be consumed, got %+v", snap.State.Bullets)
	}
	for _, p := range snap.State.Players {
		switch p.ID {
		case "a":
			if p.Ammo != 47 || p.HP != 10 {
				t.Errorf("shooter = %+v", p)
			}
		case "b":
			if p.HP != 9 {
				t.Errorf("victim hp = %d, want 9", p.HP)
			}
		}
	}
}

func TestSnapshotIsStableUntilNextTick(t *testing.T) {
	r := newTestRoom(Config{}, game.Location{X: 500, Y: 500})
	before := r.Snapshot()

	r.Join("a")
	r.Shoot("a")
	if got := r.Snapshot(); got != before {
		t.Error("commands must not publish a new snapshot")
	}

	r.Step(0.05)
	got := r.Snapshot()
	if len(got.State.Players) != 1 || len(got.State.Bullets) != 1 {
		t.Errorf("after tick: %d players, %d bullets, want 1 and 1",
			len(got.State.Players), len(got.State.Bullets))
	}
	if len(before.State.Players) != 0 || len(before.State.Bullets) != 0 {
		t.Error("an old snapshot must never change")
	}
}

func TestJoinRespectsMaxPlayers(t *testing.T) {
	r := newTestRoom(Config{MaxPlayers: 2}, game.Location{X: 10, Y: 10})

	for _, id := range []game.UserID{"a", "b"} {
		if err := r.Join(id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if err := r.Join("c"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("third join err = %v, want ErrRoomFull", err)
	}
	// Rejoining an existing player is not a new seat
	if err := r.Join("a"); err != nil {
		t.Errorf("repeat join err = %v, want nil", err)
	}
	if info := r.Info(); info.Players != 2 {
		t.Errorf("players = %d, want 2", info.Players)
	}
}

func TestUserStateMatchesSnapshotAfterTick(t *testing.T) {
	r := newTestRoom(Config{}, game.Location{X: 100, Y: 100})
	r.Join("a")
	r.MoveTo("a", game.Location{X: 104, Y: 100})
	r.Step(0.1)

	state := r.UserState("a")
	if len(state.Players) != 1 || state.Players[0].Location != (game.Location{X: 104, Y: 100}) {
		t.Fatalf("state = %+v", state)
	}
	if r.Snapshot().State.Players[0].Location != state.Players[0].Location {
		t.Error("snapshot and UserState disagree")
	}
}

func TestStartStop(t *testing.T) {
	r := newTestRoom(Config{TickRate: 100}, game.Location{X: 100, Y: 100})
	r.Join("a")
	r.Start()
	r.Start() // second start is ignored

	deadline := time.Now().Add(2 * time.Second)
	for r.Info().Tick < 3 {
		if time.Now().After(deadline) {
			t.Fatal("room did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.Stop()
	r.Stop()
	stopped := r.Info().Tick
	time.Sleep(50 * time.Millisecond)
	if r.Info().Tick != stopped {
		t.Error("room kept ticking after Stop")
	}

	r.Start() // a stopped room stays stopped
	time.Sleep(50 * time.Millisecond)
	if r.Info().Tick != stopped {
		t.Error("room restarted after Stop")
	}
}

func TestRoomEmitsEvents(t *testing.T) {
	var buf bytes.Buffer
	log := eventlog.New()
	log.StartWriter(&buf)

	r := newTestRoom(Config{EventLog: log},
		game.Location{X: 50, Y: 200},
		game.Location{X: 50, Y: 50},
	)
	r.Join("a")
	r.Join("b")
	r.Shoot("a")
	r.Shoot("ghost")
	r.Step(0.4)
	log.Stop()

	var types []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var ev struct {
			Type string `json:"type"`
			Room string `json:"room"`
		}
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		if ev.Room != "TEST" {
			t.Errorf("room = %q, want TEST", ev.Room)
		}
		types = append(types, ev.Type)
	}

	want := []string{"join", "join", "shoot", "rejected", "hit", "tick"}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}
