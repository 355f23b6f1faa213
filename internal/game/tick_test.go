package game

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

// newTestState returns a state whose players spawn at the given locations in
// join order.
func newTestState(spawns ...Location) *State {
	i := 0
	return New(WithSpawnFunc(func() Location {
		loc := spawns[i%len(spawns)]
		i++
		return loc
	}))
}

func TestTickMovementSnapsXFirst(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("a")
	s.MoveTo("a", Location{X: 105, Y: 103})

	// 90 * 0.1 = 9 units of travel: both axes are in range, only X resolves
	s.Tick(0.1)
	p := s.players[0]
	if p.Location != (Location{X: 105, Y: 100}) {
		t.Fatalf("after first tick at %v, want (105,100)", p.Location)
	}

	s.Tick(0.1)
	if p.Location != (Location{X: 105, Y: 103}) {
		t.Fatalf("after second tick at %v, want (105,103)", p.Location)
	}
	if p.TargetLoc != nil {
		t.Error("target should be cleared once reached")
	}
}

func TestTickMovementOutOfRangeDoesNothing(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("a")
	s.MoveTo("a", Location{X: 300, Y: 300})

	for i := 0; i < 10; i++ {
		s.Tick(0.1)
	}
	if s.players[0].Location != (Location{X: 100, Y: 100}) {
		t.Errorf("player moved to %v, snap-on-arrival expects no motion", s.players[0].Location)
	}
}

func TestTickMovementYWhenXAligned(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("a")
	s.MoveTo("a", Location{X: 100, Y: 92})

	report := s.Tick(0.1)
	if s.players[0].Location != (Location{X: 100, Y: 92}) {
		t.Errorf("player at %v, want (100,92)", s.players[0].Location)
	}
	if report.Moved != 1 {
		t.Errorf("Moved = %d, want 1", report.Moved)
	}
}

// TestTickMovementFarXFallsThroughToY: X out of range falls through to Y.
func TestTickMovementFarXFallsThroughToY(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("a")
	s.MoveTo("a", Location{X: 500, Y: 104})

	s.Tick(0.1)
	if s.players[0].Location != (Location{X: 100, Y: 104}) {
		t.Errorf("player at %v, want (100,104)", s.players[0].Location)
	}
}

func TestTickMovementClampsToArena(t *testing.T) {
	s := newTestState(Location{X: 1020, Y: 3})
	s.Join("a")
	s.MoveTo("a", Location{X: 1028, Y: -2})

	s.Tick(0.1)
	if got := s.players[0].Location; got != (Location{X: 1024, Y: 3}) {
		t.Fatalf("after first tick at %v, want (1024,3)", got)
	}

	// X stays within one tick of the unreachable target, so it snaps again
	// and Y never resolves.
	s.Tick(0.1)
	if got := s.players[0].Location; got != (Location{X: 1024, Y: 3}) {
		t.Errorf("after second tick at %v, want (1024,3)", got)
	}
	if s.players[0].TargetLoc == nil {
		t.Error("unreachable target must stay set")
	}
}

// TestTickFacingIdempotent applies a queued facing then ticks repeatedly.
func TestTickFacingIdempotent(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("a")
	s.ChangeDir("a", Left)

	for i := 0; i < 5; i++ {
		s.Tick(0.05)
		if s.players[0].LookingDirection != Left {
			t.Fatalf("tick %d: facing %v, want LEFT", i, s.players[0].LookingDirection)
		}
	}
}

// TestTickFacingAppliesWhileSnapping: the facing change is independent of
// the single-axis movement step. Earlier versions of this game skipped the
// queued facing on a tick where X snapped; here it always applies.
func TestTickFacingAppliesWhileSnapping(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("a")
	s.MoveTo("a", Location{X: 104, Y: 104})
	s.ChangeDir("a", Down)

	s.Tick(0.1)
	if s.players[0].LookingDirection != Down {
		t.Errorf("facing %v, want DOWN", s.players[0].LookingDirection)
	}
}

func TestTickBulletDirections(t *testing.T) {
	tests := []struct {
		dir  Direction
		want Location
	}{
		{Up, Location{X: 500, Y: 470}},
		{Down, Location{X: 500, Y: 530}},
		{Left, Location{X: 530, Y: 500}},  // LEFT travels +x
		{Right, Location{X: 470, Y: 500}}, // RIGHT travels -x
	}

	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			s := New()
			s.bullets = append(s.bullets, &Bullet{ID: 1, Location: Location{X: 500, Y: 500}, Direction: tt.dir})

			s.Tick(0.1)
			got := s.bullets[0].Location
			if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
				t.Errorf("bullet at %v, want %v", got, tt.want)
			}
		})
	}
}

// TestScenarioBulletFliesOut follows a bullet fired upward until it leaves.
func TestScenarioBulletFliesOut(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("A")

	s.Shoot("A")
	b := s.bullets[0]
	if b.Location != (Location{X: 100, Y: 67}) || b.Direction != Up {
		t.Fatalf("bullet spawned %+v, want (100,67) UP", b)
	}
	if s.players[0].Ammo != 47 {
		t.Fatalf("Ammo = %d, want 47", s.players[0].Ammo)
	}

	s.Tick(0.11)
	if got := s.bullets[0].Location.Y; math.Abs(got-34) > 1e-6 {
		t.Fatalf("after tick 1 bullet y = %v, want 34", got)
	}

	s.Tick(0.11)
	if s.BulletCount() != 1 {
		t.Fatal("bullet at y=1 should survive")
	}
	if got := s.bullets[0].Location.Y; math.Abs(got-1) > 1e-6 {
		t.Fatalf("after tick 2 bullet y = %v, want 1", got)
	}

	report := s.Tick(0.11)
	if s.BulletCount() != 0 {
		t.Fatalf("bullet at y<0 should be pruned, %d left", s.BulletCount())
	}
	if report.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", report.Pruned)
	}
}

func TestTickBoundaryPruneInclusive(t *testing.T) {
	tests := []struct {
		name string
		b    Bullet
	}{
		{"reaches x=0", Bullet{Location: Location{X: 30, Y: 500}, Direction: Right}},
		{"reaches x=1024", Bullet{Location: Location{X: 994, Y: 500}, Direction: Left}},
		{"reaches y=0", Bullet{Location: Location{X: 500, Y: 30}, Direction: Up}},
		{"reaches y=1024", Bullet{Location: Location{X: 500, Y: 994}, Direction: Down}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			b := tt.b
			b.ID = 1
			s.bullets = append(s.bullets, &b)

			// 300 * 0.1 = 30 units lands exactly on the wall
			s.Tick(0.1)
			if s.BulletCount() != 0 {
				t.Errorf("bullet on the boundary survived at %v", s.bullets[0].Location)
			}
		})
	}
}

// TestScenarioBulletHitsPlayer: B sits in A's line of fire.
func TestScenarioBulletHitsPlayer(t *testing.T) {
	s := newTestState(Location{X: 50, Y: 200}, Location{X: 50, Y: 50})
	s.Join("A")
	s.Join("B")

	s.Shoot("A") // spawns at (50,167) heading up
	report := s.Tick(0.4)

	b := s.players[1]
	if b.HP != 9 {
		t.Fatalf("B hp = %d, want 9", b.HP)
	}
	if s.BulletCount() != 0 {
		t.Error("bullet should be removed on hit")
	}
	if len(report.Hits) != 1 || report.Hits[0].PlayerID != "B" || report.Hits[0].BulletID != 1 {
		t.Errorf("unexpected hits: %+v", report.Hits)
	}
}

func TestTickHitRadiusInclusive(t *testing.T) {
	s := newTestState(Location{X: 532, Y: 500})
	s.Join("a")
	s.bullets = append(s.bullets, &Bullet{ID: 7, Location: Location{X: 500, Y: 510}, Direction: Up})

	// Bullet lands on (500,500), exactly 32 away
	s.Tick(10.0 / 300)
	if s.players[0].HP != 9 {
		t.Errorf("hp = %d, want 9 for a hit at exactly the radius", s.players[0].HP)
	}
}

func TestTickAreaHitDamagesEveryone(t *testing.T) {
	s := newTestState(
		Location{X: 500, Y: 500},
		Location{X: 510, Y: 500},
		Location{X: 490, Y: 480},
		Location{X: 900, Y: 900},
	)
	for _, id := range []UserID{"a", "b", "c", "far"} {
		s.Join(id)
	}
	s.bullets = append(s.bullets, &Bullet{ID: 1, Location: Location{X: 500, Y: 530}, Direction: Up})

	report := s.Tick(0.1) // bullet lands on (500,500)

	for i, want := range []int{9, 9, 9, 10} {
		if s.players[i].HP != want {
			t.Errorf("%s hp = %d, want %d", s.players[i].ID, s.players[i].HP, want)
		}
	}
	if len(report.Hits) != 3 {
		t.Errorf("len(Hits) = %d, want 3", len(report.Hits))
	}
	if report.Pruned != 1 || s.BulletCount() != 0 {
		t.Error("one bullet hitting several players is removed once")
	}
}

// TestTickDeathZeroesAmmo: the tick that takes hp to zero also empties ammo.
func TestTickDeathZeroesAmmo(t *testing.T) {
	s := newTestState(Location{X: 500, Y: 500})
	s.Join("a")
	s.players[0].HP = 1
	s.bullets = append(s.bullets, &Bullet{ID: 1, Location: Location{X: 500, Y: 520}, Direction: Up})

	report := s.Tick(0.01)
	p := s.players[0]
	if p.HP != 0 || p.Ammo != 0 {
		t.Fatalf("hp=%d ammo=%d, want 0/0", p.HP, p.Ammo)
	}
	if len(report.Deaths) != 1 || report.Deaths[0] != "a" {
		t.Errorf("Deaths = %v, want [a]", report.Deaths)
	}

	// Dead players still absorb bullets without going negative
	s.bullets = append(s.bullets, &Bullet{ID: 2, Location: Location{X: 500, Y: 520}, Direction: Up})
	report = s.Tick(0.01)
	if p.HP != 0 {
		t.Errorf("hp = %d, want 0", p.HP)
	}
	if s.BulletCount() != 0 {
		t.Error("bullet hitting a dead player should be consumed")
	}
	if len(report.Deaths) != 0 {
		t.Errorf("already dead player reported again: %v", report.Deaths)
	}
}

func TestTickPruneKeepsSpawnOrder(t *testing.T) {
	s := newTestState(Location{X: 500, Y: 100})
	s.Join("target")
	s.bullets = append(s.bullets,
		&Bullet{ID: 1, Location: Location{X: 200, Y: 500}, Direction: Down},
		&Bullet{ID: 2, Location: Location{X: 500, Y: 110}, Direction: Up}, // hits
		&Bullet{ID: 3, Location: Location{X: 300, Y: 500}, Direction: Down},
		&Bullet{ID: 4, Location: Location{X: 5, Y: 500}, Direction: Right}, // leaves
		&Bullet{ID: 5, Location: Location{X: 400, Y: 500}, Direction: Down},
	)

	s.Tick(0.05)

	var ids []int64
	for _, b := range s.bullets {
		ids = append(ids, b.ID)
	}
	want := []int64{1, 3, 5}
	if len(ids) != len(want) {
		t.Fatalf("bullets = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("bullets = %v, want %v", ids, want)
		}
	}
}

// TestTickDeterministic runs two identical worlds side by side.
func TestTickDeterministic(t *testing.T) {
	build := func() *State {
		s := newTestState(Location{X: 100, Y: 500}, Location{X: 110, Y: 300}, Location{X: 700, Y: 700})
		s.Join("a")
		s.Join("b")
		s.Join("c")
		s.MoveTo("c", Location{X: 705, Y: 701})
		s.ChangeDir("b", Right)
		s.Shoot("a")
		s.Shoot("a")
		return s
	}

	s1, s2 := build(), build()
	for i := 0; i < 20; i++ {
		s1.Tick(1.0 / 30)
		s2.Tick(1.0 / 30)
		if i%3 == 0 {
			s1.Shoot("b")
			s2.Shoot("b")
		}
	}

	g1, g2 := s1.UserState("a"), s2.UserState("b")
	if len(g1.Players) != len(g2.Players) || len(g1.Bullets) != len(g2.Bullets) {
		t.Fatalf("worlds diverged: %+v vs %+v", g1, g2)
	}
	for i := range g1.Players {
		if g1.Players[i] != g2.Players[i] {
			t.Errorf("player %d diverged: %+v vs %+v", i, g1.Players[i], g2.Players[i])
		}
	}
	for i := range g1.Bullets {
		if g1.Bullets[i] != g2.Bullets[i] {
			t.Errorf("bullet %d diverged: %+v vs %+v", i, g1.Bullets[i], g2.Bullets[i])
		}
	}
}

func TestUserStateIsACopy(t *testing.T) {
	s := newTestState(Location{X: 100, Y: 100})
	s.Join("a")
	s.Shoot("a")

	gs := s.UserState("a")
	gs.Players[0].HP = 0
	gs.Bullets[0].Location.X = 0

	if s.players[0].HP != 10 {
		t.Error("mutating UserState changed a player")
	}
	if s.bullets[0].Location.X != 100 {
		t.Error("mutating UserState changed a bullet")
	}
}
