package game

import (
	"fmt"
	"math/rand"
	"testing"
)

// =============================================================================
// BENCHMARK SUITE: CRITICAL PATH PERFORMANCE TESTS
// Run with: go test -bench=. -benchmem ./internal/game/...
// =============================================================================

// -----------------------------------------------------------------------------
// TICK BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkTick_10Players(b *testing.B)  { benchmarkTick(b, 10) }
func BenchmarkTick_50Players(b *testing.B)  { benchmarkTick(b, 50) }
func BenchmarkTick_100Players(b *testing.B) { benchmarkTick(b, 100) }
func BenchmarkTick_200Players(b *testing.B) { benchmarkTick(b, 200) }

// benchmarkTick keeps a steady bullet population: every player fires once
// per tick until out of ammo, after which the world drains.
func benchmarkTick(b *testing.B, playerCount int) {
	s := New(WithRand(rand.New(rand.NewSource(1))))
	ids := make([]UserID, playerCount)
	for i := range ids {
		ids[i] = UserID(fmt.Sprintf("Player%d", i))
		s.Join(ids[i])
		s.ChangeDir(ids[i], Direction(i%4))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			for _, id := range ids {
				s.Shoot(id)
			}
		}
		s.Tick(0.05)
	}
}

// -----------------------------------------------------------------------------
// SNAPSHOT BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkUserState_10Players(b *testing.B)  { benchmarkUserState(b, 10) }
func BenchmarkUserState_100Players(b *testing.B) { benchmarkUserState(b, 100) }

func benchmarkUserState(b *testing.B, playerCount int) {
	s := New(WithRand(rand.New(rand.NewSource(1))))
	for i := 0; i < playerCount; i++ {
		id := UserID(fmt.Sprintf("Player%d", i))
		s.Join(id)
		s.Shoot(id)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = s.UserState("Player0")
	}
}

// -----------------------------------------------------------------------------
// COLLISION BENCHMARKS
// -----------------------------------------------------------------------------

// BenchmarkCollision_Dense puts many bullets among many players so the
// broad phase dominates.
func BenchmarkCollision_Dense(b *testing.B) {
	rng := rand.New(rand.NewSource(7))

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		s := New(WithRand(rng))
		for p := 0; p < 200; p++ {
			id := UserID(fmt.Sprintf("P%d", p))
			s.Join(id)
			for k := 0; k < 5; k++ {
				s.Shoot(id)
			}
		}
		b.StartTimer()

		s.Tick(0.01)
	}
}
