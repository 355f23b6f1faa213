package game

// Rules holds the tunable constants of the simulation.
type Rules struct {
	ArenaSize    float64 // Arena is [0, ArenaSize] on both axes
	PlayerSpeed  float64 // Units per second
	BulletSpeed  float64 // Units per second
	StartHP      int
	StartAmmo    int
	HitRadius    float64 // Bullet-player distance that counts as a hit (inclusive)
	MuzzleOffset float64 // Spawn distance of a new bullet from the firer
}

// DefaultRules returns the standard arena rules.
func DefaultRules() Rules {
	return Rules{
		ArenaSize:    1024,
		PlayerSpeed:  90,
		BulletSpeed:  300,
		StartHP:      10,
		StartAmmo:    48,
		HitRadius:    32,
		MuzzleOffset: 33,
	}
}

// clampToArena limits v to [0, ArenaSize].
func (r Rules) clampToArena(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > r.ArenaSize {
		return r.ArenaSize
	}
	return v
}

// outOfArena reports whether a bullet position touches or crosses a wall.
func (r Rules) outOfArena(l Location) bool {
	return l.X >= r.ArenaSize || l.X <= 0 || l.Y >= r.ArenaSize || l.Y <= 0
}
