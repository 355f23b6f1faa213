package game

// Hit records one bullet striking one player.
type Hit struct {
	BulletID int64
	PlayerID UserID
	HP       int // Victim hp after the hit
}

// TickReport describes what a single Tick changed. It is plain data for the
// host's logging and metrics; the world is already updated.
type TickReport struct {
	Moved  int      // Players whose location changed
	Hits   []Hit    // Grouped by bullet in spawn order
	Deaths []UserID // Players whose hp reached zero this tick
	Pruned int      // Bullets removed (hit or out of arena)
}

// Tick advances the world by delta seconds: players step toward their
// targets, bullets fly and hit, and consumed or escaped bullets are pruned.
func (s *State) Tick(delta float64) TickReport {
	var report TickReport

	for _, p := range s.players {
		if s.movePlayer(p, delta) {
			report.Moved++
		}
		if p.TargetDir != nil {
			p.LookingDirection = *p.TargetDir
		}
	}

	s.grid.Clear()
	for i, p := range s.players {
		s.grid.Insert(i, p.Location.X, p.Location.Y)
	}

	step := s.rules.BulletSpeed * delta
	for _, b := range s.bullets {
		advanceBullet(b, step)

		hit := false
		for _, i := range s.grid.QueryRadius(b.Location.X, b.Location.Y, s.rules.HitRadius) {
			p := s.players[i]
			if p.Location.DistanceTo(b.Location) > s.rules.HitRadius {
				continue
			}
			wasAlive := p.HP > 0
			p.takeHit()
			hit = true
			report.Hits = append(report.Hits, Hit{BulletID: b.ID, PlayerID: p.ID, HP: p.HP})
			if wasAlive && p.HP <= 0 {
				report.Deaths = append(report.Deaths, p.ID)
			}
		}
		if hit {
			b.ID = consumedBulletID
		}
	}

	report.Pruned = s.pruneBullets()
	return report
}

// movePlayer applies the snap-on-arrival rule: at most one axis resolves
// per tick, X first, and an axis only moves once the remaining distance
// fits in one tick of travel. Reports whether the location changed.
func (s *State) movePlayer(p *Player, delta float64) bool {
	if p.TargetLoc == nil {
		return false
	}
	target := *p.TargetLoc
	before := p.Location

	dx := abs(target.X - p.Location.X)
	dy := abs(target.Y - p.Location.Y)
	toMove := s.rules.PlayerSpeed * delta

	switch {
	case dx > 0 && dx <= toMove:
		p.Location.X = s.rules.clampToArena(target.X)
	case dy > 0 && dy <= toMove:
		p.Location.Y = s.rules.clampToArena(target.Y)
	}

	if p.Location == target {
		p.TargetLoc = nil
	}
	return p.Location != before
}

// advanceBullet moves a bullet along its fixed direction. Horizontal travel
// runs opposite to the muzzle offset: LEFT moves +x and RIGHT moves -x.
func advanceBullet(b *Bullet, step float64) {
	switch b.Direction {
	case Up:
		b.Location.Y -= step
	case Down:
		b.Location.Y += step
	case Left:
		b.Location.X += step
	case Right:
		b.Location.X -= step
	}
}

// pruneBullets drops consumed and escaped bullets in place, keeping spawn
// order, and returns how many were removed.
func (s *State) pruneBullets() int {
	n := 0
	for _, b := range s.bullets {
		if b.ID == consumedBulletID || s.rules.outOfArena(b.Location) {
			continue
		}
		s.bullets[n] = b
		n++
	}
	removed := len(s.bullets) - n
	for i := n; i < len(s.bullets); i++ {
		s.bullets[i] = nil
	}
	s.bullets = s.bullets[:n]
	return removed
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
