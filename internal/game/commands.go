package game

import "errors"

// ErrNotJoined is returned by every command that names a user without a
// Player. The message is shown to clients as-is.
var ErrNotJoined = errors.New("Not joined")

// Join adds a player at a random integer location facing up. A repeated
// join by the same user keeps the existing player untouched.
func (s *State) Join(userID UserID) error {
	if s.HasPlayer(userID) {
		return nil
	}

	p := &Player{
		ID:               userID,
		Location:         s.spawnLocation(),
		LookingDirection: Up,
		HP:               s.rules.StartHP,
		Ammo:             s.rules.StartAmmo,
	}
	s.index[userID] = len(s.players)
	s.players = append(s.players, p)
	return nil
}

func (s *State) spawnLocation() Location {
	if s.spawn != nil {
		return s.spawn()
	}
	n := int(s.rules.ArenaSize)
	return Location{
		X: float64(s.rng.Intn(n)),
		Y: float64(s.rng.Intn(n)),
	}
}

// MoveTo queues a movement target. Dead players are accepted silently and
// keep their current target. The target is not bounds checked here; Tick
// clamps the resulting position.
func (s *State) MoveTo(userID UserID, target Location) error {
	p := s.findPlayer(userID)
	if p == nil {
		return ErrNotJoined
	}
	if p.HP > 0 {
		t := target
		p.TargetLoc = &t
	}
	return nil
}

// ChangeDir queues a facing change. Unlike MoveTo this is not gated on hp.
func (s *State) ChangeDir(userID UserID, dir Direction) error {
	p := s.findPlayer(userID)
	if p == nil {
		return ErrNotJoined
	}
	d := dir
	p.TargetDir = &d
	return nil
}

// Shoot fires one bullet in the player's current facing. Without ammo or hp
// the call succeeds and does nothing.
func (s *State) Shoot(userID UserID) error {
	p := s.findPlayer(userID)
	if p == nil {
		return ErrNotJoined
	}
	if p.Ammo <= 0 || p.HP <= 0 {
		return nil
	}
	p.Ammo--

	loc := p.Location
	off := s.rules.MuzzleOffset
	switch p.LookingDirection {
	case Up:
		loc.Y -= off
	case Down:
		loc.Y += off
	case Left:
		loc.X -= off
	case Right:
		loc.X += off
	}

	s.bulletsFired++
	s.bullets = append(s.bullets, &Bullet{
		ID:        s.bulletsFired,
		Location:  loc,
		Direction: p.LookingDirection,
	})
	return nil
}
