package game

import (
	"fmt"
	"math"
)

// UserID identifies a player for the lifetime of a session.
type UserID string

// Direction is one of the four axis-aligned facings. There is no diagonal
// movement or aiming.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// ParseDirection parses the wire name of a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "UP":
		return Up, nil
	case "DOWN":
		return Down, nil
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if d > Right {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Location is a point in arena coordinates.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between two locations.
func (l Location) DistanceTo(o Location) float64 {
	dx := o.X - l.X
	dy := o.Y - l.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Player is the internal, mutable player record. TargetLoc and TargetDir
// are pending intents consumed by Tick.
type Player struct {
	ID               UserID
	Location         Location
	LookingDirection Direction
	HP               int
	Ammo             int
	TargetLoc        *Location
	TargetDir        *Direction
}

// IsDead reports whether the player has no hp left.
func (p *Player) IsDead() bool {
	return p.HP <= 0
}

// takeHit applies one point of bullet damage. Ammo is forced to zero the
// moment hp reaches zero.
func (p *Player) takeHit() {
	if p.HP > 0 {
		p.HP--
	}
	if p.HP <= 0 {
		p.Ammo = 0
	}
}

func (p *Player) view() PlayerState {
	return PlayerState{
		ID:               p.ID,
		Location:         p.Location,
		LookingDirection: p.LookingDirection,
		HP:               p.HP,
		Ammo:             p.Ammo,
	}
}

// Bullet is an in-flight projectile. Direction is fixed at fire time.
type Bullet struct {
	ID        int64     `json:"id"`
	Location  Location  `json:"location"`
	Direction Direction `json:"direction"`
}

// consumedBulletID marks a bullet that hit something during the current
// tick. It never survives past the prune step.
const consumedBulletID int64 = -1

// PlayerState is the externally visible part of a Player.
type PlayerState struct {
	ID               UserID    `json:"id"`
	Location         Location  `json:"location"`
	LookingDirection Direction `json:"lookingDirection"`
	HP               int       `json:"hp"`
	Ammo             int       `json:"ammo"`
}

// GameState is a deep copy of the world as seen by a user.
type GameState struct {
	Players []PlayerState `json:"players"`
	Bullets []Bullet      `json:"bullets"`
}
