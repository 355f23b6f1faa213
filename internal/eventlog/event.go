package eventlog

import (
	"encoding/json"
	"time"
)

// Type classifies an event.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeTick         // Tick boundary with delta and counts
	TypeJoin
	TypeMove
	TypeChangeDir
	TypeShoot
	TypeHit
	TypeDeath
	TypeRejected // Command refused (not joined, room full)
)

// Version for backwards compatibility in replay
const Version uint8 = 1

// Event is one line of the audit log.
type Event struct {
	Version   uint8           `json:"version"`
	Type      Type            `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	Room      string          `json:"room"`
	TickNum   uint64          `json:"tickNum"`
	UserID    string          `json:"userId,omitempty"` // Acting user (for rate limiting)
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t Type) String() string {
	switch t {
	case TypeTick:
		return "tick"
	case TypeJoin:
		return "join"
	case TypeMove:
		return "move"
	case TypeChangeDir:
		return "change_dir"
	case TypeShoot:
		return "shoot"
	case TypeHit:
		return "hit"
	case TypeDeath:
		return "death"
	case TypeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MarshalText writes the type as its name so log lines stay readable.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads

// TickPayload describes one simulation step.
type TickPayload struct {
	DeltaNs     int64 `json:"deltaNs"`
	PlayerCount int   `json:"playerCount"`
	BulletCount int   `json:"bulletCount"`
	Pruned      int   `json:"pruned"`
}

// JoinPayload records where a player spawned.
type JoinPayload struct {
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// MovePayload records a requested movement target.
type MovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChangeDirPayload records a requested facing.
type ChangeDirPayload struct {
	Dir string `json:"dir"`
}

// ShootPayload records a shot; BulletID is zero when nothing was fired.
type ShootPayload struct {
	BulletID int64 `json:"bulletId"`
	Ammo     int   `json:"ammo"`
}

// HitPayload records a bullet striking a player.
type HitPayload struct {
	BulletID int64  `json:"bulletId"`
	VictimID string `json:"victimId"`
	VictimHP int    `json:"victimHp"`
}

// RejectedPayload records why a command was refused.
type RejectedPayload struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event stamped with the current time.
func NewEvent(t Type, room string, tickNum uint64, userID string, payload any) Event {
	return Event{
		Version:   Version,
		Type:      t,
		Timestamp: time.Now().UnixNano(),
		Room:      room,
		TickNum:   tickNum,
		UserID:    userID,
		Payload:   EncodePayload(payload),
	}
}
