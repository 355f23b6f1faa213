package room

import (
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"sort"
	"strings"
	"sync"

	"arena-shooter/internal/metrics"
)

var (
	// ErrTooManyRooms is returned when creating a room would exceed MaxRooms.
	ErrTooManyRooms = errors.New("too many rooms")
	// ErrInvalidCode is returned for an empty or oversized room code.
	ErrInvalidCode = errors.New("invalid room code")
)

const (
	codeChars     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength    = 6
	maxCodeLength = 32
)

// ManagerConfig holds settings shared by every room a Manager creates.
type ManagerConfig struct {
	MaxRooms  int // 0 means unlimited
	Room      Config
	AutoStart bool // Start the tick loop of each new room
}

// Manager holds rooms by code. Rooms are created on first use or via Create
// and live until Remove or StopAll.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	cfg   ManagerConfig
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		cfg:   cfg,
	}
}

// NormalizeCode upper-cases and trims a user supplied room code.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > maxCodeLength {
		return "", ErrInvalidCode
	}
	return code, nil
}

// Get returns the room for code, if it exists.
func (m *Manager) Get(code string) (*Room, bool) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok
}

// GetOrCreate returns the room for code, creating it if needed.
func (m *Manager) GetOrCreate(code string) (*Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[code]; ok {
		return r, nil
	}
	return m.createLocked(code)
}

// Create makes a room under a fresh random code.
func (m *Manager) Create() (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		code := generateCode(codeLength)
		if _, exists := m.rooms[code]; exists {
			continue
		}
		return m.createLocked(code)
	}
}

func (m *Manager) createLocked(code string) (*Room, error) {
	if m.cfg.MaxRooms > 0 && len(m.rooms) >= m.cfg.MaxRooms {
		log.Printf("⚠️ Room limit reached (%d), refusing %s", m.cfg.MaxRooms, code)
		return nil, ErrTooManyRooms
	}
	r := New(code, m.cfg.Room)
	m.rooms[code] = r
	if m.cfg.AutoStart {
		r.Start()
	}
	metrics.SetRooms(len(m.rooms))
	return r, nil
}

// Remove stops and forgets the room for code. It reports whether the room
// existed. Connections bound to the room see Stopped and disconnect.
func (m *Manager) Remove(code string) bool {
	code, err := NormalizeCode(code)
	if err != nil {
		return false
	}
	m.mu.Lock()
	r, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
		metrics.SetRooms(len(m.rooms))
	}
	m.mu.Unlock()

	if ok {
		r.Stop()
	}
	return ok
}

// List returns all rooms sorted by code.
func (m *Manager) List() []Info {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of live rooms.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// StopAll stops every room and empties the manager.
func (m *Manager) StopAll() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	metrics.SetRooms(0)
	m.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
}

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
