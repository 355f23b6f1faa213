// Package config provides centralized configuration management.
// Every tunable of the arena service has its default here; environment
// variables override the defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ARENA RULES
// =============================================================================

// ArenaConfig holds the simulation constants.
type ArenaConfig struct {
	Size         float64 // Arena edge length; the arena is [0, Size] on both axes
	PlayerSpeed  float64 // Units per second
	BulletSpeed  float64 // Units per second
	StartHP      int
	StartAmmo    int
	HitRadius    float64
	MuzzleOffset float64
}

// DefaultArena returns the standard arena rules.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		Size:         1024,
		PlayerSpeed:  90,
		BulletSpeed:  300,
		StartHP:      10,
		StartAmmo:    48,
		HitRadius:    32,
		MuzzleOffset: 33,
	}
}

// ArenaFromEnv returns arena rules with environment variable overrides.
func ArenaFromEnv() ArenaConfig {
	cfg := DefaultArena()

	if v := getEnvFloat("PLAYER_SPEED", 0); v > 0 {
		cfg.PlayerSpeed = v
	}
	if v := getEnvFloat("BULLET_SPEED", 0); v > 0 {
		cfg.BulletSpeed = v
	}

	return cfg
}

// =============================================================================
// ROOM CONFIGURATION
// =============================================================================

// RoomConfig holds per-room and room manager settings.
type RoomConfig struct {
	TickRate          int // Ticks per second
	MaxRooms          int // Hard cap on concurrent rooms
	MaxPlayersPerRoom int // Hard cap on players per room
	DefaultRoom       string
}

// DefaultRoom returns the default room configuration.
func DefaultRoom() RoomConfig {
	return RoomConfig{
		TickRate:          20,
		MaxRooms:          64,
		MaxPlayersPerRoom: 32,
		DefaultRoom:       "LOBBY",
	}
}

// RoomFromEnv returns room configuration with environment variable overrides.
func RoomFromEnv() RoomConfig {
	cfg := DefaultRoom()

	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("MAX_ROOMS", 0); v > 0 {
		cfg.MaxRooms = v
	}
	if v := getEnvInt("MAX_PLAYERS_PER_ROOM", 0); v > 0 {
		cfg.MaxPlayersPerRoom = v
	}
	if v := os.Getenv("DEFAULT_ROOM"); v != "" {
		cfg.DefaultRoom = v
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	EventLogPath    string // Empty disables the event log
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:            3000,
		ShutdownTimeout: 5 * time.Second,
		EventLogPath:    "events.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if path, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = path
	}

	return cfg
}

// =============================================================================
// DEBUG SERVER
// =============================================================================

// DebugConfig controls the pprof/metrics listener.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string
}

// DefaultDebug returns safe defaults (localhost only).
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Arena  ArenaConfig
	Room   RoomConfig
	Server ServerConfig
	Debug  DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Arena:  ArenaFromEnv(),
		Room:   RoomFromEnv(),
		Server: ServerFromEnv(),
		Debug:  DebugFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
