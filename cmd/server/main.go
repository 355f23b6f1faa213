package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"arena-shooter/internal/api"
	"arena-shooter/internal/config"
	"arena-shooter/internal/eventlog"
	"arena-shooter/internal/game"
	"arena-shooter/internal/metrics"
	"arena-shooter/internal/room"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  ARENA SHOOTER - GO SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	arenaCfg := appConfig.Arena
	roomCfg := appConfig.Room
	serverCfg := appConfig.Server

	rules := rulesFromConfig(arenaCfg)
	log.Printf("🎮 Config: %d TPS, arena %.0f, player %.0f u/s, bullet %.0f u/s",
		roomCfg.TickRate, rules.ArenaSize, rules.PlayerSpeed, rules.BulletSpeed)
	log.Printf("🛡️ Limits: %d rooms, %d players per room", roomCfg.MaxRooms, roomCfg.MaxPlayersPerRoom)

	// Start event log
	events := eventlog.New()
	if serverCfg.EventLogPath == "" {
		log.Println("📝 Event log disabled")
	} else if err := events.Start(serverCfg.EventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else {
		log.Printf("📝 Event log: %s", serverCfg.EventLogPath)
	}
	metrics.RegisterEventLog(events.WrittenCount, events.DroppedCount)

	// Start debug server
	debugServer := api.StartDebugServer(appConfig.Debug)

	rooms := room.NewManager(room.ManagerConfig{
		MaxRooms:  roomCfg.MaxRooms,
		AutoStart: true,
		Room: room.Config{
			TickRate:   roomCfg.TickRate,
			MaxPlayers: roomCfg.MaxPlayersPerRoom,
			Rules:      rules,
			EventLog:   events,
		},
	})

	if roomCfg.DefaultRoom != "" {
		if _, err := rooms.GetOrCreate(roomCfg.DefaultRoom); err != nil {
			log.Fatalf("❌ Failed to create default room %q: %v", roomCfg.DefaultRoom, err)
		}
	}

	server := api.NewServer(api.ServerOptions{
		Rooms:       rooms,
		CORSOrigins: serverCfg.CORSOrigins,
	})

	// Start API server in goroutine
	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("🔌 WebSocket: ws://localhost%s/ws/rooms/{code}", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	rooms.StopAll()
	events.Stop()
	log.Println("👋 Goodbye!")
}

func rulesFromConfig(cfg config.ArenaConfig) game.Rules {
	return game.Rules{
		ArenaSize:    cfg.Size,
		PlayerSpeed:  cfg.PlayerSpeed,
		BulletSpeed:  cfg.BulletSpeed,
		StartHP:      cfg.StartHP,
		StartAmmo:    cfg.StartAmmo,
		HitRadius:    cfg.HitRadius,
		MuzzleOffset: cfg.MuzzleOffset,
	}
}
