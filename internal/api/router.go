package api

import (
	"net/http"
	"time"

	"arena-shooter/internal/metrics"
	"arena-shooter/internal/room"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RoomDirectory is the part of the room manager the API uses.
// *room.Manager satisfies it.
type RoomDirectory interface {
	// Get returns an existing room
	Get(code string) (*room.Room, bool)
	// GetOrCreate returns the room for code, creating it on first use
	GetOrCreate(code string) (*room.Room, error)
	// Create makes a room under a random code
	Create() (*room.Room, error)
	// List summarizes all rooms
	List() []room.Info
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Rooms: room.NewManager(room.ManagerConfig{}),
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Rooms resolves room codes (required)
	Rooms RoomDirectory

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If empty, uses DefaultAllowedOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	rooms RoomDirectory
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = DefaultAllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", UserIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := &routerHandlers{rooms: cfg.Rooms}

	r.Get("/health", h.handleHealth)

	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", h.handleListRooms)
		r.Post("/", h.handleCreateRoom)

		r.Route("/{code}", func(r chi.Router) {
			r.Use(RequireUser)

			r.Post("/join", h.handleJoin)
			r.Post("/move", h.handleMove)
			r.Post("/dir", h.handleChangeDir)
			r.Post("/shoot", h.handleShoot)
			r.Get("/state", h.handleGetState)
		})
	})

	return r
}

// requestMetrics records latency and status per chi route pattern, keeping
// label cardinality bounded by the route table.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, pattern, status, time.Since(start))
	})
}
