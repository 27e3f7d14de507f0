package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"snakearena/internal/cache"
	"snakearena/internal/service"
	"snakearena/internal/transport/rest/handler"
	"snakearena/internal/transport/rest/middleware"
	"snakearena/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	IdentityService *service.IdentityService
	GameService     *service.GameService
	ScoreService    *service.ScoreService
	RoomCache       cache.RoomCache
	WSHub           *ws.Hub
	PublicURL       string
	CORSOrigins     []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	gameHandler := handler.NewGameHandler(c.GameService)
	roomHandler := handler.NewRoomHandler(c.RoomCache, c.PublicURL)
	leaderboardHandler := handler.NewLeaderboardHandler(c.ScoreService)
	userHandler := handler.NewUserHandler(c.IdentityService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.GameService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/multiplayer/rooms/{code}", roomHandler.Preview).Methods("GET", "OPTIONS")
	v1.HandleFunc("/multiplayer/rooms/{code}/qr", roomHandler.QR).Methods("GET", "OPTIONS")
	v1.HandleFunc("/leaderboard", leaderboardHandler.Top).Methods("GET", "OPTIONS")

	// WebSocket route (public with token in query param)
	v1.HandleFunc("/multiplayer/ws/{gameId}", wsHandler.GameWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !c.GameService.Accepting() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"shutting down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Player routes (require user auth)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/multiplayer/create", gameHandler.Create).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/multiplayer/join", gameHandler.Join).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/multiplayer/current", gameHandler.Current).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/multiplayer/history", gameHandler.History).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/multiplayer/game/{gameId}", gameHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/multiplayer/game/{gameId}/start", gameHandler.Start).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/multiplayer/game/{gameId}/leave", gameHandler.Leave).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/scores/me", leaderboardHandler.Mine).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/users/me", userHandler.Deactivate).Methods("DELETE", "OPTIONS")

	return r
}

func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch origin := r.Header.Get("Origin"); {
			case len(allowed) == 0 || allowed["*"]:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
