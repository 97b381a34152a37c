package rest

import (
	"collaboard/internal/service"
	"collaboard/internal/transport/rest/handler"
	"collaboard/internal/transport/rest/middleware"
	"collaboard/internal/transport/ws"
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	MeetingService *service.MeetingService
	SessionService *service.SessionService
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	meetingHandler := handler.NewMeetingHandler(c.MeetingService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	wsHandler := ws.NewHandler(c.WSHub, c.SessionService, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{accessCode}", sessionHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{accessCode}/join", sessionHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket routes (tokens in query params)
	v1.HandleFunc("/ws/meetings/{meetingId}/host", wsHandler.HostWS).Methods("GET")
	v1.HandleFunc("/ws/sessions/{accessCode}/participant", wsHandler.ParticipantWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/meetings", meetingHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/meetings", meetingHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/meetings/{meetingId}", meetingHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/meetings/{meetingId}", meetingHandler.Update).Methods("PUT", "OPTIONS")
	hostRoutes.HandleFunc("/meetings/{meetingId}", meetingHandler.Delete).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/meetings/{meetingId}/sessions", sessionHandler.Open).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{accessCode}/roster", sessionHandler.Roster).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{accessCode}/answers", sessionHandler.Answers).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{accessCode}/archive", sessionHandler.Archive).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
