package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"proctor-backend/internal/handlers"
	"proctor-backend/internal/middleware"
	"proctor-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	examHandler *handlers.ExamHandler,
	wsHub *websocket.Hub,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Exam Routes ────
		r.Route("/exams", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", examHandler.Create)
			r.Get("/", examHandler.List)
			r.Get("/my", examHandler.ListMine)
			r.Get("/{id}", examHandler.Get)
			r.Post("/{id}/register", examHandler.Register)
			r.Delete("/{id}/register", examHandler.Unregister)
			r.Get("/{id}/participants", examHandler.Participants)
			r.Post("/{id}/start", examHandler.StartSession)
			r.Post("/{id}/stop", examHandler.StopSession)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
