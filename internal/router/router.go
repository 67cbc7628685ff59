package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studypath-backend/internal/handlers"
	"studypath-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	quizHandler *handlers.QuizHandler,
	searchHandler *handlers.SearchHandler,
	indexHandler *handlers.IndexHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Search rate limiter (30 req/min per IP); embedding calls are not free
	searchLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Quiz Routes ────
		r.Route("/quiz", func(r chi.Router) {
			r.Get("/topics", quizHandler.Topics) // Public

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/start/{topicID}", quizHandler.Start)
				r.Post("/submit", quizHandler.Submit)
				r.Get("/history", quizHandler.History)
			})
		})

		// ──── Search Routes ────
		r.Route("/search", func(r chi.Router) {
			r.Get("/health", searchHandler.Health) // Public

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Use(searchLimiter.Middleware)
				r.Post("/", searchHandler.Search)
				r.Post("/notes", searchHandler.Notes)
			})
		})

		// ──── Indexing Routes (admin) ────
		r.Route("/index", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/videos", indexHandler.Enqueue)
			r.Get("/videos/{id}", indexHandler.GetTask)
		})
	})

	return r
}
