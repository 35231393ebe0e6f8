package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"newsdesk-ai/internal/handlers"
	"newsdesk-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	AskService   service.AskService
	QueryService service.QueryService
	Index        handlers.IndexInfo
	WebEnabled   bool
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	// Add CORS middleware
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.AskService)
	searchHandler := handlers.NewSearchHandler(deps.AskService)
	queryHandler := handlers.NewQueryHandler(deps.QueryService)
	healthHandler := handlers.NewHealthHandler(deps.Index, deps.WebEnabled)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/ask", askHandler)
			r.Method(http.MethodPost, "/search", searchHandler)
			r.Method(http.MethodPost, "/query", queryHandler)
		})
	})

	return r
}
