package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/iMitio/spacetraveling/internal/api/handlers"
	"github.com/iMitio/spacetraveling/internal/home"
	"github.com/iMitio/spacetraveling/internal/storage"
)

// NewRouter creates and configures the HTTP router with the listing page,
// the JSON API and the embedded static assets.
func NewRouter(listing *handlers.Listing, store *storage.Store) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	r.Get("/", handlers.Home(listing))
	r.Get("/healthz", handlers.Health())

	// API sub-router.
	r.Route("/api", func(api chi.Router) {
		api.Get("/posts", handlers.GetPosts(listing))
		api.Post("/posts/next", handlers.NextPosts(listing.Controller))

		api.Get("/builds", handlers.GetBuilds(store))
	})

	fileServer := http.FileServer(http.FS(home.StaticFS()))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	return r
}
