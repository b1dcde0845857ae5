package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iMitio/spacetraveling/internal/home"
)

const (
	msgLoadFailed     = "Não foi possível carregar os posts."
	msgLoadMoreFailed = "Não foi possível carregar mais posts."
)

// Home handles GET /. It renders the listing with as many pages as the
// "pages" query parameter asks for, so "load more" works as a plain form.
func Home(l *Listing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages, err := parseCount(r, "pages", 1, l.maxPages())
		if err != nil {
			pages = 1
		}

		page := home.Page{Title: l.Title}
		status := http.StatusOK

		s, initial, err := l.stateFor(r.Context(), pages)
		page.State = s
		switch {
		case err != nil && !initial:
			slog.Error("failed to load listing", "error", err)
			page.Error = msgLoadFailed
			status = http.StatusBadGateway
		case err != nil:
			slog.Warn("failed to load more posts", "page", s.Page, "pages", pages, "error", err)
			page.Error = msgLoadMoreFailed
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := l.View.Render(w, page); err != nil {
			slog.Error("failed to render listing", "error", err)
		}
	}
}
