package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iMitio/spacetraveling/internal/home"
	"github.com/iMitio/spacetraveling/internal/models"
	"github.com/iMitio/spacetraveling/internal/pagination"
	"github.com/iMitio/spacetraveling/internal/prismic"
)

// maxStateBytes bounds the State body accepted by NextPosts.
const maxStateBytes = 1 << 20

// Loader produces the first page of the listing.
type Loader interface {
	Load(ctx context.Context) (*models.PostsPagination, error)
}

// Listing bundles the dependencies of the listing routes.
type Listing struct {
	Loader     Loader
	Controller *pagination.Controller
	View       *home.View
	Title      string

	// MaxPages caps the "pages" query parameter.
	MaxPages int
}

// stateFor loads the first page and advances it to the requested page. When
// the first page cannot be loaded, initial is false and the state is empty.
// A later failure returns the last good state alongside the error.
func (l *Listing) stateFor(ctx context.Context, pages int) (s pagination.State, initial bool, err error) {
	props, err := l.Loader.Load(ctx)
	if err != nil {
		return pagination.State{}, false, err
	}
	s, err = l.Controller.Advance(ctx, pagination.NewState(*props), pages)
	return s, true, err
}

func (l *Listing) maxPages() int {
	if l.MaxPages < 1 {
		return 1
	}
	return l.MaxPages
}

// GetPosts handles GET /api/posts. It returns the listing state accumulated
// up to the "pages" query parameter.
func GetPosts(l *Listing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages, err := parseCount(r, "pages", 1, l.maxPages())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		s, _, err := l.stateFor(r.Context(), pages)
		if err != nil {
			slog.Error("failed to load posts", "pages", pages, "error", err)
			writeError(w, statusFor(err), "Failed to load posts")
			return
		}

		writeJSON(w, http.StatusOK, s)
	}
}

// NextPosts handles POST /api/posts/next. The body is a listing state; the
// response is that state after loading one more page.
func NextPosts(ctrl *pagination.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s pagination.State
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStateBytes)).Decode(&s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		next, err := ctrl.LoadNextPage(r.Context(), s)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusBadRequest {
				slog.Warn("rejected next page request", "page", s.Page, "error", err)
				writeError(w, status, err.Error())
				return
			}
			slog.Error("failed to load next page", "page", s.Page, "error", err)
			writeError(w, status, "Failed to load next page")
			return
		}

		if next.Items == nil {
			next.Items = []models.PostSummary{}
		}
		writeJSON(w, http.StatusOK, next)
	}
}

// statusFor maps a load error to an HTTP status. Cursor problems are the
// caller's fault; everything else is an upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, prismic.ErrForeignCursor), errors.Is(err, prismic.ErrNoCursor):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
