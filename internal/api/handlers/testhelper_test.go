package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iMitio/spacetraveling/internal/home"
	"github.com/iMitio/spacetraveling/internal/pagination"
	"github.com/iMitio/spacetraveling/internal/prismic"
	"github.com/iMitio/spacetraveling/internal/storage"
)

// newTestStore creates an in-memory SQLite store with migrations applied. It
// registers a cleanup function to close the database when the test completes.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

// cmsServer is a Prismic repository with one post per page. Requests for
// pages listed in fail get a 500.
type cmsServer struct {
	*httptest.Server
	pages    int
	fail     map[int]bool
	searches atomic.Int32
}

func newCMSServer(t *testing.T, pages int, fail ...int) *cmsServer {
	t.Helper()

	srv := &cmsServer{pages: pages, fail: map[int]bool{}}
	for _, p := range fail {
		srv.fail[p] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"refs":[{"id":"master","ref":"M1","isMasterRef":true}]}`)
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		srv.searches.Add(1)
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		if srv.fail[page] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		next := "null"
		if page < srv.pages {
			next = strconv.Quote(srv.pageURL(page + 1))
		}
		fmt.Fprintf(w, `{"page":%d,"next_page":%s,"results":[{"uid":"post-%d","first_publication_date":"2021-04-19T00:00:00+0000","data":{"title":"Post %d","subtitle":"Sub %d","author":"Author %d"}}]}`,
			page, next, page, page, page, page)
	})
	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (s *cmsServer) pageURL(page int) string {
	return fmt.Sprintf("%s/api/v2/documents/search?ref=M1&pageSize=1&page=%d", s.URL, page)
}

// newTestListing wires a loader, controller and view against srv.
func newTestListing(t *testing.T, srv *cmsServer) *Listing {
	t.Helper()

	client, err := prismic.NewClient(prismic.Options{
		Endpoint: srv.URL + "/api/v2",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	view, err := home.NewView(time.UTC)
	if err != nil {
		t.Fatalf("creating view: %v", err)
	}

	return &Listing{
		Loader:     home.NewLoader(client, home.DefaultQuery()),
		Controller: pagination.NewController(client),
		View:       view,
		MaxPages:   10,
	}
}
