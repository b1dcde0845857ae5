package prismic

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

// fakeRepo serves a Prismic-like repository with the given number of pages of
// one post each.
type fakeRepo struct {
	*httptest.Server
	pages    int
	searches atomic.Int32
	roots    atomic.Int32

	// arrived receives one value per search request held by the gate.
	arrived chan struct{}
}

func newFakeRepo(t *testing.T, pages int) *fakeRepo {
	t.Helper()
	return newGatedRepo(t, pages, nil)
}

// newGatedRepo is like newFakeRepo, but when gate is non-nil every search
// request waits for gate to be closed before it is answered.
func newGatedRepo(t *testing.T, pages int, gate <-chan struct{}) *fakeRepo {
	t.Helper()

	repo := &fakeRepo{pages: pages, arrived: make(chan struct{}, 64)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		repo.roots.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"refs":[{"id":"preview","ref":"P1","isMasterRef":false},{"id":"master","ref":"M1","label":"Master","isMasterRef":true}]}`)
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		repo.searches.Add(1)
		if gate != nil {
			repo.arrived <- struct{}{}
			<-gate
		}
		if r.URL.Query().Get("ref") != "M1" {
			http.Error(w, "bad ref", http.StatusBadRequest)
			return
		}
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, repo.pageBody(page))
	})
	repo.Server = httptest.NewServer(mux)
	t.Cleanup(repo.Close)
	return repo
}

func (f *fakeRepo) endpoint() string { return f.URL + "/api/v2" }

func (f *fakeRepo) pageURL(page int) string {
	return fmt.Sprintf("%s/api/v2/documents/search?ref=M1&q=%%5B%%5Bat%%28document.type%%2C%%22posts%%22%%29%%5D%%5D&pageSize=1&page=%d", f.URL, page)
}

func (f *fakeRepo) pageBody(page int) string {
	next := "null"
	if page < f.pages {
		next = strconv.Quote(f.pageURL(page + 1))
	}
	return fmt.Sprintf(`{
		"page": %d,
		"results_per_page": 1,
		"total_pages": %d,
		"next_page": %s,
		"prev_page": null,
		"results": [{
			"id": "id-%d",
			"uid": "post-%d",
			"type": "posts",
			"lang": "pt-br",
			"first_publication_date": "2021-04-19T15:04:05+0000",
			"data": {
				"title": "Post %d",
				"subtitle": "Subtitle %d",
				"author": "Author %d",
				"content": [{"heading": "Intro", "body": [{"type": "paragraph", "text": "Hello"}]}]
			}
		}]
	}`, page, f.pages, next, page, page, page, page, page)
}
