package prismic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iMitio/spacetraveling/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))
	return storage.NewStore(db)
}

func newTestClient(t *testing.T, endpoint string, cache PageCache) *Client {
	t.Helper()
	c, err := NewClient(Options{
		Endpoint:    endpoint,
		AccessToken: "secret-token",
		Timeout:     5 * time.Second,
		Cache:       cache,
		CacheTTL:    time.Minute,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsRelativeEndpoint(t *testing.T) {
	_, err := NewClient(Options{Endpoint: "/api/v2"})
	assert.Error(t, err)

	_, err = NewClient(Options{Endpoint: "ftp://example.com/api/v2"})
	assert.Error(t, err)
}

func TestMasterRef(t *testing.T) {
	repo := newFakeRepo(t, 1)
	c := newTestClient(t, repo.endpoint(), nil)

	ref, err := c.MasterRef(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "M1", ref)
}

func TestGetByType_FirstPage(t *testing.T) {
	repo := newFakeRepo(t, 3)
	c := newTestClient(t, repo.endpoint(), nil)

	resp, err := c.GetByType(context.Background(), "posts", QueryOptions{Lang: "pt-BR", PageSize: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Page)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "post-1", resp.Results[0].UID)
	require.NotNil(t, resp.NextPage)
	assert.Equal(t, repo.pageURL(2), *resp.NextPage)

	want := time.Date(2021, 4, 19, 15, 4, 5, 0, time.UTC)
	require.NotNil(t, resp.Results[0].FirstPublicationDate)
	assert.True(t, want.Equal(resp.Results[0].FirstPublicationDate.Time))
}

func TestSearchURL(t *testing.T) {
	c := newTestClient(t, "https://spacetraveling.cdn.prismic.io/api/v2", nil)

	got := c.searchURL("M1", "posts", QueryOptions{Lang: "pt-BR", PageSize: 1})
	assert.True(t, strings.HasPrefix(got, "https://spacetraveling.cdn.prismic.io/api/v2/documents/search?"), got)
	for _, part := range []string{
		"ref=M1",
		"lang=pt-BR",
		"pageSize=1",
		"access_token=secret-token",
		"q=%5B%5Bat%28document.type%2C%22posts%22%29%5D%5D",
	} {
		assert.Contains(t, got, part)
	}
	assert.NotContains(t, got, "page=")
}

func TestFetchPage_FollowsCursor(t *testing.T) {
	repo := newFakeRepo(t, 2)
	c := newTestClient(t, repo.endpoint(), nil)

	resp, err := c.FetchPage(context.Background(), repo.pageURL(2))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Page)
	assert.Nil(t, resp.NextPage)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "post-2", resp.Results[0].UID)
}

func TestFetchPage_CursorErrors(t *testing.T) {
	repo := newFakeRepo(t, 2)
	c := newTestClient(t, repo.endpoint(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "empty", url: "", want: ErrNoCursor},
		{name: "relative", url: "/api/v2/documents/search?page=2", want: ErrForeignCursor},
		{name: "other host", url: "https://evil.example.com/api/v2/documents/search?page=2", want: ErrForeignCursor},
		{name: "bad scheme", url: "file:///etc/passwd", want: ErrForeignCursor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.FetchPage(ctx, tt.url)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, repo.searches.Load(), "no request should reach the repository")
}

func TestFetchPage_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/v2", nil)
	_, err := c.FetchPage(context.Background(), srv.URL+"/api/v2/documents/search?page=2&access_token=secret-token")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestFetchPage_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"page": 2, "results": [{"uid": ""}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/v2", nil)
	_, err := c.FetchPage(context.Background(), srv.URL+"/api/v2/documents/search?page=2")

	assert.ErrorIs(t, err, ErrMalformedResponse)
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestFetchPage_ServedFromCache(t *testing.T) {
	repo := newFakeRepo(t, 3)
	store := newTestStore(t)

	c := newTestClient(t, repo.endpoint(), store)
	ctx := context.Background()

	first, err := c.FetchPage(ctx, repo.pageURL(2))
	require.NoError(t, err)
	second, err := c.FetchPage(ctx, repo.pageURL(2))
	require.NoError(t, err)

	assert.Equal(t, int32(1), repo.searches.Load(), "second fetch should hit the cache")
	assert.Equal(t, first.Summaries(), second.Summaries())
}

func TestGetByType_ZeroTTLDisablesCache(t *testing.T) {
	repo := newFakeRepo(t, 2)
	store := newTestStore(t)

	c, err := NewClient(Options{
		Endpoint: repo.endpoint(),
		Timeout:  5 * time.Second,
		Cache:    store,
		CacheTTL: 0,
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.GetByType(ctx, "posts", QueryOptions{PageSize: 1})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), repo.roots.Load(), "api root must be fetched every time")
	assert.Equal(t, int32(3), repo.searches.Load(), "search must be fetched every time")

	purged, err := store.PurgeCachedPages(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Zero(t, purged, "nothing should have been written to the cache")
}

func TestFetchPage_CoalescesConcurrentRequests(t *testing.T) {
	gate := make(chan struct{})
	repo := newGatedRepo(t, 3, gate)
	c := newTestClient(t, repo.endpoint(), nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*SearchResponse, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.FetchPage(context.Background(), repo.pageURL(2))
		}(i)
	}

	<-repo.arrived
	// Let the remaining callers join the in-flight request.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), repo.searches.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, 2, results[i].Page, "caller %d", i)
		assert.Equal(t, results[0].Summaries(), results[i].Summaries(), "caller %d", i)
	}
}

func TestFetchPage_CancelledCallerLeavesSharedFetchRunning(t *testing.T) {
	gate := make(chan struct{})
	repo := newGatedRepo(t, 3, gate)
	c := newTestClient(t, repo.endpoint(), nil)
	pageURL := repo.pageURL(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.FetchPage(ctx, pageURL)
		firstErr <- err
	}()
	<-repo.arrived

	type result struct {
		resp *SearchResponse
		err  error
	}
	second := make(chan result, 1)
	go func() {
		resp, err := c.FetchPage(context.Background(), pageURL)
		second <- result{resp, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 2, got.resp.Page)
	assert.Equal(t, int32(1), repo.searches.Load())
}

func TestRedact(t *testing.T) {
	got := redact("https://x.cdn.prismic.io/api/v2?access_token=abc&ref=M1")
	assert.NotContains(t, got, "abc")
	assert.Contains(t, got, "ref=M1")

	plain := "https://x.cdn.prismic.io/api/v2?ref=M1"
	assert.Equal(t, plain, redact(plain))
}
