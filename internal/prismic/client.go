// Package prismic is a small client for the Prismic REST API v2, limited to
// what the listing needs: resolving the master ref, searching documents by
// type and following next-page cursors.
package prismic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iMitio/spacetraveling/internal/storage"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 * 1024 * 1024
	userAgent      = "spacetraveling/1.0 (+https://github.com/iMitio/spacetraveling)"
)

// PageCache stores raw response bodies keyed by an opaque string.
// *storage.Store satisfies it.
type PageCache interface {
	GetCachedPage(ctx context.Context, key string, maxAge time.Duration) ([]byte, error)
	PutCachedPage(ctx context.Context, key, url string, body []byte) error
}

// Options configures a Client.
type Options struct {
	// Endpoint is the repository API URL, e.g.
	// https://spacetraveling.cdn.prismic.io/api/v2.
	Endpoint    string
	AccessToken string
	Timeout     time.Duration

	// Cache is optional. Bodies younger than CacheTTL are served from it.
	// A CacheTTL of zero or less disables caching.
	Cache    PageCache
	CacheTTL time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// QueryOptions narrows a documents search.
type QueryOptions struct {
	Lang     string
	PageSize int
	Page     int
}

// Client talks to one Prismic repository.
type Client struct {
	endpoint    *url.URL
	accessToken string
	client      *http.Client
	cache       PageCache
	cacheTTL    time.Duration

	// group coalesces concurrent requests for the same URL.
	group singleflight.Group
}

// NewClient validates the endpoint and returns a ready Client.
func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", opts.Endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute http(s) URL", opts.Endpoint)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: &userAgentTransport{base: http.DefaultTransport},
		}
	}

	cache := opts.Cache
	if opts.CacheTTL <= 0 {
		cache = nil
	}

	return &Client{
		endpoint:    u,
		accessToken: opts.AccessToken,
		client:      httpClient,
		cache:       cache,
		cacheTTL:    opts.CacheTTL,
	}, nil
}

// userAgentTransport injects the client's User-Agent and Accept headers.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(req)
}

// MasterRef returns the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	u := *c.endpoint
	if c.accessToken != "" {
		q := u.Query()
		q.Set("access_token", c.accessToken)
		u.RawQuery = q.Encode()
	}
	rawURL := u.String()

	body, cached, err := c.get(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetching api root: %w", err)
	}
	ref, err := decodeMasterRef(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if !cached {
		c.remember(ctx, rawURL, body)
	}
	return ref, nil
}

// GetByType searches documents of the given custom type at the master ref.
func (c *Client) GetByType(ctx context.Context, docType string, opts QueryOptions) (*SearchResponse, error) {
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.search(ctx, c.searchURL(ref, docType, opts))
	if err != nil {
		return nil, fmt.Errorf("searching %q documents: %w", docType, err)
	}
	slog.Info("fetched documents",
		"type", docType,
		"page", resp.Page,
		"results", len(resp.Results),
		"has_next", resp.NextPage != nil,
	)
	return resp, nil
}

// FetchPage follows a next-page cursor exactly as the API returned it. The
// cursor must live on the configured repository host.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*SearchResponse, error) {
	if pageURL == "" {
		return nil, ErrNoCursor
	}
	u, err := url.Parse(pageURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrForeignCursor, redact(pageURL))
	}
	if !strings.EqualFold(u.Host, c.endpoint.Host) {
		return nil, fmt.Errorf("%w: host %q", ErrForeignCursor, u.Host)
	}

	resp, err := c.search(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching next page: %w", err)
	}
	slog.Info("fetched next page",
		"page", resp.Page,
		"results", len(resp.Results),
		"has_next", resp.NextPage != nil,
	)
	return resp, nil
}

func (c *Client) searchURL(ref, docType string, opts QueryOptions) string {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + "/documents/search"

	q := url.Values{}
	q.Set("ref", ref)
	q.Set("q", fmt.Sprintf(`[[at(document.type,"%s")]]`, docType))
	if opts.Lang != "" {
		q.Set("lang", opts.Lang)
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 1 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) search(ctx context.Context, rawURL string) (*SearchResponse, error) {
	body, cached, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := DecodeSearchResponse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if !cached {
		c.remember(ctx, rawURL, body)
	}
	return resp, nil
}

// get returns the body for rawURL, from the cache when fresh, otherwise from
// the network. Concurrent callers for the same URL share one request.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, bool, error) {
	if c.cache != nil {
		body, err := c.cache.GetCachedPage(ctx, cacheKey(rawURL), c.cacheTTL)
		if err == nil {
			slog.Debug("page cache hit", "url", redact(rawURL))
			return body, true, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("page cache read failed", "error", err)
		}
	}

	// The shared fetch outlives any single caller so that one disconnect
	// does not fail everyone waiting on it. The HTTP client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(rawURL, func() (any, error) {
		return c.fetch(shared, rawURL)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		if res.Shared {
			slog.Debug("coalesced request", "url", redact(rawURL))
		}
		return res.Val.([]byte), false, nil
	}
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: redact(rawURL), Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// remember stores a validated body. Cache failures only cost a refetch.
func (c *Client) remember(ctx context.Context, rawURL string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.PutCachedPage(ctx, cacheKey(rawURL), redact(rawURL), body); err != nil {
		slog.Warn("page cache write failed", "url", redact(rawURL), "error", err)
	}
}

// cacheKey returns the SHA-256 hex digest of the URL.
func cacheKey(rawURL string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(rawURL)))
}

// redact removes the access token from a URL before it is logged or stored.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if !q.Has("access_token") {
		return rawURL
	}
	q.Set("access_token", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
