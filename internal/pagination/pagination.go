// Package pagination holds the "load more" state of the post listing and the
// single operation that advances it.
package pagination

import (
	"context"
	"fmt"

	"github.com/iMitio/spacetraveling/internal/models"
	"github.com/iMitio/spacetraveling/internal/prismic"
)

// State is the listing as the reader currently sees it. It is a value: every
// transition returns a new State and leaves the old one intact.
type State struct {
	Items    []models.PostSummary `json:"results"`
	NextPage *string              `json:"next_page"`
	Page     int                  `json:"page"`
}

// NewState builds the initial state from the build-time props.
func NewState(props models.PostsPagination) State {
	items := make([]models.PostSummary, len(props.Results))
	copy(items, props.Results)
	return State{
		Items:    items,
		NextPage: props.NextPage,
		Page:     1,
	}
}

// HasMore reports whether the load-more control should be offered.
func (s State) HasMore() bool {
	return s.NextPage != nil
}

// Exhausted reports whether LoadNextPage would be a no-op. The first page is
// never considered exhausted, even without a cursor.
func (s State) Exhausted() bool {
	return s.Page != 1 && s.NextPage == nil
}

// PageFetcher follows a next-page cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*prismic.SearchResponse, error)
}

// Controller advances listing states.
type Controller struct {
	fetcher PageFetcher
}

// NewController returns a Controller that fetches pages with f.
func NewController(f PageFetcher) *Controller {
	return &Controller{fetcher: f}
}

// LoadNextPage fetches the page behind s.NextPage and returns a state with the
// new posts appended, the cursor and the page number taken from the response.
// An exhausted state is returned unchanged without fetching. On error the
// zero State is returned and s is still valid.
func (c *Controller) LoadNextPage(ctx context.Context, s State) (State, error) {
	if s.Exhausted() {
		return s, nil
	}

	var cursor string
	if s.NextPage != nil {
		cursor = *s.NextPage
	}

	resp, err := c.fetcher.FetchPage(ctx, cursor)
	if err != nil {
		return State{}, fmt.Errorf("loading page %d: %w", s.Page+1, err)
	}

	fresh := resp.Summaries()
	items := make([]models.PostSummary, 0, len(s.Items)+len(fresh))
	items = append(items, s.Items...)
	items = append(items, fresh...)

	return State{
		Items:    items,
		NextPage: resp.NextPage,
		Page:     resp.Page,
	}, nil
}

// Advance calls LoadNextPage until the state reaches page target or runs out
// of pages. On error it returns the last good state along with the error.
func (c *Controller) Advance(ctx context.Context, s State, target int) (State, error) {
	for s.Page < target && s.HasMore() {
		next, err := c.LoadNextPage(ctx, s)
		if err != nil {
			return s, err
		}
		if next.Page <= s.Page {
			// The page number must move forward or the loop never ends.
			return s, fmt.Errorf("loading page %d: response reported page %d", s.Page+1, next.Page)
		}
		s = next
	}
	return s, nil
}
