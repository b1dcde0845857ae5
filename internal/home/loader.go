// Package home implements the post listing page: the build-time data loader
// and the HTML view.
package home

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iMitio/spacetraveling/internal/models"
	"github.com/iMitio/spacetraveling/internal/prismic"
)

// ContentSource queries documents by custom type.
type ContentSource interface {
	GetByType(ctx context.Context, docType string, opts prismic.QueryOptions) (*prismic.SearchResponse, error)
}

// Query selects the documents listed on the page.
type Query struct {
	DocumentType string
	Lang         string
	PageSize     int
}

// DefaultQuery lists "posts" in Brazilian Portuguese, one per page.
func DefaultQuery() Query {
	return Query{DocumentType: "posts", Lang: "pt-BR", PageSize: 1}
}

// Loader fetches the first page of the listing.
type Loader struct {
	source ContentSource
	query  Query
}

// NewLoader returns a Loader reading from src.
func NewLoader(src ContentSource, q Query) *Loader {
	return &Loader{source: src, query: q}
}

// Load returns the first page of post summaries and the next-page cursor.
// Publication dates are passed through unformatted.
func (l *Loader) Load(ctx context.Context) (*models.PostsPagination, error) {
	resp, err := l.source.GetByType(ctx, l.query.DocumentType, prismic.QueryOptions{
		Lang:     l.query.Lang,
		PageSize: l.query.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", l.query.DocumentType, err)
	}

	props := &models.PostsPagination{
		NextPage: resp.NextPage,
		Results:  resp.Summaries(),
	}
	slog.Debug("loaded listing props", "results", len(props.Results), "has_next", props.NextPage != nil)
	return props, nil
}
