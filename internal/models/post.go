package models

import "time"

// PostSummary is the projection of a CMS post document used by the listing.
// The publication date is kept raw; it is formatted only when rendered.
type PostSummary struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

// PostsPagination is the payload produced by the build-time loader: the first
// page of summaries plus the cursor for the next page (nil when none).
type PostsPagination struct {
	NextPage *string       `json:"next_page"`
	Results  []PostSummary `json:"results"`
}
