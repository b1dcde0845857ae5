package prismic

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iMitio/spacetraveling/internal/models"
)

// SearchResponse is one page of a documents search.
type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Document is a "posts" document as returned by the API.
type Document struct {
	ID                   string     `json:"id"`
	UID                  string     `json:"uid"`
	Type                 string     `json:"type"`
	Lang                 string     `json:"lang"`
	FirstPublicationDate *Timestamp `json:"first_publication_date"`
	Data                 PostData   `json:"data"`
}

// PostData is the custom-type payload of a post.
type PostData struct {
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle"`
	Author   string           `json:"author"`
	Content  []ContentSection `json:"content"`
}

// ContentSection is one heading plus its rich-text body.
type ContentSection struct {
	Heading string      `json:"heading"`
	Body    []TextBlock `json:"body"`
}

// TextBlock is a single rich-text block. Spans are ignored.
type TextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// timestampLayouts lists the layouts accepted for publication dates. The API
// writes offsets without a colon ("+0000").
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

// Timestamp is a publication date that accepts the API's offset format.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the layouts the API is known to emit.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// DecodeSearchResponse decodes and validates a search response body. Any
// failure is a *DecodeError.
func DecodeSearchResponse(r io.Reader) (*SearchResponse, error) {
	var resp SearchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, &DecodeError{Reason: "decoding search response", Err: err}
	}
	if err := resp.validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *SearchResponse) validate() error {
	if r.Page < 1 {
		return &DecodeError{Reason: fmt.Sprintf("page %d is not a positive number", r.Page)}
	}
	if r.Results == nil {
		return &DecodeError{Reason: "results field is missing"}
	}
	for i, doc := range r.Results {
		if strings.TrimSpace(doc.UID) == "" {
			return &DecodeError{Reason: fmt.Sprintf("results[%d] has no uid", i)}
		}
	}
	// An empty cursor means the same as null.
	if r.NextPage != nil && *r.NextPage == "" {
		r.NextPage = nil
	}
	return nil
}

// Summary projects the document onto the listing record.
func (d Document) Summary() models.PostSummary {
	var published *time.Time
	if d.FirstPublicationDate != nil {
		t := d.FirstPublicationDate.Time
		published = &t
	}
	return models.PostSummary{
		UID:                  d.UID,
		FirstPublicationDate: published,
		Title:                d.Data.Title,
		Subtitle:             d.Data.Subtitle,
		Author:               d.Data.Author,
	}
}

// Summaries projects every result, preserving order.
func (r *SearchResponse) Summaries() []models.PostSummary {
	out := make([]models.PostSummary, 0, len(r.Results))
	for _, doc := range r.Results {
		out = append(out, doc.Summary())
	}
	return out
}

// apiRoot is the subset of the repository root document we need.
type apiRoot struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		Label       string `json:"label"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

func decodeMasterRef(r io.Reader) (string, error) {
	var root apiRoot
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return "", &DecodeError{Reason: "decoding api root", Err: err}
	}
	for _, ref := range root.Refs {
		if ref.IsMasterRef && ref.Ref != "" {
			return ref.Ref, nil
		}
	}
	return "", &DecodeError{Reason: "api root has no master ref"}
}
