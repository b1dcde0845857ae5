package home

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"strconv"
	"time"

	"github.com/iMitio/spacetraveling/internal/pagination"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// DefaultTitle is the document title of the listing.
const DefaultTitle = "Home | spacetraveling"

// Page is everything the listing template needs.
type Page struct {
	Title string
	State pagination.State

	// Error, when set, is shown above the load-more control with a link
	// that retries the failed load.
	Error string
	// Static renders a load-more button that follows the next-page cursor
	// in the browser instead of a form posting back to the server. Used for
	// files served without the listing routes behind them.
	Static bool
}

// NextCursor is the next-page URL, or "" when there is none.
func (p Page) NextCursor() string {
	if p.State.NextPage == nil {
		return ""
	}
	return *p.State.NextPage
}

// NextPages is the value of the "pages" parameter that loads one more page.
func (p Page) NextPages() int {
	return p.State.Page + 1
}

// RetryHref reloads the listing up to the page that failed.
func (p Page) RetryHref() string {
	return "/?pages=" + strconv.Itoa(p.State.Page+1)
}

// View renders the listing page.
type View struct {
	tmpl *template.Template
}

// NewView parses the embedded templates. Dates are shown in loc.
func NewView(loc *time.Location) (*View, error) {
	funcs := template.FuncMap{
		"formatDate": func(t *time.Time) string { return FormatDate(t, loc) },
		"isoDate":    isoDate,
		"postHref":   PostHref,
		"timezone":   func() string { return loc.String() },
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &View{tmpl: tmpl}, nil
}

// Render writes the page to w. Nothing is written if rendering fails.
func (v *View) Render(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = DefaultTitle
	}

	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, "index.html", p); err != nil {
		return fmt.Errorf("rendering listing: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

// PostHref is the detail route of a post.
func PostHref(uid string) string {
	return "/post/" + url.PathEscape(uid)
}

// StaticFS returns the stylesheet and other assets served under /static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at compile time.
		panic(err)
	}
	return sub
}
