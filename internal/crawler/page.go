package crawler

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched listing page. Doc is nil unless the status is 2xx.
type Page struct {
	URL    string
	Status int
	Doc    *goquery.Document
}

// OK reports whether the page was fetched with a 2xx status
func (p *Page) OK() bool {
	return p.Status >= 200 && p.Status < 300
}

// Fetcher retrieves and parses one page. Transport failures are returned as
// errors; a non-2xx status is reported through Page.Status.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) (*Page, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Page, error) {
	return f(ctx, url)
}
