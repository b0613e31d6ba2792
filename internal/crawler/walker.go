package crawler

import (
	"context"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/opinionworker/helpers"
	"sjsage522/opinionworker/logger"
	"sjsage522/opinionworker/pkg/errors"
	"sjsage522/opinionworker/services/metrics"
)

// Batch holds the review fragments of one listing page
type Batch struct {
	Index   int
	URL     string
	Doc     *goquery.Document
	Reviews *goquery.Selection
}

// Walker follows "next page" links from a start URL
type Walker struct {
	fetcher        Fetcher
	reviewSelector string
	nextSelector   string
	log            *logger.Logger
}

// NewWalker creates a walker. reviewSelector must already exclude highlighted entries.
func NewWalker(fetcher Fetcher, reviewSelector, nextSelector string, log *logger.Logger) *Walker {
	if log == nil {
		log = logger.Nop()
	}
	return &Walker{
		fetcher:        fetcher,
		reviewSelector: reviewSelector,
		nextSelector:   nextSelector,
		log:            log,
	}
}

// Walk lazily yields one batch per page. It ends when a page has no next link.
// A failed fetch or a non-2xx page yields a single fetch error and ends the walk;
// batches yielded before stay valid. Call Walk again to restart.
func (w *Walker) Walk(ctx context.Context, startURL string) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		url := startURL
		for index := 0; url != ""; index++ {
			if err := ctx.Err(); err != nil {
				yield(Batch{}, errors.NewFetch(url, "walk cancelled", err))
				return
			}

			page, err := w.fetcher.Fetch(ctx, url)
			if err != nil {
				metrics.ObservePage(0)
				if !errors.Is(err, errors.ErrorTypeFetch) {
					err = errors.NewFetch(url, "request failed", err)
				}
				yield(Batch{}, err)
				return
			}
			metrics.ObservePage(page.Status)
			if !page.OK() || page.Doc == nil {
				yield(Batch{}, errors.NewStatus(url, page.Status))
				return
			}

			base := page.URL
			if base == "" {
				base = url
			}
			batch := Batch{
				Index:   index,
				URL:     base,
				Doc:     page.Doc,
				Reviews: page.Doc.Find(w.reviewSelector),
			}
			w.log.Debug().
				Str("url", base).
				Int("page", index).
				Int("reviews", batch.Reviews.Length()).
				Msg("Fetched review page")

			if !yield(batch, nil) {
				return
			}
			url = w.nextURL(page.Doc, base)
		}
	}
}

// nextURL returns the absolute next-page URL, or "" when there is none
func (w *Walker) nextURL(doc *goquery.Document, base string) string {
	href, exists := doc.Find(w.nextSelector).First().Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return ""
	}
	next, err := helpers.ResolveURL(base, href)
	if err != nil {
		w.log.Warn().Err(err).Str("href", href).Msg("Cannot resolve next page link")
		return ""
	}
	return next
}
