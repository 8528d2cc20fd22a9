package reviews

import (
	"context"
	"iter"

	"appreviews/internal/config"
	"appreviews/internal/storefront"

	"github.com/sirupsen/logrus"
)

// FirstCursor is the offset every app's pagination starts from.
const FirstCursor = "1"

// PageFetcher is satisfied by *storefront.Client.
type PageFetcher interface {
	FetchPage(ctx context.Context, app config.App, token, offset string) (*storefront.Page, error)
}

// Batch is one fetched page. Cursor is the offset it was requested with and
// Next the offset the server handed back ("" when pagination is over).
type Batch struct {
	Cursor  string
	Next    string
	Reviews []storefront.Review
	Status  int
	Outcome storefront.Outcome
}

// Pager walks the server-supplied cursor chain of one app. It never derives
// offsets on its own: the walk continues only while the last page returned a
// next offset.
//
// With maxPages set to 0 the walk is unbounded and ends only when the API
// stops returning a cursor (null next, 404 or exhausted retries).
type Pager struct {
	fetcher  PageFetcher
	app      config.App
	token    string
	maxPages int
}

func NewPager(fetcher PageFetcher, app config.App, token string, maxPages int) *Pager {
	return &Pager{fetcher: fetcher, app: app, token: token, maxPages: maxPages}
}

// Batches yields pages lazily, one request per iteration. An error is yielded
// at most once and ends the sequence.
func (p *Pager) Batches(ctx context.Context) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		cursor := FirstCursor
		for pages := 0; cursor != ""; pages++ {
			if p.maxPages > 0 && pages >= p.maxPages {
				logrus.Warnf("page limit reached, stopping before offset %s | app=%s max_pages=%d",
					cursor, p.app.AppName, p.maxPages)
				return
			}

			page, err := p.fetcher.FetchPage(ctx, p.app, p.token, cursor)
			if err != nil {
				yield(Batch{Cursor: cursor}, err)
				return
			}

			b := Batch{
				Cursor:  cursor,
				Next:    page.Next,
				Reviews: page.Reviews,
				Status:  page.Status,
				Outcome: page.Outcome,
			}
			if !yield(b, nil) {
				return
			}
			cursor = page.Next
		}
	}
}

// Collect drains Batches. The returned cursor trail lists every offset
// requested followed by the last next value, which is "" when the server
// ended pagination. Reviews gathered before an error are returned with it.
func (p *Pager) Collect(ctx context.Context) ([]storefront.Review, []string, error) {
	var (
		all   []storefront.Review
		trail []string
		next  string
	)
	for b, err := range p.Batches(ctx) {
		if err != nil {
			return all, append(trail, b.Cursor), err
		}
		all = append(all, b.Reviews...)
		trail = append(trail, b.Cursor)
		next = b.Next
	}
	return all, append(trail, next), nil
}
