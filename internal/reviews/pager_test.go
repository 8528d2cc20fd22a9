package reviews

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"appreviews/internal/config"
	"appreviews/internal/storefront"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var app = config.App{AppName: "x", AppID: "123"}

// scriptedFetcher serves pages keyed by offset and records the offsets asked for.
type scriptedFetcher struct {
	pages     map[string]*storefront.Page
	errs      map[string]error
	requested []string
}

func (f *scriptedFetcher) FetchPage(_ context.Context, _ config.App, token, offset string) (*storefront.Page, error) {
	f.requested = append(f.requested, offset)
	if err, ok := f.errs[offset]; ok {
		return nil, err
	}
	if p, ok := f.pages[offset]; ok {
		return p, nil
	}
	return &storefront.Page{Status: 404, Outcome: storefront.OutcomeNotFound}, nil
}

func fullPage(n int, next string) *storefront.Page {
	reviews := make([]storefront.Review, 0, n)
	for i := 0; i < n; i++ {
		reviews = append(reviews, storefront.Review{"id": fmt.Sprint(i)})
	}
	return &storefront.Page{Reviews: reviews, Next: next, Status: 200, Outcome: storefront.OutcomeSuccess}
}

func TestCollect_ThreePages(t *testing.T) {
	f := &scriptedFetcher{pages: map[string]*storefront.Page{
		"1":  fullPage(20, "21"),
		"21": fullPage(20, "41"),
		"41": fullPage(20, ""),
	}}

	reviews, trail, err := NewPager(f, app, "tok", 0).Collect(context.Background())
	require.NoError(t, err)

	assert.Len(t, reviews, 60)
	assert.Equal(t, []string{"1", "21", "41", ""}, trail)
	assert.Equal(t, []string{"1", "21", "41"}, f.requested)
}

func TestCollect_NotFoundKeepsAccumulated(t *testing.T) {
	f := &scriptedFetcher{pages: map[string]*storefront.Page{
		"1":  fullPage(20, "21"),
		"21": fullPage(20, "41"),
		// "41" is unknown and answers 404
	}}

	reviews, trail, err := NewPager(f, app, "tok", 0).Collect(context.Background())
	require.NoError(t, err)

	assert.Len(t, reviews, 40)
	assert.Equal(t, []string{"1", "21", "41", ""}, trail)
}

func TestCollect_FirstPageNotFound(t *testing.T) {
	f := &scriptedFetcher{}

	reviews, trail, err := NewPager(f, app, "tok", 0).Collect(context.Background())
	require.NoError(t, err)

	assert.Empty(t, reviews)
	assert.Equal(t, []string{"1", ""}, trail)
}

func TestCollect_ErrorReturnsPartial(t *testing.T) {
	f := &scriptedFetcher{
		pages: map[string]*storefront.Page{"1": fullPage(20, "21")},
		errs:  map[string]error{"21": context.Canceled},
	}

	reviews, trail, err := NewPager(f, app, "tok", 0).Collect(context.Background())
	require.True(t, errors.Is(err, context.Canceled))

	assert.Len(t, reviews, 20)
	assert.Equal(t, []string{"1", "21"}, trail)
}

func TestBatches_MaxPages(t *testing.T) {
	f := &scriptedFetcher{pages: map[string]*storefront.Page{
		"1":  fullPage(20, "21"),
		"21": fullPage(20, "41"),
		"41": fullPage(20, "61"),
	}}

	reviews, trail, err := NewPager(f, app, "tok", 2).Collect(context.Background())
	require.NoError(t, err)

	assert.Len(t, reviews, 40)
	assert.Equal(t, []string{"1", "21", "41"}, trail)
	assert.Equal(t, []string{"1", "21"}, f.requested)
}

func TestBatches_StopsWhenConsumerBreaks(t *testing.T) {
	f := &scriptedFetcher{pages: map[string]*storefront.Page{
		"1":  fullPage(20, "21"),
		"21": fullPage(20, "41"),
	}}

	for b, err := range NewPager(f, app, "tok", 0).Batches(context.Background()) {
		require.NoError(t, err)
		require.Equal(t, "1", b.Cursor)
		require.Equal(t, "21", b.Next)
		break
	}
	assert.Equal(t, []string{"1"}, f.requested)
}

func TestBatches_FollowsServerCursorOnly(t *testing.T) {
	// offsets jump irregularly; the pager must not compute its own
	f := &scriptedFetcher{pages: map[string]*storefront.Page{
		"1":   fullPage(20, "500"),
		"500": fullPage(3, "7"),
		"7":   fullPage(1, ""),
	}}

	_, trail, err := NewPager(f, app, "tok", 0).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "500", "7", ""}, trail)
}
