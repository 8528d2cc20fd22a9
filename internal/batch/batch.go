package batch

import (
	"context"
	"fmt"
	"time"

	"appreviews/internal/config"
	"appreviews/internal/metrics"
	"appreviews/internal/parser"
	"appreviews/internal/reviews"
	"appreviews/internal/sink"

	"github.com/sirupsen/logrus"
)

// TimestampLayout prefixes every file written by one run.
const TimestampLayout = "2006_01_02_15_04_05"

// Storefront is the part of *storefront.Client the runner depends on.
type Storefront interface {
	reviews.PageFetcher
	FetchToken(ctx context.Context, app config.App) (string, error)
}

// Options tunes a Runner. Columns are dropped then renamed on every app
// table. Now defaults to time.Now and a nil Metrics records nothing.
type Options struct {
	Columns config.ColumnsConfig
	// MaxPages caps pages per app, 0 means unlimited.
	MaxPages int
	Now      func() time.Time
	Metrics  *metrics.Collector
}

// AppResult describes what happened to one app. File is the sink name of the
// per-app table and is empty when nothing was written.
type AppResult struct {
	App     config.App
	Pages   int
	Reviews int
	File    string
	Err     error
}

// Summary reports a run: the shared timestamp, one result per app in input
// order, and the combined file with its row count. MasterFile is empty when
// the combined file was not written.
type Summary struct {
	Timestamp  string
	Apps       []AppResult
	MasterFile string
	Rows       int
}

// Failed returns the apps whose run ended with an error.
func (s *Summary) Failed() []AppResult {
	var failed []AppResult
	for _, a := range s.Apps {
		if a.Err != nil {
			failed = append(failed, a)
		}
	}
	return failed
}

// Runner scrapes a list of apps one after the other and writes one table per
// app plus a combined table, all sharing the run timestamp.
type Runner struct {
	store Storefront
	sink  sink.Sink
	opts  Options
}

// New builds a Runner writing through sk. The caller picks the sink, so tests
// can substitute an in-memory one.
func New(store Storefront, sk sink.Sink, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{store: store, sink: sk, opts: opts}
}

// Run processes apps in order. A failing app is logged and recorded in the
// summary and the run moves on; only context cancellation and a failed write
// of the combined file abort it. The summary is returned in every case.
func (r *Runner) Run(ctx context.Context, apps []config.App) (*Summary, error) {
	ts := r.opts.Now().Format(TimestampLayout)
	summary := &Summary{Timestamp: ts}
	master := sink.NewTable()

	logrus.Infof("Starting batch | apps=%d timestamp=%s", len(apps), ts)

	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		startTs := time.Now()
		res, table, err := r.runApp(ctx, ts, app)
		if err != nil {
			res.Err = err
			summary.Apps = append(summary.Apps, res)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			logrus.Errorf("app skipped | app=%s id=%s err=%v", app.AppName, app.AppID, err)
			continue
		}

		summary.Apps = append(summary.Apps, res)
		master.Concat(table)
		logrus.Infof("[OK] %s | pages=%d reviews=%d time=%.2fs",
			app.AppName, res.Pages, res.Reviews, time.Since(startTs).Seconds())
	}

	name := fmt.Sprintf("%s_all_reviews.csv", ts)
	if err := r.sink.Write(name, master); err != nil {
		r.opts.Metrics.Failure("all", "sink")
		return summary, fmt.Errorf("write %s: %w", name, err)
	}
	r.opts.Metrics.RowsWritten("all", master.Len())
	summary.MasterFile = name
	summary.Rows = master.Len()

	logrus.Infof("Batch finished | file=%s rows=%d failed_apps=%d", name, master.Len(), len(summary.Failed()))
	return summary, nil
}

// runApp fetches, reshapes and writes the reviews of a single app. The returned
// table is nil on error.
func (r *Runner) runApp(ctx context.Context, ts string, app config.App) (AppResult, *sink.Table, error) {
	res := AppResult{App: app}
	logrus.Infof("Scraping reviews | app=%s id=%s", app.AppName, app.AppID)

	token, err := r.store.FetchToken(ctx, app)
	if err != nil {
		r.opts.Metrics.Failure(app.AppName, "token")
		return res, nil, err
	}

	table := sink.NewTable()
	pager := reviews.NewPager(r.store, app, token, r.opts.MaxPages)
	for b, err := range pager.Batches(ctx) {
		if err != nil {
			r.opts.Metrics.Failure(app.AppName, "pagination")
			return res, nil, fmt.Errorf("paginate from offset %s: %w", b.Cursor, err)
		}
		res.Pages++
		table.Append(parser.Rows(b.Reviews)...)
		logrus.Infof("data shape: (%d, %d) | app=%s offset=%s outcome=%s",
			table.Len(), len(table.Columns), app.AppName, b.Cursor, b.Outcome)
	}

	table.Drop(r.opts.Columns.Drop)
	table.Rename(r.opts.Columns.Rename)
	res.Reviews = table.Len()

	name := fmt.Sprintf("%s_%s_reviews.csv", ts, app.AppName)
	if err := r.sink.Write(name, table); err != nil {
		r.opts.Metrics.Failure(app.AppName, "sink")
		return res, nil, fmt.Errorf("write %s: %w", name, err)
	}
	r.opts.Metrics.RowsWritten("app", table.Len())
	res.File = name

	logrus.Infof("saved %s | rows=%d columns=%d", name, table.Len(), len(table.Columns))
	return res, table, nil
}
