package storefront

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"appreviews/internal/config"
	"appreviews/internal/metrics"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("appreviews/internal/storefront")

// Sleeper waits for d or until ctx is done. Tests substitute a recorder.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures a Client. MaxRetries bounds the attempts per page,
// BaseDelay is multiplied by the retry count after a 429 and Throttle is slept
// after every page and between transient failures. A nil Sleeper means Sleep.
type Options struct {
	Country             string
	Language            string
	StorefrontURL       string
	APIURL              string
	Platform            string
	AdditionalPlatforms []string
	UserAgents          []string

	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	Throttle   time.Duration

	Sleeper Sleeper
	Metrics *metrics.Collector
}

// OptionsFromConfig maps the run configuration onto client options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Country:             cfg.Country,
		Language:            cfg.Language,
		StorefrontURL:       cfg.StorefrontURL,
		APIURL:              cfg.APIURL,
		Platform:            cfg.Platform,
		AdditionalPlatforms: cfg.AdditionalPlatforms,
		UserAgents:          cfg.UserAgents,
		Timeout:             cfg.Timeout(),
		MaxRetries:          cfg.Retry.Attempts,
		BaseDelay:           cfg.BaseDelay(),
		Throttle:            cfg.Throttle(),
	}
}

// Client talks to the storefront landing pages and the reviews API. It is
// meant to be driven sequentially.
type Client struct {
	http *resty.Client
	opts Options
}

// New builds a Client. MaxRetries below 1 is raised to 1 and a zero Timeout
// leaves the resty default in place.
func New(opts Options) *Client {
	if opts.Sleeper == nil {
		opts.Sleeper = Sleep
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	cli := resty.New()
	if opts.Timeout > 0 {
		cli.SetTimeout(opts.Timeout)
	}

	return &Client{http: cli, opts: opts}
}

// LandingURL is the public app page the token is scraped from.
func (c *Client) LandingURL(app config.App) string {
	return fmt.Sprintf("%s/%s/app/%s/id%s",
		strings.TrimRight(c.opts.StorefrontURL, "/"),
		c.opts.Country,
		url.PathEscape(app.AppName),
		app.AppID,
	)
}

// ReviewsURL is the paginated reviews endpoint of the catalog API.
func (c *Client) ReviewsURL(app config.App) string {
	return fmt.Sprintf("%s/v1/catalog/%s/apps/%s/reviews",
		strings.TrimRight(c.opts.APIURL, "/"),
		c.opts.Country,
		app.AppID,
	)
}

func (c *Client) userAgent() string {
	if len(c.opts.UserAgents) == 0 {
		return ""
	}
	return c.opts.UserAgents[rand.IntN(len(c.opts.UserAgents))]
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	return c.opts.Sleeper(ctx, d)
}
