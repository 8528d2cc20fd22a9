package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"appreviews/internal/config"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PageLimit is the largest page size the reviews API accepts.
const PageLimit = 20

var offsetPattern = regexp.MustCompile(`^.+offset=([0-9]+).*$`)

// Review is one raw review object as returned by the API, annotated with
// app_id and app_name.
type Review map[string]interface{}

// Outcome classifies a single request attempt and, for the attempt that ends
// the retry loop, the page as a whole.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeNotFound
	OutcomeTransient
	// OutcomeExhausted means the retry budget ran out without a 200 or 404.
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransient:
		return "transient"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

func classify(status int) Outcome {
	switch status {
	case http.StatusOK:
		return OutcomeSuccess
	case http.StatusTooManyRequests:
		return OutcomeRateLimited
	case http.StatusNotFound:
		return OutcomeNotFound
	default:
		return OutcomeTransient
	}
}

// Page is the result of FetchPage. Next is empty when there is no further
// page to request.
type Page struct {
	Reviews  []Review
	Next     string
	Status   int
	Outcome  Outcome
	Attempts int
}

type reviewsResponse struct {
	Next *string  `json:"next"`
	Data []Review `json:"data"`
}

// FetchPage requests one page of reviews starting at offset.
//
// 429 responses are retried after BaseDelay*n for the n-th retry. Any other
// failure (non-200/404 status, transport error, undecodable body) consumes one
// retry as well and is retried after the throttle delay. A 404 ends
// pagination. Once MaxRetries is used up the page comes back empty with
// OutcomeExhausted and no error. The throttle delay is slept once more after
// the loop whatever the outcome. Only context cancellation yields an error.
func (c *Client) FetchPage(ctx context.Context, app config.App, token, offset string) (*Page, error) {
	ctx, span := tracer.Start(ctx, "FetchPage", trace.WithAttributes(
		attribute.String("app.id", app.AppID),
		attribute.String("offset", offset),
	))
	defer span.End()

	page := &Page{Outcome: OutcomeExhausted}
	retries := 0
	var nextLink string

attempts:
	for retries < c.opts.MaxRetries {
		page.Attempts++

		outcome, status, body, err := c.attempt(ctx, app, token, offset)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		page.Status = status

		if outcome == OutcomeSuccess {
			reviews, link, decodeErr := decodeReviews(body)
			if decodeErr != nil {
				outcome = OutcomeTransient
				err = decodeErr
			}
			page.Reviews, nextLink = reviews, link
		}

		switch outcome {
		case OutcomeSuccess:
			page.Outcome = OutcomeSuccess
			if len(page.Reviews) < PageLimit {
				logrus.Warnf("%d reviews scraped, fewer than the expected %d | app=%s offset=%s",
					len(page.Reviews), PageLimit, app.AppName, offset)
			}
			break attempts

		case OutcomeNotFound:
			logrus.Infof("%d %s, there are no more reviews | app=%s offset=%s",
				status, http.StatusText(status), app.AppName, offset)
			page.Outcome = OutcomeNotFound
			break attempts

		case OutcomeRateLimited:
			retries++
			c.opts.Metrics.RateLimited(app.AppName)
			backoff := c.opts.BaseDelay * time.Duration(retries)
			logrus.Warnf("rate limited, retrying (%d/%d) after %s | app=%s offset=%s",
				retries, c.opts.MaxRetries, backoff, app.AppName, offset)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}

		default:
			retries++
			c.opts.Metrics.Failure(app.AppName, "transient")
			logrus.Warnf("GET reviews failed (attempt %d/%d): %v | app=%s offset=%s",
				retries, c.opts.MaxRetries, err, app.AppName, offset)
			if err := c.sleep(ctx, c.opts.Throttle); err != nil {
				return nil, err
			}
		}
	}

	switch page.Outcome {
	case OutcomeSuccess:
		page.Next = cursorFrom(nextLink, app)
		for _, r := range page.Reviews {
			r["app_id"] = app.AppID
			r["app_name"] = app.AppName
		}
	case OutcomeExhausted:
		span.SetStatus(codes.Error, "retries exhausted")
		logrus.Warnf("giving up after %d retries, treating as end of reviews | app=%s offset=%s",
			retries, app.AppName, offset)
	}

	c.opts.Metrics.PageFetched(app.AppName, page.Outcome.String(), len(page.Reviews))
	span.SetAttributes(
		attribute.Int("http.status_code", page.Status),
		attribute.String("outcome", page.Outcome.String()),
		attribute.Int("reviews", len(page.Reviews)),
	)

	if err := c.sleep(ctx, c.opts.Throttle); err != nil {
		return nil, err
	}
	return page, nil
}

// attempt issues one GET and classifies it. Transport errors are reported as
// OutcomeTransient with the error attached.
func (c *Client) attempt(ctx context.Context, app config.App, token, offset string) (Outcome, int, []byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"Accept":        "application/json",
			"Authorization": "bearer " + token,
			"Connection":    "keep-alive",
			"Content-Type":  "application/x-www-form-urlencoded; charset=UTF-8",
			"Origin":        strings.TrimRight(c.opts.StorefrontURL, "/"),
			"Referer":       c.LandingURL(app),
			"User-Agent":    c.userAgent(),
		}).
		SetQueryParams(map[string]string{
			"l":                   c.opts.Language,
			"offset":              offset,
			"limit":               strconv.Itoa(PageLimit),
			"platform":            c.opts.Platform,
			"additionalPlatforms": strings.Join(c.opts.AdditionalPlatforms, ","),
		}).
		Get(c.ReviewsURL(app))
	if err != nil {
		return OutcomeTransient, 0, nil, err
	}

	outcome := classify(res.StatusCode())
	if outcome != OutcomeSuccess {
		logrus.Debugf("GET reviews returned %s | app=%s offset=%s", res.Status(), app.AppName, offset)
		return outcome, res.StatusCode(), nil, &HTTPError{StatusCode: res.StatusCode(), Status: res.Status()}
	}
	return outcome, res.StatusCode(), res.Body(), nil
}

func decodeReviews(body []byte) ([]Review, string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload reviewsResponse
	if err := dec.Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("decode reviews response: %w", err)
	}

	reviews := payload.Data[:0]
	for _, r := range payload.Data {
		if r != nil {
			reviews = append(reviews, r)
		}
	}

	var next string
	if payload.Next != nil {
		next = *payload.Next
	}
	return reviews, next, nil
}

func cursorFrom(next string, app config.App) string {
	if next == "" {
		logrus.Infof("no offset found | app=%s", app.AppName)
		return ""
	}
	offset, ok := NextOffset(next)
	if !ok {
		logrus.Warnf("next link carries no offset, stopping | app=%s next=%q", app.AppName, next)
		return ""
	}
	logrus.Debugf("offset: %s | app=%s", offset, app.AppName)
	return offset
}

// NextOffset extracts the offset query value from a continuation link.
func NextOffset(next string) (string, bool) {
	m := offsetPattern.FindStringSubmatch(next)
	if m == nil {
		return "", false
	}
	return m[1], true
}
