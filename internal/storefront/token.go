package storefront

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"appreviews/internal/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const environmentMetaName = "web-experience-app/config/environment"

var (
	environmentMetaLine = regexp.MustCompile(`^\s*<meta.+web-experience-app/config/environment`)
	// the meta content is URL-encoded JSON: ..."token":"<value>"...
	tokenPattern = regexp.MustCompile(`token%22%3A%22(.+?)%22`)
)

// FetchToken downloads the app landing page and extracts the bearer token
// used by the reviews API. A non-200 landing page is logged and extraction is
// still attempted.
func (c *Client) FetchToken(ctx context.Context, app config.App) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchToken", trace.WithAttributes(
		attribute.String("app.name", app.AppName),
		attribute.String("app.id", app.AppID),
	))
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.userAgent()).
		Get(c.LandingURL(app))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "landing page request failed")
		return "", fmt.Errorf("fetch landing page for %s: %w", app.AppName, err)
	}

	if res.StatusCode() != http.StatusOK {
		logrus.Warnf("GET landing page failed | app=%s response=%s", app.AppName, res.Status())
	}

	token, err := ExtractToken(res.String())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%s (id%s): %w", app.AppName, app.AppID, err)
	}
	logrus.Debugf("token extracted | app=%s length=%d", app.AppName, len(token))
	return token, nil
}

// ExtractToken pulls the bearer token out of a landing page. Lines that start
// with the environment meta tag are scanned first; the last match wins. When
// the page is minified and no line qualifies, the parsed document's meta tags
// are searched instead.
func ExtractToken(html string) (string, error) {
	var token string

	scanner := bufio.NewScanner(strings.NewReader(html))
	scanner.Buffer(make([]byte, 0, 64*1024), len(html)+1)
	for scanner.Scan() {
		line := scanner.Text()
		if !environmentMetaLine.MatchString(line) {
			continue
		}
		if m := tokenPattern.FindStringSubmatch(line); m != nil {
			token = m[1]
		}
	}
	if token != "" {
		return token, nil
	}

	if token = tokenFromDocument(html); token != "" {
		return token, nil
	}
	return "", ErrTokenNotFound
}

func tokenFromDocument(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var token string
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		if s.AttrOr("name", "") != environmentMetaName {
			return
		}
		if m := tokenPattern.FindStringSubmatch(s.AttrOr("content", "")); m != nil {
			token = m[1]
		}
	})
	return token
}
