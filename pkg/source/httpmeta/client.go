// Package httpmeta provides a source.Source implementation that scrapes the
// landing page of a domain for HTTP response metadata.
package httpmeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"osint/pkg/domain"
	"osint/pkg/logger"
	"osint/pkg/serrors"
	"osint/pkg/source"
)

// maxBodySize bounds how much of a page is read.
const maxBodySize = 2 << 20

// Client fetches the first reachable HTTP(S) endpoint of a domain.
type Client struct {
	httpClient *http.Client
}

// Module implements source.Source.
func (c *Client) Module() domain.Module { return domain.ModuleHTTPMeta }

// Candidates returns the URLs tried for a domain, in order. A value that is
// already a URL is tried as it is.
func Candidates(d string) []string {
	if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
		return []string{d}
	}

	return []string{
		"https://" + d,
		"https://www." + d,
		"http://" + d,
		"http://www." + d,
	}
}

// Lookup returns the metadata of the first candidate answering below 400.
func (c *Client) Lookup(ctx context.Context, target domain.Target) (domain.Payload, error) {
	d, err := source.Value(target, domain.TargetDomain)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	for _, u := range Candidates(d) {
		meta, err := c.fetch(ctx, u)
		if err != nil {
			logger.Debug(ctx, "endpoint not usable", zap.String("url", u), zap.Error(err))

			continue
		}

		return meta, nil
	}
	if ctx.Err() != nil {
		return nil, serrors.Wrap(serrors.ErrTimeout, ctx.Err(), "no reachable HTTP(S) endpoint")
	}

	return nil, serrors.With(serrors.ErrUnavailable, "no reachable HTTP(S) endpoint")
}

func (c *Client) fetch(ctx context.Context, u string) (*domain.HTTPMetaPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; osint-collector)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("status %d", resp.StatusCode) //nolint: err113
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("could not parse page: %w", err)
	}

	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	metas := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := attrOf(s, "name", "property", "itemprop")
		if key == "" {
			return
		}
		metas[strings.ToLower(key)] = s.AttrOr("content", "")
	})

	return &domain.HTTPMetaPayload{
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		MetaTags:   metas,
		Robots:     metas["robots"],
	}, nil
}

// attrOf returns the first non-empty attribute among names.
func attrOf(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(s.AttrOr(n, "")); v != "" {
			return v
		}
	}

	return ""
}

var _ source.Source = (*Client)(nil)

// New constructs a Client on top of httpClient.
func New(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}
