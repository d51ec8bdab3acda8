// Package username provides a source.Source implementation that checks
// social platforms for a profile with a given username.
package username

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"osint/pkg/domain"
	"osint/pkg/logger"
	"osint/pkg/source"
)

// Placeholder is replaced by the username in site patterns.
const Placeholder = "{username}"

// DefaultSites are the profile URL patterns checked when none are configured.
func DefaultSites() []string {
	return []string{
		"https://twitter.com/{username}",
		"https://www.facebook.com/{username}",
		"https://www.instagram.com/{username}/",
		"https://github.com/{username}",
		"https://www.reddit.com/user/{username}",
		"https://www.tiktok.com/@{username}",
		"https://www.linkedin.com/in/{username}",
	}
}

// Options configure a Checker.
type Options struct {
	// Sites are profile URL patterns containing Placeholder.
	Sites []string
	// Concurrency bounds the number of in-flight checks.
	Concurrency int
}

// Checker checks profile URLs with HEAD requests. A 200 response means the
// profile exists, any other status (redirects included) means it does not,
// and a transport error leaves existence unknown.
type Checker struct {
	httpClient *http.Client
	options    Options
}

// Module implements source.Source.
func (c *Checker) Module() domain.Module { return domain.ModuleUsernameCheck }

// Lookup checks every configured site for a username target. Results keep
// the order of the configured sites.
func (c *Checker) Lookup(ctx context.Context, target domain.Target) (domain.Payload, error) {
	name, err := source.Value(target, domain.TargetUsername)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	sites := make([]domain.SiteCheck, len(c.options.Sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.options.Concurrency)
	for i, pattern := range c.options.Sites {
		u := strings.ReplaceAll(pattern, Placeholder, name)
		g.Go(func() error {
			sites[i] = domain.SiteCheck{URL: u, Exists: c.check(gctx, u)}

			return nil
		})
	}
	_ = g.Wait()

	return &domain.UsernamePayload{Sites: sites}, nil
}

func (c *Checker) check(ctx context.Context, u string) *bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug(ctx, "profile check failed", zap.String("url", u), zap.Error(err))

		return nil
	}
	_ = resp.Body.Close()
	exists := resp.StatusCode == http.StatusOK

	return &exists
}

var _ source.Source = (*Checker)(nil)

// New constructs a Checker over a copy of httpClient that does not follow
// redirects. Missing options fall back to DefaultSites and a concurrency of 6.
func New(httpClient *http.Client, options Options) *Checker {
	if len(options.Sites) == 0 {
		options.Sites = DefaultSites()
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 6
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	// a redirect usually lands on a login or search page, so only a direct 200 counts
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Checker{httpClient: &noRedirect, options: options}
}
