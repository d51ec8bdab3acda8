package collector

import (
	"net/http"

	"osint/internal/config"
	"osint/pkg/source"
	"osint/pkg/source/dnslookup"
	"osint/pkg/source/exif"
	"osint/pkg/source/httpmeta"
	"osint/pkg/source/numverify"
	"osint/pkg/source/shodan"
	"osint/pkg/source/username"
	"osint/pkg/source/whois"
)

// NewSources builds every source adapter from the application config. HTTP
// based adapters share one client. Adapters that need an API key are built
// anyway and report the missing key per lookup.
func NewSources(cfg *config.Config) []source.Source {
	httpClient := &http.Client{Timeout: cfg.Sources.HTTPTimeout}

	return []source.Source{
		whois.New(whois.NewQuerier(cfg.Sources.WhoisTimeout), whois.Options{Summary: cfg.Sources.WhoisSummary}),
		dnslookup.New(dnslookup.NewClient(cfg.Sources.DNSTimeout), cfg.Sources.Resolvers),
		httpmeta.New(httpClient),
		shodan.New(httpClient, cfg.Sources.ShodanURL, cfg.Sources.ShodanKey),
		numverify.New(httpClient, cfg.Sources.NumverifyURL, cfg.Sources.NumverifyKey),
		username.New(httpClient, username.Options{
			Sites:       cfg.Sources.UsernameSites,
			Concurrency: cfg.Sources.UsernameConcurrency,
		}),
		exif.New(),
	}
}
