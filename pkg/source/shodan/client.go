// Package shodan provides a source.Source implementation backed by the
// Shodan host API.
package shodan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"osint/pkg/domain"
	"osint/pkg/serrors"
	"osint/pkg/source"
)

// DefaultBaseURL is the public Shodan API endpoint.
const DefaultBaseURL = "https://api.shodan.io"

const (
	maxServices  = 5
	maxBannerLen = 200
)

// Client looks up hosts on Shodan. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client // httpClient performs HTTP requests to Shodan
	baseURL    string       // baseURL is the API root, without trailing slash
	key        string       // key is the Shodan API key
}

// Module implements source.Source.
func (c *Client) Module() domain.Module { return domain.ModuleShodanHost }

// hostResponse is the subset of https://developer.shodan.io/api host
// information used here.
type hostResponse struct {
	IPStr      string          `json:"ip_str"`
	Org        string          `json:"org"`
	ISP        string          `json:"isp"`
	ASN        string          `json:"asn"`
	Country    string          `json:"country_name"`
	City       string          `json:"city"`
	Hostnames  []string        `json:"hostnames"`
	Domains    []string        `json:"domains"`
	Ports      []int           `json:"ports"`
	Vulns      json.RawMessage `json:"vulns"`
	LastUpdate string          `json:"last_update"`
	Data       []struct {
		Port      int    `json:"port"`
		Transport string `json:"transport"`
		Product   string `json:"product"`
		Version   string `json:"version"`
		Data      string `json:"data"`
	} `json:"data"`
}

// Lookup fetches host information for an IP target.
func (c *Client) Lookup(ctx context.Context, target domain.Target) (domain.Payload, error) {
	ip, err := source.Value(target, domain.TargetIP)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}
	if c.key == "" {
		return nil, serrors.With(serrors.ErrUnauthorized, "no Shodan API key provided")
	}

	u := c.baseURL + "/shodan/host/" + url.PathEscape(ip) + "?" + url.Values{"key": {c.key}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, serrors.With(serrors.ErrUnauthorized, "invalid Shodan API key")
	case resp.StatusCode == http.StatusNotFound:
		return nil, serrors.With(serrors.ErrNotFound, "no information available for this IP")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, serrors.With(serrors.ErrRateLimited, "rate limited: %s", strings.TrimSpace(string(b)))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, source.HTTPStatusError(resp.StatusCode, b)
	}

	var host hostResponse
	if err := json.Unmarshal(b, &host); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	out := &domain.ShodanPayload{
		IP:            host.IPStr,
		Organization:  host.Org,
		ISP:           host.ISP,
		ASN:           host.ASN,
		Country:       host.Country,
		City:          host.City,
		Hostnames:     host.Hostnames,
		Domains:       host.Domains,
		Ports:         host.Ports,
		Vulns:         vulnIDs(host.Vulns),
		LastUpdate:    host.LastUpdate,
		TotalServices: len(host.Data),
	}
	for i, svc := range host.Data {
		if i == maxServices {
			break
		}
		out.Services = append(out.Services, domain.ShodanService{
			Port:      svc.Port,
			Transport: svc.Transport,
			Product:   svc.Product,
			Version:   svc.Version,
			Banner:    source.Truncate(svc.Data, maxBannerLen),
		})
	}

	return out, nil
}

// vulnIDs accepts both forms Shodan uses for vulns: a list of CVE ids or an
// object keyed by CVE id.
func vulnIDs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// Ensure Client conforms to the source.Source interface at compile time.
var _ source.Source = (*Client)(nil)

// New constructs a Client that uses the provided http.Client and API key.
// An empty baseURL selects DefaultBaseURL.
func New(httpClient *http.Client, baseURL, key string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
	}
}
