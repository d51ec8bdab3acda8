// Package numverify provides a source.Source implementation that validates
// phone numbers with the numverify (apilayer) API.
package numverify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"osint/pkg/domain"
	"osint/pkg/serrors"
	"osint/pkg/source"
)

// DefaultBaseURL is the numverify API endpoint.
const DefaultBaseURL = "http://apilayer.net/api"

// Client validates phone numbers. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
}

// Module implements source.Source.
func (c *Client) Module() domain.Module { return domain.ModulePhoneLookup }

type validateResponse struct {
	Valid               bool   `json:"valid"`
	Number              string `json:"number"`
	LocalFormat         string `json:"local_format"`
	InternationalFormat string `json:"international_format"`
	CountryPrefix       string `json:"country_prefix"`
	CountryCode         string `json:"country_code"`
	CountryName         string `json:"country_name"`
	Location            string `json:"location"`
	Carrier             string `json:"carrier"`
	LineType            string `json:"line_type"`

	Success *bool `json:"success"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// Lookup validates a phone target.
func (c *Client) Lookup(ctx context.Context, target domain.Target) (domain.Payload, error) {
	phone, err := source.Value(target, domain.TargetPhone)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}
	if c.key == "" {
		return nil, serrors.With(serrors.ErrUnauthorized, "no numverify API key provided")
	}

	q := url.Values{
		"access_key":   {c.key},
		"number":       {phone},
		"country_code": {""},
		"format":       {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/validate?"+q.Encode(), nil)
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
	if resp.StatusCode != http.StatusOK {
		return nil, source.HTTPStatusError(resp.StatusCode, b)
	}

	var res validateResponse
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	// apilayer reports API errors with a 200 status
	if res.Error != nil || (res.Success != nil && !*res.Success) {
		if res.Error == nil {
			return nil, serrors.With(serrors.ErrInternal, "numverify request failed")
		}
		kind := serrors.ErrInternal
		switch res.Error.Code {
		case 101:
			kind = serrors.ErrUnauthorized
		case 104, 106:
			kind = serrors.ErrRateLimited
		case 210, 211:
			kind = serrors.ErrBadRequest
		}

		return nil, serrors.With(kind, "numverify %s: %s", res.Error.Type, res.Error.Info)
	}

	return &domain.PhonePayload{
		Number:              res.Number,
		Valid:               res.Valid,
		LocalFormat:         res.LocalFormat,
		InternationalFormat: res.InternationalFormat,
		CountryPrefix:       res.CountryPrefix,
		CountryCode:         res.CountryCode,
		CountryName:         res.CountryName,
		Location:            res.Location,
		Carrier:             res.Carrier,
		LineType:            res.LineType,
	}, nil
}

var _ source.Source = (*Client)(nil)

// New constructs a Client. An empty baseURL selects DefaultBaseURL.
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
