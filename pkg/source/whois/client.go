// Package whois provides a source.Source implementation that queries and
// parses WHOIS registration data for a domain.
package whois

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	likewhois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"osint/pkg/domain"
	"osint/pkg/serrors"
	"osint/pkg/source"
)

// Querier returns the raw WHOIS text of a domain. *likewhois.Client
// implements it.
type Querier interface {
	Whois(domain string, servers ...string) (string, error)
}

// Options configure a Client.
type Options struct {
	// Summary drops the raw WHOIS text from payloads.
	Summary bool
}

// Client looks up WHOIS records.
type Client struct {
	querier Querier
	options Options
}

// Module implements source.Source.
func (c *Client) Module() domain.Module { return domain.ModuleWhois }

type queryResult struct {
	text string
	err  error
}

// Lookup queries and parses the WHOIS record of a domain target.
func (c *Client) Lookup(ctx context.Context, target domain.Target) (domain.Payload, error) {
	d, err := source.Value(target, domain.TargetDomain)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	// the whois client has no context support; the query is abandoned, not
	// cancelled, when ctx is done.
	done := make(chan queryResult, 1)
	go func() {
		text, err := c.querier.Whois(d)
		done <- queryResult{text: text, err: err}
	}()

	var res queryResult
	select {
	case <-ctx.Done():
		return nil, serrors.Wrap(serrors.ErrTimeout, ctx.Err(), "whois query abandoned")
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("whois query failed: %w", res.err)
	}

	info, err := whoisparser.Parse(res.text)
	switch {
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return nil, serrors.Wrap(serrors.ErrNotFound, err, "domain not registered")
	case err != nil:
		return nil, fmt.Errorf("could not parse whois record: %w", err)
	}

	out := toPayload(info)
	if !c.options.Summary {
		out.RawText = res.text
	}

	return out, nil
}

func toPayload(info whoisparser.WhoisInfo) *domain.WhoisPayload {
	out := &domain.WhoisPayload{}
	if d := info.Domain; d != nil {
		out.DomainName = d.Domain
		out.CreationDate = d.CreatedDate
		out.ExpirationDate = d.ExpirationDate
		out.UpdatedDate = d.UpdatedDate
		out.NameServers = d.NameServers
		out.Status = d.Status
		out.DNSSEC = "unsigned"
		if d.DNSSec {
			out.DNSSEC = "signed"
		}
	}
	if r := info.Registrar; r != nil {
		out.Registrar = r.Name
	}
	if r := info.Registrant; r != nil {
		out.Org = r.Organization
		out.Country = r.Country
	}
	for _, c := range []*whoisparser.Contact{info.Registrar, info.Registrant, info.Administrative, info.Technical} {
		if c != nil && c.Email != "" {
			out.RegistrarAbuseEmail = strings.ToLower(c.Email)

			break
		}
	}

	return out
}

var _ source.Source = (*Client)(nil)

// New constructs a Client on top of querier.
func New(querier Querier, options Options) *Client {
	return &Client{querier: querier, options: options}
}

// NewQuerier returns a WHOIS client with the given network timeout.
func NewQuerier(timeout time.Duration) *likewhois.Client {
	return likewhois.NewClient().SetTimeout(timeout)
}
