// Package dnslookup provides a source.Source implementation that resolves
// the common record types of a domain against fixed public resolvers.
package dnslookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"osint/pkg/domain"
	"osint/pkg/source"
)

// DefaultResolvers are used when none are configured.
func DefaultResolvers() []string { return []string{"8.8.8.8", "1.1.1.1"} }

// RecordTypes are the record types queried, in order.
func RecordTypes() []string {
	return []string{domain.RecordA, domain.RecordAAAA, domain.RecordMX, domain.RecordNS, domain.RecordTXT}
}

var errNoResolvers = errors.New("no resolvers configured")

// Exchanger sends a DNS message to a server. *dns.Client implements it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// Resolver queries each record type separately and records a per-type
// failure instead of failing the whole lookup.
type Resolver struct {
	client    Exchanger
	resolvers []string
}

// Module implements source.Source.
func (r *Resolver) Module() domain.Module { return domain.ModuleDNS }

// Lookup resolves A, AAAA, MX, NS and TXT records of a domain target.
func (r *Resolver) Lookup(ctx context.Context, target domain.Target) (domain.Payload, error) {
	name, err := source.Value(target, domain.TargetDomain)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	out := &domain.DNSPayload{Records: make(map[string]domain.DNSAnswer, len(RecordTypes()))}
	for _, rt := range RecordTypes() {
		values, err := r.resolve(ctx, name, dns.StringToType[rt])
		if err != nil {
			out.Records[rt] = domain.DNSError(err)

			continue
		}
		out.Records[rt] = domain.DNSValues(values...)
	}

	return out, nil
}

// resolve asks each resolver in turn until one answers.
func (r *Resolver) resolve(ctx context.Context, name string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	lastErr := errNoResolvers
	for _, server := range r.resolvers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", server, err)
			if ctx.Err() != nil {
				break
			}

			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("%s: %s", dns.RcodeToString[resp.Rcode], dns.Fqdn(name)) //nolint: err113
		}

		values := answers(resp, qtype)
		if len(values) == 0 {
			return nil, fmt.Errorf("no %s answer for %s", dns.TypeToString[qtype], dns.Fqdn(name)) //nolint: err113
		}

		return values, nil
	}

	return nil, lastErr
}

// answers renders the records of the queried type in presentation form.
func answers(resp *dns.Msg, qtype uint16) []string {
	var out []string
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		case *dns.MX:
			out = append(out, strconv.Itoa(int(v.Preference))+" "+v.Mx)
		case *dns.NS:
			out = append(out, v.Ns)
		case *dns.TXT:
			out = append(out, `"`+strings.Join(v.Txt, `" "`)+`"`)
		}
	}

	return out
}

var _ source.Source = (*Resolver)(nil)

// New constructs a Resolver. Resolver addresses without a port get port 53.
// An empty list selects DefaultResolvers.
func New(client Exchanger, resolvers []string) *Resolver {
	if len(resolvers) == 0 {
		resolvers = DefaultResolvers()
	}
	addrs := make([]string, 0, len(resolvers))
	for _, s := range resolvers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		addrs = append(addrs, s)
	}

	return &Resolver{client: client, resolvers: addrs}
}

// NewClient returns a UDP DNS client with the given timeout.
func NewClient(timeout time.Duration) *dns.Client {
	return &dns.Client{Net: "udp", Timeout: timeout}
}
