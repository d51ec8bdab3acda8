package dnslookup_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"osint/pkg/domain"
	"osint/pkg/source/dnslookup"
)

type exchangeFunc func(m *dns.Msg, address string) (*dns.Msg, error)

func (f exchangeFunc) ExchangeContext(_ context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error) {
	r, err := f(m, address)

	return r, time.Millisecond, err
}

func hdr(name string, t uint16) dns.RR_Header {
	return dns.RR_Header{Name: name, Rrtype: t, Class: dns.ClassINET, Ttl: 300}
}

func TestResolver_Lookup(t *testing.T) {
	var servers []string
	client := exchangeFunc(func(m *dns.Msg, address string) (*dns.Msg, error) {
		servers = append(servers, address)
		q := m.Question[0]
		require.Equal(t, "example.com.", q.Name)

		resp := new(dns.Msg)
		resp.SetReply(m)
		switch q.Qtype {
		case dns.TypeA:
			resp.Answer = []dns.RR{
				&dns.CNAME{Hdr: hdr(q.Name, dns.TypeCNAME), Target: "edge.example.net."},
				&dns.A{Hdr: hdr(q.Name, dns.TypeA), A: net.ParseIP("93.184.216.34")},
			}
		case dns.TypeAAAA:
			resp.Answer = []dns.RR{&dns.AAAA{Hdr: hdr(q.Name, dns.TypeAAAA), AAAA: net.ParseIP("2606:2800:220:1::1")}}
		case dns.TypeMX:
			resp.Answer = []dns.RR{&dns.MX{Hdr: hdr(q.Name, dns.TypeMX), Preference: 10, Mx: "mail.example.com."}}
		case dns.TypeNS:
			resp.Answer = []dns.RR{
				&dns.NS{Hdr: hdr(q.Name, dns.TypeNS), Ns: "a.iana-servers.net."},
				&dns.NS{Hdr: hdr(q.Name, dns.TypeNS), Ns: "b.iana-servers.net."},
			}
		case dns.TypeTXT:
			resp.Rcode = dns.RcodeServerFailure
		}

		return resp, nil
	})
	r := dnslookup.New(client, []string{"192.0.2.53", "192.0.2.54:5353"})

	res, err := r.Lookup(context.Background(), domain.Target{Kind: domain.TargetDomain, Value: "example.com"})
	require.NoError(t, err)
	p := res.(*domain.DNSPayload)

	require.Equal(t, []string{"93.184.216.34"}, p.Records[domain.RecordA].Values)
	require.Equal(t, []string{"2606:2800:220:1::1"}, p.Records[domain.RecordAAAA].Values)
	require.Equal(t, []string{"10 mail.example.com."}, p.Records[domain.RecordMX].Values)
	require.Equal(t, []string{"a.iana-servers.net.", "b.iana-servers.net."}, p.Records[domain.RecordNS].Values)
	require.False(t, p.Records[domain.RecordTXT].IsList())
	require.Equal(t, "SERVFAIL: example.com.", p.Records[domain.RecordTXT].Error)
	for _, s := range servers {
		require.Equal(t, "192.0.2.53:53", s)
	}
}

func TestResolver_FallsBackToNextResolver(t *testing.T) {
	client := exchangeFunc(func(m *dns.Msg, address string) (*dns.Msg, error) {
		if address == "192.0.2.53:53" {
			return nil, errors.New("i/o timeout")
		}
		resp := new(dns.Msg)
		resp.SetReply(m)
		if m.Question[0].Qtype == dns.TypeTXT {
			resp.Answer = []dns.RR{&dns.TXT{Hdr: hdr(m.Question[0].Name, dns.TypeTXT), Txt: []string{"v=spf1 -all"}}}
		}

		return resp, nil
	})

	res, err := dnslookup.New(client, []string{"192.0.2.53", "192.0.2.54"}).
		Lookup(context.Background(), domain.Target{Kind: domain.TargetDomain, Value: "example.com"})
	require.NoError(t, err)
	p := res.(*domain.DNSPayload)

	require.Equal(t, []string{`"v=spf1 -all"`}, p.Records[domain.RecordTXT].Values)
	require.Equal(t, "no A answer for example.com.", p.Records[domain.RecordA].Error)
}

func TestResolver_AllResolversFail(t *testing.T) {
	client := exchangeFunc(func(*dns.Msg, string) (*dns.Msg, error) {
		return nil, errors.New("network unreachable")
	})

	res, err := dnslookup.New(client, nil).
		Lookup(context.Background(), domain.Target{Kind: domain.TargetDomain, Value: "example.com"})
	require.NoError(t, err)
	p := res.(*domain.DNSPayload)

	require.Len(t, p.Records, 5)
	for _, rt := range dnslookup.RecordTypes() {
		require.Contains(t, p.Records[rt].Error, "1.1.1.1:53: network unreachable")
	}
}
