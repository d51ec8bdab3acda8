package correlator_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"osint/internal/correlator"
	"osint/pkg/domain"
)

func ptr[T any](v T) *T { return &v }

func rel(src domain.Entity, dst domain.Entity, label string) domain.Relationship {
	return domain.Relationship{Source: src, Target: dst, Relation: label}
}

func ent(c domain.Category, v string) domain.Entity {
	return domain.Entity{Category: c, Value: v}
}

func TestExtract_Whois(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("example.com", &domain.WhoisPayload{
			DomainName:          "example.com",
			Org:                 "Example Org",
			RegistrarAbuseEmail: "abuse@example.com",
			NameServers:         []string{"ns1.example.com"},
		}),
	})

	require.Equal(t, []string{"example.com"}, set.Values(domain.CategoryDomain))
	require.Equal(t, []string{"Example Org"}, set.Values(domain.CategoryOrganization))
	require.Equal(t, []string{"abuse@example.com"}, set.Values(domain.CategoryEmail))
	require.Equal(t, []string{"ns1.example.com"}, set.Values(domain.CategoryNameserver))
	require.Equal(t, 4, set.Total())

	d := ent(domain.CategoryDomain, "example.com")
	require.ElementsMatch(t, []domain.Relationship{
		rel(d, ent(domain.CategoryOrganization, "Example Org"), domain.RelationOwnedBy),
		rel(d, ent(domain.CategoryEmail, "abuse@example.com"), domain.RelationRegistrarEmail),
		rel(d, ent(domain.CategoryNameserver, "ns1.example.com"), domain.RelationUsesNameserver),
	}, rels)
}

func TestExtract_WhoisNameserverCap(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("example.com", &domain.WhoisPayload{
			DomainName:  "EXAMPLE.com",
			NameServers: []string{"NS1.example.com.", "ns2.example.com", "ns3.example.com", "ns4.example.com"},
		}),
	})

	require.Equal(t, []string{"ns1.example.com", "ns2.example.com", "ns3.example.com"},
		set.Values(domain.CategoryNameserver))
	require.Len(t, rels, 3)
	require.Equal(t, "example.com", rels[0].Source.Value)
}

func TestExtract_WhoisWithoutDomain(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("example.com", &domain.WhoisPayload{
			Org:         "Example Org",
			NameServers: []string{"ns1.example.com"},
		}),
	})

	require.Zero(t, set.Total())
	require.Empty(t, rels)
}

func TestExtract_DNS(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("example.com", &domain.DNSPayload{Records: map[string]domain.DNSAnswer{
			domain.RecordA:  domain.DNSValues("93.184.216.34"),
			domain.RecordNS: {Error: "timeout"},
			domain.RecordMX: domain.DNSValues("10 mail.example.com."),
		}}),
	})

	require.Equal(t, []string{"93.184.216.34"}, set.Values(domain.CategoryIP))
	require.Zero(t, set.Count(domain.CategoryNameserver))
	require.Equal(t, []domain.Relationship{
		rel(ent(domain.CategoryDomain, "example.com"), ent(domain.CategoryIP, "93.184.216.34"), domain.RelationResolvesTo),
	}, rels)
}

func TestExtract_DNSNameservers(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("example.com", &domain.DNSPayload{Records: map[string]domain.DNSAnswer{
			domain.RecordA:  {Error: "no such host"},
			domain.RecordNS: domain.DNSValues("a.iana-servers.net.", "b.iana-servers.net."),
		}}),
	})

	require.Equal(t, []string{"a.iana-servers.net", "b.iana-servers.net"}, set.Values(domain.CategoryNameserver))
	require.Len(t, rels, 2)
	for _, r := range rels {
		require.Equal(t, domain.RelationNameserver, r.Relation)
	}
}

func TestExtract_Shodan(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("8.8.8.8", &domain.ShodanPayload{
			IP:           "8.8.8.8",
			Organization: "Google LLC",
			Hostnames:    []string{"dns.google", "a.google", "b.google", "c.google"},
			City:         "Mountain View",
			Country:      "United States",
		}),
	})

	ip := ent(domain.CategoryIP, "8.8.8.8")
	require.Equal(t, []string{"a.google", "b.google", "dns.google"}, set.Values(domain.CategoryDomain))
	require.Equal(t, []string{"Mountain View, United States"}, set.Values(domain.CategoryLocation))
	require.Equal(t, []domain.Relationship{
		rel(ip, ent(domain.CategoryOrganization, "Google LLC"), domain.RelationBelongsTo),
		rel(ip, ent(domain.CategoryDomain, "dns.google"), domain.RelationHostname),
		rel(ip, ent(domain.CategoryDomain, "a.google"), domain.RelationHostname),
		rel(ip, ent(domain.CategoryDomain, "b.google"), domain.RelationHostname),
		rel(ip, ent(domain.CategoryLocation, "Mountain View, United States"), domain.RelationLocatedIn),
	}, rels)
}

func TestExtract_ShodanPartialLocation(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("1.1.1.1", &domain.ShodanPayload{IP: "1.1.1.1", Country: "Australia"}),
	})

	require.Zero(t, set.Count(domain.CategoryLocation))
	require.Equal(t, 1, set.Total())
	require.Empty(t, rels)
}

func TestExtract_Username(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("alice", &domain.UsernamePayload{Sites: []domain.SiteCheck{
			{URL: "https://github.com/alice", Exists: ptr(true)},
			{URL: "https://www.reddit.com/user/alice", Exists: ptr(false)},
			{URL: "https://www.tiktok.com/@alice", Exists: nil},
			{URL: "https://www.instagram.com/alice", Exists: ptr(true)},
			{URL: "not a url", Exists: ptr(true)},
		}}),
	})

	u := ent(domain.CategoryUsername, "alice")
	require.Equal(t, []string{"alice"}, set.Values(domain.CategoryUsername))
	require.Equal(t, []domain.Relationship{
		rel(u, ent(domain.CategoryDomain, "github.com"), domain.RelationAccountOn),
		rel(u, ent(domain.CategoryDomain, "instagram.com"), domain.RelationAccountOn),
	}, rels)
	for _, r := range rels {
		require.True(t, set.Has(r.Target))
	}
}

// Confirmed platforms become domain entities too, so account_on edges never
// point at a node missing from the entity tables.
func TestCorrelate_UsernamePlatformsAreDomains(t *testing.T) {
	res := correlator.Correlate([]domain.Envelope{
		domain.NewEnvelope("alice", &domain.UsernamePayload{Sites: []domain.SiteCheck{
			{URL: "https://github.com/alice", Exists: ptr(true)},
		}}),
	})

	require.Equal(t, []string{"alice"}, res.Entities.Values(domain.CategoryUsername))
	require.Equal(t, []string{"github.com"}, res.Entities.Values(domain.CategoryDomain))
	require.Equal(t, 2, res.Entities.Total())
	require.Equal(t, []domain.Relationship{
		rel(ent(domain.CategoryUsername, "alice"), ent(domain.CategoryDomain, "github.com"), domain.RelationAccountOn),
	}, res.Relationships)

	require.Equal(t, 2, res.Report.Summary.TotalEntities)
	require.Equal(t, 1, res.Report.Summary.TotalRelationships)
	require.Equal(t, map[domain.Category]int{
		domain.CategoryUsername: 1,
		domain.CategoryDomain:   1,
	}, res.Report.Summary.EntityBreakdown)
	require.Equal(t, 2, res.Graph.NodeCount())
}

func TestExtract_Phone(t *testing.T) {
	set, rels := correlator.Extract([]domain.Envelope{
		domain.NewEnvelope("+14158586273", &domain.PhonePayload{
			Number:   "14158586273",
			Valid:    true,
			Location: "Novato",
		}),
	})

	require.Equal(t, []string{"14158586273"}, set.Values(domain.CategoryPhone))
	require.Equal(t, []domain.Relationship{
		rel(ent(domain.CategoryPhone, "14158586273"), ent(domain.CategoryLocation, "Novato"), domain.RelationRegisteredIn),
	}, rels)
}

func TestExtract_Exif(t *testing.T) {
	env := domain.NewEnvelope("", &domain.ExifPayload{Images: []domain.ImageResult{
		{File: "a.jpg", Status: domain.ImageStatusSuccess, Metadata: &domain.ImageMetadata{
			GPS: &domain.GPSInfo{Latitude: ptr(40.416775), Longitude: ptr(-3.703790)},
		}},
		{File: "b.jpg", Status: domain.ImageStatusSuccess, Metadata: &domain.ImageMetadata{
			GPS: &domain.GPSInfo{Latitude: ptr(0.0), Longitude: ptr(0.0)},
		}},
		{File: "c.jpg", Status: domain.ImageStatusSuccess, Metadata: &domain.ImageMetadata{
			GPS: &domain.GPSInfo{Latitude: ptr(1.0)},
		}},
		{File: "d.jpg", Status: domain.ImageStatusError, Error: "corrupt"},
	}})
	env.Inputs = []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}

	set, rels := correlator.Extract([]domain.Envelope{env})

	require.Equal(t, []string{"0.0000, 0.0000", "40.4168, -3.7038"}, set.Values(domain.CategoryLocation))
	require.Empty(t, rels)
}

func TestExtract_Empty(t *testing.T) {
	set, rels := correlator.Extract(nil)

	require.Zero(t, set.Total())
	require.Empty(t, rels)
	require.Empty(t, set.Breakdown())
}

func TestExtract_SkipsFailedAndUnknown(t *testing.T) {
	envs := []domain.Envelope{
		domain.FailedEnvelope(domain.ModuleWhois, "example.com", nil),
		domain.FailedEnvelope(domain.ModuleError, "example.com", nil),
		{Module: "certificate_transparency", Input: "example.com",
			Payload: domain.RawPayload{Tag: "certificate_transparency", Body: json.RawMessage(`{"names":["a"]}`)}},
		{Module: domain.ModuleHTTPMeta, Input: "example.com", Payload: &domain.HTTPMetaPayload{Title: "Example"}},
		// tag and payload disagree
		{Module: domain.ModuleWhois, Input: "example.com", Payload: &domain.DNSPayload{}},
		{Module: domain.ModuleShodanHost, Input: "1.1.1.1", Payload: (*domain.ShodanPayload)(nil)},
	}

	require.NotPanics(t, func() {
		set, rels := correlator.Extract(envs)
		require.Zero(t, set.Total())
		require.Empty(t, rels)
	})
}

func TestExtract_MalformedStoredPayloads(t *testing.T) {
	raw := `[
		{"module":"whois","input":"example.com","payload":{"domain_name":42}},
		{"module":"whois","input":"example.info","payload":{
			"domain_name":"example.info","org":"Info Org","name_servers":"ns1.example.info"}},
		{"module":"dns","input":"example.com","payload":{"records":{"A":{"error":"SERVFAIL"},"NS":"oops"}}},
		{"module":"dns","input":"example.net","payload":{"records":{"A":["192.0.2.7"],"NS":"oops"}}},
		{"module":"dns","input":"example.org","payload":{"records":{"A":["192.0.2.1"]}}},
		{"module":"username_check","input":"bob","payload":null},
		{"module":"phone_lookup","payload":{"number":""}}
	]`
	var envs []domain.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &envs))

	set, rels := correlator.Extract(envs)

	require.Equal(t, []string{"example.com", "example.info", "example.net", "example.org"},
		set.Values(domain.CategoryDomain))
	require.Empty(t, set.Values(domain.CategoryNameserver))
	require.Equal(t, []domain.Relationship{
		rel(ent(domain.CategoryDomain, "example.info"), ent(domain.CategoryOrganization, "Info Org"), domain.RelationOwnedBy),
		rel(ent(domain.CategoryDomain, "example.net"), ent(domain.CategoryIP, "192.0.2.7"), domain.RelationResolvesTo),
		rel(ent(domain.CategoryDomain, "example.org"), ent(domain.CategoryIP, "192.0.2.1"), domain.RelationResolvesTo),
	}, rels)
}

func TestExtract_IdempotentEntitiesKeepMultiplicity(t *testing.T) {
	whois := domain.NewEnvelope("example.com", &domain.WhoisPayload{
		DomainName: "example.com",
		Org:        "Example Org",
	})

	set, rels := correlator.Extract([]domain.Envelope{whois, whois})

	require.Equal(t, 2, set.Total())
	require.Len(t, rels, 2)
	require.Equal(t, rels[0], rels[1])
}

func TestPlatformHost(t *testing.T) {
	for raw, want := range map[string]string{
		"https://github.com/alice":          "github.com",
		"http://www.reddit.com/user/alice":  "reddit.com",
		"https://www.linkedin.com/in/alice": "linkedin.com",
		"https://example.com:8443/u/alice":  "example.com:8443",
		"ftp://example.com/alice":           "",
		"github.com/alice":                  "",
		"":                                  "",
	} {
		require.Equal(t, want, correlator.PlatformHost(raw), raw)
	}
}
