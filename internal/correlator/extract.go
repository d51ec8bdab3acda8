// Package correlator turns the envelopes of a collection run into typed
// entities and relationships, assembles them into a directed multigraph and
// derives correlation findings from it. Everything in this package is pure:
// no I/O, no shared state, no errors.
package correlator

import (
	"fmt"
	"net/url"
	"strings"

	"osint/pkg/domain"
)

const (
	// maxNameservers caps how many WHOIS name servers are linked to a domain.
	maxNameservers = 3
	// maxHostnames caps how many Shodan host names are linked to an IP.
	maxHostnames = 3
)

// extraction accumulates entities and relationships across envelopes.
type extraction struct {
	entities      *domain.EntitySet
	relationships []domain.Relationship
}

// add inserts an entity built from raw and reports it. ok is false when the
// value is empty after normalization.
func (x *extraction) add(c domain.Category, raw string) (domain.Entity, bool) {
	e, ok := domain.NewEntity(c, raw)
	if !ok {
		return domain.Entity{}, false
	}
	x.entities.Add(e)

	return e, true
}

// link inserts the target entity and records a relationship from source to it.
func (x *extraction) link(source domain.Entity, c domain.Category, raw, relation string) {
	target, ok := x.add(c, raw)
	if !ok {
		return
	}
	x.relationships = append(x.relationships, domain.Relationship{
		Source:   source,
		Target:   target,
		Relation: relation,
	})
}

// Extract applies the extraction rule of each envelope's module and returns
// the accumulated entity set and relationships in extraction order. Failed
// envelopes, unknown modules and payloads that do not match their module are
// skipped.
func Extract(envelopes []domain.Envelope) (*domain.EntitySet, []domain.Relationship) {
	x := &extraction{entities: domain.NewEntitySet()}
	for i := range envelopes {
		x.envelope(&envelopes[i])
	}

	return x.entities, x.relationships
}

func (x *extraction) envelope(env *domain.Envelope) {
	if env.Error != "" || env.Payload == nil {
		return
	}

	switch env.Module {
	case domain.ModuleWhois:
		x.whois(env)
	case domain.ModuleDNS:
		x.dns(env)
	case domain.ModuleShodanHost:
		x.shodan(env)
	case domain.ModuleUsernameCheck:
		x.username(env)
	case domain.ModulePhoneLookup:
		x.phone(env)
	case domain.ModuleExifMetadata:
		x.exif(env)
	case domain.ModuleHTTPMeta, domain.ModuleError:
		// no entities
	default:
		// modules this build does not know contribute nothing
	}
}

func (x *extraction) whois(env *domain.Envelope) {
	p, ok := env.Payload.(*domain.WhoisPayload)
	if !ok || p == nil {
		return
	}
	d, ok := x.add(domain.CategoryDomain, p.DomainName)
	if !ok {
		return
	}

	x.link(d, domain.CategoryEmail, p.RegistrarAbuseEmail, domain.RelationRegistrarEmail)
	x.link(d, domain.CategoryOrganization, p.Org, domain.RelationOwnedBy)
	for i, ns := range p.NameServers {
		if i == maxNameservers {
			break
		}
		x.link(d, domain.CategoryNameserver, ns, domain.RelationUsesNameserver)
	}
}

func (x *extraction) dns(env *domain.Envelope) {
	p, ok := env.Payload.(*domain.DNSPayload)
	if !ok || p == nil || len(p.Records) == 0 {
		return
	}
	d, ok := x.add(domain.CategoryDomain, env.Input)
	if !ok {
		return
	}

	if a := p.Records[domain.RecordA]; a.IsList() {
		for _, ip := range a.Values {
			x.link(d, domain.CategoryIP, ip, domain.RelationResolvesTo)
		}
	}
	if ns := p.Records[domain.RecordNS]; ns.IsList() {
		for _, v := range ns.Values {
			x.link(d, domain.CategoryNameserver, v, domain.RelationNameserver)
		}
	}
}

func (x *extraction) shodan(env *domain.Envelope) {
	p, ok := env.Payload.(*domain.ShodanPayload)
	if !ok || p == nil {
		return
	}
	ip, ok := x.add(domain.CategoryIP, p.IP)
	if !ok {
		return
	}

	x.link(ip, domain.CategoryOrganization, p.Organization, domain.RelationBelongsTo)
	for i, h := range p.Hostnames {
		if i == maxHostnames {
			break
		}
		x.link(ip, domain.CategoryDomain, h, domain.RelationHostname)
	}

	city, country := strings.TrimSpace(p.City), strings.TrimSpace(p.Country)
	if city != "" && country != "" {
		x.link(ip, domain.CategoryLocation, city+", "+country, domain.RelationLocatedIn)
	}
}

func (x *extraction) username(env *domain.Envelope) {
	p, ok := env.Payload.(*domain.UsernamePayload)
	if !ok || p == nil || len(p.Sites) == 0 {
		return
	}
	u, ok := x.add(domain.CategoryUsername, env.Input)
	if !ok {
		return
	}

	for _, site := range p.Sites {
		if !site.Confirmed() {
			continue
		}
		if host := PlatformHost(site.URL); host != "" {
			x.link(u, domain.CategoryDomain, host, domain.RelationAccountOn)
		}
	}
}

func (x *extraction) phone(env *domain.Envelope) {
	p, ok := env.Payload.(*domain.PhonePayload)
	if !ok || p == nil {
		return
	}
	ph, ok := x.add(domain.CategoryPhone, p.Number)
	if !ok {
		return
	}

	x.link(ph, domain.CategoryLocation, p.Location, domain.RelationRegisteredIn)
}

// exif only records locations: images are not entities, so there is nothing
// to link a GPS fix to.
func (x *extraction) exif(env *domain.Envelope) {
	p, ok := env.Payload.(*domain.ExifPayload)
	if !ok || p == nil {
		return
	}

	for _, img := range p.Images {
		if img.Metadata == nil || img.Metadata.GPS == nil {
			continue
		}
		gps := img.Metadata.GPS
		if gps.Latitude == nil || gps.Longitude == nil {
			continue
		}
		x.add(domain.CategoryLocation, FormatCoordinates(*gps.Latitude, *gps.Longitude))
	}
}

// FormatCoordinates renders a GPS fix as "lat, lon" with four decimals.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// PlatformHost returns the host of a profile URL without a leading "www.".
// It returns an empty string when the URL has no http(s) scheme or no host.
func PlatformHost(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if host == "" {
		return ""
	}

	return host
}
