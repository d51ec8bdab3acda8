package correlator

import (
	"sort"

	"osint/pkg/domain"
)

// HighConnectivityThreshold is the number of outgoing relationships a domain
// must exceed to be flagged.
const HighConnectivityThreshold = 2

const highConnectivityNote = "domain with multiple connections"

// Analyze summarizes the entities and relationships of a run and flags every
// domain that is the source of more than HighConnectivityThreshold
// relationships.
func Analyze(set *domain.EntitySet, rels []domain.Relationship) domain.CorrelationReport {
	if set == nil {
		set = domain.NewEntitySet()
	}

	views := make([]domain.RelationshipView, 0, len(rels))
	outgoing := make(map[string]int)
	for _, r := range rels {
		views = append(views, r.View())
		if r.Source.Category == domain.CategoryDomain && set.Has(r.Source) {
			outgoing[r.Source.Value]++
		}
	}

	findings := make([]domain.Finding, 0)
	for d, n := range outgoing {
		if n <= HighConnectivityThreshold {
			continue
		}
		findings = append(findings, domain.Finding{
			Type:        domain.FindingHighConnectivity,
			Entity:      d,
			Connections: n,
			Note:        highConnectivityNote,
		})
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Connections != findings[j].Connections {
			return findings[i].Connections > findings[j].Connections
		}

		return findings[i].Entity < findings[j].Entity
	})

	return domain.CorrelationReport{
		Summary: domain.ReportSummary{
			TotalEntities:      set.Total(),
			TotalRelationships: len(rels),
			EntityBreakdown:    set.Breakdown(),
		},
		Entities:      set.ByCategory(),
		Relationships: views,
		Correlations:  findings,
	}
}
