package correlator

import "osint/pkg/domain"

// Result is everything derived from one list of envelopes.
type Result struct {
	Entities      *domain.EntitySet
	Relationships []domain.Relationship
	Graph         *Graph
	Report        domain.CorrelationReport
}

// Correlate extracts, builds the graph and analyzes in one pass. Every call
// works on fresh state.
func Correlate(envelopes []domain.Envelope) *Result {
	set, rels := Extract(envelopes)

	return &Result{
		Entities:      set,
		Relationships: rels,
		Graph:         Build(set, rels),
		Report:        Analyze(set, rels),
	}
}
