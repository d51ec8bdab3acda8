package domain

// FindingHighConnectivity flags a domain that is the source of many relationships.
const FindingHighConnectivity = "high_connectivity"

// Finding is a heuristic correlation signal derived from the relationship graph.
type Finding struct {
	Type        string `json:"type"`
	Entity      string `json:"entity"`
	Connections int    `json:"connections"`
	Note        string `json:"note"`
}

// ReportSummary aggregates entity and relationship counts.
type ReportSummary struct {
	TotalEntities      int              `json:"total_entities"`
	TotalRelationships int              `json:"total_relationships"`
	EntityBreakdown    map[Category]int `json:"entity_breakdown"`
}

// CorrelationReport is the read-only summary of one correlation run.
type CorrelationReport struct {
	Summary       ReportSummary         `json:"summary"`
	Entities      map[Category][]string `json:"entities"`
	Relationships []RelationshipView    `json:"relationships"`
	Correlations  []Finding             `json:"correlations"`
}
