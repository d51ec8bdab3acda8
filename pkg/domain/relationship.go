package domain

// Relation labels produced by the built-in extraction rules. Labels are open
// strings: new source modules may introduce their own.
const (
	RelationRegistrarEmail = "registrar_email"
	RelationOwnedBy        = "owned_by"
	RelationUsesNameserver = "uses_nameserver"
	RelationResolvesTo     = "resolves_to"
	RelationNameserver     = "nameserver"
	RelationBelongsTo      = "belongs_to"
	RelationHostname       = "hostname"
	RelationLocatedIn      = "located_in"
	RelationAccountOn      = "account_on"
	RelationRegisteredIn   = "registered_in"
)

// Relationship is a directed, labeled association between two entities.
// Relationships are never deduplicated: the same triple may appear several
// times and each occurrence counts.
type Relationship struct {
	Source   Entity
	Target   Entity
	Relation string
}

// RelationshipView is the flat form of a relationship used in reports.
type RelationshipView struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// View flattens the relationship to its endpoint values and label.
func (r Relationship) View() RelationshipView {
	return RelationshipView{
		Source: r.Source.Value,
		Target: r.Target.Value,
		Type:   r.Relation,
	}
}
