package export

import (
	"osint/internal/correlator"
	"osint/pkg/domain"
)

const (
	// NoDataError is reported for graphs without nodes.
	NoDataError = "no data"

	unknownColor   = "#CCCCCC"
	maxDisplayLen  = 20
	displayKeepLen = 17
	graphTitle     = "OSINT Correlation Graph"
)

var palette = map[domain.Category]string{
	domain.CategoryDomain:       "#90EE90",
	domain.CategoryIP:           "#FFB6C1",
	domain.CategoryEmail:        "#ADD8E6",
	domain.CategoryPhone:        "#FFD700",
	domain.CategoryUsername:     "#DDA0DD",
	domain.CategoryOrganization: "#FFA07A",
	domain.CategoryLocation:     "#98FB98",
	domain.CategoryNameserver:   "#F0E68C",
}

var legendLabels = map[domain.Category]string{
	domain.CategoryDomain:       "Domains",
	domain.CategoryIP:           "IPs",
	domain.CategoryEmail:        "Emails",
	domain.CategoryPhone:        "Phones",
	domain.CategoryUsername:     "Usernames",
	domain.CategoryOrganization: "Organizations",
	domain.CategoryLocation:     "Locations",
	domain.CategoryNameserver:   "Nameservers",
}

// Color returns the fill color of a category.
func Color(c domain.Category) string {
	if color, ok := palette[c]; ok {
		return color
	}

	return unknownColor
}

// DisplayLabel shortens a node value for drawing.
func DisplayLabel(v string) string {
	r := []rune(v)
	if len(r) <= maxDisplayLen {
		return v
	}

	return string(r[:displayKeepLen]) + "..."
}

// VisualNode is a styled, positioned graph node.
type VisualNode struct {
	ID       int             `json:"id"`
	Value    string          `json:"value"`
	Category domain.Category `json:"type"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
}

// VisualEdge is a labeled edge between two VisualNode IDs.
type VisualEdge struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Label  string `json:"label"`
}

// LegendEntry maps a category to its color.
type LegendEntry struct {
	Category domain.Category `json:"type"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
}

// Visualization is the drawing input for an external renderer. Error is set,
// and nothing else, when there is nothing to draw.
type Visualization struct {
	Error     string                  `json:"error,omitempty"`
	Title     string                  `json:"title,omitempty"`
	Nodes     []VisualNode            `json:"nodes,omitempty"`
	Edges     []VisualEdge            `json:"edges,omitempty"`
	Legend    []LegendEntry           `json:"legend,omitempty"`
	NodeCount int                     `json:"node_count,omitempty"`
	EdgeCount int                     `json:"edge_count,omitempty"`
	Entities  map[domain.Category]int `json:"entities,omitempty"`
}

// Empty reports whether the visualization carries the no data condition.
func (v Visualization) Empty() bool { return v.Error != "" }

// Visualize styles and lays out the graph.
func Visualize(g *correlator.Graph, layout correlator.LayoutOptions) Visualization {
	if g == nil || g.NodeCount() == 0 {
		return Visualization{Error: NoDataError}
	}

	pos := correlator.Layout(g, layout)
	nodes := make([]VisualNode, 0, g.NodeCount())
	for i, n := range g.Nodes() {
		nodes = append(nodes, VisualNode{
			ID:       i,
			Value:    n.Entity.Value,
			Category: n.Entity.Category,
			Label:    DisplayLabel(n.Entity.Value),
			Color:    Color(n.Entity.Category),
			X:        pos[i].X,
			Y:        pos[i].Y,
		})
	}

	edges := make([]VisualEdge, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		edges = append(edges, VisualEdge{Source: e.From, Target: e.To, Label: e.Relation})
	}

	legend := make([]LegendEntry, 0, len(palette))
	for _, c := range domain.Categories() {
		legend = append(legend, LegendEntry{Category: c, Label: legendLabels[c], Color: palette[c]})
	}

	return Visualization{
		Title:     graphTitle,
		Nodes:     nodes,
		Edges:     edges,
		Legend:    legend,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
		Entities:  g.Breakdown(),
	}
}
