package correlator

import (
	"osint/pkg/domain"
)

// MaxLabelLength bounds the node labels stored in the graph.
const MaxLabelLength = 30

// Node is a graph vertex: one entity plus its display label.
type Node struct {
	Entity domain.Entity
	Label  string
}

// Edge is a directed, labeled graph edge. From and To index Graph.Nodes.
type Edge struct {
	From     int
	To       int
	Relation string
}

// Graph is a directed multigraph over entities. Parallel edges and cycles
// are kept as they are. A Graph is built once and never mutated.
type Graph struct {
	nodes []Node
	edges []Edge
	index map[domain.Entity]int
	out   [][]int
	in    [][]int
}

// Build adds one node per entity in canonical order and one edge per
// relationship in order. An endpoint that is missing from the set gets a node
// of its own, appended after the set's entities.
func Build(set *domain.EntitySet, rels []domain.Relationship) *Graph {
	g := &Graph{index: make(map[domain.Entity]int)}
	if set != nil {
		for _, e := range set.Entities() {
			g.node(e)
		}
	}

	for _, r := range rels {
		from, to := g.node(r.Source), g.node(r.Target)
		g.edges = append(g.edges, Edge{From: from, To: to, Relation: r.Relation})
		id := len(g.edges) - 1
		g.out[from] = append(g.out[from], id)
		g.in[to] = append(g.in[to], id)
	}

	return g
}

// node returns the index of the entity's node, inserting it if needed.
func (g *Graph) node(e domain.Entity) int {
	if i, ok := g.index[e]; ok {
		return i
	}
	g.nodes = append(g.nodes, Node{Entity: e, Label: truncate(e.Value, MaxLabelLength)})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	i := len(g.nodes) - 1
	g.index[e] = i

	return i
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges, parallel edges included.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns the nodes in insertion order. The slice must not be modified.
func (g *Graph) Nodes() []Node { return g.nodes }

// Edges returns the edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []Edge { return g.edges }

// Node returns the node of an entity.
func (g *Graph) Node(e domain.Entity) (Node, bool) {
	i, ok := g.index[e]
	if !ok {
		return Node{}, false
	}

	return g.nodes[i], true
}

// OutDegree returns the number of edges leaving the entity's node.
func (g *Graph) OutDegree(e domain.Entity) int {
	i, ok := g.index[e]
	if !ok {
		return 0
	}

	return len(g.out[i])
}

// InDegree returns the number of edges entering the entity's node.
func (g *Graph) InDegree(e domain.Entity) int {
	i, ok := g.index[e]
	if !ok {
		return 0
	}

	return len(g.in[i])
}

// EdgesBetween returns every edge from a to b, in insertion order.
func (g *Graph) EdgesBetween(a, b domain.Entity) []Edge {
	from, ok := g.index[a]
	if !ok {
		return nil
	}
	to, ok := g.index[b]
	if !ok {
		return nil
	}

	var out []Edge
	for _, id := range g.out[from] {
		if g.edges[id].To == to {
			out = append(out, g.edges[id])
		}
	}

	return out
}

// Breakdown returns the node count per category, omitting empty ones.
func (g *Graph) Breakdown() map[domain.Category]int {
	out := make(map[domain.Category]int)
	for _, n := range g.nodes {
		out[n.Entity.Category]++
	}

	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}
