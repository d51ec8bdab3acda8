package correlator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"osint/internal/correlator"
	"osint/pkg/domain"
)

func TestBuild_ParallelEdgesAndCycles(t *testing.T) {
	d := ent(domain.CategoryDomain, "example.com")
	ns := ent(domain.CategoryNameserver, "ns1.example.com")
	set := domain.NewEntitySet()
	set.Add(d)
	set.Add(ns)
	set.Add(d)

	g := correlator.Build(set, []domain.Relationship{
		rel(d, ns, domain.RelationUsesNameserver),
		rel(d, ns, domain.RelationNameserver),
		rel(d, ns, domain.RelationNameserver),
		rel(ns, d, "serves"),
	})

	require.Equal(t, 2, g.NodeCount())
	require.Equal(t, 4, g.EdgeCount())
	require.Equal(t, 3, g.OutDegree(d))
	require.Equal(t, 1, g.InDegree(d))
	require.Equal(t, 3, g.InDegree(ns))

	between := g.EdgesBetween(d, ns)
	require.Len(t, between, 3)
	require.Equal(t, domain.RelationUsesNameserver, between[0].Relation)
	require.Equal(t, domain.RelationNameserver, between[2].Relation)
	require.Len(t, g.EdgesBetween(ns, d), 1)
}

func TestBuild_NodeOrderAndLabels(t *testing.T) {
	long := strings.Repeat("x", 40) + ".example.com"
	set := domain.NewEntitySet()
	set.Add(ent(domain.CategoryNameserver, "ns1.example.com"))
	set.Add(ent(domain.CategoryIP, "192.0.2.1"))
	set.Add(ent(domain.CategoryDomain, long))
	set.Add(ent(domain.CategoryDomain, "a.example.com"))

	g := correlator.Build(set, nil)

	nodes := g.Nodes()
	require.Len(t, nodes, 4)
	require.Equal(t, "a.example.com", nodes[0].Entity.Value)
	require.Equal(t, long, nodes[1].Entity.Value)
	require.Equal(t, domain.CategoryIP, nodes[2].Entity.Category)
	require.Equal(t, domain.CategoryNameserver, nodes[3].Entity.Category)

	n, ok := g.Node(ent(domain.CategoryDomain, long))
	require.True(t, ok)
	require.Len(t, n.Label, correlator.MaxLabelLength)
	require.Equal(t, long[:correlator.MaxLabelLength], n.Label)
}

func TestBuild_SameValueDifferentCategory(t *testing.T) {
	set := domain.NewEntitySet()
	set.Add(ent(domain.CategoryDomain, "example.com"))
	set.Add(ent(domain.CategoryNameserver, "example.com"))

	g := correlator.Build(set, nil)

	require.Equal(t, 2, g.NodeCount())
}

func TestBuild_MissingEndpointGetsNode(t *testing.T) {
	u := ent(domain.CategoryUsername, "alice")
	set := domain.NewEntitySet()
	set.Add(u)

	g := correlator.Build(set, []domain.Relationship{
		rel(u, ent(domain.CategoryDomain, "github.com"), domain.RelationAccountOn),
	})

	require.Equal(t, 2, g.NodeCount())
	_, ok := g.Node(ent(domain.CategoryDomain, "github.com"))
	require.True(t, ok)
	require.Equal(t, map[domain.Category]int{domain.CategoryUsername: 1, domain.CategoryDomain: 1}, g.Breakdown())
}

func TestBuild_Empty(t *testing.T) {
	g := correlator.Build(domain.NewEntitySet(), nil)

	require.Zero(t, g.NodeCount())
	require.Zero(t, g.EdgeCount())
	require.Empty(t, g.Breakdown())
	require.Zero(t, g.OutDegree(ent(domain.CategoryDomain, "example.com")))
	require.Nil(t, g.EdgesBetween(ent(domain.CategoryDomain, "a"), ent(domain.CategoryDomain, "b")))
}
