package correlator_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"osint/internal/correlator"
	"osint/pkg/domain"
)

func sampleGraph() *correlator.Graph {
	return correlator.Correlate([]domain.Envelope{
		domain.NewEnvelope("example.com", &domain.WhoisPayload{
			DomainName:          "example.com",
			Org:                 "Example Org",
			RegistrarAbuseEmail: "abuse@example.com",
			NameServers:         []string{"ns1.example.com", "ns2.example.com"},
		}),
		domain.NewEnvelope("example.com", &domain.DNSPayload{Records: map[string]domain.DNSAnswer{
			domain.RecordA: domain.DNSValues("93.184.216.34"),
		}}),
	}).Graph
}

func TestLayout_Deterministic(t *testing.T) {
	opts := correlator.DefaultLayoutOptions()

	first := correlator.Layout(sampleGraph(), opts)
	second := correlator.Layout(sampleGraph(), opts)

	require.Len(t, first, 6)
	require.Equal(t, first, second)
}

func TestLayout_Bounds(t *testing.T) {
	pos := correlator.Layout(sampleGraph(), correlator.DefaultLayoutOptions())

	maxAbs := 0.0
	for _, p := range pos {
		require.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y))
		require.LessOrEqual(t, math.Abs(p.X), 1+1e-9)
		require.LessOrEqual(t, math.Abs(p.Y), 1+1e-9)
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	require.InDelta(t, 1, maxAbs, 1e-9)
}

func TestLayout_SmallGraphs(t *testing.T) {
	require.Empty(t, correlator.Layout(correlator.Build(domain.NewEntitySet(), nil), correlator.DefaultLayoutOptions()))

	set := domain.NewEntitySet()
	set.Add(ent(domain.CategoryDomain, "example.com"))
	pos := correlator.Layout(correlator.Build(set, nil), correlator.DefaultLayoutOptions())
	require.Equal(t, []correlator.Point{{}}, pos)
}

func TestLayout_SeedChangesPositions(t *testing.T) {
	opts := correlator.DefaultLayoutOptions()
	a := correlator.Layout(sampleGraph(), opts)
	opts.Seed = 7
	b := correlator.Layout(sampleGraph(), opts)

	require.NotEqual(t, a, b)
}
