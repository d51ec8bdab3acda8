package export_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"osint/internal/correlator"
	"osint/internal/export"
	"osint/pkg/domain"
	"osint/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	os.Exit(m.Run())
}

func TestVisualize_NoData(t *testing.T) {
	g := correlator.Correlate(nil).Graph

	v := export.Visualize(g, correlator.DefaultLayoutOptions())

	require.True(t, v.Empty())
	require.Equal(t, export.Visualization{Error: export.NoDataError}, v)
}

func TestVisualize(t *testing.T) {
	g := correlator.Correlate(sampleEnvelopes()).Graph

	v := export.Visualize(g, correlator.DefaultLayoutOptions())

	require.False(t, v.Empty())
	require.Equal(t, g.NodeCount(), v.NodeCount)
	require.Equal(t, g.EdgeCount(), v.EdgeCount)
	require.Len(t, v.Nodes, g.NodeCount())
	require.Len(t, v.Edges, g.EdgeCount())
	require.Len(t, v.Legend, 8)
	require.Equal(t, 2, v.Entities[domain.CategoryDomain])

	for _, n := range v.Nodes {
		require.Equal(t, export.Color(n.Category), n.Color)
		require.LessOrEqual(t, len([]rune(n.Label)), 20)
	}
	for _, e := range v.Edges {
		require.Less(t, e.Source, len(v.Nodes))
		require.Less(t, e.Target, len(v.Nodes))
		require.NotEmpty(t, e.Label)
	}

	again := export.Visualize(correlator.Correlate(sampleEnvelopes()).Graph, correlator.DefaultLayoutOptions())
	require.Equal(t, v, again)
}

func TestColor(t *testing.T) {
	require.Equal(t, "#90EE90", export.Color(domain.CategoryDomain))
	require.Equal(t, "#F0E68C", export.Color(domain.CategoryNameserver))
	require.Equal(t, "#CCCCCC", export.Color("vehicles"))
}

func TestDisplayLabel(t *testing.T) {
	require.Equal(t, "example.com", export.DisplayLabel("example.com"))
	require.Equal(t, "exactly-twenty-chars", export.DisplayLabel("exactly-twenty-chars"))
	require.Equal(t, "twenty-one-charac...", export.DisplayLabel("twenty-one-characters"))
	require.Equal(t, strings.Repeat("ñ", 17)+"...", export.DisplayLabel(strings.Repeat("ñ", 21)))
}
