package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"osint/internal/correlator"
	"osint/internal/export"
	"osint/pkg/domain"
)

func sampleEnvelopes() []domain.Envelope {
	yes := true

	return []domain.Envelope{
		domain.NewEnvelope("example.com", &domain.WhoisPayload{
			DomainName:          "example.com",
			Org:                 "Example, Inc.",
			RegistrarAbuseEmail: "abuse@example.com",
			NameServers:         []string{"ns1.example.com"},
		}),
		domain.NewEnvelope("example.com", &domain.DNSPayload{Records: map[string]domain.DNSAnswer{
			domain.RecordA: domain.DNSValues("93.184.216.34"),
		}}),
		domain.NewEnvelope("alice", &domain.UsernamePayload{Sites: []domain.SiteCheck{
			{URL: "https://github.com/alice", Exists: &yes},
		}}),
	}
}

type memorySink struct {
	files map[string][]byte
	err   error
}

func (m *memorySink) Put(_ context.Context, name string, body []byte, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = body

	return "mem://" + name, nil
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()

	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)

	return rows
}

func TestWriteEntities_RoundTrip(t *testing.T) {
	set, _ := correlator.Extract(sampleEnvelopes())

	var buf bytes.Buffer
	require.NoError(t, export.WriteEntities(&buf, set))
	rows := readCSV(t, buf.Bytes())

	require.Equal(t, []string{"Entity", "Type"}, rows[0])
	require.Len(t, rows, set.Total()+1)

	seen := domain.NewEntitySet()
	for _, row := range rows[1:] {
		e := domain.Entity{Category: domain.Category(row[1]), Value: row[0]}
		require.True(t, set.Has(e), "unknown entity %v", e)
		require.True(t, seen.Add(e), "duplicate entity %v", e)
	}
	require.Equal(t, set.Entities(), seen.Entities())
}

func TestWriteRelations(t *testing.T) {
	_, rels := correlator.Extract(sampleEnvelopes())

	var buf bytes.Buffer
	require.NoError(t, export.WriteRelations(&buf, rels))
	rows := readCSV(t, buf.Bytes())

	require.Equal(t, [][]string{
		{"Source", "Target", "Relationship"},
		{"example.com", "abuse@example.com", "registrar_email"},
		{"example.com", "Example, Inc.", "owned_by"},
		{"example.com", "ns1.example.com", "uses_nameserver"},
		{"example.com", "93.184.216.34", "resolves_to"},
		{"alice", "github.com", "account_on"},
	}, rows)
}

func TestTabular_EmptyWritesHeaders(t *testing.T) {
	set, rels := correlator.Extract(nil)
	sink := &memorySink{}

	res, err := export.Tabular{Sink: sink}.Export(context.Background(), "run", set, rels)
	require.NoError(t, err)

	require.Equal(t, &export.TabularResult{
		EntitiesFile:   "mem://run_entities.csv",
		RelationsFile:  "mem://run_relations.csv",
		TotalEntities:  0,
		TotalRelations: 0,
	}, res)
	require.Equal(t, "Entity,Type\n", string(sink.files["run_entities.csv"]))
	require.Equal(t, "Source,Target,Relationship\n", string(sink.files["run_relations.csv"]))
}

func TestTabular_LocalSink(t *testing.T) {
	dir := t.TempDir()
	set, rels := correlator.Extract(sampleEnvelopes())

	res, err := export.Tabular{Sink: export.LocalSink{Dir: dir}}.Export(context.Background(), "reports/case1", set, rels)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "reports", "case1_entities.csv"), res.EntitiesFile)
	require.Equal(t, set.Total(), res.TotalEntities)
	require.Equal(t, len(rels), res.TotalRelations)

	b, err := os.ReadFile(res.RelationsFile)
	require.NoError(t, err)
	require.Len(t, readCSV(t, b), len(rels)+1)
}

func TestTabular_SinkError(t *testing.T) {
	set, rels := correlator.Extract(sampleEnvelopes())
	sinkErr := errors.New("disk full")

	_, err := export.Tabular{Sink: &memorySink{err: sinkErr}}.Export(context.Background(), "run", set, rels)
	require.ErrorIs(t, err, sinkErr)
}

func TestNewBaseName(t *testing.T) {
	a, err := export.NewBaseName("osint")
	require.NoError(t, err)
	b, err := export.NewBaseName("osint")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Regexp(t, `^osint_[A-Za-z0-9_-]{21}$`, a)
}
