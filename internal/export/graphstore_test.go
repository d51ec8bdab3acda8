package export_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/require"

	"osint/internal/correlator"
	"osint/internal/export"
)

type recordedQuery struct {
	query  string
	params map[string]any
}

type fakeExecutor struct {
	queries []recordedQuery
	failOn  string
	closed  bool
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	if f.failOn != "" && strings.Contains(query, f.failOn) {
		return nil, errors.New("bolt: connection reset")
	}
	f.queries = append(f.queries, recordedQuery{query: query, params: params})

	return &neo4j.EagerResult{}, nil
}

func (f *fakeExecutor) Close(context.Context) error {
	f.closed = true

	return nil
}

func TestGraphStore_Push(t *testing.T) {
	exec := &fakeExecutor{}
	store := export.NewGraphStore(exec)
	g := correlator.Correlate(sampleEnvelopes()).Graph

	require.NoError(t, store.Push(context.Background(), "scan-1", g))

	require.Len(t, exec.queries, 2)
	require.Contains(t, exec.queries[0].query, "MERGE (e:Entity")
	require.Len(t, exec.queries[0].params["nodes"], g.NodeCount())

	require.Contains(t, exec.queries[1].query, "CREATE (a)-[:RELATED")
	require.Equal(t, "scan-1", exec.queries[1].params["scan"])
	edges, ok := exec.queries[1].params["edges"].([]any)
	require.True(t, ok)
	require.Len(t, edges, g.EdgeCount())
	first, ok := edges[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "domains", first["source_category"])
	require.Equal(t, "example.com", first["source"])
	require.Equal(t, "registrar_email", first["type"])
}

func TestGraphStore_PushEmpty(t *testing.T) {
	exec := &fakeExecutor{}

	require.NoError(t, export.NewGraphStore(exec).Push(context.Background(), "scan-1", correlator.Correlate(nil).Graph))
	require.Empty(t, exec.queries)
}

func TestGraphStore_PushError(t *testing.T) {
	exec := &fakeExecutor{failOn: "CREATE (a)"}

	err := export.NewGraphStore(exec).Push(context.Background(), "scan-1", correlator.Correlate(sampleEnvelopes()).Graph)
	require.ErrorContains(t, err, "could not create graph edges")
}

func TestGraphStore_IndexesForgetClose(t *testing.T) {
	exec := &fakeExecutor{failOn: "CREATE INDEX"}
	store := export.NewGraphStore(exec)

	store.EnsureIndexes(context.Background())
	require.NoError(t, store.Forget(context.Background(), "scan-1"))
	require.NoError(t, store.Close(context.Background()))

	require.Len(t, exec.queries, 1)
	require.Equal(t, "scan-1", exec.queries[0].params["scan"])
	require.True(t, exec.closed)
}
