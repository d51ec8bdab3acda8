package export

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"osint/internal/correlator"
	"osint/pkg/logger"
)

// QueryExecutor runs a Cypher statement.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
	Close(ctx context.Context) error
}

// Neo4jExecutor runs statements on a Bolt server (Neo4j or Memgraph).
type Neo4jExecutor struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jExecutor connects to uri and verifies the connection.
func NewNeo4jExecutor(ctx context.Context, uri, username, password string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)

		return nil, fmt.Errorf("could not reach graph database: %w", err)
	}

	return &Neo4jExecutor{driver: driver}, nil
}

// ExecuteQuery implements QueryExecutor.
func (e *Neo4jExecutor) ExecuteQuery(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	res, err := neo4j.ExecuteQuery(ctx, e.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return res, nil
}

// Close implements QueryExecutor.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.driver.Close(ctx) //nolint: wrapcheck
}

const (
	entityIndexQuery = `CREATE INDEX ON :Entity(value);`

	mergeNodesQuery = `UNWIND $nodes AS n
MERGE (e:Entity {category: n.category, value: n.value})
SET e.label = n.label`

	createEdgesQuery = `UNWIND $edges AS r
MATCH (a:Entity {category: r.source_category, value: r.source})
MATCH (b:Entity {category: r.target_category, value: r.target})
CREATE (a)-[:RELATED {type: r.type, scan: $scan}]->(b)`

	forgetScanQuery = `MATCH ()-[r:RELATED {scan: $scan}]->() DELETE r`
)

// GraphStore pushes correlation graphs into a graph database. Nodes are
// merged across scans; edges are created per scan and keep multiplicity.
type GraphStore struct {
	exec QueryExecutor
}

// NewGraphStore creates a GraphStore on top of exec.
func NewGraphStore(exec QueryExecutor) *GraphStore {
	return &GraphStore{exec: exec}
}

// EnsureIndexes creates the entity index. Failures are logged only: the
// index may already exist and the syntax differs between servers.
func (s *GraphStore) EnsureIndexes(ctx context.Context) {
	if _, err := s.exec.ExecuteQuery(ctx, entityIndexQuery, nil); err != nil {
		logger.Warn(ctx, "could not create graph index", zap.Error(err))
	}
}

// Push writes every node and edge of g tagged with scanID.
func (s *GraphStore) Push(ctx context.Context, scanID string, g *correlator.Graph) error {
	if g == nil || g.NodeCount() == 0 {
		return nil
	}

	graphNodes := g.Nodes()
	nodes := make([]any, 0, len(graphNodes))
	for _, n := range graphNodes {
		nodes = append(nodes, map[string]any{
			"category": string(n.Entity.Category),
			"value":    n.Entity.Value,
			"label":    n.Label,
		})
	}
	if _, err := s.exec.ExecuteQuery(ctx, mergeNodesQuery, map[string]any{"nodes": nodes}); err != nil {
		return fmt.Errorf("could not merge graph nodes: %w", err)
	}

	if g.EdgeCount() == 0 {
		return nil
	}
	edges := make([]any, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		src, dst := graphNodes[e.From].Entity, graphNodes[e.To].Entity
		edges = append(edges, map[string]any{
			"source_category": string(src.Category),
			"source":          src.Value,
			"target_category": string(dst.Category),
			"target":          dst.Value,
			"type":            e.Relation,
		})
	}
	if _, err := s.exec.ExecuteQuery(ctx, createEdgesQuery, map[string]any{"edges": edges, "scan": scanID}); err != nil {
		return fmt.Errorf("could not create graph edges: %w", err)
	}

	logger.Debug(ctx, "graph pushed",
		zap.String("scanID", scanID), zap.Int("nodes", len(nodes)), zap.Int("edges", len(edges)))

	return nil
}

// Forget removes the edges written for scanID.
func (s *GraphStore) Forget(ctx context.Context, scanID string) error {
	if _, err := s.exec.ExecuteQuery(ctx, forgetScanQuery, map[string]any{"scan": scanID}); err != nil {
		return fmt.Errorf("could not remove scan edges: %w", err)
	}

	return nil
}

// Close releases the underlying connection.
func (s *GraphStore) Close(ctx context.Context) error {
	return s.exec.Close(ctx) //nolint: wrapcheck
}
