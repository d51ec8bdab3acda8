// Package export serializes correlation results for external consumers:
// link-analysis CSV tables, graph visualization data and graph databases.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"osint/pkg/domain"
)

const (
	// EntitiesSuffix is appended to the base name of the entity table.
	EntitiesSuffix = "_entities.csv"
	// RelationsSuffix is appended to the base name of the relationship table.
	RelationsSuffix = "_relations.csv"

	csvContentType = "text/csv"
)

// WriteEntities writes the Entity,Type table in canonical entity order.
func WriteEntities(w io.Writer, set *domain.EntitySet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Entity", "Type"}); err != nil {
		return fmt.Errorf("could not write entities header: %w", err)
	}
	if set != nil {
		for _, e := range set.Entities() {
			if err := cw.Write([]string{e.Value, string(e.Category)}); err != nil {
				return fmt.Errorf("could not write entity row: %w", err)
			}
		}
	}
	cw.Flush()

	return cw.Error() //nolint: wrapcheck
}

// WriteRelations writes the Source,Target,Relationship table in extraction order.
func WriteRelations(w io.Writer, rels []domain.Relationship) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Source", "Target", "Relationship"}); err != nil {
		return fmt.Errorf("could not write relations header: %w", err)
	}
	for _, r := range rels {
		if err := cw.Write([]string{r.Source.Value, r.Target.Value, r.Relation}); err != nil {
			return fmt.Errorf("could not write relation row: %w", err)
		}
	}
	cw.Flush()

	return cw.Error() //nolint: wrapcheck
}

// TabularResult describes the two tables written by Tabular.Export.
type TabularResult struct {
	EntitiesFile   string `json:"entities_file"`
	RelationsFile  string `json:"relations_file"`
	TotalEntities  int    `json:"total_entities"`
	TotalRelations int    `json:"total_relations"`
}

// Tabular writes link-analysis tables through a sink.
type Tabular struct {
	Sink ArtifactSink
}

// Export writes <base>_entities.csv and <base>_relations.csv.
func (t Tabular) Export(
	ctx context.Context,
	base string,
	set *domain.EntitySet,
	rels []domain.Relationship) (*TabularResult, error) {
	var entities, relations bytes.Buffer
	if err := WriteEntities(&entities, set); err != nil {
		return nil, err
	}
	if err := WriteRelations(&relations, rels); err != nil {
		return nil, err
	}

	entitiesFile, err := t.Sink.Put(ctx, base+EntitiesSuffix, entities.Bytes(), csvContentType)
	if err != nil {
		return nil, fmt.Errorf("could not store entities table: %w", err)
	}
	relationsFile, err := t.Sink.Put(ctx, base+RelationsSuffix, relations.Bytes(), csvContentType)
	if err != nil {
		return nil, fmt.Errorf("could not store relations table: %w", err)
	}

	total := 0
	if set != nil {
		total = set.Total()
	}

	return &TabularResult{
		EntitiesFile:   entitiesFile,
		RelationsFile:  relationsFile,
		TotalEntities:  total,
		TotalRelations: len(rels),
	}, nil
}
