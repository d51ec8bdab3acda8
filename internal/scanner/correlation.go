package scanner

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"osint/internal/export"
	"osint/pkg/domain"
)

// GraphSummary describes the size of a scan's relationship graph.
type GraphSummary struct {
	Nodes     int                     `json:"nodes"`
	Edges     int                     `json:"edges"`
	Breakdown map[domain.Category]int `json:"node_breakdown"`
}

// Correlation is the outcome of correlating one completed scan.
type Correlation struct {
	ScanID domain.ScanID            `json:"scan_id"`
	Report domain.CorrelationReport `json:"report"`
	Graph  GraphSummary             `json:"graph"`
	// Export lists the stored tables; nil when no artifact sink is configured.
	Export    *export.TabularResult `json:"export,omitempty"`
	CreatedAt time.Time             `json:"created_at"`

	Visualization export.Visualization  `json:"-"`
	Entities      *domain.EntitySet     `json:"-"`
	Relationships []domain.Relationship `json:"-"`
}

// Cache keeps correlation outcomes in memory, bounded by size and age.
type Cache = expirable.LRU[domain.ScanID, *Correlation]

// NewCache creates a correlation cache holding at most size entries for at
// most ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	return expirable.NewLRU[domain.ScanID, *Correlation](size, nil, ttl)
}
