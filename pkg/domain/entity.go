package domain

import (
	"sort"
	"strings"
)

// Category is the type of an extracted entity. Its string form is the plural
// key used in reports and tabular exports.
type Category string

const (
	CategoryDomain       Category = "domains"
	CategoryIP           Category = "ips"
	CategoryEmail        Category = "emails"
	CategoryPhone        Category = "phones"
	CategoryUsername     Category = "usernames"
	CategoryOrganization Category = "organizations"
	CategoryLocation     Category = "locations"
	CategoryNameserver   Category = "nameservers"
)

// Categories returns the eight entity categories in canonical order.
func Categories() []Category {
	return []Category{
		CategoryDomain,
		CategoryIP,
		CategoryEmail,
		CategoryPhone,
		CategoryUsername,
		CategoryOrganization,
		CategoryLocation,
		CategoryNameserver,
	}
}

// categoryRank orders categories canonically; unknown categories sort last.
func categoryRank(c Category) int {
	for i, known := range Categories() {
		if c == known {
			return i
		}
	}

	return len(Categories())
}

// Entity is a typed value of interest. Two entities are the same when both
// category and value match.
type Entity struct {
	Category Category `json:"type"`
	Value    string   `json:"value"`
}

// NormalizeValue returns the canonical form of a raw value for the category:
// surrounding whitespace is removed, host names are lowercased and stripped of
// the trailing root dot, emails are lowercased.
func NormalizeValue(c Category, raw string) string {
	v := strings.TrimSpace(raw)
	switch c {
	case CategoryDomain, CategoryNameserver:
		v = strings.TrimSuffix(strings.ToLower(v), ".")
	case CategoryEmail:
		v = strings.ToLower(v)
	}

	return v
}

// NewEntity builds an entity from a raw value, normalizing it. The second
// return value is false when nothing is left after normalization.
func NewEntity(c Category, raw string) (Entity, bool) {
	v := NormalizeValue(c, raw)
	if v == "" {
		return Entity{}, false
	}

	return Entity{Category: c, Value: v}, true
}

// Less orders entities by canonical category order, then by value.
func (e Entity) Less(o Entity) bool {
	if e.Category != o.Category {
		return categoryRank(e.Category) < categoryRank(o.Category)
	}

	return e.Value < o.Value
}

// EntitySet stores entities grouped by category. Adding an entity twice is a
// no-op. The zero value is not usable; use NewEntitySet.
type EntitySet struct {
	byCategory map[Category]map[string]struct{}
}

// NewEntitySet returns an empty set.
func NewEntitySet() *EntitySet {
	return &EntitySet{byCategory: make(map[Category]map[string]struct{})}
}

// Add inserts an entity and reports whether it was new.
func (s *EntitySet) Add(e Entity) bool {
	values, ok := s.byCategory[e.Category]
	if !ok {
		values = make(map[string]struct{})
		s.byCategory[e.Category] = values
	}
	if _, exists := values[e.Value]; exists {
		return false
	}
	values[e.Value] = struct{}{}

	return true
}

// Has reports whether the entity is in the set.
func (s *EntitySet) Has(e Entity) bool {
	_, ok := s.byCategory[e.Category][e.Value]

	return ok
}

// Count returns the number of entities of a category.
func (s *EntitySet) Count(c Category) int {
	return len(s.byCategory[c])
}

// Total returns the number of entities across all categories.
func (s *EntitySet) Total() int {
	total := 0
	for _, values := range s.byCategory {
		total += len(values)
	}

	return total
}

// Values returns the sorted values of a category.
func (s *EntitySet) Values(c Category) []string {
	values := make([]string, 0, len(s.byCategory[c]))
	for v := range s.byCategory[c] {
		values = append(values, v)
	}
	sort.Strings(values)

	return values
}

// Entities returns every entity in canonical order.
func (s *EntitySet) Entities() []Entity {
	out := make([]Entity, 0, s.Total())
	for c, values := range s.byCategory {
		for v := range values {
			out = append(out, Entity{Category: c, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })

	return out
}

// Breakdown returns the entity count per category, omitting empty ones.
func (s *EntitySet) Breakdown() map[Category]int {
	out := make(map[Category]int)
	for c, values := range s.byCategory {
		if len(values) > 0 {
			out[c] = len(values)
		}
	}

	return out
}

// ByCategory returns the sorted values of every non-empty category.
func (s *EntitySet) ByCategory() map[Category][]string {
	out := make(map[Category][]string)
	for c, values := range s.byCategory {
		if len(values) > 0 {
			out[c] = s.Values(c)
		}
	}

	return out
}
