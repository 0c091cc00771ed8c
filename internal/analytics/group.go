// Package analytics derives groupings, summary statistics and filtered views
// from an ordered source of transactions.
package analytics

import (
	"iter"
	"maps"
	"slices"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

// Source yields transactions in ascending ID order. *index.Tree satisfies it.
type Source interface {
	All() iter.Seq[domain.Transaction]
}

// Group accumulates the records sharing one field value.
type Group struct {
	Count uint64
	Sum   float64
}

// Mean returns Sum / Count, or 0 for an empty group.
func (g Group) Mean() float64 {
	if g.Count == 0 {
		return 0
	}
	return g.Sum / float64(g.Count)
}

// KeyedGroup pairs a group with its field value.
type KeyedGroup struct {
	Key string
	Group
}

// GroupBy buckets every record by the value of field. An undefined field
// puts every record into the single domain.UndefinedValue bucket.
func GroupBy(src Source, field domain.Field) map[string]Group {
	groups := make(map[string]Group)
	for tx := range src.All() {
		key := tx.Value(field)
		g := groups[key]
		g.Count++
		g.Sum += tx.Amount
		groups[key] = g
	}
	return groups
}

// SortedGroups flattens groups into a slice ordered by key.
func SortedGroups(groups map[string]Group) []KeyedGroup {
	out := make([]KeyedGroup, 0, len(groups))
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		out = append(out, KeyedGroup{Key: key, Group: groups[key]})
	}
	return out
}
