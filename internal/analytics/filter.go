package analytics

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

type predicateKind int

const (
	kindAmountAtLeast predicateKind = iota + 1
	kindAmountAtMost
	kindFieldEquals
	kindAnd
)

// Predicate selects transactions either by an amount threshold or by exact
// equality of one text field.
type Predicate struct {
	kind      predicateKind
	threshold float64
	field     domain.Field
	value     string
	all       []Predicate
}

// AmountAtLeast matches amounts >= min.
func AmountAtLeast(min float64) Predicate {
	return Predicate{kind: kindAmountAtLeast, threshold: min}
}

// AmountAtMost matches amounts <= max.
func AmountAtMost(max float64) Predicate {
	return Predicate{kind: kindAmountAtMost, threshold: max}
}

// FieldEquals matches records whose field equals value exactly. An undefined
// field matches nothing.
func FieldEquals(field domain.Field, value string) Predicate {
	return Predicate{kind: kindFieldEquals, field: field, value: value}
}

// And matches records satisfying every one of ps. And() matches everything.
func And(ps ...Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return Predicate{kind: kindAnd, all: ps}
}

// Match reports whether tx satisfies p. The zero Predicate matches everything.
func (p Predicate) Match(tx domain.Transaction) bool {
	switch p.kind {
	case kindAmountAtLeast:
		return tx.Amount >= p.threshold
	case kindAmountAtMost:
		return tx.Amount <= p.threshold
	case kindFieldEquals:
		return p.field.Valid() && tx.Value(p.field) == p.value
	case kindAnd:
		for _, q := range p.all {
			if !q.Match(tx) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (p Predicate) String() string {
	switch p.kind {
	case kindAmountAtLeast:
		return fmt.Sprintf("amount >= %g", p.threshold)
	case kindAmountAtMost:
		return fmt.Sprintf("amount <= %g", p.threshold)
	case kindFieldEquals:
		return fmt.Sprintf("%s == %q", p.field, p.value)
	case kindAnd:
		parts := make([]string, len(p.all))
		for i, q := range p.all {
			parts[i] = q.String()
		}
		return strings.Join(parts, " && ")
	default:
		return "all"
	}
}

// Order is the secondary ordering applied to a filtered subsequence.
type Order int

const (
	// OrderKey keeps the ascending ID order of the source.
	OrderKey Order = iota
	OrderAmountAsc
	OrderAmountDesc
	OrderTimestamp
)

// ParseOrder maps a textual selector to an Order. The empty string is OrderKey.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id", "key":
		return OrderKey, nil
	case "amount", "amount_asc":
		return OrderAmountAsc, nil
	case "amount_desc":
		return OrderAmountDesc, nil
	case "timestamp", "time":
		return OrderTimestamp, nil
	default:
		return OrderKey, fmt.Errorf("unknown sort order %q", s)
	}
}

func (o Order) String() string {
	switch o {
	case OrderAmountAsc:
		return "amount_asc"
	case OrderAmountDesc:
		return "amount_desc"
	case OrderTimestamp:
		return "timestamp"
	default:
		return "id"
	}
}

// Filter yields the records of src matching p. With OrderKey the result is
// produced lazily in ID order; any other order collects the matches and
// stable-sorts them before yielding, leaving src untouched.
func Filter(src Source, p Predicate, order Order) iter.Seq[domain.Transaction] {
	matches := func(yield func(domain.Transaction) bool) {
		for tx := range src.All() {
			if p.Match(tx) && !yield(tx) {
				return
			}
		}
	}
	if order == OrderKey {
		return matches
	}

	return func(yield func(domain.Transaction) bool) {
		sorted := slices.Collect(iter.Seq[domain.Transaction](matches))
		slices.SortStableFunc(sorted, compareFor(order))
		for _, tx := range sorted {
			if !yield(tx) {
				return
			}
		}
	}
}

func compareFor(order Order) func(a, b domain.Transaction) int {
	switch order {
	case OrderAmountDesc:
		return func(a, b domain.Transaction) int { return cmp.Compare(b.Amount, a.Amount) }
	case OrderTimestamp:
		return func(a, b domain.Transaction) int { return strings.Compare(a.Timestamp, b.Timestamp) }
	default:
		return func(a, b domain.Transaction) int { return cmp.Compare(a.Amount, b.Amount) }
	}
}
