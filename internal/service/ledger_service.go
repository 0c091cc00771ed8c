package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vanshika/fintrace/txindex/internal/analytics"
	"github.com/vanshika/fintrace/txindex/internal/config"
	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/index"
	"github.com/vanshika/fintrace/txindex/internal/metrics"
)

// LedgerService owns one transaction index and serialises access to it so the
// index can be shared by concurrent callers such as HTTP handlers.
type LedgerService struct {
	mu      sync.RWMutex
	tree    *index.Tree
	logger  *slog.Logger
	metrics *metrics.Recorder
	stats   singleflight.Group
}

const statsKey = "summary"

type summaryResult struct {
	summary analytics.Summary
	ok      bool
}

// NewLedgerService builds an empty index sized by cfg. A nil recorder gets a
// private registry.
func NewLedgerService(cfg config.IndexConfig, logger *slog.Logger, rec *metrics.Recorder) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.New(nil)
	}
	opts := []index.Option{index.WithCapacity(cfg.Capacity), index.WithObserver(rec)}
	if cfg.EvictMinimum {
		opts = append(opts, index.WithEvictMinimum())
	}
	return &LedgerService{
		tree:    index.New(opts...),
		logger:  logger.With("component", "ledger"),
		metrics: rec,
	}
}

func (s *LedgerService) observe(op, outcome string, start time.Time) {
	s.metrics.Observe(op, outcome, time.Since(start))
}

// Insert validates input and adds it to the index.
func (s *LedgerService) Insert(input TransactionInput) (index.InsertOutcome, error) {
	tx, err := input.ToDomain()
	if err != nil {
		return 0, err
	}
	return s.InsertTransaction(tx)
}

// InsertTransaction adds an already normalized record to the index.
func (s *LedgerService) InsertTransaction(tx domain.Transaction) (index.InsertOutcome, error) {
	start := time.Now()
	s.mu.Lock()
	outcome, err := s.tree.Insert(tx)
	s.metrics.SetShape(s.tree.Len(), s.tree.Height())
	s.mu.Unlock()

	if err != nil {
		s.observe("insert", "error", start)
		return 0, fmt.Errorf("insert %s: %w", tx.ID, err)
	}
	if outcome == index.Inserted {
		s.stats.Forget(statsKey)
	}
	s.observe("insert", outcome.String(), start)
	s.logger.Debug("insert", "id", tx.ID, "outcome", outcome.String())
	return outcome, nil
}

// Get looks up one record by ID.
func (s *LedgerService) Get(id string) (domain.Transaction, bool) {
	start := time.Now()
	s.mu.RLock()
	tx, ok := s.tree.Search(id)
	s.mu.RUnlock()

	outcome := "hit"
	if !ok {
		outcome = "miss"
	}
	s.observe("search", outcome, start)
	return tx, ok
}

// Delete removes the record with the given ID and reports whether it existed.
func (s *LedgerService) Delete(id string) bool {
	start := time.Now()
	s.mu.Lock()
	removed := s.tree.Delete(id)
	s.metrics.SetShape(s.tree.Len(), s.tree.Height())
	s.mu.Unlock()

	outcome := "deleted"
	if removed {
		s.stats.Forget(statsKey)
	} else {
		outcome = "absent"
	}
	s.observe("delete", outcome, start)
	s.logger.Debug("delete", "id", id, "outcome", outcome)
	return removed
}

// Clear drops every record and returns how many were released.
func (s *LedgerService) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.tree.Clear()
	s.metrics.SetShape(0, 0)
	s.stats.Forget(statsKey)
	s.logger.Info("index cleared", "released", n)
	return n
}

// List returns one page of records in ascending ID order.
func (s *LedgerService) List(ctx context.Context, params ListParams) (TransactionsPage, error) {
	if err := ctx.Err(); err != nil {
		return TransactionsPage{}, err
	}
	page, pageSize := normalizePagination(params.Page, params.PageSize)

	s.mu.RLock()
	defer s.mu.RUnlock()
	items, total := paginate(s.tree.All(), page, pageSize)
	return TransactionsPage{
		Items:      items,
		Pagination: buildPaginationMeta(page, pageSize, total),
	}, nil
}

// Filter returns one page of the records matching params.
func (s *LedgerService) Filter(ctx context.Context, params FilterParams) (TransactionsPage, error) {
	if err := ctx.Err(); err != nil {
		return TransactionsPage{}, err
	}
	pred, err := buildPredicate(params)
	if err != nil {
		return TransactionsPage{}, err
	}
	order, err := analytics.ParseOrder(params.Sort)
	if err != nil {
		return TransactionsPage{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	page, pageSize := normalizePagination(params.Page, params.PageSize)

	start := time.Now()
	s.mu.RLock()
	items, total := paginate(analytics.Filter(s.tree, pred, order), page, pageSize)
	s.mu.RUnlock()
	s.observe("filter", order.String(), start)

	s.logger.Debug("filter", "predicate", pred.String(), "order", order.String(), "matches", total)
	return TransactionsPage{
		Items:      items,
		Pagination: buildPaginationMeta(page, pageSize, total),
	}, nil
}

// FilterAll returns every record matching params, ignoring pagination.
func (s *LedgerService) FilterAll(ctx context.Context, params FilterParams) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pred, err := buildPredicate(params)
	if err != nil {
		return nil, err
	}
	order, err := analytics.ParseOrder(params.Sort)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	start := time.Now()
	s.mu.RLock()
	out := slices.Collect(analytics.Filter(s.tree, pred, order))
	s.mu.RUnlock()
	s.observe("filter", order.String(), start)
	return out, nil
}

// Statistics summarizes every amount in the index. Concurrent callers share a
// single traversal, and every successful write forgets the traversal in
// flight, so a caller always sees its own earlier writes. ok is false when
// the index is empty.
func (s *LedgerService) Statistics(ctx context.Context) (analytics.Summary, bool, error) {
	if err := ctx.Err(); err != nil {
		return analytics.Summary{}, false, err
	}
	v, _, shared := s.stats.Do(statsKey, func() (any, error) {
		start := time.Now()
		s.mu.RLock()
		summary, ok := analytics.Summarize(s.tree)
		s.mu.RUnlock()
		s.observe("stats", "computed", start)
		return summaryResult{summary: summary, ok: ok}, nil
	})
	if shared {
		s.logger.Debug("statistics shared with concurrent caller")
	}
	res := v.(summaryResult)
	return res.summary, res.ok, nil
}

// Groups buckets the records by the named field, sorted by key. An unknown
// field name yields a single "undefined" bucket holding every record.
func (s *LedgerService) Groups(ctx context.Context, fieldName string) ([]GroupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	field := domain.ParseField(fieldName)

	start := time.Now()
	s.mu.RLock()
	groups := analytics.GroupBy(s.tree, field)
	s.mu.RUnlock()
	s.observe("group", field.String(), start)

	sorted := analytics.SortedGroups(groups)
	out := make([]GroupResult, 0, len(sorted))
	for _, g := range sorted {
		out = append(out, GroupResult{Key: g.Key, Count: g.Count, Sum: g.Sum, Mean: g.Mean()})
	}
	return out, nil
}

// SuspectedFraud returns the records flagged by the fraud heuristic in ID order.
func (s *LedgerService) SuspectedFraud(ctx context.Context) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for tx := range s.tree.All() {
		if tx.SuspectedFraud() {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Shape reports the index size and height.
func (s *LedgerService) Shape() Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Shape{Records: s.tree.Len(), Height: s.tree.Height(), Capacity: s.tree.Capacity()}
}

// Check verifies the index invariants.
func (s *LedgerService) Check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Check()
}

// All yields a snapshot of the index in ascending ID order. The snapshot is
// taken under the read lock, so the caller may mutate the service while
// ranging over it.
func (s *LedgerService) All() iter.Seq[domain.Transaction] {
	return func(yield func(domain.Transaction) bool) {
		s.mu.RLock()
		snapshot := make([]domain.Transaction, 0, s.tree.Len())
		for tx := range s.tree.All() {
			snapshot = append(snapshot, tx)
		}
		s.mu.RUnlock()

		for _, tx := range snapshot {
			if !yield(tx) {
				return
			}
		}
	}
}

func buildPredicate(params FilterParams) (analytics.Predicate, error) {
	var preds []analytics.Predicate
	if params.MinAmount != nil {
		preds = append(preds, analytics.AmountAtLeast(*params.MinAmount))
	}
	if params.MaxAmount != nil {
		if params.MinAmount != nil && *params.MaxAmount < *params.MinAmount {
			return analytics.Predicate{}, fmt.Errorf("%w: maxAmount below minAmount", ErrInvalidInput)
		}
		preds = append(preds, analytics.AmountAtMost(*params.MaxAmount))
	}
	if params.Field != "" {
		field := domain.ParseField(params.Field)
		if !field.Valid() {
			return analytics.Predicate{}, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, params.Field)
		}
		preds = append(preds, analytics.FieldEquals(field, params.Value))
	}
	return analytics.And(preds...), nil
}

// paginate drains seq, keeping the items of the requested page and counting
// the rest. A page whose offset overflows is past the end.
func paginate(seq iter.Seq[domain.Transaction], page, pageSize int) ([]domain.Transaction, int64) {
	offset := int64(math.MaxInt64)
	if int64(page-1) <= math.MaxInt64/int64(pageSize) {
		offset = int64(page-1) * int64(pageSize)
	}
	items := make([]domain.Transaction, 0, pageSize)
	var total int64
	for tx := range seq {
		if total >= offset && len(items) < pageSize {
			items = append(items, tx)
		}
		total++
	}
	return items, total
}
