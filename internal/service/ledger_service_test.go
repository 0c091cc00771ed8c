package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/vanshika/fintrace/txindex/internal/config"
	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/index"
	"github.com/vanshika/fintrace/txindex/internal/logging"
)

func newTestService(t *testing.T, cfg config.IndexConfig) *LedgerService {
	t.Helper()
	return NewLedgerService(cfg, logging.Discard(), nil)
}

func seed(t *testing.T, svc *LedgerService, recs ...domain.Transaction) {
	t.Helper()
	for _, rec := range recs {
		if _, err := svc.InsertTransaction(rec); err != nil {
			t.Fatalf("seed %s: %v", rec.ID, err)
		}
	}
}

func ptr(v float64) *float64 { return &v }

func TestLedgerService_InsertValidatesAndNormalizes(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	fraud := true

	outcome, err := svc.Insert(TransactionInput{
		ID:         "  T-0000000000000000001  ",
		Amount:     99,
		DeviceUsed: "mobile\t phone",
		IsFraud:    &fraud,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome != index.Inserted {
		t.Fatalf("expected inserted, got %s", outcome)
	}

	tx, ok := svc.Get("T-0000000000000")
	if !ok {
		t.Fatalf("expected truncated id to be indexed")
	}
	if tx.DeviceUsed != "mobile phone" {
		t.Errorf("expected collapsed whitespace, got %q", tx.DeviceUsed)
	}
	if !tx.FraudLabeled || !tx.IsFraud {
		t.Errorf("expected fraud label to be carried, got %+v", tx)
	}

	if _, err := svc.Insert(TransactionInput{ID: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank id, got %v", err)
	}
	if _, err := svc.Insert(TransactionInput{ID: "T2", Amount: math.Inf(1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for infinite amount, got %v", err)
	}
}

func TestLedgerService_DuplicateAndDelete(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	seed(t, svc, domain.Transaction{ID: "T1", Amount: 1})

	outcome, err := svc.InsertTransaction(domain.Transaction{ID: "T1", Amount: 2})
	if err != nil || outcome != index.AlreadyPresent {
		t.Fatalf("expected already_present, got %s (%v)", outcome, err)
	}
	if !svc.Delete("T1") {
		t.Fatalf("expected T1 to be deleted")
	}
	if svc.Delete("T1") {
		t.Fatalf("expected second delete to report absent")
	}
	if _, ok := svc.Get("T1"); ok {
		t.Fatalf("expected T1 to be gone")
	}
}

func TestLedgerService_CapacityExceeded(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{Capacity: 1})
	seed(t, svc, domain.Transaction{ID: "T1"})

	_, err := svc.InsertTransaction(domain.Transaction{ID: "T2"})
	if !errors.Is(err, index.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if shape := svc.Shape(); shape.Records != 1 || shape.Capacity != 1 {
		t.Fatalf("unexpected shape %+v", shape)
	}
}

func TestLedgerService_ListPaginates(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	for i := 5; i >= 1; i-- {
		seed(t, svc, domain.Transaction{ID: fmt.Sprintf("T%d", i)})
	}

	page, err := svc.List(context.Background(), ListParams{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "T3" || page.Items[1].ID != "T4" {
		t.Fatalf("unexpected page items %+v", page.Items)
	}
	if page.Pagination.TotalItems != 5 || page.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}

	page, err = svc.List(context.Background(), ListParams{Page: 9, PageSize: 2})
	if err != nil || len(page.Items) != 0 {
		t.Fatalf("expected empty page beyond the end, got %d items (%v)", len(page.Items), err)
	}

	page, err = svc.List(context.Background(), ListParams{Page: math.MaxInt, PageSize: 10})
	if err != nil || len(page.Items) != 0 {
		t.Fatalf("expected empty page for an overflowing offset, got %d items (%v)", len(page.Items), err)
	}
	if page.Pagination.Page != math.MaxInt || page.Pagination.TotalItems != 5 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}

	filtered, err := svc.Filter(context.Background(), FilterParams{Page: math.MaxInt / 3, PageSize: maxPageSize, Sort: "amount_asc"})
	if err != nil || len(filtered.Items) != 0 {
		t.Fatalf("expected empty filtered page for an overflowing offset, got %d items (%v)", len(filtered.Items), err)
	}
}

func TestLedgerService_Filter(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	seed(t, svc,
		domain.Transaction{ID: "A", Amount: 300, Location: "Recife"},
		domain.Transaction{ID: "B", Amount: 100, Location: "Recife"},
		domain.Transaction{ID: "C", Amount: 200, Location: "Natal"},
		domain.Transaction{ID: "D", Amount: 50, Location: "Recife"},
	)
	ctx := context.Background()

	page, err := svc.Filter(ctx, FilterParams{MinAmount: ptr(100), Field: "location", Value: "Recife", Sort: "amount_desc"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var got []string
	for _, tx := range page.Items {
		got = append(got, tx.ID)
	}
	if fmt.Sprint(got) != "[A B]" {
		t.Fatalf("expected [A B], got %v", got)
	}

	if _, err := svc.Filter(ctx, FilterParams{Field: "colour", Value: "red"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown field, got %v", err)
	}
	if _, err := svc.Filter(ctx, FilterParams{Sort: "sideways"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown sort, got %v", err)
	}
	if _, err := svc.Filter(ctx, FilterParams{MinAmount: ptr(10), MaxAmount: ptr(5)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted bounds, got %v", err)
	}

	all, err := svc.FilterAll(ctx, FilterParams{Field: "location", Value: "Recife", Sort: "amount_asc"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got = got[:0]
	for _, tx := range all {
		got = append(got, tx.ID)
	}
	if fmt.Sprint(got) != "[D B A]" {
		t.Fatalf("expected [D B A], got %v", got)
	}
	if _, err := svc.FilterAll(ctx, FilterParams{Sort: "sideways"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown sort, got %v", err)
	}
}

func TestLedgerService_StatisticsAndGroups(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	ctx := context.Background()

	if _, ok, err := svc.Statistics(ctx); err != nil || ok {
		t.Fatalf("expected empty statistics, got ok=%v err=%v", ok, err)
	}

	seed(t, svc,
		domain.Transaction{ID: "T1", Amount: 10, DeviceUsed: "mobile"},
		domain.Transaction{ID: "T2", Amount: 20, DeviceUsed: "mobile"},
		domain.Transaction{ID: "T3", Amount: 30, DeviceUsed: "web"},
	)

	summary, ok, err := svc.Statistics(ctx)
	if err != nil || !ok {
		t.Fatalf("expected statistics, got ok=%v err=%v", ok, err)
	}
	if summary.Mean != 20 || summary.Median != 20 {
		t.Errorf("unexpected summary %+v", summary)
	}

	groups, err := svc.Groups(ctx, "device")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(groups) != 2 || groups[0].Key != "mobile" || groups[0].Count != 2 || groups[0].Mean != 15 {
		t.Fatalf("unexpected groups %+v", groups)
	}

	groups, err = svc.Groups(ctx, "colour")
	if err != nil || len(groups) != 1 || groups[0].Key != domain.UndefinedValue || groups[0].Count != 3 {
		t.Fatalf("expected single undefined bucket, got %+v (%v)", groups, err)
	}
}

func TestLedgerService_StatisticsSeesOwnWrites(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("S%d-%02d", w, i)
				if _, err := svc.InsertTransaction(domain.Transaction{ID: id, Amount: 1}); err != nil {
					t.Errorf("insert %s: %v", id, err)
					return
				}
				summary, ok, err := svc.Statistics(ctx)
				if err != nil || !ok {
					t.Errorf("statistics after %s: ok=%v err=%v", id, ok, err)
					return
				}
				if summary.Count < i+1 {
					t.Errorf("statistics after %s missed own writes: count %d", id, summary.Count)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	seed(t, svc, domain.Transaction{ID: "Z", Amount: 1})
	summary, _, _ := svc.Statistics(ctx)
	if summary.Count != 401 {
		t.Fatalf("expected 401 records, got %d", summary.Count)
	}
	svc.Delete("Z")
	summary, _, _ = svc.Statistics(ctx)
	if summary.Count != 400 {
		t.Fatalf("expected 400 records after delete, got %d", summary.Count)
	}
	svc.Clear()
	if _, ok, _ := svc.Statistics(ctx); ok {
		t.Fatalf("expected empty statistics after clear")
	}
}

func TestLedgerService_CancelledContext(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.List(ctx, ListParams{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, _, err := svc.Statistics(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLedgerService_SuspectedFraud(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	seed(t, svc,
		domain.Transaction{ID: "A", Amount: 20000, DeviceUsed: "web"},
		domain.Transaction{ID: "B", Amount: 10, DeviceUsed: "unknown"},
		domain.Transaction{ID: "C", Amount: 10000, DeviceUsed: "mobile"},
	)

	flagged, err := svc.SuspectedFraud(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(flagged) != 2 || flagged[0].ID != "A" || flagged[1].ID != "B" {
		t.Fatalf("unexpected flagged records %+v", flagged)
	}
}

func TestLedgerService_ConcurrentAccess(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("W%d-%03d", w, i)
				if _, err := svc.InsertTransaction(domain.Transaction{ID: id, Amount: float64(i)}); err != nil {
					t.Errorf("insert %s: %v", id, err)
					return
				}
				if i%10 == 0 {
					_, _, _ = svc.Statistics(ctx)
					svc.Delete(id)
				}
			}
		}(w)
	}
	wg.Wait()

	if err := svc.Check(); err != nil {
		t.Fatalf("expected invariants to hold, got %v", err)
	}
	if shape := svc.Shape(); shape.Records != 8*180 {
		t.Fatalf("expected %d records, got %d", 8*180, shape.Records)
	}
}

func TestLedgerService_SnapshotAllowsMutation(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	seed(t, svc, domain.Transaction{ID: "A"}, domain.Transaction{ID: "B"}, domain.Transaction{ID: "C"})

	var seen []string
	for tx := range svc.All() {
		seen = append(seen, tx.ID)
		svc.Delete(tx.ID)
	}
	if fmt.Sprint(seen) != "[A B C]" {
		t.Fatalf("expected snapshot order [A B C], got %v", seen)
	}
	if svc.Shape().Records != 0 || svc.Clear() != 0 {
		t.Fatalf("expected empty index after deletes")
	}
}
