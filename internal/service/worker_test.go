package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vanshika/fintrace/txindex/internal/config"
	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/graph"
	"github.com/vanshika/fintrace/txindex/internal/index"
	"github.com/vanshika/fintrace/txindex/internal/repository"
)

const datasetHeader = "transaction_id,timestamp,sender_account,receiver_account,amount,transaction_type,merchant_category,location,device_used,is_fraud\n"

func TestBulkIngestor_IngestReader(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	ingestor := NewBulkIngestor(svc, 2)

	input := datasetHeader +
		"T2,2024-01-02 10:00:00,A1,A2,200,pix,food,Recife,mobile,False\n" +
		"T1,2024-01-01 10:00:00,A2,A3,100,pix,food,Natal,web,True\n" +
		"T2,2024-01-03 10:00:00,A9,A9,999,pix,food,Recife,mobile,False\n" +
		"T3,broken\n"

	report, err := ingestor.IngestReader(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Inserted != 2 || report.Duplicates != 1 || report.Skipped != 1 || report.Evicted != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	tx, ok := svc.Get("T2")
	if !ok || tx.Amount != 200 {
		t.Fatalf("expected first occurrence of T2 to win, got %+v", tx)
	}
}

func TestBulkIngestor_StopsWhenFull(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{Capacity: 1})
	ingestor := NewBulkIngestor(svc, 1)

	input := datasetHeader +
		"T1,ts,A,B,1,pix,food,Recife,web\n" +
		"T2,ts,A,B,2,pix,food,Recife,web\n"

	report, err := ingestor.IngestReader(context.Background(), strings.NewReader(input))
	if !errors.Is(err, index.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if report.Inserted != 1 {
		t.Fatalf("expected 1 insert before failure, got %+v", report)
	}
}

func TestBulkIngestor_EvictionIsReported(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{Capacity: 2, EvictMinimum: true})
	ingestor := NewBulkIngestor(svc, 1)

	var b strings.Builder
	b.WriteString(datasetHeader)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "T%d,ts,A,B,%d,pix,food,Recife,web\n", i, i)
	}

	report, err := ingestor.IngestReader(context.Background(), strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Inserted != 5 || report.Evicted != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, ok := svc.Get("T5"); !ok {
		t.Fatalf("expected newest record to be kept")
	}
}

func TestBulkIngestor_IngestFile(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	ingestor := NewBulkIngestor(svc, 1)

	path := filepath.Join(t.TempDir(), "tx.csv")
	if err := os.WriteFile(path, []byte(datasetHeader+"T1,ts,A,B,1,pix,food,Recife,web,False\n"), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	report, err := ingestor.IngestFile(context.Background(), path)
	if err != nil || report.Inserted != 1 {
		t.Fatalf("expected one insert, got %+v (%v)", report, err)
	}

	if _, err := ingestor.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

type recordingWriter struct {
	mu      sync.Mutex
	batches [][]repository.TransactionRow
	failOn  string
}

func (w *recordingWriter) WriteBatch(_ context.Context, rows []repository.TransactionRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range rows {
		if row.Transaction.ID == w.failOn {
			return errors.New("boom")
		}
	}
	w.batches = append(w.batches, rows)
	return nil
}

func TestBulkIngestor_ExportGraphBatches(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	for i := 0; i < 7; i++ {
		seed(t, svc, domain.Transaction{ID: fmt.Sprintf("T%d", i), DeviceUsed: "mobile", Amount: float64(i) * 5000})
	}
	ingestor := NewBulkIngestor(svc, 3)
	w := &recordingWriter{}

	n, err := ingestor.ExportGraph(context.Background(), svc, w, 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 7 || len(w.batches) != 3 {
		t.Fatalf("expected 7 records in 3 batches, got %d records in %d batches", n, len(w.batches))
	}

	suspected := 0
	for _, batch := range w.batches {
		for _, row := range batch {
			if len(row.Attributes) == 0 {
				t.Errorf("expected attributes for %s", row.Transaction.ID)
			}
			if row.Suspected {
				suspected++
			}
		}
	}
	// amounts 15000, 20000, 25000, 30000 exceed the threshold
	if suspected != 4 {
		t.Fatalf("expected 4 suspected rows, got %d", suspected)
	}
}

func TestBulkIngestorAggregatesErrors(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	for i := 0; i < 4; i++ {
		seed(t, svc, domain.Transaction{ID: fmt.Sprintf("T%d", i)})
	}
	ingestor := NewBulkIngestor(svc, 2)

	_, err := ingestor.ExportGraph(context.Background(), svc, &recordingWriter{failOn: "T2"}, 1)
	if err == nil {
		t.Fatalf("expected aggregated error, got nil")
	}
	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError type, got %T", err)
	}
	if len(taskErr.Errors) != 1 || !strings.Contains(taskErr.Error(), "batch 2") {
		t.Fatalf("unexpected TaskError %v", taskErr)
	}
}

func TestBulkIngestor_ExportThroughRepository(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	seed(t, svc,
		domain.Transaction{ID: "T1", SenderAccount: "A", ReceiverAccount: "B", DeviceUsed: "mobile"},
		domain.Transaction{ID: "T2", SenderAccount: "B", ReceiverAccount: "C", DeviceUsed: "mobile"},
	)
	mem := graph.NewMemoryClient()

	n, err := NewBulkIngestor(svc, 1).ExportGraph(context.Background(), svc, repository.New(mem), 10)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 exported records, got %d (%v)", n, err)
	}
	if calls := mem.Queries(graph.ModeWrite); len(calls) != 1 {
		t.Fatalf("expected a single batched write, got %d", len(calls))
	}
}

func TestBulkIngestor_ExportCancelled(t *testing.T) {
	svc := newTestService(t, config.IndexConfig{})
	seed(t, svc, domain.Transaction{ID: "T1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewBulkIngestor(svc, 1).ExportGraph(ctx, svc, &recordingWriter{}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultAttributeGenerator(t *testing.T) {
	attrs := DefaultAttributeGenerator{}.FromTransaction(domain.Transaction{
		Timestamp:        "2024-02-10 09:00:00",
		MerchantCategory: " Food ",
		Location:         "Recife",
		DeviceUsed:       "unknown",
	})

	types := make(map[string]string)
	for _, a := range attrs {
		types[a.Type] = a.RawValue
	}
	if _, ok := types[AttributeTypeDevice]; ok {
		t.Errorf("expected unknown device not to link transactions")
	}
	if types[AttributeTypeMerchant] != "food" || types[AttributeTypeLocation] != "recife" {
		t.Errorf("expected normalized attributes, got %v", types)
	}
	if types[AttributeTypeDay] != "2024-02-10" {
		t.Errorf("expected day bucket, got %q", types[AttributeTypeDay])
	}

	if attrs := (DefaultAttributeGenerator{}).FromTransaction(domain.Transaction{Timestamp: "yesterday-ish"}); len(attrs) != 0 {
		t.Errorf("expected no attributes, got %+v", attrs)
	}
}
