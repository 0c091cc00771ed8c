package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/vanshika/fintrace/txindex/internal/analytics"
	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/index"
	"github.com/vanshika/fintrace/txindex/internal/ingest"
	"github.com/vanshika/fintrace/txindex/internal/repository"
)

// TaskError accumulates multiple errors produced during bulk work.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// GraphWriter persists batches of exported transactions.
type GraphWriter interface {
	WriteBatch(ctx context.Context, rows []repository.TransactionRow) error
}

// AttributeGenerator derives link attributes for export.
type AttributeGenerator interface {
	FromTransaction(tx domain.Transaction) []domain.Attribute
}

// Report summarizes one dataset load.
type Report struct {
	Inserted   int
	Duplicates int
	Skipped    int
	// Evicted counts records dropped to respect the index capacity.
	Evicted int
}

// BulkIngestor feeds datasets into a LedgerService and exports its contents
// to the graph using a worker pool.
type BulkIngestor struct {
	service    *LedgerService
	logger     *slog.Logger
	workers    int
	attributes AttributeGenerator
}

// NewBulkIngestor creates a new BulkIngestor with the provided export concurrency.
func NewBulkIngestor(service *LedgerService, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		service:    service,
		logger:     service.logger.With("component", "ingest"),
		workers:    workers,
		attributes: DefaultAttributeGenerator{},
	}
}

// IngestFile loads the dataset at path.
func (bi *BulkIngestor) IngestFile(ctx context.Context, path string) (Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return bi.IngestReader(ctx, file)
}

// IngestReader inserts every well-formed line of r in input order, so the
// first occurrence of a duplicated ID wins. Malformed lines are logged and
// counted. Loading stops at the first read error, at cancellation, or when a
// non-evicting index is full.
func (bi *BulkIngestor) IngestReader(ctx context.Context, r io.Reader) (Report, error) {
	var report Report
	before := bi.service.Shape().Records

	for tx, err := range ingest.NewDecoder(r).All() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		if errors.Is(err, ingest.ErrMalformedLine) {
			report.Skipped++
			bi.service.metrics.SkippedLine()
			bi.logger.Warn("line skipped", "error", err)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("read dataset: %w", err)
		}

		outcome, err := bi.service.InsertTransaction(tx)
		if err != nil {
			return report, err
		}
		if outcome == index.AlreadyPresent {
			report.Duplicates++
			continue
		}
		report.Inserted++
	}

	report.Evicted = before + report.Inserted - bi.service.Shape().Records
	bi.logger.Info("dataset loaded",
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped,
		"evicted", report.Evicted,
	)
	return report, nil
}

// ExportGraph writes every record of src to w in ascending ID order, split
// into batches of batchSize that are written concurrently. It returns the
// number of records handed to the writer.
func (bi *BulkIngestor) ExportGraph(ctx context.Context, src analytics.Source, w GraphWriter, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var (
		batches [][]repository.TransactionRow
		current []repository.TransactionRow
		total   int
	)
	for tx := range src.All() {
		current = append(current, repository.TransactionRow{
			Transaction: tx,
			Attributes:  bi.attributes.FromTransaction(tx),
			Suspected:   tx.SuspectedFraud(),
		})
		total++
		if len(current) == batchSize {
			batches = append(batches, current)
			current = nil
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	bi.logger.Info("exporting to graph", "records", total, "batches", len(batches), "workers", bi.workers)
	err := bi.run(ctx, len(batches), func(idx int) error {
		if err := w.WriteBatch(ctx, batches[idx]); err != nil {
			return fmt.Errorf("batch %d: %w", idx, err)
		}
		return nil
	})
	return total, err
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return taskErr.asError()
}
