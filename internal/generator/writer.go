package generator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/ingest"
)

// WriteDataset serializes the records as CSV with a header line into path,
// creating parent directories as needed.
func WriteDataset(records []domain.Transaction, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := Encode(file, records); err != nil {
		return fmt.Errorf("encode csv for %s: %w", path, err)
	}
	return file.Close()
}

// Encode writes records to w in the ingest CSV form.
func Encode(w io.Writer, records []domain.Transaction) error {
	enc := ingest.NewEncoder(w)
	for _, tx := range records {
		if err := enc.Encode(tx); err != nil {
			return err
		}
	}
	return enc.Flush()
}
