package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/index"
	"github.com/vanshika/fintrace/txindex/internal/ingest"
)

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := Config{NumTransactions: 200, NumAccounts: 20, AnomalyChance: 0.2, Seed: 7}

	a, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	b, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestGenerateKeysAreUniqueAndShuffled(t *testing.T) {
	records, err := New(Config{NumTransactions: 500, Seed: 3}).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 500)

	pattern := regexp.MustCompile(`^T\d{6}$`)
	seen := make(map[string]struct{}, len(records))
	sorted := true
	for i, tx := range records {
		require.Regexp(t, pattern, tx.ID)
		seen[tx.ID] = struct{}{}
		if i > 0 && records[i-1].ID > tx.ID {
			sorted = false
		}
	}
	require.Len(t, seen, 500)
	require.False(t, sorted, "keys should not arrive in ascending order")
}

func TestGenerateUUIDKeys(t *testing.T) {
	records, err := New(Config{NumTransactions: 50, UUIDKeys: true, Seed: 11}).Generate(context.Background())
	require.NoError(t, err)
	hex := regexp.MustCompile(`^[0-9a-f]+$`)
	seen := make(map[string]struct{}, len(records))
	for _, tx := range records {
		require.Len(t, tx.ID, domain.MaxIDLen)
		require.Regexp(t, hex, tx.ID)
		seen[tx.ID] = struct{}{}
	}
	require.Len(t, seen, len(records))
}

func TestGenerateProducesAnomalies(t *testing.T) {
	records, err := New(Config{NumTransactions: 2000, AnomalyChance: 0.5, UnknownDeviceChance: 0.1, Seed: 5}).Generate(context.Background())
	require.NoError(t, err)

	var negative, oversized, unknown int
	for _, tx := range records {
		require.True(t, tx.FraudLabeled)
		switch {
		case tx.Amount < 0:
			negative++
		case tx.Amount > domain.SuspiciousAmount:
			oversized++
		}
		if tx.DeviceUsed == domain.UnknownDevice {
			unknown++
		}
	}
	require.Positive(t, negative)
	require.Positive(t, oversized)
	require.Positive(t, unknown)
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{NumTransactions: 10, Seed: 1}).Generate(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestWriteDatasetLoadsIntoIndex(t *testing.T) {
	records, err := New(Config{NumTransactions: 300, Seed: 9}).Generate(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "transactions.csv")
	require.NoError(t, WriteDataset(records, path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	tree := index.New()
	dec := ingest.NewDecoder(file)
	for {
		tx, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		_, err = tree.Insert(tx)
		require.NoError(t, err)
	}
	require.Equal(t, len(records), tree.Len())
	require.NoError(t, tree.Check())

	for _, want := range records[:10] {
		got, ok := tree.Search(want.ID)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestEncodeUnlabeled(t *testing.T) {
	records, err := New(Config{NumTransactions: 5, Unlabeled: true, Seed: 2}).Generate(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, records))

	dec := ingest.NewDecoder(&buf)
	for range records {
		tx, err := dec.Decode()
		require.NoError(t, err)
		require.False(t, tx.FraudLabeled)
	}
}
