package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/index"
)

func TestRecorderObservesTree(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := New(reg)

	tree := index.New(index.WithObserver(rec), index.WithCapacity(3), index.WithEvictMinimum())
	for i := 0; i < 5; i++ {
		_, err := tree.Insert(domain.Transaction{ID: fmt.Sprintf("T%d", i)})
		require.NoError(t, err)
	}
	rec.SetShape(tree.Len(), tree.Height())

	require.Equal(t, 2.0, testutil.ToFloat64(rec.evictions))
	require.Positive(t, testutil.ToFloat64(rec.rotations.WithLabelValues(index.RotateLeft.String())))
	require.Equal(t, 3.0, testutil.ToFloat64(rec.records))
	require.Equal(t, 2.0, testutil.ToFloat64(rec.height))
}

func TestObserveCountsOutcomes(t *testing.T) {
	rec := New(nil)
	rec.Observe("insert", "inserted", time.Microsecond)
	rec.Observe("insert", "inserted", time.Microsecond)
	rec.Observe("insert", "already_present", time.Microsecond)
	rec.SkippedLine()

	require.Equal(t, 2.0, testutil.ToFloat64(rec.operations.WithLabelValues("insert", "inserted")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("insert", "already_present")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.skipped))
}

func TestRegistriesAreIndependent(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
	require.NotPanics(t, func() { New(nil) })
}
