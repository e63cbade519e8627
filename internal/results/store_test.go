package results_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/trialstats/internal/derived"
	tserrors "github.com/arkilian/trialstats/internal/errors"
	"github.com/arkilian/trialstats/internal/results"
	"github.com/arkilian/trialstats/internal/results/resultstest"
)

func circle(seed int64, constraints float64, tp, fn, fp int64) resultstest.Trial {
	return resultstest.Trial{
		Benchmark:   "circle",
		Dimensions:  3,
		Components:  2,
		Seed:        seed,
		Constraints: constraints,
		Terms:       constraints / 2,
		Jaccard:     0.5,
		MeanAngle:   0.1 * float64(seed),
		TP:          tp,
		FN:          fn,
		FP:          fp,
	}
}

func circleGroup() results.GroupFilter {
	return results.GroupFilter{Benchmark: "circle", Dimensions: 3}.With("Components", 2)
}

func TestEnsureStdDevColumns_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := resultstest.NewStore(t)

	require.NoError(t, store.EnsureStdDevColumns(ctx))
	require.NoError(t, store.EnsureStdDevColumns(ctx))

	// Stored std-devs must be readable, proving the columns exist exactly once.
	g, err := store.GroupStatistics(ctx, circleGroup())
	require.NoError(t, err)
	require.Equal(t, int64(0), g.Trials)
}

func TestEnsureStdDevColumns_MissingTable(t *testing.T) {
	ctx := context.Background()
	store, err := results.Open(ctx, t.TempDir()+"/empty.sqlite")
	require.NoError(t, err)
	defer store.Close()

	err = store.EnsureStdDevColumns(ctx)
	require.Error(t, err)
	require.True(t, tserrors.IsFatal(err), "schema failure should be fatal: %v", err)
}

func TestUpdateAndReadGroup(t *testing.T) {
	ctx := context.Background()
	store := resultstest.NewStore(t,
		circle(1, 10, 8, 2, 1),
		circle(2, 12, 9, 1, 2),
		circle(3, 14, 7, 3, 0),
	)
	require.NoError(t, store.EnsureStdDevColumns(ctx))

	f := circleGroup()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	sd, err := store.UpdateStdDevs(ctx, tx, f)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	v, ok := sd.Get(derived.Constraints)
	require.True(t, ok)
	require.InDelta(t, 2.0, v, 1e-12)

	g, err := store.GroupStatistics(ctx, f)
	require.NoError(t, err)
	require.Equal(t, int64(3), g.Trials)
	require.InDelta(t, 12.0, g.ConstraintsMean, 1e-12)
	require.InDelta(t, 6.0, g.TermsMean, 1e-12)
	require.InDelta(t, 2.0, g.StdDev(derived.Constraints), 1e-12)
	require.InDelta(t, 1.0, g.StdDev(derived.Terms), 1e-12)

	// Means of precision and recall are ratios of the summed counts.
	require.InDelta(t, 24.0/27.0, g.PrecisionMean, 1e-12)
	require.InDelta(t, 0.8, g.RecallMean, 1e-12)

	// Their deviations come from per-trial ratios.
	want, err := stats.StandardDeviationSample(stats.Float64Data{8.0 / 9.0, 9.0 / 11.0, 1.0})
	require.NoError(t, err)
	require.InDelta(t, want, g.StdDev(derived.Precision), 1e-12)

	// Jaccard is constant, so its deviation is defined and zero.
	jd, ok := g.StdDevs.Get(derived.Jaccard)
	require.True(t, ok)
	require.Equal(t, 0.0, jd)

	vals := g.Values()
	require.Equal(t, g.ConstraintsMean, vals[0])
	require.Equal(t, g.StdDev(derived.Constraints), vals[derived.NumMetrics])
}

func TestUpdateStdDevs_TooFewTrials(t *testing.T) {
	ctx := context.Background()
	store := resultstest.NewStore(t,
		circle(1, 10, 8, 2, 1),
		circle(2, 12, 9, 1, 2),
	)
	require.NoError(t, store.EnsureStdDevColumns(ctx))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = store.UpdateStdDevs(ctx, tx, circleGroup())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	g, err := store.GroupStatistics(ctx, circleGroup())
	require.NoError(t, err)
	for _, m := range derived.AllMetrics {
		_, ok := g.StdDevs.Get(m)
		require.False(t, ok, "%s deviation should be undefined with 2 trials", m)
		require.Equal(t, 0.0, g.StdDev(m))
	}
}

func TestUpdateStdDevs_Rollback(t *testing.T) {
	ctx := context.Background()
	store := resultstest.NewStore(t,
		circle(1, 10, 8, 2, 1),
		circle(2, 12, 9, 1, 2),
		circle(3, 14, 7, 3, 0),
	)
	require.NoError(t, store.EnsureStdDevColumns(ctx))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = store.UpdateStdDevs(ctx, tx, circleGroup())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	g, err := store.GroupStatistics(ctx, circleGroup())
	require.NoError(t, err)
	_, ok := g.StdDevs.Get(derived.Constraints)
	require.False(t, ok, "uncommitted update must not be visible")
}

func TestFilterExcludesErroredAndUntagged(t *testing.T) {
	ctx := context.Background()
	failed := circle(4, 1000, 0, 0, 0)
	failed.Errors = "timeout"
	tagged := circle(5, 20, 1, 0, 0)
	tagged.Tag = "pruning-v2"

	store := resultstest.NewStore(t,
		circle(1, 10, 8, 2, 1),
		circle(2, 12, 9, 1, 2),
		failed,
		tagged,
	)

	n, err := store.CountTrials(ctx, circleGroup())
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	f := circleGroup()
	f.Tag = "pruning"
	n, err = store.CountTrials(ctx, f)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestTrialMetrics_OrderedBySeed(t *testing.T) {
	ctx := context.Background()
	store := resultstest.NewStore(t,
		circle(3, 14, 7, 3, 0),
		circle(1, 10, 0, 0, 0),
		circle(2, 12, 9, 1, 2),
	)

	trials, err := store.TrialMetrics(ctx, circleGroup())
	require.NoError(t, err)
	require.Len(t, trials, 3)
	for i, tr := range trials {
		require.Equal(t, int64(i+1), tr.Seed)
	}

	// Zero denominators come back NULL and read as 0.
	require.Nil(t, trials[0].Precision)
	vals := trials[0].Values()
	require.Equal(t, 0.0, vals[derived.Precision])
	require.Equal(t, 0.0, vals[derived.Recall])

	require.InDelta(t, 9.0/11.0, trials[1].Values()[derived.Precision], 1e-12)
	require.False(t, math.IsNaN(trials[2].Values()[derived.MeanAngle]))
}

func TestInvalidStructuralColumn(t *testing.T) {
	ctx := context.Background()
	store := resultstest.NewStore(t)

	f := results.GroupFilter{Benchmark: "circle", Dimensions: 3}.With("Seed; DROP TABLE experiments", 1)
	_, err := store.GroupStatistics(ctx, f)
	require.Error(t, err)

	var tsErr *tserrors.TrialStatsError
	require.True(t, errors.As(err, &tsErr))
	require.Equal(t, tserrors.CodeInvalidColumn, tsErr.Code)
}
