// Package resultstest builds throwaway results databases for tests.
package resultstest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/arkilian/trialstats/internal/results"
)

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int64) *int64 {
	return &v
}

// Trial describes one successful trial with the fields tests usually vary.
type Trial struct {
	Benchmark  string
	Tag        string
	Dimensions int64
	Components int64
	Join       int64
	MaxHeight  int64
	Examples   int64
	Seed       int64
	Errors     string

	Constraints float64
	Terms       float64
	Jaccard     float64
	MeanAngle   float64
	TP, FN, FP  int64
}

// Record converts the trial into a row.
func (tr Trial) Record() results.TrialRecord {
	name := tr.Tag
	if name == "" {
		name = "run"
	}
	return results.TrialRecord{
		Benchmark:        tr.Benchmark,
		ExperimentName:   name,
		Dimensions:       tr.Dimensions,
		Components:       tr.Components,
		Join:             tr.Join,
		MaxHeight:        tr.MaxHeight,
		FeasibleExamples: tr.Examples,
		Seed:             tr.Seed,
		Errors:           tr.Errors,
		Constraints:      Float(tr.Constraints),
		Terms:            Float(tr.Terms),
		Jaccard:          Float(tr.Jaccard),
		MeanAngle:        Float(tr.MeanAngle),
		TP:               Int(tr.TP),
		FN:               Int(tr.FN),
		FP:               Int(tr.FP),
		TN:               Int(0),
	}
}

// NewStore creates a file-backed results database in a temp dir with the
// experiments table and the given trials. The store is closed on cleanup.
func NewStore(t testing.TB, trials ...Trial) *results.Store {
	t.Helper()
	return NewStoreAt(t, filepath.Join(t.TempDir(), "results.sqlite"), trials...)
}

// NewStoreAt is NewStore with an explicit database path.
func NewStoreAt(t testing.TB, path string, trials ...Trial) *results.Store {
	t.Helper()
	ctx := context.Background()

	store, err := results.Open(ctx, path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	for _, tr := range trials {
		if err := store.InsertTrial(ctx, tr.Record()); err != nil {
			t.Fatalf("failed to insert trial: %v", err)
		}
	}
	return store
}
