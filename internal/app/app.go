// Package app runs the trialstats batch: for every configured table it
// materializes per-group standard deviations, computes scale factors, renders
// the LaTeX table and optionally publishes it.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/arkilian/trialstats/internal/config"
	"github.com/arkilian/trialstats/internal/derived"
	tserrors "github.com/arkilian/trialstats/internal/errors"
	"github.com/arkilian/trialstats/internal/publish"
	"github.com/arkilian/trialstats/internal/render"
	"github.com/arkilian/trialstats/internal/results"
	"github.com/arkilian/trialstats/internal/significance"
)

// App holds the resources of one batch run.
type App struct {
	cfg    *config.Config
	runID  string
	tester *significance.Tester

	// SummaryOut receives the console summary when enabled.
	SummaryOut io.Writer

	stores  map[string]*results.Store
	ensured map[string]bool
}

// Report describes a finished run.
type Report struct {
	RunID  string
	Tables []TableReport
}

// TableReport describes one rendered table.
type TableReport struct {
	Name      string
	Output    string
	Groups    int
	Published string
}

// New creates an App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, tserrors.NewStorageError(tserrors.CodeOutputFailed, "failed to create directories", err)
	}

	tester, err := significance.NewTester(cfg.Significance.Alpha, cfg.Significance.DegreesOfFreedom)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:        cfg,
		runID:      uuid.New().String(),
		tester:     tester,
		SummaryOut: os.Stdout,
		stores:     make(map[string]*results.Store),
		ensured:    make(map[string]bool),
	}, nil
}

// RunID returns the identifier logged with every line of this run.
func (a *App) RunID() string {
	return a.runID
}

// Run renders every configured table in order. The first error aborts the
// run; tables already written stay on disk.
func (a *App) Run(ctx context.Context) (*Report, error) {
	defer a.closeStores()

	sink, err := publish.New(ctx, a.cfg.Publish)
	if err != nil {
		return nil, tserrors.NewStorageError(tserrors.CodeUploadFailed, "failed to create publish sink", err)
	}

	log.Printf("app: run %s: rendering %d tables", a.runID, len(a.cfg.Tables))

	report := &Report{RunID: a.runID}
	for _, tc := range a.cfg.Tables {
		tr, err := a.runTable(ctx, tc, sink)
		if err != nil {
			return report, err
		}
		report.Tables = append(report.Tables, *tr)
	}

	log.Printf("app: run %s: done", a.runID)
	return report, nil
}

func (a *App) runTable(ctx context.Context, tc config.TableConfig, sink publish.Sink) (*TableReport, error) {
	table := renderTable(tc)
	groups := table.Grid.Groups()

	main, err := a.store(ctx, tc.Database, true)
	if err != nil {
		return nil, err
	}

	if err := a.aggregate(ctx, main, table, groups); err != nil {
		return nil, err
	}

	factors, err := render.ComputeScaleFactors(ctx, main, table)
	if err != nil {
		return nil, err
	}

	renderer := &render.Renderer{
		Table:        table,
		Stats:        main,
		BarMaxHeight: a.cfg.BarMaxHeight,
	}
	if tc.CompareDatabase != "" {
		other, err := a.store(ctx, tc.CompareDatabase, false)
		if err != nil {
			return nil, err
		}
		renderer.Compare = &render.Comparison{Tester: a.tester, Main: main, Other: other}
	}

	if err := writeAtomic(tc.Output, func(w io.Writer) error {
		return renderer.Render(ctx, w, factors)
	}); err != nil {
		return nil, err
	}
	log.Printf("app: run %s: table %s: %d groups written to %s", a.runID, tc.Name, len(groups), tc.Output)

	tr := &TableReport{Name: tc.Name, Output: tc.Output, Groups: len(groups)}

	if sink != nil {
		object := publish.ObjectName(a.cfg.Publish.Prefix, tc.Output)
		if err := sink.Upload(ctx, tc.Output, object); err != nil {
			return nil, tserrors.NewStorageError(tserrors.CodeUploadFailed,
				fmt.Sprintf("failed to publish table %s", tc.Name), err)
		}
		tr.Published = object
		log.Printf("app: run %s: table %s published as %s", a.runID, tc.Name, object)
	}

	if a.cfg.Summary {
		if err := a.writeSummary(ctx, main, table, groups); err != nil {
			return nil, err
		}
	}

	return tr, nil
}

// aggregate stores the std-devs of every group, committing after each one.
func (a *App) aggregate(ctx context.Context, store *results.Store, table render.Table, groups []render.Leaf) error {
	for _, leaf := range groups {
		f := leaf.Filter
		f.Tag = table.Tag

		tx, err := store.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := store.UpdateStdDevs(ctx, tx, f); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return tserrors.NewStorageError(tserrors.CodeCommitFailed,
				fmt.Sprintf("failed to commit std-devs for %s", f), err)
		}
	}
	return nil
}

// store opens path once per run. When ensure is set the std-dev columns are
// added before first use.
func (a *App) store(ctx context.Context, path string, ensure bool) (*results.Store, error) {
	s, ok := a.stores[path]
	if !ok {
		if _, err := os.Stat(path); err != nil {
			return nil, tserrors.NewStorageError(tserrors.CodeOpenFailed,
				fmt.Sprintf("results database %s is not accessible", path), err)
		}
		var err error
		s, err = results.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		a.stores[path] = s
	}

	if ensure && !a.ensured[path] {
		if err := s.EnsureStdDevColumns(ctx); err != nil {
			return nil, err
		}
		a.ensured[path] = true
	}
	return s, nil
}

func (a *App) closeStores() {
	for path, s := range a.stores {
		if err := s.Close(); err != nil {
			log.Printf("[WARN] app: failed to close %s: %v", path, err)
		}
	}
	a.stores = make(map[string]*results.Store)
	a.ensured = make(map[string]bool)
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place. A failed write leaves any previous file untouched.
func writeAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return tserrors.NewStorageError(tserrors.CodeOutputFailed,
			fmt.Sprintf("failed to create directory for %s", path), err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return tserrors.NewStorageError(tserrors.CodeOutputFailed,
			fmt.Sprintf("failed to create %s", path), err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return tserrors.NewStorageError(tserrors.CodeOutputFailed,
			fmt.Sprintf("failed to write %s", path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return tserrors.NewStorageError(tserrors.CodeOutputFailed,
			fmt.Sprintf("failed to move %s into place", path), err)
	}
	return nil
}

// renderTable converts a validated table configuration.
func renderTable(tc config.TableConfig) render.Table {
	levels := make([]render.Level, len(tc.Levels))
	for i, l := range tc.Levels {
		label := l.Label
		if label == "" {
			label = l.Column
		}
		levels[i] = render.Level{
			Column:      l.Column,
			Label:       label,
			Multipliers: l.Multipliers,
			Values:      l.Values,
			Separators:  l.Separators,
		}
	}

	t := render.Table{
		Name:      tc.Name,
		Tag:       tc.Tag,
		ColumnSep: tc.ColumnSep,
		Grid: render.Grid{
			Benchmarks: tc.Benchmarks,
			Dimensions: tc.Dimensions,
			Levels:     levels,
		},
	}
	if len(tc.MaxStdDev) == derived.NumMetrics {
		var pinned [derived.NumMetrics]float64
		copy(pinned[:], tc.MaxStdDev)
		t.MaxStdDev = &pinned
	}
	return t
}
