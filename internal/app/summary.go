package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/arkilian/trialstats/internal/derived"
	"github.com/arkilian/trialstats/internal/render"
	"github.com/arkilian/trialstats/internal/results"
)

// writeSummary prints one console row per group with mean and deviation of
// every metric.
func (a *App) writeSummary(ctx context.Context, store *results.Store, table render.Table, groups []render.Leaf) error {
	fmt.Fprintf(a.SummaryOut, "run %s: table %s\n", a.runID, table.Name)

	tbl := tablewriter.NewWriter(a.SummaryOut)
	header := []string{"Group", "Trials"}
	for _, m := range derived.AllMetrics {
		header = append(header, m.String())
	}
	tbl.SetHeader(header)
	tbl.SetBorder(true)

	for _, leaf := range groups {
		f := leaf.Filter
		f.Tag = table.Tag

		n, err := store.CountTrials(ctx, f)
		if err != nil {
			return err
		}
		g, err := store.GroupStatistics(ctx, f)
		if err != nil {
			return err
		}

		row := []string{leaf.Filter.String(), strconv.FormatInt(n, 10)}
		for _, m := range derived.AllMetrics {
			row = append(row, summaryCell(g, m))
		}
		tbl.Append(row)
	}

	tbl.Render()
	return nil
}

// summaryCell prints "mean ± sd", or just the mean when the deviation is
// undefined.
func summaryCell(g results.GroupStatistics, m derived.Metric) string {
	prec := 3
	if m.Integral() {
		prec = 1
	}
	mean := strconv.FormatFloat(g.Mean(m), 'f', prec, 64)
	sd, ok := g.StdDevs.Get(m)
	if !ok {
		return mean
	}
	return mean + " ± " + strconv.FormatFloat(sd, 'f', prec, 64)
}
