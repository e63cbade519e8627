package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/arkilian/trialstats/internal/derived"
	tserrors "github.com/arkilian/trialstats/internal/errors"
	"github.com/arkilian/trialstats/internal/significance"
)

// DefaultBarMaxHeight is the height in points of a full deviation bar.
const DefaultBarMaxHeight = 7.0

const barFormat = `\begin{tikzpicture}[baseline=0.4pt]\draw[line width=2](0,0pt) -- (0,%spt);\end{tikzpicture}`

// Comparison pairs the rendered dataset with a second one for significance
// testing.
type Comparison struct {
	Tester *significance.Tester
	Main   significance.TrialSource
	Other  significance.TrialSource
}

// Renderer writes one table.
type Renderer struct {
	Table Table
	Stats StatsSource

	// Compare is optional. Without it no value is underlined.
	Compare *Comparison

	// BarMaxHeight defaults to DefaultBarMaxHeight when zero.
	BarMaxHeight float64
}

// errWriter keeps the first write error so emission code stays linear.
type errWriter struct {
	w   *bufio.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) write(s string) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.WriteString(s)
}

// Render writes the table to w. factors must come from ComputeScaleFactors
// over the same table.
func (r *Renderer) Render(ctx context.Context, w io.Writer, factors *ScaleFactors) error {
	if factors == nil {
		return tserrors.NewRenderError(tserrors.CodeMissingScaleFactors,
			fmt.Sprintf("table %s rendered before its scale factors were computed", r.Table.Name), nil)
	}
	for _, b := range r.Table.Grid.Benchmarks {
		if _, ok := factors.MeanAngle[b]; !ok {
			return tserrors.NewRenderError(tserrors.CodeMissingScaleFactors,
				fmt.Sprintf("no scale factors for benchmark %s in table %s", b, r.Table.Name), nil)
		}
	}

	out := &errWriter{w: bufio.NewWriter(w)}
	grid := r.Table.Grid

	out.printf("\\begin{tabular}{%s}\n", strings.Repeat("c", len(grid.Benchmarks)))
	for bi, bench := range grid.Benchmarks {
		r.writeBenchmarkHeader(out, bench)

		for di, dim := range grid.Dimensions {
			leaves := grid.Leaves(bench, dim)
			for li, leaf := range leaves {
				if li == 0 {
					out.printf("\\multirow{%d}{*}{%d}", len(leaves), dim)
				}
				if err := r.writeRow(ctx, out, bench, leaf, factors); err != nil {
					return err
				}
			}
			out.write("\\hline")
			if di != len(grid.Dimensions)-1 {
				out.write(" \\hline")
			}
			out.write("\n")
		}

		out.write("\\end{tabular}\n")
		if bi != len(grid.Benchmarks)-1 {
			out.write("&\n")
		}
	}
	out.write("\\end{tabular}\n")

	if out.err == nil {
		out.err = out.w.Flush()
	}
	if out.err != nil {
		return tserrors.NewRenderError(tserrors.CodeWriteFailed,
			fmt.Sprintf("failed to write table %s", r.Table.Name), out.err)
	}
	return nil
}

func (r *Renderer) writeBenchmarkHeader(out *errWriter, bench string) {
	grid := r.Table.Grid
	cols := grid.Columns()

	out.printf("\\setlength\\tabcolsep{%s}\n", r.Table.ColumnSep)
	out.printf("\\begin{tabular}{|%s|%s}\n",
		strings.Repeat("c|", 1+len(grid.Levels)), strings.Repeat("r|", derived.NumMetrics))
	out.write("\\hline")
	out.printf("\\multicolumn{%d}{|c|}{%s}   \\\\ \\hline\n", cols, bench)

	out.write("\\begin{turn}{270}Dimensions\\end{turn} & ")
	for _, l := range grid.Levels {
		out.printf("\\begin{turn}{270}%s\\end{turn} & ", l.Label)
	}
	for i, m := range derived.AllMetrics {
		out.printf("\\multicolumn{1}{c|}{\\begin{turn}{270}%s\\end{turn}}", m)
		if i == derived.NumMetrics-1 {
			out.write("\t\\\\ \\hline\n")
		} else {
			out.write(" & ")
		}
	}
}

// writeRow writes the level cells and metric cells of one leaf. The
// dimension cell, if any, has already been written.
func (r *Renderer) writeRow(ctx context.Context, out *errWriter, bench string, leaf Leaf, factors *ScaleFactors) error {
	last := len(leaf.Values) - 1
	for i, v := range leaf.Values {
		switch {
		case i == last:
			out.printf(" & %d", v)
		case leaf.Spans[i] > 0:
			out.printf(" & \\multirow{%d}{*}{%d}", leaf.Spans[i], v)
		default:
			out.write(" & ")
		}
	}

	f := r.Table.filter(leaf)
	stats, err := r.Stats.GroupStatistics(ctx, f)
	if err != nil {
		return fmt.Errorf("render: table %s: %w", r.Table.Name, err)
	}

	var sig significance.Significance
	if r.Compare != nil {
		sig, err = r.Compare.Tester.Compare(ctx, r.Compare.Main, r.Compare.Other, f)
		if err != nil {
			return fmt.Errorf("render: table %s: %w", r.Table.Name, err)
		}
	}

	for _, m := range derived.AllMetrics {
		factor, _ := factors.Factor(m, bench)
		mean := stats.Mean(m)
		bar := r.barHeight(stats.StdDev(m), factors.MaxStdDev[m])
		out.write(" & ")
		out.write(formatCell(m, mean*factor, mean, sig.Get(m), bar))
	}

	out.write("    \\\\")
	if leaf.Separator {
		out.printf(" \\cline{2-%d}", r.Table.Grid.Columns())
	}
	out.write("\n")
	return nil
}

// barHeight is BarMaxHeight*sd/maxSD, 0 when maxSD is not positive.
func (r *Renderer) barHeight(sd, maxSD float64) float64 {
	if maxSD <= 0 {
		return 0
	}
	h := r.BarMaxHeight
	if h == 0 {
		h = DefaultBarMaxHeight
	}
	return h * sd / maxSD
}

// formatCell renders one metric cell: the scaled value, the raw value and the
// deviation bar. Counts show no decimals, proportions three, and mean angle
// shows three for both numbers.
func formatCell(m derived.Metric, scaled, raw float64, significant bool, bar float64) string {
	macro, scaledFmt, rawFmt := `\ccf`, "%.0f", "%.3f"
	switch {
	case m.Integral():
		macro, rawFmt = `\cci`, "%.0f"
	case m == derived.MeanAngle:
		macro, scaledFmt = `\cci`, "%.3f"
	}

	rawText := fmt.Sprintf(rawFmt, raw)
	if significant {
		rawText = `\underline{` + rawText + `}`
	}
	return fmt.Sprintf("%s{%s}{%s} %s", macro, fmt.Sprintf(scaledFmt, scaled), rawText,
		fmt.Sprintf(barFormat, formatPoints(bar)))
}

// formatPoints prints a float the shortest way that still reads back exactly,
// always with a fractional part or exponent ("0.0", "3.5", "1e-05").
func formatPoints(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
