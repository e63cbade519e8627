package render

import (
	"context"
	"fmt"

	"github.com/arkilian/trialstats/internal/derived"
	"github.com/arkilian/trialstats/internal/results"
)

// proportionScale is the fixed factor of metrics that are already in [0, 1].
const proportionScale = 100.0

// StatsSource supplies the aggregated statistics of a group.
type StatsSource interface {
	GroupStatistics(ctx context.Context, f results.GroupFilter) (results.GroupStatistics, error)
}

// Table is one rendered table variant.
type Table struct {
	Name string

	// Tag restricts groups to trials whose experiment name contains it.
	Tag string

	Grid Grid

	// ColumnSep is the \tabcolsep of every benchmark block, e.g. "1px".
	ColumnSep string

	// MaxStdDev pins the bar scale per metric. When nil the maxima observed
	// across the table are used.
	MaxStdDev *[derived.NumMetrics]float64
}

// filter adds the table tag to a leaf filter.
func (t Table) filter(leaf Leaf) results.GroupFilter {
	f := leaf.Filter
	f.Tag = t.Tag
	return f
}

// ScaleFactors maps raw means to the 0-100 display scale and holds the
// deviation that corresponds to a full bar.
type ScaleFactors struct {
	Constraints float64
	Terms       float64

	// MeanAngle is per benchmark.
	MeanAngle map[string]float64

	MaxStdDev [derived.NumMetrics]float64
}

// Factor returns the scale factor of a metric for a benchmark; ok is false
// when the benchmark was never visited.
func (s *ScaleFactors) Factor(m derived.Metric, benchmark string) (float64, bool) {
	switch m {
	case derived.Constraints:
		return s.Constraints, true
	case derived.Terms:
		return s.Terms, true
	case derived.MeanAngle:
		f, ok := s.MeanAngle[benchmark]
		return f, ok
	default:
		return proportionScale, true
	}
}

// inverse turns a maximum into 100/max, or 0 when nothing positive was seen.
func inverse(peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return 100.0 / peak
}

// ComputeScaleFactors visits every group of the table and derives its scale
// factors. Constraints and terms share one factor across benchmarks; mean
// angle gets one per benchmark.
func ComputeScaleFactors(ctx context.Context, src StatsSource, table Table) (*ScaleFactors, error) {
	var maxConstraints, maxTerms float64
	var maxStd [derived.NumMetrics]float64
	factors := &ScaleFactors{MeanAngle: make(map[string]float64, len(table.Grid.Benchmarks))}

	for _, bench := range table.Grid.Benchmarks {
		var maxAngle float64
		for _, dim := range table.Grid.Dimensions {
			for _, leaf := range table.Grid.Leaves(bench, dim) {
				g, err := src.GroupStatistics(ctx, table.filter(leaf))
				if err != nil {
					return nil, fmt.Errorf("render: scale factors for table %s: %w", table.Name, err)
				}
				if g.ConstraintsMean > maxConstraints {
					maxConstraints = g.ConstraintsMean
				}
				if g.TermsMean > maxTerms {
					maxTerms = g.TermsMean
				}
				if g.MeanAngleMean > maxAngle {
					maxAngle = g.MeanAngleMean
				}
				for _, m := range derived.AllMetrics {
					if sd := g.StdDev(m); sd > maxStd[m] {
						maxStd[m] = sd
					}
				}
			}
		}
		factors.MeanAngle[bench] = inverse(maxAngle)
	}

	factors.Constraints = inverse(maxConstraints)
	factors.Terms = inverse(maxTerms)
	factors.MaxStdDev = maxStd
	if table.MaxStdDev != nil {
		factors.MaxStdDev = *table.MaxStdDev
	}
	return factors, nil
}
