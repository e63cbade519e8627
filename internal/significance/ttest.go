// Package significance runs paired t-tests between two trial sets of the same
// configuration group, one test per reported metric.
package significance

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arkilian/trialstats/internal/derived"
	tserrors "github.com/arkilian/trialstats/internal/errors"
	"github.com/arkilian/trialstats/internal/results"
)

// Default test parameters. Two-sided at alpha 0.05 with 29 degrees of freedom
// gives a critical value of about 2.045.
const (
	DefaultAlpha            = 0.05
	DefaultDegreesOfFreedom = 29
)

// Significance flags, per metric, whether two trial sets differ.
type Significance [derived.NumMetrics]bool

// Any reports whether at least one metric is significant.
func (s Significance) Any() bool {
	for _, v := range s {
		if v {
			return true
		}
	}
	return false
}

// Get returns the flag for one metric.
func (s Significance) Get(m derived.Metric) bool {
	return s[m]
}

// Tester compares paired samples against a fixed critical value.
type Tester struct {
	CriticalValue float64
}

// NewTester derives the two-sided critical value for alpha from Student's t
// distribution with dof degrees of freedom.
func NewTester(alpha float64, dof int) (*Tester, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, tserrors.NewConfigError(tserrors.CodeInvalidConfig,
			fmt.Sprintf("significance alpha must be in (0, 1), got %v", alpha))
	}
	if dof < 1 {
		return nil, tserrors.NewConfigError(tserrors.CodeInvalidConfig,
			fmt.Sprintf("degrees of freedom must be positive, got %d", dof))
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	return &Tester{CriticalValue: t.Quantile(1.0 - alpha/2.0)}, nil
}

// DefaultTester returns a tester at the default alpha and degrees of freedom.
func DefaultTester() *Tester {
	t, err := NewTester(DefaultAlpha, DefaultDegreesOfFreedom)
	if err != nil {
		panic(err)
	}
	return t
}

// Test compares two trial sets row by row. Sets of different lengths, or an
// empty set, are never significant.
func (t *Tester) Test(a, b []results.TrialMetrics) Significance {
	return t.TestValues(valuesOf(a), valuesOf(b))
}

// TestValues is Test over raw metric rows. NaN entries count as 0.
func (t *Tester) TestValues(a, b [][derived.NumMetrics]float64) Significance {
	var sig Significance
	for i, stat := range TStatistics(a, b) {
		// NaN compares false, so a zero-variance zero-mean metric is never flagged.
		sig[i] = stat > t.CriticalValue
	}
	return sig
}

// TStatistics returns |mean(d)| / (sd(d)/sqrt(n)) per metric where d are the
// paired differences and sd is their population deviation. Mismatched or
// empty inputs yield all NaN.
func TStatistics(a, b [][derived.NumMetrics]float64) [derived.NumMetrics]float64 {
	var out [derived.NumMetrics]float64
	n := len(a)
	if n == 0 || n != len(b) {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	for m := 0; m < derived.NumMetrics; m++ {
		diffs := make(stats.Float64Data, n)
		for i := 0; i < n; i++ {
			diffs[i] = zeroNaN(a[i][m]) - zeroNaN(b[i][m])
		}
		mean, _ := stats.Mean(diffs)
		sd, _ := stats.StandardDeviationPopulation(diffs)

		// With sd == 0 this is +Inf for a non-zero mean and NaN otherwise.
		out[m] = math.Abs(mean) / (sd / math.Sqrt(float64(n)))
	}
	return out
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func valuesOf(trials []results.TrialMetrics) [][derived.NumMetrics]float64 {
	out := make([][derived.NumMetrics]float64, len(trials))
	for i, tr := range trials {
		out[i] = tr.Values()
	}
	return out
}

// TrialSource supplies the per-trial metrics of a group.
type TrialSource interface {
	TrialMetrics(ctx context.Context, f results.GroupFilter) ([]results.TrialMetrics, error)
}

// Compare loads a group from both sources and tests them against each other.
func (t *Tester) Compare(ctx context.Context, main, other TrialSource, f results.GroupFilter) (Significance, error) {
	a, err := main.TrialMetrics(ctx, f)
	if err != nil {
		return Significance{}, err
	}
	b, err := other.TrialMetrics(ctx, f)
	if err != nil {
		return Significance{}, err
	}
	return t.Test(a, b), nil
}
