package derived

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPrecisionRecall(t *testing.T) {
	tests := []struct {
		name      string
		counts    ConfusionCounts
		precision float64
		recall    float64
	}{
		{"typical", ConfusionCounts{TP: 8, FN: 2, FP: 1}, 8.0 / 9.0, 0.8},
		{"no positives predicted", ConfusionCounts{TP: 0, FN: 5, FP: 0}, 0.0, 0.0},
		{"no actual positives", ConfusionCounts{TP: 0, FN: 0, FP: 3}, 0.0, 0.0},
		{"all zero", ConfusionCounts{}, 0.0, 0.0},
		{"perfect", ConfusionCounts{TP: 4}, 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.counts.Precision(); math.Abs(got-tt.precision) > 1e-12 {
				t.Errorf("precision = %v, want %v", got, tt.precision)
			}
			if got := tt.counts.Recall(); math.Abs(got-tt.recall) > 1e-12 {
				t.Errorf("recall = %v, want %v", got, tt.recall)
			}
		})
	}
}

func TestMeans_AggregateOfSums(t *testing.T) {
	trials := []ConfusionCounts{{8, 2, 1}, {9, 1, 2}, {7, 3, 0}}
	var sum ConfusionCounts
	for _, c := range trials {
		sum = sum.Add(c)
	}

	c, terms := 12.0, 5.0
	got := Means(PassThrough{Constraints: &c, Terms: &terms}, sum)

	if got[Constraints] != 12 || got[Terms] != 5 {
		t.Fatalf("unexpected pass-through means: %v", got)
	}
	if got[Jaccard] != 0 || got[MeanAngle] != 0 {
		t.Fatalf("NULL averages should be coerced to 0: %v", got)
	}
	if math.Abs(got[Precision]-24.0/27.0) > 1e-12 {
		t.Errorf("precision = %v, want 24/27", got[Precision])
	}
	if math.Abs(got[Recall]-0.8) > 1e-12 {
		t.Errorf("recall = %v, want 0.8", got[Recall])
	}
}

func TestMetricNames(t *testing.T) {
	if Jaccard.String() != "Jaccard Index" {
		t.Errorf("got %q", Jaccard.String())
	}
	if Metric(42).String() != "unknown" {
		t.Errorf("out of range metric should be unknown")
	}
	for _, m := range AllMetrics {
		if m.Integral() != (m == Constraints || m == Terms) {
			t.Errorf("%s: unexpected Integral()", m)
		}
	}
}

func TestProperty_ZeroDenominators(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("precision is 0 when TP+FP = 0", prop.ForAll(
		func(fn float64) bool {
			return ConfusionCounts{TP: 0, FN: fn, FP: 0}.Precision() == 0.0
		},
		gen.Float64Range(0, 1000),
	))

	properties.Property("recall is 0 when TP+FN = 0", prop.ForAll(
		func(fp float64) bool {
			return ConfusionCounts{TP: 0, FN: 0, FP: fp}.Recall() == 0.0
		},
		gen.Float64Range(0, 1000),
	))

	properties.Property("ratios stay within [0, 1] for non-negative counts", prop.ForAll(
		func(tp, fn, fp int) bool {
			c := ConfusionCounts{TP: float64(tp), FN: float64(fn), FP: float64(fp)}
			p, r := c.Precision(), c.Recall()
			return p >= 0 && p <= 1 && r >= 0 && r <= 1
		},
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t)
}
