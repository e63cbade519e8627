package results

import (
	"math"

	"github.com/arkilian/trialstats/internal/derived"
)

// TrialRecord is one row written by the experiment runner.
type TrialRecord struct {
	Benchmark        string   `db:"benchmark"`
	ExperimentName   string   `db:"experiment_name"`
	Dimensions       int64    `db:"dimensions"`
	Components       int64    `db:"components"`
	Join             int64    `db:"join"`
	MaxHeight        int64    `db:"max_height"`
	FeasibleExamples int64    `db:"feasible_examples"`
	Seed             int64    `db:"seed"`
	Errors           string   `db:"errors"`
	Constraints      *float64 `db:"constraints"`
	Terms            *float64 `db:"terms"`
	Jaccard          *float64 `db:"jaccard"`
	MeanAngle        *float64 `db:"mean_angle"`
	TP               *int64   `db:"tp"`
	FN               *int64   `db:"fn"`
	FP               *int64   `db:"fp"`
	TN               *int64   `db:"tn"`
}

// StdDevs holds the six std-devs of a group in metric order. A nil field is an
// undefined deviation (fewer than three trials).
type StdDevs struct {
	Constraints *float64 `db:"constraints_std"`
	Terms       *float64 `db:"terms_std"`
	Jaccard     *float64 `db:"jaccard_std"`
	Precision   *float64 `db:"precision_std"`
	Recall      *float64 `db:"recall_std"`
	MeanAngle   *float64 `db:"mean_angle_std"`
}

// Get returns the deviation for a metric; ok is false when undefined.
func (s StdDevs) Get(m derived.Metric) (float64, bool) {
	var v *float64
	switch m {
	case derived.Constraints:
		v = s.Constraints
	case derived.Terms:
		v = s.Terms
	case derived.Jaccard:
		v = s.Jaccard
	case derived.Precision:
		v = s.Precision
	case derived.Recall:
		v = s.Recall
	case derived.MeanAngle:
		v = s.MeanAngle
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// args returns the deviations as bound UPDATE arguments; nil stays NULL.
func (s StdDevs) args() []interface{} {
	return []interface{}{s.Constraints, s.Terms, s.Jaccard, s.Precision, s.Recall, s.MeanAngle}
}

// groupRow is the raw shape of groupStatisticsSQL.
type groupRow struct {
	Trials         int64    `db:"trials"`
	ConstraintsAvg *float64 `db:"constraints_avg"`
	TermsAvg       *float64 `db:"terms_avg"`
	JaccardAvg     *float64 `db:"jaccard_avg"`
	MeanAngleAvg   *float64 `db:"mean_angle_avg"`
	TPSum          float64  `db:"tp_sum"`
	FNSum          float64  `db:"fn_sum"`
	FPSum          float64  `db:"fp_sum"`
	StdDevs
}

// GroupStatistics is the aggregated view of one configuration group.
// Mean precision and recall are ratios of summed confusion counts while
// their deviations come from per-trial ratios.
type GroupStatistics struct {
	Trials int64

	ConstraintsMean float64
	TermsMean       float64
	JaccardMean     float64
	PrecisionMean   float64
	RecallMean      float64
	MeanAngleMean   float64

	StdDevs StdDevs
}

func newGroupStatistics(row groupRow) GroupStatistics {
	means := derived.Means(derived.PassThrough{
		Constraints: row.ConstraintsAvg,
		Terms:       row.TermsAvg,
		Jaccard:     row.JaccardAvg,
		MeanAngle:   row.MeanAngleAvg,
	}, derived.ConfusionCounts{TP: row.TPSum, FN: row.FNSum, FP: row.FPSum})

	return GroupStatistics{
		Trials:          row.Trials,
		ConstraintsMean: means[derived.Constraints],
		TermsMean:       means[derived.Terms],
		JaccardMean:     means[derived.Jaccard],
		PrecisionMean:   means[derived.Precision],
		RecallMean:      means[derived.Recall],
		MeanAngleMean:   means[derived.MeanAngle],
		StdDevs:         row.StdDevs,
	}
}

// Mean returns the mean of a metric.
func (g GroupStatistics) Mean(m derived.Metric) float64 {
	switch m {
	case derived.Constraints:
		return g.ConstraintsMean
	case derived.Terms:
		return g.TermsMean
	case derived.Jaccard:
		return g.JaccardMean
	case derived.Precision:
		return g.PrecisionMean
	case derived.Recall:
		return g.RecallMean
	case derived.MeanAngle:
		return g.MeanAngleMean
	}
	return 0
}

// StdDev returns the stored deviation of a metric, 0 when undefined.
func (g GroupStatistics) StdDev(m derived.Metric) float64 {
	v, _ := g.StdDevs.Get(m)
	return v
}

// Values returns the legacy positional layout: six means followed by six
// deviations, in metric order, with undefined deviations as 0.
func (g GroupStatistics) Values() [2 * derived.NumMetrics]float64 {
	var out [2 * derived.NumMetrics]float64
	for i, m := range derived.AllMetrics {
		out[i] = g.Mean(m)
		out[derived.NumMetrics+i] = g.StdDev(m)
	}
	return out
}

// TrialMetrics is the per-trial view used for paired testing. Precision and
// recall are per-row ratios here.
type TrialMetrics struct {
	Seed        int64    `db:"seed"`
	Constraints *float64 `db:"constraints"`
	Terms       *float64 `db:"terms"`
	Jaccard     *float64 `db:"jaccard"`
	Precision   *float64 `db:"precision"`
	Recall      *float64 `db:"recall"`
	MeanAngle   *float64 `db:"mean_angle"`
}

// Values returns the six metrics in metric order; NULL and NaN become 0.
func (t TrialMetrics) Values() [derived.NumMetrics]float64 {
	vals := [derived.NumMetrics]float64{
		derived.OrZero(t.Constraints),
		derived.OrZero(t.Terms),
		derived.OrZero(t.Jaccard),
		derived.OrZero(t.Precision),
		derived.OrZero(t.Recall),
		derived.OrZero(t.MeanAngle),
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = 0
		}
	}
	return vals
}
