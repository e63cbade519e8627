// Package derived turns raw per-trial confusion counts and averages into the
// six reported metrics.
package derived

// Metric indexes the six reported metrics in table order.
type Metric int

const (
	Constraints Metric = iota
	Terms
	Jaccard
	Precision
	Recall
	MeanAngle
)

// NumMetrics is the number of reported metrics.
const NumMetrics = 6

// AllMetrics lists the metrics in table order.
var AllMetrics = [NumMetrics]Metric{Constraints, Terms, Jaccard, Precision, Recall, MeanAngle}

var metricNames = [NumMetrics]string{"Constraints", "Terms", "Jaccard Index", "Precision", "Recall", "Mean angle"}

// String returns the column header used for the metric.
func (m Metric) String() string {
	if m < 0 || int(m) >= NumMetrics {
		return "unknown"
	}
	return metricNames[m]
}

// Integral reports whether the metric is a count rendered without decimals.
func (m Metric) Integral() bool {
	return m == Constraints || m == Terms
}

// Ratio returns num/den, or 0.0 when the denominator is zero.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0.0
	}
	return num / den
}

// PrecisionOf returns TP/(TP+FP), 0.0 when TP+FP is zero.
func PrecisionOf(tp, fp float64) float64 {
	return Ratio(tp, tp+fp)
}

// RecallOf returns TP/(TP+FN), 0.0 when TP+FN is zero.
func RecallOf(tp, fn float64) float64 {
	return Ratio(tp, tp+fn)
}

// ConfusionCounts holds summed (or per-trial) confusion counts.
// True negatives are not used by any reported metric.
type ConfusionCounts struct {
	TP float64
	FN float64
	FP float64
}

// Precision returns TP/(TP+FP).
func (c ConfusionCounts) Precision() float64 {
	return PrecisionOf(c.TP, c.FP)
}

// Recall returns TP/(TP+FN).
func (c ConfusionCounts) Recall() float64 {
	return RecallOf(c.TP, c.FN)
}

// Add sums two sets of counts.
func (c ConfusionCounts) Add(o ConfusionCounts) ConfusionCounts {
	return ConfusionCounts{TP: c.TP + o.TP, FN: c.FN + o.FN, FP: c.FP + o.FP}
}

// OrZero coerces a nullable value to 0.
func OrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// PassThrough holds the directly averaged metrics of a group. NULL averages
// (an empty group) stay nil until Means coerces them.
type PassThrough struct {
	Constraints *float64
	Terms       *float64
	Jaccard     *float64
	MeanAngle   *float64
}

// Means combines pass-through averages with summed confusion counts into the
// six display means. Precision and recall are ratios of the sums, not
// averages of per-trial ratios.
func Means(avg PassThrough, sums ConfusionCounts) [NumMetrics]float64 {
	return [NumMetrics]float64{
		Constraints: OrZero(avg.Constraints),
		Terms:       OrZero(avg.Terms),
		Jaccard:     OrZero(avg.Jaccard),
		Precision:   sums.Precision(),
		Recall:      sums.Recall(),
		MeanAngle:   OrZero(avg.MeanAngle),
	}
}
