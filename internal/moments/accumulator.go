// Package moments provides a single-pass standard deviation reducer that can be
// folded over an in-memory sequence or registered as a SQLite aggregate.
package moments

import (
	"math"
	"strconv"
)

// MinSamples is the number of non-null samples below which the standard
// deviation is reported as undefined.
const MinSamples = 3

// Accumulator maintains running count, mean and sum of squared deviations
// using Welford's online algorithm. NULL samples are skipped.
//
// The zero value is ready to use.
type Accumulator struct {
	count int64
	mean  float64
	m2    float64
}

// Step folds one sample into the running moments. A nil sample is skipped.
func (a *Accumulator) Step(v *float64) {
	if v == nil {
		return
	}
	a.add(*v)
}

// StepValue folds a loosely typed value, as handed over by a SQL engine.
// nil, NaN and non-numeric values are skipped.
func (a *Accumulator) StepValue(v interface{}) {
	f, ok := toFloat(v)
	if !ok {
		return
	}
	a.add(f)
}

func (a *Accumulator) add(x float64) {
	if math.IsNaN(x) {
		return
	}
	a.count++
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (x - a.mean)
}

// Count returns the number of non-null samples folded so far.
func (a *Accumulator) Count() int64 {
	return a.count
}

// Mean returns the running mean, 0 if nothing has been folded.
func (a *Accumulator) Mean() float64 {
	return a.mean
}

// Finalize returns the sample standard deviation. ok is false when fewer than
// MinSamples non-null samples were observed; callers treat that as a
// legitimate "undefined" result, not a failure.
func (a *Accumulator) Finalize() (stddev float64, ok bool) {
	if a.count < MinSamples {
		return 0, false
	}
	return math.Sqrt(a.m2 / float64(a.count-1)), true
}

// Reset clears the accumulator for reuse.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// StdDev folds values and returns the finalized standard deviation.
func StdDev(values []*float64) (float64, bool) {
	var a Accumulator
	for _, v := range values {
		a.Step(v)
	}
	return a.Finalize()
}

// toFloat converts the value kinds SQLite hands to aggregates.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
