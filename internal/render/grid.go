// Package render writes per-group statistics as a LaTeX tabular document.
//
// Rendering is two-phase. ComputeScaleFactors visits every group of a table
// and derives the scale factors and maximum deviations; Renderer.Render then
// writes the document using those factors. Render refuses to run without
// them.
package render

import (
	"math"

	"github.com/arkilian/trialstats/internal/derived"
	"github.com/arkilian/trialstats/internal/results"
)

// Level is one structural parameter nested under the dimension column.
//
// Values are either a fixed list or, when Multipliers is set, derived from the
// parent value (the dimension for the first level, the previous level's value
// otherwise) as round(m * parent), half away from zero.
type Level struct {
	Column      string
	Label       string
	Multipliers []float64
	Values      []int64

	// Separators lists value indices after which a partial horizontal rule is
	// drawn across the table body.
	Separators []int
}

// expand returns the level's values under a given parent value.
func (l Level) expand(parent int64) []int64 {
	if len(l.Multipliers) == 0 {
		return l.Values
	}
	out := make([]int64, len(l.Multipliers))
	for i, m := range l.Multipliers {
		out[i] = int64(math.Round(m * float64(parent)))
	}
	return out
}

func (l Level) separatorAfter(idx int) bool {
	for _, s := range l.Separators {
		if s == idx {
			return true
		}
	}
	return false
}

// Grid is the fixed enumeration order of a table:
// benchmark, dimension, then each level in turn.
type Grid struct {
	Benchmarks []string
	Dimensions []int64
	Levels     []Level
}

// Columns returns the number of tabular columns of one benchmark block: the
// dimension, one per level, and one per metric.
func (g Grid) Columns() int {
	return 1 + len(g.Levels) + derived.NumMetrics
}

// Leaf is one configuration group in enumeration order.
type Leaf struct {
	Filter results.GroupFilter

	// Values holds the value of every level on the path to this leaf.
	Values []int64

	// Spans holds, per level, the number of leaves under this leaf's node when
	// the leaf is the first one in that node, and 0 otherwise.
	Spans []int

	// Separator is set when a partial rule follows this leaf's row.
	Separator bool
}

// Leaves enumerates the groups of one benchmark and dimension. Filters carry
// no tag; callers add their own.
func (g Grid) Leaves(benchmark string, dim int64) []Leaf {
	var leaves []Leaf
	root := results.GroupFilter{Benchmark: benchmark, Dimensions: dim}
	g.walk(0, dim, root, nil, &leaves)
	return leaves
}

// walk appends the leaves below level and returns how many it added. It
// stamps the span of the node's first leaf and the separator on its last.
func (g Grid) walk(level int, parent int64, f results.GroupFilter, path []int64, leaves *[]Leaf) int {
	if level == len(g.Levels) {
		values := make([]int64, len(path))
		copy(values, path)
		*leaves = append(*leaves, Leaf{
			Filter: f,
			Values: values,
			Spans:  make([]int, len(g.Levels)),
		})
		return 1
	}

	l := g.Levels[level]
	total := 0
	for idx, v := range l.expand(parent) {
		first := len(*leaves)
		n := g.walk(level+1, v, f.With(l.Column, v), append(path, v), leaves)
		if n == 0 {
			continue
		}
		(*leaves)[first].Spans[level] = n
		if l.separatorAfter(idx) {
			(*leaves)[len(*leaves)-1].Separator = true
		}
		total += n
	}
	return total
}

// Groups enumerates every group of the grid in order.
func (g Grid) Groups() []Leaf {
	var all []Leaf
	for _, b := range g.Benchmarks {
		for _, d := range g.Dimensions {
			all = append(all, g.Leaves(b, d)...)
		}
	}
	return all
}
