package render

import (
	"reflect"
	"testing"
)

func treeGrid() Grid {
	return Grid{
		Benchmarks: []string{"circle"},
		Dimensions: []int64{3},
		Levels: []Level{
			{Column: "Join", Label: "Join", Multipliers: []float64{1, 1.5, 2}},
			{Column: "MaxHeight", Label: "Max Height", Multipliers: []float64{1, 1.5, 2}, Separators: []int{2}},
		},
	}
}

func TestLevelExpand_RoundsHalfAwayFromZero(t *testing.T) {
	l := Level{Multipliers: []float64{0.5, 1, 1.5, 2}}
	got := l.expand(5)
	want := []int64{3, 5, 8, 10}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expand(5) = %v, want %v", got, want)
	}

	fixed := Level{Values: []int64{100, 200}}
	if got := fixed.expand(7); !reflect.DeepEqual(got, []int64{100, 200}) {
		t.Fatalf("fixed values changed: %v", got)
	}
}

func TestGridLeaves_Tree(t *testing.T) {
	g := treeGrid()
	leaves := g.Leaves("circle", 3)
	if len(leaves) != 9 {
		t.Fatalf("expected 9 leaves, got %d", len(leaves))
	}

	// Join 3, 5, 6; MaxHeight derived from each join.
	wantValues := [][]int64{
		{3, 3}, {3, 5}, {3, 6},
		{5, 5}, {5, 8}, {5, 10},
		{6, 6}, {6, 9}, {6, 12},
	}
	for i, leaf := range leaves {
		if !reflect.DeepEqual(leaf.Values, wantValues[i]) {
			t.Errorf("leaf %d values = %v, want %v", i, leaf.Values, wantValues[i])
		}
		wantSep := i%3 == 2
		if leaf.Separator != wantSep {
			t.Errorf("leaf %d separator = %v, want %v", i, leaf.Separator, wantSep)
		}
		wantSpan := 0
		if i%3 == 0 {
			wantSpan = 3
		}
		if leaf.Spans[0] != wantSpan {
			t.Errorf("leaf %d join span = %d, want %d", i, leaf.Spans[0], wantSpan)
		}
		if leaf.Spans[1] != 1 {
			t.Errorf("leaf %d max height span = %d, want 1", i, leaf.Spans[1])
		}
	}

	if got := leaves[4].Filter.String(); got != "circle/d=3/Join=5/MaxHeight=8" {
		t.Errorf("filter = %q", got)
	}
	if g.Columns() != 9 {
		t.Errorf("columns = %d, want 9", g.Columns())
	}
}

func TestGridGroups_Order(t *testing.T) {
	g := Grid{
		Benchmarks: []string{"circle", "cube"},
		Dimensions: []int64{3, 4},
		Levels:     []Level{{Column: "FeasibleExamples", Values: []int64{100, 200}}},
	}
	groups := g.Groups()
	if len(groups) != 8 {
		t.Fatalf("expected 8 groups, got %d", len(groups))
	}
	want := []string{
		"circle/d=3/FeasibleExamples=100", "circle/d=3/FeasibleExamples=200",
		"circle/d=4/FeasibleExamples=100", "circle/d=4/FeasibleExamples=200",
		"cube/d=3/FeasibleExamples=100", "cube/d=3/FeasibleExamples=200",
		"cube/d=4/FeasibleExamples=100", "cube/d=4/FeasibleExamples=200",
	}
	for i, leaf := range groups {
		if leaf.Filter.String() != want[i] {
			t.Errorf("group %d = %s, want %s", i, leaf.Filter, want[i])
		}
	}
}
