package results

import (
	"fmt"
	"strings"

	tserrors "github.com/arkilian/trialstats/internal/errors"
)

// structuralColumns maps the structural parameters a group may be keyed by to
// their quoted SQL identifiers. Identifiers cannot be bound as parameters, so
// only names from this set ever reach the query text.
var structuralColumns = map[string]string{
	"Components":       `"Components"`,
	"Join":             `"Join"`,
	"MaxHeight":        `"MaxHeight"`,
	"FeasibleExamples": `"FeasibleExamples"`,
	"K":                `"K"`,
}

// IsStructuralColumn reports whether name can key a configuration group.
func IsStructuralColumn(name string) bool {
	_, ok := structuralColumns[name]
	return ok
}

// Param is one structural parameter of a configuration group.
type Param struct {
	Column string
	Value  int64
}

// GroupFilter identifies a configuration group: all successful trials that
// share benchmark, dimensions and structural parameters. Tag, when set,
// restricts rows to those whose ExperimentName contains it.
type GroupFilter struct {
	Benchmark  string
	Dimensions int64
	Params     []Param
	Tag        string
}

// String renders the filter for log lines.
func (f GroupFilter) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/d=%d", f.Benchmark, f.Dimensions)
	for _, p := range f.Params {
		fmt.Fprintf(&b, "/%s=%d", p.Column, p.Value)
	}
	if f.Tag != "" {
		fmt.Fprintf(&b, "[%s]", f.Tag)
	}
	return b.String()
}

// With returns a copy of the filter extended by one structural parameter.
func (f GroupFilter) With(column string, value int64) GroupFilter {
	params := make([]Param, len(f.Params), len(f.Params)+1)
	copy(params, f.Params)
	f.Params = append(params, Param{Column: column, Value: value})
	return f
}

// where builds the predicate and its bound arguments. Rows with a non-empty
// error indicator never match.
func (f GroupFilter) where() (string, []interface{}, error) {
	clauses := []string{"Benchmark = ?", "Dimensions = ?"}
	args := []interface{}{f.Benchmark, f.Dimensions}

	for _, p := range f.Params {
		ident, ok := structuralColumns[p.Column]
		if !ok {
			return "", nil, tserrors.NewConfigError(tserrors.CodeInvalidColumn,
				fmt.Sprintf("unknown structural column %q", p.Column))
		}
		clauses = append(clauses, ident+" = ?")
		args = append(args, p.Value)
	}

	clauses = append(clauses, "Errors = ''")

	if f.Tag != "" {
		clauses = append(clauses, "ExperimentName LIKE ?")
		args = append(args, "%"+f.Tag+"%")
	}

	return strings.Join(clauses, " AND "), args, nil
}
