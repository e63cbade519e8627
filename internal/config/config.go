// Package config provides configuration for the trialstats batch run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	tserrors "github.com/arkilian/trialstats/internal/errors"
)

// Publish sink types.
const (
	PublishNone  = "none"
	PublishLocal = "local"
	PublishS3    = "s3"
)

// Config holds the configuration of one batch run.
type Config struct {
	// DataDir is the base directory relative result databases resolve against
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// OutputDir is where rendered .tex files are written
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// BarMaxHeight is the height in points of a full deviation bar
	BarMaxHeight float64 `json:"bar_max_height" yaml:"bar_max_height"`

	// Summary prints a console table of every rendered group
	Summary bool `json:"summary" yaml:"summary"`

	// Significance test configuration
	Significance SignificanceConfig `json:"significance" yaml:"significance"`

	// Publish configuration
	Publish PublishConfig `json:"publish" yaml:"publish"`

	// Tables lists the table variants rendered in order
	Tables []TableConfig `json:"tables" yaml:"tables"`

	resolved bool
}

// SignificanceConfig holds the paired t-test parameters.
type SignificanceConfig struct {
	Alpha            float64 `json:"alpha" yaml:"alpha"`
	DegreesOfFreedom int     `json:"degrees_of_freedom" yaml:"degrees_of_freedom"`
}

// PublishConfig controls where rendered tables are copied after a run.
type PublishConfig struct {
	// Type is the sink type: none, local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the target directory (for local type)
	Path string `json:"path" yaml:"path"`

	// Prefix is prepended to every published object name
	Prefix string `json:"prefix" yaml:"prefix"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle forces path-style addressing, needed by most S3-compatible stores
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// TableConfig describes one rendered table.
type TableConfig struct {
	Name string `json:"name" yaml:"name"`

	// Output is the .tex file name, relative to OutputDir unless absolute
	Output string `json:"output" yaml:"output"`

	// Database is the results database rendered, relative to DataDir unless absolute
	Database string `json:"database" yaml:"database"`

	// CompareDatabase, when set, enables significance underlining against it
	CompareDatabase string `json:"compare_database" yaml:"compare_database"`

	// Tag restricts rows to experiment names containing it
	Tag string `json:"tag" yaml:"tag"`

	// ColumnSep is the LaTeX \tabcolsep of each benchmark block
	ColumnSep string `json:"column_sep" yaml:"column_sep"`

	Benchmarks []string      `json:"benchmarks" yaml:"benchmarks"`
	Dimensions []int64       `json:"dimensions" yaml:"dimensions"`
	Levels     []LevelConfig `json:"levels" yaml:"levels"`

	// MaxStdDev pins the full-bar deviation of each metric. Empty means the
	// maxima observed in the table are used.
	MaxStdDev []float64 `json:"max_std_dev" yaml:"max_std_dev"`
}

// LevelConfig describes one structural parameter level of a table.
type LevelConfig struct {
	Column      string    `json:"column" yaml:"column"`
	Label       string    `json:"label" yaml:"label"`
	Multipliers []float64 `json:"multipliers" yaml:"multipliers"`
	Values      []int64   `json:"values" yaml:"values"`
	Separators  []int     `json:"separators" yaml:"separators"`
}

// structuralColumns mirrors the columns a results group may be keyed by.
var structuralColumns = map[string]bool{
	"Components":       true,
	"Join":             true,
	"MaxHeight":        true,
	"FeasibleExamples": true,
	"K":                true,
}

var (
	defaultBenchmarks = []string{"circle", "cube", "simplex"}
	defaultDimensions = []int64{3, 4, 5, 6, 7}
)

const (
	mainDatabase    = "testDatabase.sqlite"
	pruningDatabase = "treePruningDb.sqlite"
)

func treeLevels() []LevelConfig {
	return []LevelConfig{
		{Column: "Join", Label: "Join", Multipliers: []float64{1, 1.5, 2}},
		{Column: "MaxHeight", Label: "Max Height", Multipliers: []float64{1, 1.5, 2}, Separators: []int{2}},
	}
}

// DefaultTables returns the stock table variants.
func DefaultTables() []TableConfig {
	return []TableConfig{
		{
			Name:       "components",
			Output:     "ComponentsTable.tex",
			Database:   mainDatabase,
			Tag:        "Components",
			ColumnSep:  "1px",
			Benchmarks: defaultBenchmarks,
			Dimensions: defaultDimensions,
			Levels: []LevelConfig{
				{Column: "Components", Label: "Components", Multipliers: []float64{0.5, 1, 2}},
			},
		},
		{
			Name:            "tree",
			Output:          "TreeTable.tex",
			Database:        mainDatabase,
			CompareDatabase: pruningDatabase,
			Tag:             "Tree",
			ColumnSep:       "0.7px",
			Benchmarks:      defaultBenchmarks,
			Dimensions:      defaultDimensions,
			Levels:          treeLevels(),
		},
		{
			Name:            "pruned_tree",
			Output:          "PrunedTreeTable.tex",
			Database:        pruningDatabase,
			CompareDatabase: mainDatabase,
			Tag:             "Tree",
			ColumnSep:       "0.7px",
			Benchmarks:      defaultBenchmarks,
			Dimensions:      defaultDimensions,
			Levels:          treeLevels(),
		},
		{
			Name:       "examples",
			Output:     "ExamplesTable.tex",
			Database:   mainDatabase,
			Tag:        "Examples",
			ColumnSep:  "0.7px",
			Benchmarks: defaultBenchmarks,
			Dimensions: defaultDimensions,
			Levels: []LevelConfig{
				{Column: "FeasibleExamples", Label: "Feasible Examples", Values: []int64{100, 200, 300, 400, 500}},
			},
		},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      "./data/trialstats",
		OutputDir:    "",
		BarMaxHeight: 7,
		Significance: SignificanceConfig{
			Alpha:            0.05,
			DegreesOfFreedom: 29,
		},
		Publish: PublishConfig{
			Type: PublishNone,
		},
		Tables: DefaultTables(),
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir. Only
// the first call has an effect.
func (c *Config) Resolve() {
	if c.resolved {
		return
	}
	c.resolved = true

	if c.DataDir == "" {
		c.DataDir = "./data/trialstats"
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.DataDir, "tables")
	}
	if c.Publish.Type == "" {
		c.Publish.Type = PublishNone
	}
	if c.Publish.Type == PublishLocal && c.Publish.Path == "" {
		c.Publish.Path = filepath.Join(c.DataDir, "published")
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		t.Database = c.resolve(c.DataDir, t.Database)
		t.CompareDatabase = c.resolve(c.DataDir, t.CompareDatabase)
		if t.Output == "" {
			t.Output = t.Name + ".tex"
		}
		t.Output = c.resolve(c.OutputDir, t.Output)
	}
}

func (c *Config) resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return invalid("data_dir is required")
	}
	if c.BarMaxHeight <= 0 {
		return invalid("bar_max_height must be positive, got %v", c.BarMaxHeight)
	}
	if c.Significance.Alpha <= 0 || c.Significance.Alpha >= 1 {
		return invalid("significance.alpha must be in (0, 1), got %v", c.Significance.Alpha)
	}
	if c.Significance.DegreesOfFreedom < 1 {
		return invalid("significance.degrees_of_freedom must be positive, got %d", c.Significance.DegreesOfFreedom)
	}

	switch c.Publish.Type {
	case PublishNone, PublishLocal, PublishS3:
	default:
		return invalid("invalid publish type: %s (must be none, local or s3)", c.Publish.Type)
	}
	if c.Publish.Type == PublishS3 && c.Publish.S3.Bucket == "" {
		return invalid("publish.s3.bucket is required when publish type is s3")
	}

	if len(c.Tables) == 0 {
		return invalid("at least one table is required")
	}
	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.Name] {
			return invalid("duplicate table name: %s", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Validate validates one table.
func (t TableConfig) Validate() error {
	if t.Name == "" {
		return invalid("table name is required")
	}
	if t.Database == "" {
		return invalid("table %s: database is required", t.Name)
	}
	if len(t.Benchmarks) == 0 || len(t.Dimensions) == 0 {
		return invalid("table %s: benchmarks and dimensions are required", t.Name)
	}
	if len(t.Levels) == 0 {
		return invalid("table %s: at least one level is required", t.Name)
	}
	for _, l := range t.Levels {
		if !structuralColumns[l.Column] {
			return tserrors.NewConfigError(tserrors.CodeInvalidColumn,
				fmt.Sprintf("table %s: unknown structural column %q", t.Name, l.Column))
		}
		n := len(l.Values)
		if len(l.Multipliers) > 0 {
			if n > 0 {
				return invalid("table %s: level %s sets both multipliers and values", t.Name, l.Column)
			}
			n = len(l.Multipliers)
		}
		if n == 0 {
			return invalid("table %s: level %s has no values", t.Name, l.Column)
		}
		for _, s := range l.Separators {
			if s < 0 || s >= n {
				return invalid("table %s: level %s separator %d out of range", t.Name, l.Column, s)
			}
		}
	}
	if len(t.MaxStdDev) != 0 && len(t.MaxStdDev) != 6 {
		return invalid("table %s: max_std_dev needs 6 values, got %d", t.Name, len(t.MaxStdDev))
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return tserrors.NewConfigError(tserrors.CodeInvalidConfig, fmt.Sprintf(format, args...))
}

// Table returns the table with the given name.
func (c *Config) Table(name string) (*TableConfig, error) {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i], nil
		}
	}
	return nil, tserrors.NewConfigError(tserrors.CodeUnknownTable, fmt.Sprintf("unknown table: %s", name))
}

// SelectTables keeps only the named tables, in the order given.
func (c *Config) SelectTables(names []string) error {
	selected := make([]TableConfig, 0, len(names))
	for _, name := range names {
		t, err := c.Table(name)
		if err != nil {
			return err
		}
		selected = append(selected, *t)
	}
	c.Tables = selected
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TRIALSTATS_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("TRIALSTATS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TRIALSTATS_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("TRIALSTATS_BAR_MAX_HEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.BarMaxHeight = f
		}
	}
	if v := os.Getenv("TRIALSTATS_SUMMARY"); v != "" {
		cfg.Summary = v == "true" || v == "1"
	}

	// Significance configuration
	if v := os.Getenv("TRIALSTATS_SIGNIFICANCE_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Significance.Alpha = f
		}
	}
	if v := os.Getenv("TRIALSTATS_SIGNIFICANCE_DOF"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Significance.DegreesOfFreedom)
	}

	// Publish configuration
	if v := os.Getenv("TRIALSTATS_PUBLISH_TYPE"); v != "" {
		cfg.Publish.Type = v
	}
	if v := os.Getenv("TRIALSTATS_PUBLISH_PATH"); v != "" {
		cfg.Publish.Path = v
	}
	if v := os.Getenv("TRIALSTATS_PUBLISH_PREFIX"); v != "" {
		cfg.Publish.Prefix = v
	}
	if v := os.Getenv("TRIALSTATS_S3_BUCKET"); v != "" {
		cfg.Publish.S3.Bucket = v
	}
	if v := os.Getenv("TRIALSTATS_S3_REGION"); v != "" {
		cfg.Publish.S3.Region = v
	}
	if v := os.Getenv("TRIALSTATS_S3_ENDPOINT"); v != "" {
		cfg.Publish.S3.Endpoint = v
	}
	if v := os.Getenv("TRIALSTATS_S3_USE_PATH_STYLE"); v != "" {
		cfg.Publish.S3.UsePathStyle = v == "true" || v == "1"
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.OutputDir}
	if c.Publish.Type == PublishLocal {
		dirs = append(dirs, c.Publish.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
