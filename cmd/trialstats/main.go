// Package main implements the trialstats binary.
// It aggregates experiment results databases and renders the LaTeX tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/arkilian/trialstats/internal/app"
	"github.com/arkilian/trialstats/internal/config"
	tserrors "github.com/arkilian/trialstats/internal/errors"
)

var (
	version = "dev"
	commit  = "unknown"
)

// flags holds the command line overrides applied on top of file and env.
type flags struct {
	configFile string
	dataDir    string
	database   string
	compareDB  string
	outputDir  string
	tables     string
	summary    bool
}

func main() {
	var (
		f           flags
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&f.dataDir, "data-dir", "", "Base directory for results databases")
	flag.StringVar(&f.database, "db", "", "Results database used by every table")
	flag.StringVar(&f.compareDB, "compare-db", "", "Database to test significance against")
	flag.StringVar(&f.outputDir, "out", "", "Directory for rendered .tex files")
	flag.StringVar(&f.tables, "tables", "", "Comma separated list of tables to render (default: all)")
	flag.BoolVar(&f.summary, "summary", false, "Print a console summary of every group")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "trialstats - experiment statistics and LaTeX tables\n\n")
		fmt.Fprintf(os.Stderr, "Usage: trialstats [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  trialstats --data-dir ./results\n")
		fmt.Fprintf(os.Stderr, "  trialstats --tables tree,pruned_tree --summary\n")
		fmt.Fprintf(os.Stderr, "  trialstats --db run.sqlite --compare-db baseline.sqlite --tables components\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  TRIALSTATS_DATA_DIR        Base directory for results databases\n")
		fmt.Fprintf(os.Stderr, "  TRIALSTATS_OUTPUT_DIR      Directory for rendered tables\n")
		fmt.Fprintf(os.Stderr, "  TRIALSTATS_PUBLISH_TYPE    Publish sink (none, local, s3)\n")
		fmt.Fprintf(os.Stderr, "  TRIALSTATS_S3_*            S3 bucket, region and endpoint\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("trialstats version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// A missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := loadConfig(f)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	printBanner(cfg, application.RunID())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	report, err := application.Run(ctx)
	if err != nil {
		if tserrors.IsFatal(err) {
			log.Fatalf("Schema evolution failed: %v", err)
		}
		log.Fatalf("Run failed: %v", err)
	}

	for _, t := range report.Tables {
		log.Printf("  %-12s %3d groups  %s", t.Name, t.Groups, t.Output)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(f flags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if f.configFile != "" {
		cfg, err = config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	// Command line flags have the highest priority.
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.outputDir != "" {
		cfg.OutputDir = f.outputDir
	}
	if f.summary {
		cfg.Summary = true
	}
	if f.tables != "" {
		var names []string
		for _, name := range strings.Split(f.tables, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if err := cfg.SelectTables(names); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Tables {
		if f.database != "" {
			cfg.Tables[i].Database = f.database
		}
		if f.compareDB != "" {
			cfg.Tables[i].CompareDatabase = f.compareDB
		}
	}

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config, runID string) {
	log.Printf("trialstats %s (run %s)", version, runID)
	log.Printf("Configuration:")
	log.Printf("  Data Dir:   %s", cfg.DataDir)
	log.Printf("  Output Dir: %s", cfg.OutputDir)
	log.Printf("  Publish:    %s", cfg.Publish.Type)
	log.Printf("  Alpha:      %g (dof %d)", cfg.Significance.Alpha, cfg.Significance.DegreesOfFreedom)
	log.Printf("Tables:")
	for _, t := range cfg.Tables {
		if t.CompareDatabase != "" {
			log.Printf("  %-12s %s vs %s", t.Name, t.Database, t.CompareDatabase)
		} else {
			log.Printf("  %-12s %s", t.Name, t.Database)
		}
	}
	log.Printf("")
}
