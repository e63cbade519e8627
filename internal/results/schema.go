// Package results provides access to the experiments table of a results
// database: idempotent std-dev column evolution, per-group std-dev
// materialization and the statistics queries used by the table renderer.
package results

// TableName is the results table written by the experiment runner.
const TableName = "experiments"

// Standard-deviation columns owned by this package. They are appended to the
// experiments table on demand and overwritten on every aggregation run.
const (
	ConstraintsStdColumn = "ConstraintsStd"
	TermsStdColumn       = "TermsStd"
	JaccardStdColumn     = "JaccardStd"
	PrecisionStdColumn   = "PrecisionStd"
	RecallStdColumn      = "RecallStd"
	MeanAngleStdColumn   = "MeanAngleStd"
)

// StdDevColumns lists the std-dev columns in metric order.
var StdDevColumns = []string{
	ConstraintsStdColumn,
	TermsStdColumn,
	JaccardStdColumn,
	PrecisionStdColumn,
	RecallStdColumn,
	MeanAngleStdColumn,
}

// CreateExperimentsTableSQL creates the experiments table with the columns the
// runner writes. Production databases already have it; fixtures and fresh
// databases use this statement.
const CreateExperimentsTableSQL = `
CREATE TABLE IF NOT EXISTS experiments (
    Benchmark TEXT,
    ExperimentName TEXT,
    Dimensions INTEGER,
    Components INTEGER,
    "Join" INTEGER,
    MaxHeight INTEGER,
    FeasibleExamples INTEGER,
    K INTEGER,
    Seed INTEGER,
    Errors TEXT,
    Constraints INTEGER,
    Terms INTEGER,
    HJaccard REAL,
    MeanAngle REAL,
    HTP INTEGER,
    HFN INTEGER,
    HFP INTEGER,
    HTN INTEGER
)`

// tableInfoSQL lists the columns of the experiments table.
const tableInfoSQL = `PRAGMA table_info(experiments)`

// addColumnSQL appends a std-dev column. The column name is always one of
// StdDevColumns, never user input.
const addColumnSQL = `ALTER TABLE experiments ADD COLUMN %s NUMERIC`

// Per-trial precision and recall. SQLite yields NULL for a zero denominator,
// which the stdev aggregate skips.
const (
	trialPrecisionExpr = `CAST(HTP AS REAL) / NULLIF(HTP + HFP, 0)`
	trialRecallExpr    = `CAST(HTP AS REAL) / NULLIF(HTP + HFN, 0)`
)

// stdDevSelectSQL computes the six std-devs of a group through the stdev
// aggregate. The WHERE clause is appended by the caller.
const stdDevSelectSQL = `
SELECT
    stdev(Constraints) AS constraints_std,
    stdev(Terms) AS terms_std,
    stdev(HJaccard) AS jaccard_std,
    stdev(` + trialPrecisionExpr + `) AS precision_std,
    stdev(` + trialRecallExpr + `) AS recall_std,
    stdev(MeanAngle) AS mean_angle_std
FROM experiments
WHERE `

// stdDevUpdateSQL overwrites the stored std-devs of every row in a group.
const stdDevUpdateSQL = `
UPDATE experiments SET
    ConstraintsStd = ?,
    TermsStd = ?,
    JaccardStd = ?,
    PrecisionStd = ?,
    RecallStd = ?,
    MeanAngleStd = ?
WHERE `

// groupStatisticsSQL reads averages, summed confusion counts and the stored
// std-devs of a group. Every row of a group carries the same std-devs, so MAX
// picks that value deterministically.
const groupStatisticsSQL = `
SELECT
    COUNT(*) AS trials,
    AVG(Constraints) AS constraints_avg,
    AVG(Terms) AS terms_avg,
    AVG(HJaccard) AS jaccard_avg,
    AVG(MeanAngle) AS mean_angle_avg,
    TOTAL(HTP) AS tp_sum,
    TOTAL(HFN) AS fn_sum,
    TOTAL(HFP) AS fp_sum,
    MAX(ConstraintsStd) AS constraints_std,
    MAX(TermsStd) AS terms_std,
    MAX(JaccardStd) AS jaccard_std,
    MAX(PrecisionStd) AS precision_std,
    MAX(RecallStd) AS recall_std,
    MAX(MeanAngleStd) AS mean_angle_std
FROM experiments
WHERE `

// trialMetricsSQL reads per-trial metrics. Rows are ordered by seed so two
// datasets line up trial for trial.
const trialMetricsSQL = `
SELECT
    Seed AS seed,
    Constraints AS constraints,
    Terms AS terms,
    HJaccard AS jaccard,
    ` + trialPrecisionExpr + ` AS precision,
    ` + trialRecallExpr + ` AS recall,
    MeanAngle AS mean_angle
FROM experiments
WHERE `

const trialMetricsOrderSQL = ` ORDER BY Seed ASC`

const countTrialsSQL = `SELECT COUNT(*) FROM experiments WHERE `

// insertTrialSQL inserts one trial record using named parameters.
const insertTrialSQL = `
INSERT INTO experiments (
    Benchmark, ExperimentName, Dimensions, Components, "Join", MaxHeight,
    FeasibleExamples, Seed, Errors, Constraints, Terms, HJaccard, MeanAngle,
    HTP, HFN, HFP, HTN
) VALUES (
    :benchmark, :experiment_name, :dimensions, :components, :join, :max_height,
    :feasible_examples, :seed, :errors, :constraints, :terms, :jaccard, :mean_angle,
    :tp, :fn, :fp, :tn
)`
