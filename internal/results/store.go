package results

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	tserrors "github.com/arkilian/trialstats/internal/errors"
	"github.com/arkilian/trialstats/internal/moments"
)

// Store is a handle on one results database.
//
// The pool is limited to a single connection. SQLite serializes writers
// anyway, and a single connection keeps ":memory:" databases coherent.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open opens the results database at path through the driver that carries
// the stdev aggregate.
func Open(ctx context.Context, path string) (*Store, error) {
	moments.RegisterDriver()

	db, err := sqlx.Open(moments.DriverName, path)
	if err != nil {
		return nil, tserrors.NewStorageError(tserrors.CodeOpenFailed,
			fmt.Sprintf("failed to open results database %s", path), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, tserrors.NewStorageError(tserrors.CodeOpenFailed,
			fmt.Sprintf("failed to open results database %s", path), err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTable creates the experiments table if it does not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, CreateExperimentsTableSQL); err != nil {
		return tserrors.NewSchemaError(tserrors.CodeSchemaInspection, "failed to create experiments table", err)
	}
	return nil
}

// columns returns the set of column names currently on the experiments table.
func (s *Store) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, tableInfoSQL)
	if err != nil {
		return nil, tserrors.NewSchemaError(tserrors.CodeSchemaInspection, "failed to inspect experiments table", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid      int
			name     string
			typ      string
			notNull  int
			defValue sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defValue, &pk); err != nil {
			return nil, tserrors.NewSchemaError(tserrors.CodeSchemaInspection, "failed to scan table info", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, tserrors.NewSchemaError(tserrors.CodeSchemaInspection, "failed to inspect experiments table", err)
	}
	if len(cols) == 0 {
		return nil, tserrors.NewSchemaError(tserrors.CodeSchemaInspection,
			fmt.Sprintf("table %s does not exist", TableName), nil)
	}
	return cols, nil
}

// EnsureStdDevColumns appends whichever std-dev columns are missing. Running
// it again is a no-op.
func (s *Store) EnsureStdDevColumns(ctx context.Context) error {
	existing, err := s.columns(ctx)
	if err != nil {
		return err
	}

	for _, col := range StdDevColumns {
		if existing[col] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(addColumnSQL, col)); err != nil {
			return tserrors.NewSchemaError(tserrors.CodeColumnAddFailed,
				fmt.Sprintf("failed to add column %s", col), err)
		}
		log.Printf("results: added column %s to %s", col, s.path)
	}
	return nil
}

// Begin starts the transaction std-dev updates run in. The store has a single
// connection, so no other Store method may be called until the transaction
// is committed or rolled back.
func (s *Store) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, tserrors.NewStorageError(tserrors.CodeCommitFailed, "failed to begin transaction", err)
	}
	return tx, nil
}

// UpdateStdDevs computes the six std-devs of a group and writes them to every
// row of that group inside tx. Committing is the caller's decision.
func (s *Store) UpdateStdDevs(ctx context.Context, tx *sqlx.Tx, f GroupFilter) (StdDevs, error) {
	where, args, err := f.where()
	if err != nil {
		return StdDevs{}, err
	}

	var sd StdDevs
	if err := tx.GetContext(ctx, &sd, stdDevSelectSQL+where, args...); err != nil {
		return StdDevs{}, tserrors.NewQueryError(tserrors.CodeQueryFailed,
			fmt.Sprintf("failed to compute std-devs for %s", f), err)
	}

	updateArgs := append(sd.args(), args...)
	if _, err := tx.ExecContext(ctx, stdDevUpdateSQL+where, updateArgs...); err != nil {
		return StdDevs{}, tserrors.NewQueryError(tserrors.CodeUpdateFailed,
			fmt.Sprintf("failed to store std-devs for %s", f), err)
	}
	return sd, nil
}

// GroupStatistics reads the means and stored std-devs of a group. An empty
// group yields zero means and undefined deviations.
func (s *Store) GroupStatistics(ctx context.Context, f GroupFilter) (GroupStatistics, error) {
	where, args, err := f.where()
	if err != nil {
		return GroupStatistics{}, err
	}

	var row groupRow
	if err := s.db.GetContext(ctx, &row, groupStatisticsSQL+where, args...); err != nil {
		return GroupStatistics{}, tserrors.NewQueryError(tserrors.CodeQueryFailed,
			fmt.Sprintf("failed to read statistics for %s", f), err)
	}
	return newGroupStatistics(row), nil
}

// TrialMetrics returns the per-trial metrics of a group ordered by seed.
func (s *Store) TrialMetrics(ctx context.Context, f GroupFilter) ([]TrialMetrics, error) {
	where, args, err := f.where()
	if err != nil {
		return nil, err
	}

	var trials []TrialMetrics
	if err := s.db.SelectContext(ctx, &trials, trialMetricsSQL+where+trialMetricsOrderSQL, args...); err != nil {
		return nil, tserrors.NewQueryError(tserrors.CodeQueryFailed,
			fmt.Sprintf("failed to read trials for %s", f), err)
	}
	return trials, nil
}

// CountTrials returns the number of successful trials in a group.
func (s *Store) CountTrials(ctx context.Context, f GroupFilter) (int64, error) {
	where, args, err := f.where()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.GetContext(ctx, &n, countTrialsSQL+where, args...); err != nil {
		return 0, tserrors.NewQueryError(tserrors.CodeQueryFailed,
			fmt.Sprintf("failed to count trials for %s", f), err)
	}
	return n, nil
}

// InsertTrial writes one trial record.
func (s *Store) InsertTrial(ctx context.Context, rec TrialRecord) error {
	if _, err := s.db.NamedExecContext(ctx, insertTrialSQL, rec); err != nil {
		return tserrors.NewQueryError(tserrors.CodeUpdateFailed, "failed to insert trial", err)
	}
	return nil
}
