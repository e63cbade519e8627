package moments

import (
	"database/sql"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver name whose connections have the
// stdev aggregate registered.
const DriverName = "sqlite3_trialstats"

// AggregateName is the SQL name of the registered reducer.
const AggregateName = "stdev"

var registerOnce sync.Once

// RegisterDriver registers DriverName with database/sql. Safe to call more
// than once.
func RegisterDriver() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: Register,
		})
	})
}

// Register installs the stdev aggregate on a single connection.
func Register(conn *sqlite3.SQLiteConn) error {
	return conn.RegisterAggregator(AggregateName, newStdevAggregate, true)
}

// stdevAggregate adapts Accumulator to go-sqlite3's Step/Done contract.
type stdevAggregate struct {
	acc Accumulator
}

func newStdevAggregate() *stdevAggregate {
	return &stdevAggregate{}
}

// Step receives NULL as nil, so the generic argument keeps NULLs skippable.
func (s *stdevAggregate) Step(v interface{}) {
	s.acc.StepValue(v)
}

// Done returns SQL NULL when the deviation is undefined.
func (s *stdevAggregate) Done() (interface{}, error) {
	sd, ok := s.acc.Finalize()
	if !ok {
		return nil, nil
	}
	return sd, nil
}
