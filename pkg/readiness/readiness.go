// Package readiness reports whether an instance's master contract data was
// refreshed during the current operational day.
//
// The operational day runs from a fixed local cutover hour to the same
// hour the next calendar day, so a refresh at 07:59 belongs to the
// previous day's window while one at 08:00 opens the new day.
package readiness

import (
	"context"
	"database/sql"
	"time"

	"github.com/jabez4jc/openalgo-control/pkg/instancedb"
)

const (
	statusTable = "master_contract_status"

	// DefaultTimezone and DefaultCutoverHour pin the operational day to
	// 08:00 IST, when contract masters are republished.
	DefaultTimezone    = "Asia/Kolkata"
	DefaultCutoverHour = 8

	// recentRecordLimit bounds how many completed records the window scan
	// examines.
	recentRecordLimit = 10

	StatusReady    = "Master Contract Data Ready"
	StatusNotReady = "Master Contract Data Not Ready"
)

// Clock supplies "now" so tests can pin window boundaries.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock used in production.
var SystemClock Clock = systemClock{}

// Report is the readiness evaluation of one instance. Descriptive fields
// come from the most recent record regardless of whether it fell in the
// window; they stay nil when no record was readable.
type Report struct {
	Ready        bool    `json:"is_ready"`
	Status       string  `json:"status"`
	Broker       *string `json:"broker,omitempty"`
	Message      *string `json:"message,omitempty"`
	TotalSymbols *int64  `json:"total_symbols,omitempty"`
	LastUpdated  *string `json:"last_updated,omitempty"`
}

// Evaluator computes readiness against a fixed civil timezone and cutover
// hour.
type Evaluator struct {
	loc         *time.Location
	cutoverHour int
	clock       Clock
}

// NewEvaluator builds an evaluator. An unknown timezone falls back to UTC;
// a nil clock falls back to the system clock.
func NewEvaluator(timezone string, cutoverHour int, clock Clock) *Evaluator {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Evaluator{loc: loc, cutoverHour: cutoverHour, clock: clock}
}

// Window returns the half-open operational window [start, end) containing
// the evaluator's current time.
func (e *Evaluator) Window() (start, end time.Time) {
	now := e.clock.Now().In(e.loc)
	start = time.Date(now.Year(), now.Month(), now.Day(), e.cutoverHour, 0, 0, 0, e.loc)
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start, start.Add(24 * time.Hour)
}

// Evaluate reads the instance's status table and reports readiness.
//
// A missing database or table is simply "not ready": instances that never
// downloaded contract data are a normal fleet condition, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, instanceDir string) Report {
	notReady := Report{Ready: false, Status: StatusNotReady}

	db, err := instancedb.OpenForTable(ctx, instanceDir, statusTable)
	if err != nil {
		return notReady
	}
	defer func() { _ = db.Close() }()

	report := notReady
	e.fillLatest(ctx, db, &report)

	start, end := e.Window()
	if e.completedWithin(ctx, db, start, end) {
		report.Ready = true
		report.Status = StatusReady
	}
	return report
}

// fillLatest copies the descriptive fields of the most recent record, if
// any, into the report.
func (e *Evaluator) fillLatest(ctx context.Context, db *sql.DB, report *Report) {
	var broker, message, lastUpdated sql.NullString
	var totalSymbols sql.NullInt64

	row := db.QueryRowContext(ctx,
		`SELECT broker, message, total_symbols, last_updated
		 FROM master_contract_status
		 ORDER BY last_updated DESC LIMIT 1`)
	if err := row.Scan(&broker, &message, &totalSymbols, &lastUpdated); err != nil {
		return
	}

	if broker.Valid {
		report.Broker = &broker.String
	}
	if message.Valid {
		report.Message = &message.String
	}
	if totalSymbols.Valid {
		report.TotalSymbols = &totalSymbols.Int64
	}
	if lastUpdated.Valid {
		report.LastUpdated = &lastUpdated.String
	}
}

// completedWithin scans the most recent successfully-completed records in
// descending time order for the first one inside [start, end). Records
// with unparseable timestamps are skipped, not fatal.
func (e *Evaluator) completedWithin(ctx context.Context, db *sql.DB, start, end time.Time) bool {
	rows, err := db.QueryContext(ctx,
		`SELECT last_updated FROM master_contract_status
		 WHERE is_ready = 1
		 ORDER BY last_updated DESC LIMIT ?`, recentRecordLimit)
	if err != nil {
		return false
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			continue
		}
		ts, err := e.parseTimestamp(raw.String)
		if err != nil {
			continue
		}
		if !ts.Before(start) && ts.Before(end) {
			return true
		}
	}
	return false
}

// timestampLayouts lists the formats instances have been observed writing.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseTimestamp interprets a stored timestamp in the evaluator's
// timezone; instances write local naive timestamps.
func (e *Evaluator) parseTimestamp(raw string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, raw, e.loc)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
