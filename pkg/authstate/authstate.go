// Package authstate classifies whether a managed instance currently holds
// a usable set of broker credentials, by reading the single row of its
// embedded auth table.
package authstate

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jabez4jc/openalgo-control/pkg/instancedb"
)

// Status is the derived authentication classification of an instance. It
// is computed fresh on every query and never cached.
type Status string

const (
	StatusAuthenticated    Status = "authenticated"
	StatusUserNotSetup     Status = "not-authenticated-user-not-setup"
	StatusTokenRevoked     Status = "not-authenticated-token-revoked"
	StatusInvalidToken     Status = "not-authenticated-invalid-token"
	StatusFieldsIncomplete Status = "authenticated-fields-incomplete"
)

// Authenticated reports whether s means the instance can trade.
func (s Status) Authenticated() bool { return s == StatusAuthenticated }

// Result carries the classification plus whatever identifying fields were
// readable, so callers can display partial information even for
// unauthenticated instances.
type Result struct {
	Status Status `json:"status"`
	Broker string `json:"broker,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// record is the raw auth table row.
type record struct {
	name      string
	authToken string
	feedToken string
	broker    string
	revoked   bool
}

const authTable = "auth"

// Read locates the instance's database and classifies its auth record.
//
// It never returns an error: any access failure (missing database, missing
// table, malformed row) degrades to a not-authenticated result with a
// descriptive reason, so one corrupted instance cannot fail a fleet-wide
// report.
func Read(ctx context.Context, instanceDir string) Result {
	db, err := instancedb.OpenForTable(ctx, instanceDir, authTable)
	if err != nil {
		// No database means the user never completed setup.
		return Result{Status: StatusUserNotSetup, Reason: "auth database not found"}
	}
	defer func() { _ = db.Close() }()

	rec, err := readRecord(ctx, db)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{Status: StatusUserNotSetup, Reason: "no auth record"}
		}
		return Result{Status: StatusInvalidToken, Reason: "auth record unreadable: " + err.Error()}
	}

	result := Classify(rec.revoked, rec.authToken, rec.feedToken, rec.broker, rec.name)
	result.Broker = rec.broker
	result.Name = rec.name
	return result
}

func readRecord(ctx context.Context, db *sql.DB) (record, error) {
	var rec record
	var revoked sql.NullInt64
	var name, authToken, feedToken, broker sql.NullString

	row := db.QueryRowContext(ctx,
		"SELECT name, auth, feed_token, broker, is_revoked FROM auth LIMIT 1")
	if err := row.Scan(&name, &authToken, &feedToken, &broker, &revoked); err != nil {
		return record{}, err
	}

	rec.name = strings.TrimSpace(name.String)
	rec.authToken = strings.TrimSpace(authToken.String)
	rec.feedToken = strings.TrimSpace(feedToken.String)
	rec.broker = strings.TrimSpace(broker.String)
	rec.revoked = revoked.Int64 != 0
	return rec, nil
}

// Classify applies the fixed five-way priority order to the auth fields.
// It is total: exactly one classification applies to any input.
func Classify(revoked bool, authToken, feedToken, broker, name string) Result {
	switch {
	case name == "":
		return Result{Status: StatusUserNotSetup, Reason: "user not configured"}
	case revoked && authToken != "" && feedToken != "" && broker != "":
		// Revoked while every field is still populated: the stored token
		// is present but unusable, which is distinct from a clean logout.
		return Result{Status: StatusInvalidToken, Reason: "token revoked but still populated"}
	case revoked:
		return Result{Status: StatusTokenRevoked, Reason: "token revoked"}
	case broker == "":
		return Result{Status: StatusInvalidToken, Reason: "broker not set"}
	case authToken == "" || feedToken == "":
		return Result{Status: StatusInvalidToken, Reason: "credential missing"}
	default:
		return Result{Status: StatusAuthenticated}
	}
}
