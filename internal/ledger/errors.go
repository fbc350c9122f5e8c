package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Failure modes of ledger operations. Returned errors wrap exactly one of
// these; test with errors.Is.
var (
	// ErrUnauthenticated means the operation was called without a caller id.
	ErrUnauthenticated = errors.New("ledger: unauthenticated")
	// ErrInvalidArgument covers self-follow and empty or oversized comments.
	ErrInvalidArgument = errors.New("ledger: invalid argument")
	// ErrNotFound means the referenced post or user does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrTransientConflict means a concurrent writer aborted the transaction.
	// Nothing was written; the whole operation is safe to run again.
	ErrTransientConflict = errors.New("ledger: transient conflict")
	// ErrUnavailable means the store could not be reached.
	ErrUnavailable = errors.New("ledger: store unavailable")
)

var sentinels = []error{
	ErrUnauthenticated,
	ErrInvalidArgument,
	ErrNotFound,
	ErrTransientConflict,
	ErrUnavailable,
}

// Postgres SQLSTATEs that mean "lost a race, try again".
var conflictStates = map[string]bool{
	"23505": true, // unique_violation
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// classify maps driver and gorm errors onto the ledger taxonomy. Errors it
// does not recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrTransientConflict, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if conflictStates[pgErr.Code] {
			return fmt.Errorf("%w: %w", ErrTransientConflict, err)
		}
		// Class 08: connection exception. 57P0x: server shutting down.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0") {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	// SQLite reports contention and constraint failures only as text.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is closed"):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "SQLITE_BUSY"),
		strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %w", ErrTransientConflict, err)
	}
	return err
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTransientConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
