// Package resilience provides retry with exponential backoff for
// contention-prone store operations.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes for transaction contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// IsRetryable reports whether an error indicates transient contention or
// a transient connection failure, rather than a definitive outcome.
// Conditional-write conflicts (a dispute already moved on) are NOT
// retryable: retrying would not change the answer.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Transaction contention reported by PostgreSQL.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
	}

	// Network-level timeouts on the database connection.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// SQLite surfaces lock contention as text when the busy timeout is
	// exhausted.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"database is locked",
		"database table is locked",
		"connection reset by peer",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
