package db

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryable decides whether a failed operation may be attempted again.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// Try executes an operation with default retry settings for transient Postgres errors.
// It uses DefaultMaxRetries and IsTransientPostgresError.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsTransientPostgresError)
}

// WithRetries executes an operation, retrying it up to maxRetries times while
// isRetryable accepts the error. Non-retryable errors are returned immediately.
func WithRetries(op Operation, maxRetries int, isRetryable IsRetryable) error {
	var err error
	// Loop for initial attempt (attempt = 0) + maxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		if attempt == maxRetries {
			break
		}

		if !isRetryable(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond) // Simple incremental backoff
	}
	return err
}

// IsTransientPostgresError reports serialization failures, deadlocks and
// connection exceptions, which succeed when simply run again.
func IsTransientPostgresError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"57P01": // admin_shutdown
		return true
	}
	return pqErr.Code.Class() == "08" // connection_exception
}
