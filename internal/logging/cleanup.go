package logging

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// SafeCloseWithLogging closes c and logs a failure instead of returning it.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, operation string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		LogError(logger, "failed to close resource", err,
			slog.String("operation", operation),
			slog.String("component", "resource_management"))
	}
}

// SafeRollbackWithLogging is meant to be deferred right after BeginTx.
// Rolling back a committed transaction is not an error.
func SafeRollbackWithLogging(tx interface{ Rollback() error }, logger *slog.Logger, operation string) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		LogError(logger, "failed to rollback transaction", err,
			slog.String("operation", operation),
			slog.String("component", "database"))
	}
}

// HandleDeferredError runs op and, when it fails, logs it and reports it
// through *errp unless an earlier error is already there.
func HandleDeferredError(errp *error, op func() error, logger *slog.Logger, operation string) {
	if op == nil {
		return
	}
	err := op()
	if err == nil {
		return
	}
	LogError(logger, "deferred operation failed", err,
		slog.String("operation", operation),
		slog.String("component", "deferred_cleanup"))
	if *errp == nil {
		*errp = fmt.Errorf("%s: %w", operation, err)
	}
}
