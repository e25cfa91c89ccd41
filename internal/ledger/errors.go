package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets an id the ledger does not hold.
var ErrNotFound = errors.New("record not found")

// LedgerError reports a failure of the persistence layer. It is fatal to the
// operation that produced it: a caller must never assume the write happened.
type LedgerError struct {
	Op   string // Ledger operation, e.g. "insert" or "mark-viewed"
	Path string // Image path involved, if any
	Err  error
}

func (e *LedgerError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("ledger %s %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// IsLedgerError reports whether err carries a *LedgerError anywhere in its chain.
func IsLedgerError(err error) bool {
	var le *LedgerError
	return errors.As(err, &le)
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return err
	}
	return &LedgerError{Op: op, Path: path, Err: err}
}
