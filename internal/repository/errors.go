package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes this package reacts to
const (
	pgUniqueViolation   = "23505"
	pgSerializationFail = "40001"
	pgDeadlockDetected  = "40P01"
	pgLockNotAvailable  = "55P03"
)

// ErrConcurrencyConflict marks lock-wait timeouts, deadlocks and
// serialization failures. Callers must retry the whole operation from
// scratch, never resume a partial one.
var ErrConcurrencyConflict = errors.New("concurrent update conflict, retry the operation")

// InsufficientStockError reports the first cart line that could not be
// covered by on-hand inventory.
type InsufficientStockError struct {
	ProductID uuid.UUID
	SKU       string
	Requested int
	OnHand    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, on hand %d (short %d)",
		e.SKU, e.Requested, e.OnHand, e.Requested-e.OnHand)
}

// translateConcurrency maps the store's lock and serialization
// SQLSTATEs onto the retryable sentinel, leaving other errors alone.
func translateConcurrency(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFail, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %s", ErrConcurrencyConflict, pgErr.Message)
		}
	}
	return err
}
