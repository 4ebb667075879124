package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint on email or username.
var ErrConflict = errors.New("conflict")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translateError maps driver-level constraint violations onto the store's
// sentinel errors so callers never see raw pq errors for expected cases.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case "users_email_key":
			return fmt.Errorf("%w: email already registered", ErrConflict)
		case "users_username_key":
			return fmt.Errorf("%w: username already registered", ErrConflict)
		}
		return ErrConflict
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: referenced user", ErrNotFound)
	}
	return err
}
