package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
)

var (
	ErrDuplicate         = errors.New("duplicate value")
	ErrReferenceNotFound = errors.New("referenced row does not exist")
	ErrUnknownUsers      = errors.New("unknown users")
	ErrLastParticipant   = errors.New("conversation must keep at least one participant")
)

// constraintFields maps schema constraint names to the request field they guard.
var constraintFields = map[string]string{
	"accounts_email_key":    "email",
	"accounts_username_key": "username",
}

type ConstraintError struct {
	Err        error
	Constraint string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Err.Error(), e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Field returns the request field guarded by the violated constraint, if known.
func (e *ConstraintError) Field() string {
	return constraintFields[e.Constraint]
}

func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case uniqueViolation:
		return &ConstraintError{Err: ErrDuplicate, Constraint: pqErr.Constraint}
	case foreignKeyViolation:
		return &ConstraintError{Err: ErrReferenceNotFound, Constraint: pqErr.Constraint}
	default:
		return err
	}
}
