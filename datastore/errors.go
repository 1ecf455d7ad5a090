package datastore

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is wrapped into errors returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const pqUniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
