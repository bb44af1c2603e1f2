package resource

import (
	"errors"
	"fmt"
)

// ErrResourceNotFound matches every *NotFoundError via errors.Is
var ErrResourceNotFound = errors.New("resource not found")

// NotFoundError is returned by Apply when an action addresses a resource that is
// not part of the collection. It is a usage error: the action is rejected and
// the previous state stays current.
type NotFoundError struct {
	Op      Kind
	Address Address
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: resource %s was not found", e.Op, e.Address)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrResourceNotFound
}

// RemoteError records a failed remote call against the workflow that issued it.
// The transport error is kept verbatim.
type RemoteError struct {
	Label Label
	Err   error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return string(e.Label) + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Label, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
