package client

import "fmt"

// ErrNotFound indicates the server has no item with the requested id
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("item not found: %s", e.ID)
}

// ErrRateLimited is returned once the client gives up retrying a 429
type ErrRateLimited struct {
	RetryAfter int // seconds
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
}

// ErrUnexpectedStatus carries a non-success response the client cannot handle
type ErrUnexpectedStatus struct {
	Op     string
	Status int
	Body   string
}

func (e ErrUnexpectedStatus) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Body)
}
