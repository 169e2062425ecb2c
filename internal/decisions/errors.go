package decisions

import (
	"errors"
	"fmt"

	"opsdesk/internal/domain"
)

var (
	ErrNotFound = domain.ErrNotFound
	// ErrStatusConflict is returned by a Persistence when the compare-and-set
	// on the current status fails.
	ErrStatusConflict  = errors.New("decision status changed concurrently")
	ErrAlreadyResolved = errors.New("decision already resolved")
	ErrNoExecutor      = errors.New("no executor registered")
	ErrNotApproved     = errors.New("decision not approved")
)

// AlreadyResolvedError carries the terminal status found on the record.
type AlreadyResolvedError struct {
	ID     string
	Status string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("decision %s already %s", e.ID, e.Status)
}

func (e *AlreadyResolvedError) Unwrap() error { return ErrAlreadyResolved }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr passes sentinel outcomes through and wraps everything else.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStatusConflict) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
