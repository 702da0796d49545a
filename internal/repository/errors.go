package repository

import (
	"errors"
	"fmt"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

var (
	// ErrStorage matches every StorageError via errors.Is
	ErrStorage = errors.New("storage error")

	// ErrUnknownTable is returned for a table outside the known set
	ErrUnknownTable = errors.New("unknown table")

	// ErrInvalidLimit is returned for a non-positive query limit
	ErrInvalidLimit = errors.New("invalid limit")
)

// StorageError reports a failed backend call
type StorageError struct {
	Op    string
	Table domain.Table
	Err   error
}

func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage: failed to %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("storage: failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError wraps err, or returns nil when err is nil
func NewStorageError(op string, table domain.Table, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Table: table, Err: err}
}
