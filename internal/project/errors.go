package project

import (
	"errors"
	"fmt"

	"github.com/beequen/beequen/internal/core"
)

// CodeProjectNotFound is the error code for an unknown project uuid.
const CodeProjectNotFound = "PROJECT_NOT_FOUND"

var (
	// ErrProjectNotFound indicates the requested project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("project store is closed")
)

// StoreError wraps store operation errors with context.
type StoreError struct {
	Op  string // Operation that failed (e.g., "load", "save")
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("project store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// notFound reports an unknown uuid. It matches ErrProjectNotFound with
// errors.Is and carries the not_found category.
func notFound(uuid string) error {
	return &core.DomainError{
		Category: core.ErrCatNotFound,
		Code:     CodeProjectNotFound,
		Message:  fmt.Sprintf("Project uuid: %s does not exist.", uuid),
		Cause:    ErrProjectNotFound,
	}
}

func missingProjectID() error {
	return core.ErrValidation(core.CodeMissingField, "projectId is required")
}
