package backup

import (
	"errors"
	"fmt"
)

var (
	ErrSourceMissing = errors.New("source path not found")
	ErrCancelled     = errors.New("operation cancelled")
	ErrSuspended     = errors.New("operation suspended due to error policy")
	ErrNoStrategy    = errors.New("no backup strategy selected")
)

type ErrorKind string

const (
	KindCopy          ErrorKind = "copy"
	KindLink          ErrorKind = "link"
	KindVerify        ErrorKind = "verify"
	KindMissing       ErrorKind = "missing"
	KindDirCreate     ErrorKind = "dir-create"
	KindDelete        ErrorKind = "delete"
	KindReadDir       ErrorKind = "read-dir"
	KindTimestampCopy ErrorKind = "timestamps"
)

// ItemError is a failure bound to a single filesystem entry.
type ItemError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ItemError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

func NewItemError(kind ErrorKind, path string, err error) *ItemError {
	return &ItemError{Kind: kind, Path: path, Err: err}
}

// IsCancelled reports whether err stems from a cancelled operation.
// Cancellations are never escalated by the Suspend policy.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
