package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrParse              = errors.New("parse failure")
	ErrResourceBusy       = errors.New("resource busy")
	ErrWriteProtected     = errors.New("write protected")
	ErrStructuralMismatch = errors.New("structural mismatch")
	ErrCancelled          = errors.New("cancelled by user")
)

// MismatchError reports how many source entities had no counterpart in the
// target project during a merge.
type MismatchError struct {
	Count int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %d entities not found in target", ErrStructuralMismatch, e.Count)
}

func (e *MismatchError) Unwrap() error {
	return ErrStructuralMismatch
}
