package bean

import (
	"errors"
	"fmt"
)

// CreationError reports that creating a bean failed.
type CreationError struct {
	Bean  string
	Cause error
}

func (e *CreationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("error creating bean %q", e.Bean)
	}
	return fmt.Sprintf("error creating bean %q: %v", e.Bean, e.Cause)
}

func (e *CreationError) Unwrap() error {
	return e.Cause
}

// InCreationError reports a request for a bean whose creation is in progress
// on the same resolution path.
type InCreationError struct {
	Bean string
	Path []string
}

func (e *InCreationError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("bean %q is currently in creation", e.Bean)
	}
	return fmt.Sprintf("bean %q is currently in creation: %v", e.Bean, e.Path)
}

// RootCause returns the innermost error of err's unwrap chain.
func RootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// InCreationCause reports whether the root cause of err is an InCreationError
// and, if so, returns it.
func InCreationCause(err error) (*InCreationError, bool) {
	var ice *InCreationError
	if errors.As(RootCause(err), &ice) {
		return ice, true
	}
	return nil, false
}
