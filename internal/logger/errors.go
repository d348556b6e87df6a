package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned if the log settings lack an AppName.
	ErrAppNameIsEmpty = errors.New("log settings need an AppName")

	// ErrServiceNameIsEmpty is returned if the log settings lack a ServiceName.
	ErrServiceNameIsEmpty = errors.New("log settings need a ServiceName")
)

// ErrorHandler implements a custom error handler.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "zerolog: could not write event: %v\n", err)
}
