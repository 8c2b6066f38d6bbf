package watch

import (
	"errors"
	"fmt"
)

const ModuleName = "giter-watcher"

// Code values are wire codes; append only.
type Code int

const (
	CodeAddWatcherFailed Code = iota
	CodeRemoveWatcherFailed
	CodeOther
)

func (c Code) String() string {
	switch c {
	case CodeAddWatcherFailed:
		return "AddWatcherFailed"
	case CodeRemoveWatcherFailed:
		return "RemoveWatcherFailed"
	case CodeOther:
		return "Other"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorCode() int { return int(e.Code) }

func (e *Error) Operation() string { return e.Op }

func (e *Error) Module() string { return ModuleName }

// ErrClosed is returned by operations on a closed Multiplexer.
var ErrClosed = errors.New("watcher closed")
