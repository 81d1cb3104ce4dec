// Package validate checks the arguments and stdin payload of an execution
// request before any process is started.
package validate

import (
	"strings"
	"unicode/utf8"
)

// Limits applied to every execution request. They are fixed and cannot be
// changed at runtime.
const (
	MaxArgs       = 32
	MaxArgLength  = 2048 // characters
	MaxArgsBytes  = 16384
	MaxStdinBytes = 65536
)

// Code identifies the rule an input violated.
type Code string

const (
	TooManyArguments  Code = "too_many_arguments"
	NulByteInArgument Code = "nul_byte_in_argument"
	ArgumentTooLong   Code = "argument_too_long"
	ArgumentsTooLarge Code = "arguments_too_large"
	StdinTooLarge     Code = "stdin_too_large"
	MissingID         Code = "missing_execution_id"
)

// Error is returned when a request fails validation.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Args checks argument count, content, and size. Each argument is checked in
// order and the first failure wins, so the cumulative size error is reported
// for the first argument that pushes the running total over the limit.
func Args(args []string) error {
	if len(args) > MaxArgs {
		return &Error{Code: TooManyArguments, Message: "Too many arguments (max 32)"}
	}

	total := 0
	for _, arg := range args {
		if strings.IndexByte(arg, 0) >= 0 {
			return &Error{Code: NulByteInArgument, Message: "Arguments cannot contain NUL bytes"}
		}
		if utf8.RuneCountInString(arg) > MaxArgLength {
			return &Error{Code: ArgumentTooLong, Message: "Argument exceeds 2048 characters"}
		}
		total += len(arg)
		if total > MaxArgsBytes {
			return &Error{Code: ArgumentsTooLarge, Message: "Arguments exceed 16384 bytes"}
		}
	}
	return nil
}

// Stdin checks the size of the stdin payload. A nil payload is valid.
func Stdin(stdin *string) error {
	if stdin == nil {
		return nil
	}
	if len(*stdin) > MaxStdinBytes {
		return &Error{Code: StdinTooLarge, Message: "stdin exceeds 65536 bytes"}
	}
	return nil
}

// ExecutionID checks that an execution ID was supplied.
func ExecutionID(id string) error {
	if id == "" {
		return &Error{Code: MissingID, Message: "Execution ID is required"}
	}
	return nil
}
