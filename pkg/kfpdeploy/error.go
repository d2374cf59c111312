package kfpdeploy

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/nais/kfp-deploy/pkg/kfp"
)

type ExitCode int

// Keep separate to avoid skewing exit codes
const (
	ExitSuccess ExitCode = iota
	ExitUploadRejected
	ExitUnavailable
	ExitInvocationFailure
	ExitInternalError
)

type Error struct {
	Code ExitCode
	Err  error
}

func (err *Error) Error() string {
	return err.Err.Error()
}

func (err *Error) Unwrap() error {
	return err.Err
}

func Errorf(exitCode ExitCode, format string, args ...any) *Error {
	return &Error{
		Code: exitCode,
		Err:  fmt.Errorf(format, args...),
	}
}

func ErrorWrap(exitCode ExitCode, err error) *Error {
	return &Error{
		Code: exitCode,
		Err:  err,
	}
}

func ErrorExitCode(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if !errors.As(err, &e) {
		return ExitInternalError
	}
	return e.Code
}

// uploadErrorCode classifies a failed upload. A pipeline file that cannot be
// read is the caller's mistake; an answer from the service is a rejection;
// anything else means the service could not be reached.
func uploadErrorCode(err error) ExitCode {
	var apierr *kfp.ErrorResponse
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return ExitInvocationFailure
	case errors.As(err, &apierr):
		return ExitUploadRejected
	default:
		return ExitUnavailable
	}
}
