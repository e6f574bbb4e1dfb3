// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ExitError signals a non-zero exit without an extra error message;
// the command has already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Exit statuses by error category.
const (
	ExitFailure    = 1
	ExitValidation = 2
	ExitNotFound   = 3
	ExitForbidden  = 4
	ExitTransient  = 5
)

// ExitCode maps err onto a process exit status: 0 for nil, the code of
// an ExitError, otherwise one chosen by the error's category.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	switch Classify(err).Category {
	case CategoryValidation:
		return ExitValidation
	case CategoryNotFound:
		return ExitNotFound
	case CategoryForbidden:
		return ExitForbidden
	case CategoryTransient:
		return ExitTransient
	}
	return ExitFailure
}
