// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// exitCoder is implemented by errors whose command already wrote its
// own output and only needs a status.
type exitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with code. An error
// that carries its own ExitCode exits with that code and no message.
func Fatal(err error, code int) {
	var coder exitCoder
	if errors.As(err, &coder) {
		exit(coder.ExitCode())
		return
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	if code == 0 {
		code = 1
	}
	exit(code)
}
