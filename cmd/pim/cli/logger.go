// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the logger for a command run. On a terminal
// it writes text; when stderr is redirected it writes JSON lines.
// verbose lowers the level to debug.
func NewCommandLogger(verbose bool) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), verbose)
}

func newLogger(w io.Writer, terminal, verbose bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		options.Level = slog.LevelDebug
	}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// IsInteractive reports whether stdin and stderr are both terminals,
// so a person can answer a sign-in prompt.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}
