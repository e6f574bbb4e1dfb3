// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command-line framework of the pim command.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. [Command.Execute] handles flag parsing, subcommand
// routing, and help output with examples.
//
// Flags are declared as tagged struct fields and bound with
// [FlagsFromParams]. Unknown subcommands and flags get a suggestion of
// the closest known name (edit distance at most 3).
//
// Failures are reported through [ToolError] categories; [Classify]
// maps the access and token error types onto them, and [ExitCode]
// turns a category into the process exit status.
package cli
