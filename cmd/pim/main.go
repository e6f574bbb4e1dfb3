// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/pim/cmd/pim/cli"
	"github.com/bureau-foundation/pim/cmd/pim/commands"
	"github.com/bureau-foundation/pim/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err, cli.ExitCode(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}
