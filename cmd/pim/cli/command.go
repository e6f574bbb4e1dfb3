// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is a CLI command or subcommand.
type Command struct {
	// Name is the command name as typed (e.g., "activate").
	Name string

	// Summary is a one-line description shown in the parent's listing.
	Summary string

	// Description is shown in the command's own help output.
	Description string

	// Usage is the usage line. If empty, it is synthesized from the
	// command path.
	Usage string

	Examples []Example

	// Flags returns a configured flag set for this command. Called on
	// each parse. If nil, the command accepts no flags.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run executes the command with the positional arguments left after
	// flag parsing.
	Run func(ctx context.Context, args []string) error

	// HelpOutput receives help text. Defaults to the parent's, then
	// os.Stderr.
	HelpOutput io.Writer

	parent *Command
}

// Example is a usage example shown in help output.
type Example struct {
	Description string
	Command     string
}

// Execute parses args and dispatches to the matching subcommand or Run.
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpOutput())
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name := args[0]
		for _, sub := range c.Subcommands {
			if sub.Name == name {
				sub.parent = c
				return sub.Execute(ctx, args[1:])
			}
		}

		if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
			return Validation("unknown command %q (did you mean %q?)\n\nRun '%s --help' for usage.",
				name, suggestion, c.FullName())
		}
		return Validation("unknown command %q\n\nRun '%s --help' for usage.", name, c.FullName())
	}

	if len(c.Subcommands) > 0 && c.Run == nil {
		c.PrintHelp(c.helpOutput())
		if len(args) == 0 {
			return Validation("subcommand required")
		}
		return Validation("subcommand required (got flag %q)", args[0])
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)

		if err := flagSet.Parse(args); err != nil {
			if err == pflag.ErrHelp {
				c.PrintHelp(c.helpOutput())
				return nil
			}
			message := err.Error()
			if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand flag") {
				if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
					return Validation("%s (did you mean %s?)\n\nRun '%s --help' for usage.",
						message, suggestion, c.FullName())
				}
			}
			return Validation("%s\n\nRun '%s --help' for usage.", message, c.FullName())
		}
		args = flagSet.Args()
	}

	if c.Run != nil {
		return c.Run(ctx, args)
	}

	c.PrintHelp(c.helpOutput())
	return Validation("no action defined for %q", c.FullName())
}

// PrintHelp writes help output to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.FullName()

	if c.Description != "" {
		fmt.Fprintf(w, "%s\n\n", c.Description)
	} else if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	switch {
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		if usage := flagSet.FlagUsages(); usage != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", usage)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description != "" {
				fmt.Fprintf(w, "  # %s\n", example.Description)
			}
			fmt.Fprintf(w, "  %s\n", example.Command)
			if example.Description != "" {
				fmt.Fprintln(w)
			}
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

// FullName returns the command path (e.g., "pim cache keygen").
func (c *Command) FullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.FullName() + " " + c.Name
}

func (c *Command) helpOutput() io.Writer {
	for command := c; command != nil; command = command.parent {
		if command.HelpOutput != nil {
			return command.HelpOutput
		}
	}
	return os.Stderr
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
