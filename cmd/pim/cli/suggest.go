// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// suggestionThreshold is the largest edit distance still suggested.
const suggestionThreshold = 3

// suggestCommand returns the closest subcommand name to unknown, or ""
// if none is within the threshold.
func suggestCommand(unknown string, commands []*Command) string {
	names := make([]string, len(commands))
	for index, command := range commands {
		names[index] = command.Name
	}
	return closest(unknown, names)
}

// suggestFlag finds the first flag in args the flag set does not
// define and returns the closest defined flag, with its dashes.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	var defined []string
	flagSet.VisitAll(func(f *pflag.Flag) {
		defined = append(defined, f.Name)
	})

	for _, arg := range args {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if index := strings.IndexByte(name, '='); index >= 0 {
			name = name[:index]
		}
		if flagSet.Lookup(name) != nil || (len(name) == 1 && flagSet.ShorthandLookup(name) != nil) {
			continue
		}

		if best := closest(name, defined); best != "" {
			return "--" + best
		}
		break
	}
	return ""
}

func closest(unknown string, candidates []string) string {
	bestName := ""
	bestDistance := suggestionThreshold + 1
	for _, candidate := range candidates {
		if distance := levenshtein(unknown, candidate); distance < bestDistance {
			bestDistance = distance
			bestName = candidate
		}
	}
	return bestName
}

// levenshtein is the edit distance between a and b in bytes, computed
// with a single row of the distance matrix.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}
	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous = current
	}
	return previous[len(a)]
}
