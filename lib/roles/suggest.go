// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roles

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/bureau-foundation/pim/lib/scope"
)

// maxSuggestions caps how many names Suggest returns.
const maxSuggestions = 3

// Suggest returns up to three display names close to input: names that
// contain it (ignoring case) or are within a small edit distance.
// Listing failures yield no suggestions.
func (resolver *Resolver) Suggest(ctx context.Context, authority scope.Kind, target scope.Scope, input string) []string {
	definitions, err := resolver.List(ctx, authority, target)
	if err != nil {
		resolver.logger.Debug("no suggestions, listing failed", "error", err)
		return nil
	}

	type candidate struct {
		name     string
		distance int
	}
	lowerInput := strings.ToLower(input)
	threshold := max(2, len([]rune(input))/3)

	var candidates []candidate
	seen := map[string]bool{}
	for _, definition := range definitions {
		name := definition.DisplayName
		if name == "" || seen[name] {
			continue
		}
		lowerName := strings.ToLower(name)
		distance := Distance(lowerInput, lowerName)
		if strings.Contains(lowerName, lowerInput) {
			distance = min(distance, 1)
		}
		if distance <= threshold {
			seen[name] = true
			candidates = append(candidates, candidate{name: name, distance: distance})
		}
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		if order := cmp.Compare(a.distance, b.distance); order != 0 {
			return order
		}
		return strings.Compare(a.name, b.name)
	})
	suggestions := make([]string, 0, min(len(candidates), maxSuggestions))
	for _, match := range candidates[:min(len(candidates), maxSuggestions)] {
		suggestions = append(suggestions, match.name)
	}
	return suggestions
}

// Distance is the Levenshtein edit distance between a and b, counted
// in runes.
func Distance(a, b string) int {
	first, second := []rune(a), []rune(b)
	if len(first) == 0 {
		return len(second)
	}
	if len(second) == 0 {
		return len(first)
	}
	if len(first) > len(second) {
		first, second = second, first
	}

	previous := make([]int, len(first)+1)
	for i := range previous {
		previous[i] = i
	}
	current := make([]int, len(first)+1)
	for j := 1; j <= len(second); j++ {
		current[0] = j
		for i := 1; i <= len(first); i++ {
			cost := 1
			if first[i-1] == second[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous, current = current, previous
	}
	return previous[len(first)]
}
