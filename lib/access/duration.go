// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseISODuration reads an ISO 8601 duration such as "PT1H", "P365D",
// "P1W", or "P1DT2H30M". Years and months have no fixed length and are
// rejected. Fractional values are accepted on the smallest unit only
// in the seconds position.
func ParseISODuration(text string) (time.Duration, error) {
	original := text
	text = strings.ToUpper(strings.TrimSpace(text))
	if !strings.HasPrefix(text, "P") || len(text) < 3 {
		return 0, fmt.Errorf("access: invalid ISO 8601 duration %q", original)
	}
	text = text[1:]

	var total time.Duration
	inTime := false
	sawUnit := false
	sawTimeUnit := false
	lastRank := -1
	for len(text) > 0 {
		if text[0] == 'T' {
			if inTime {
				return 0, fmt.Errorf("access: invalid ISO 8601 duration %q: repeated T", original)
			}
			inTime = true
			text = text[1:]
			continue
		}

		end := strings.IndexFunc(text, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
		if end <= 0 {
			return 0, fmt.Errorf("access: invalid ISO 8601 duration %q", original)
		}
		number, unit := text[:end], text[end]
		text = text[end+1:]

		value, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return 0, fmt.Errorf("access: invalid ISO 8601 duration %q: %w", original, err)
		}
		if strings.Contains(number, ".") && !(inTime && unit == 'S') {
			return 0, fmt.Errorf("access: invalid ISO 8601 duration %q: fractions are only allowed on seconds", original)
		}

		var scale time.Duration
		var rank int
		switch {
		case !inTime && unit == 'W':
			scale, rank = 7*24*time.Hour, 0
		case !inTime && unit == 'D':
			scale, rank = 24*time.Hour, 1
		case inTime && unit == 'H':
			scale, rank = time.Hour, 2
		case inTime && unit == 'M':
			scale, rank = time.Minute, 3
		case inTime && unit == 'S':
			scale, rank = time.Second, 4
		case !inTime && (unit == 'Y' || unit == 'M'):
			return 0, fmt.Errorf("access: ISO 8601 duration %q uses calendar units (years or months)", original)
		default:
			return 0, fmt.Errorf("access: invalid ISO 8601 duration %q: unexpected unit %q", original, unit)
		}
		if rank <= lastRank {
			return 0, fmt.Errorf("access: invalid ISO 8601 duration %q: unit %q repeated or out of order", original, unit)
		}
		lastRank = rank

		component := value * float64(scale)
		if component >= math.MaxInt64 || time.Duration(component) > math.MaxInt64-total {
			return 0, fmt.Errorf("access: ISO 8601 duration %q is too long", original)
		}
		total += time.Duration(component)
		sawUnit = true
		if inTime {
			sawTimeUnit = true
		}
	}
	if !sawUnit {
		return 0, fmt.Errorf("access: invalid ISO 8601 duration %q", original)
	}
	if inTime && !sawTimeUnit {
		return 0, fmt.Errorf("access: invalid ISO 8601 duration %q: T without a time component", original)
	}
	return total, nil
}

// FormatISODuration renders d in the form the authorities echo back:
// whole days as "nD", the remainder as hours, minutes, and seconds.
// Zero is "PT0S".
func FormatISODuration(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}

	var builder strings.Builder
	builder.WriteString("P")

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		fmt.Fprintf(&builder, "%dD", days)
	}
	if d == 0 {
		return builder.String()
	}

	builder.WriteString("T")
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	if hours > 0 {
		fmt.Fprintf(&builder, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&builder, "%dM", minutes)
	}
	if d > 0 {
		seconds := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
		fmt.Fprintf(&builder, "%sS", seconds)
	}
	return builder.String()
}

// ParseFlexibleDuration accepts either an ISO 8601 duration or a Go
// duration string ("90m", "1h30m"), for command-line and config input.
func ParseFlexibleDuration(text string) (time.Duration, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToUpper(trimmed), "P") {
		return ParseISODuration(trimmed)
	}
	duration, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("access: invalid duration %q (use ISO 8601 like PT1H or Go form like 90m)", text)
	}
	return duration, nil
}
