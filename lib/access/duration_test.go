// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"testing"
	"time"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"PT1H", time.Hour},
		{"PT8H", 8 * time.Hour},
		{"PT30M", 30 * time.Minute},
		{"PT90S", 90 * time.Second},
		{"PT1.5S", 1500 * time.Millisecond},
		{"P365D", 365 * 24 * time.Hour},
		{"P1W", 7 * 24 * time.Hour},
		{"P1DT2H30M", 26*time.Hour + 30*time.Minute},
		{"pt2h", 2 * time.Hour},
		{"PT0S", 0},
	}
	for _, test := range tests {
		got, err := ParseISODuration(test.text)
		if err != nil {
			t.Errorf("ParseISODuration(%q): %v", test.text, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseISODuration(%q) = %s, want %s", test.text, got, test.want)
		}
	}
}

func TestParseISODurationInvalid(t *testing.T) {
	for _, text := range []string{"", "P", "PT", "1H", "P1H", "PT1D", "P1Y", "P2M", "P1.5D", "PTXH", "P1DTT1H",
		"P1D1D", "PT1H2H", "PT30M1H", "P1D1W", "P1DT",
	} {
		if got, err := ParseISODuration(text); err == nil {
			t.Errorf("ParseISODuration(%q) = %s, want error", text, got)
		}
	}
}

func TestParseISODurationOverflow(t *testing.T) {
	for _, text := range []string{"P200000D", "P100000D100000D100000D", "P10000W200000D", "PT9999999999999999999S"} {
		got, err := ParseISODuration(text)
		if err == nil {
			t.Errorf("ParseISODuration(%q) = %s, want error", text, got)
		}
	}

	got, err := ParseISODuration("P100000D")
	if err != nil {
		t.Fatalf("ParseISODuration(P100000D): %v", err)
	}
	if want := 100000 * 24 * time.Hour; got != want {
		t.Errorf("ParseISODuration(P100000D) = %s, want %s", got, want)
	}
}

func TestFormatISODuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{time.Hour, "PT1H"},
		{90 * time.Minute, "PT1H30M"},
		{45 * time.Second, "PT45S"},
		{365 * 24 * time.Hour, "P365D"},
		{26*time.Hour + 30*time.Minute, "P1DT2H30M"},
		{0, "PT0S"},
	}
	for _, test := range tests {
		got := FormatISODuration(test.duration)
		if got != test.want {
			t.Errorf("FormatISODuration(%s) = %q, want %q", test.duration, got, test.want)
		}
		parsed, err := ParseISODuration(got)
		if err != nil {
			t.Fatalf("ParseISODuration(%q): %v", got, err)
		}
		if parsed != test.duration {
			t.Errorf("roundtrip of %s gave %s", test.duration, parsed)
		}
	}
}

func TestParseFlexibleDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"PT2H":  2 * time.Hour,
		"90m":   90 * time.Minute,
		"1h30m": 90 * time.Minute,
	}
	for text, want := range tests {
		got, err := ParseFlexibleDuration(text)
		if err != nil {
			t.Fatalf("ParseFlexibleDuration(%q): %v", text, err)
		}
		if got != want {
			t.Errorf("ParseFlexibleDuration(%q) = %s, want %s", text, got, want)
		}
	}
	if _, err := ParseFlexibleDuration("soon"); err == nil {
		t.Error("ParseFlexibleDuration(\"soon\") should fail")
	}
}
