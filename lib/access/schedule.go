// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package access

import (
	"errors"
	"fmt"
	"time"
)

// ExpirationKind selects how a grant ends.
type ExpirationKind string

const (
	NoExpiration  ExpirationKind = "NoExpiration"
	AfterDuration ExpirationKind = "AfterDuration"
	AfterDateTime ExpirationKind = "AfterDateTime"
)

// Expiration describes when a grant ends. Duration is meaningful only
// for AfterDuration and EndTime only for AfterDateTime.
type Expiration struct {
	Kind     ExpirationKind `json:"kind"`
	Duration time.Duration  `json:"duration,omitempty"`
	EndTime  time.Time      `json:"end_time,omitzero"`
}

// Never returns an expiration that does not end.
func Never() Expiration { return Expiration{Kind: NoExpiration} }

// ExpireAfter returns an expiration d after the grant starts.
func ExpireAfter(d time.Duration) Expiration {
	return Expiration{Kind: AfterDuration, Duration: d}
}

// ExpireAt returns an expiration at a fixed instant.
func ExpireAt(t time.Time) Expiration {
	return Expiration{Kind: AfterDateTime, EndTime: t}
}

// Validate enforces that each kind carries exactly its own payload.
func (e Expiration) Validate() error {
	switch e.Kind {
	case NoExpiration:
		if e.Duration != 0 || !e.EndTime.IsZero() {
			return errors.New("access: NoExpiration must not carry a duration or end time")
		}
	case AfterDuration:
		if e.Duration <= 0 {
			return fmt.Errorf("access: AfterDuration requires a positive duration, got %s", e.Duration)
		}
		if !e.EndTime.IsZero() {
			return errors.New("access: AfterDuration must not carry an end time")
		}
	case AfterDateTime:
		if e.EndTime.IsZero() {
			return errors.New("access: AfterDateTime requires an end time")
		}
		if e.Duration != 0 {
			return errors.New("access: AfterDateTime must not carry a duration")
		}
	default:
		return fmt.Errorf("access: unknown expiration kind %q", e.Kind)
	}
	return nil
}

// Schedule is when a grant starts and how it ends. A nil StartTime
// means immediately.
type Schedule struct {
	StartTime  *time.Time `json:"start_time,omitempty"`
	Expiration Expiration `json:"expiration"`
}

// Validate checks the expiration and, for AfterDateTime, that the end
// follows the start.
func (s Schedule) Validate() error {
	if err := s.Expiration.Validate(); err != nil {
		return err
	}
	if s.StartTime != nil && s.Expiration.Kind == AfterDateTime && !s.Expiration.EndTime.After(*s.StartTime) {
		return fmt.Errorf("access: end time %s is not after start time %s",
			s.Expiration.EndTime.Format(time.RFC3339), s.StartTime.Format(time.RFC3339))
	}
	return nil
}
