// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"strings"
	"time"

	"github.com/bureau-foundation/pim/lib/access"
)

// wireTime decodes a timestamp leniently. Values without a zone are
// read as UTC; anything unparseable reads as zero.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

func (value *wireTime) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	value.Time = time.Time{}
	if text == "" || text == "null" {
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			value.Time = parsed
			return nil
		}
	}
	return nil
}

func (value *wireTime) pointer() *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	copied := value.Time
	return &copied
}

// wireExpiration is scheduleInfo.expiration on the wire. The directory
// authority spells types in lower camel case, the resource authority
// in Pascal case; decoding accepts both.
type wireExpiration struct {
	Type        string     `json:"type"`
	Duration    string     `json:"duration,omitempty"`
	EndDateTime *time.Time `json:"endDateTime,omitempty"`
}

type wireSchedule struct {
	StartDateTime *time.Time     `json:"startDateTime,omitempty"`
	Expiration    wireExpiration `json:"expiration"`
}

// wireScheduleRecord is the decoding counterpart of wireSchedule.
type wireScheduleRecord struct {
	StartDateTime *wireTime `json:"startDateTime"`
	Expiration    struct {
		Type        string    `json:"type"`
		Duration    string    `json:"duration"`
		EndDateTime *wireTime `json:"endDateTime"`
	} `json:"expiration"`
}

type wireTicket struct {
	TicketNumber string `json:"ticketNumber,omitempty"`
	TicketSystem string `json:"ticketSystem,omitempty"`
}

// encodeSchedule renders schedule for the wire. Requests without an
// expiration (removals) carry no scheduleInfo.
func encodeSchedule(schedule access.Schedule, lowerCamel bool) *wireSchedule {
	if schedule.Expiration.Kind == "" {
		return nil
	}
	kind := string(schedule.Expiration.Kind)
	if lowerCamel {
		kind = strings.ToLower(kind[:1]) + kind[1:]
	}
	encoded := &wireSchedule{
		StartDateTime: schedule.StartTime,
		Expiration:    wireExpiration{Type: kind},
	}
	switch schedule.Expiration.Kind {
	case access.AfterDuration:
		encoded.Expiration.Duration = access.FormatISODuration(schedule.Expiration.Duration)
	case access.AfterDateTime:
		end := schedule.Expiration.EndTime.UTC()
		encoded.Expiration.EndDateTime = &end
	}
	return encoded
}

// decodeSchedule reads a schedule leniently.
func decodeSchedule(record *wireScheduleRecord) access.Schedule {
	if record == nil {
		return access.Schedule{}
	}
	schedule := access.Schedule{StartTime: record.StartDateTime.pointer()}
	for _, kind := range []access.ExpirationKind{access.NoExpiration, access.AfterDuration, access.AfterDateTime} {
		if strings.EqualFold(record.Expiration.Type, string(kind)) {
			schedule.Expiration.Kind = kind
		}
	}
	switch schedule.Expiration.Kind {
	case access.AfterDuration:
		if duration, err := access.ParseISODuration(record.Expiration.Duration); err == nil {
			schedule.Expiration.Duration = duration
		}
	case access.AfterDateTime:
		if end := record.Expiration.EndDateTime.pointer(); end != nil {
			schedule.Expiration.EndTime = *end
		}
	}
	return schedule
}

func encodeTicket(ticket *access.Ticket) *wireTicket {
	if ticket.Empty() {
		return nil
	}
	return &wireTicket{TicketNumber: ticket.Number, TicketSystem: ticket.System}
}

func decodeTicket(ticket *wireTicket) *access.Ticket {
	if ticket == nil || (ticket.TicketNumber == "" && ticket.TicketSystem == "") {
		return nil
	}
	return &access.Ticket{Number: ticket.TicketNumber, System: ticket.TicketSystem}
}

// decodeAction accepts either spelling of a request action.
func decodeAction(text string) access.Action {
	action, err := access.ParseAction(text)
	if err != nil {
		return ""
	}
	return action
}

// lastSegment returns the final path segment of an identifier.
func lastSegment(id string) string {
	trimmed := strings.TrimRight(id, "/")
	if index := strings.LastIndexByte(trimmed, '/'); index >= 0 {
		return trimmed[index+1:]
	}
	return trimmed
}
