package models

import "time"

// AttendeeStatus is the response state of a meeting attendee.
type AttendeeStatus string

const (
	AttendeeAccepted AttendeeStatus = "accepted"
	AttendeeDeclined AttendeeStatus = "declined"
	AttendeePending  AttendeeStatus = "pending"
)

// ParseAttendeeStatus maps a provider response status onto an AttendeeStatus.
// Anything other than accepted or declined is pending.
func ParseAttendeeStatus(s string) AttendeeStatus {
	switch AttendeeStatus(s) {
	case AttendeeAccepted:
		return AttendeeAccepted
	case AttendeeDeclined:
		return AttendeeDeclined
	default:
		return AttendeePending
	}
}

type Attendee struct {
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Status AttendeeStatus `json:"status"`
}

// Meeting is a single calendar event as shown on the dashboard.
// IsPast and AISummary are assigned once during enrichment.
type Meeting struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Attendees   []Attendee `json:"attendees"`
	Location    string     `json:"location,omitempty"`
	IsPast      bool       `json:"isPast"`
	AISummary   string     `json:"aiSummary,omitempty"`
}

// Valid reports whether the meeting starts no later than it ends.
func (m *Meeting) Valid() bool {
	return !m.Start.After(m.End)
}

// AcceptedCount returns the number of attendees who accepted.
func (m *Meeting) AcceptedCount() int {
	n := 0
	for _, a := range m.Attendees {
		if a.Status == AttendeeAccepted {
			n++
		}
	}
	return n
}

// Provenance records where a meeting list came from.
type Provenance string

const (
	ProvenanceLive      Provenance = "live"
	ProvenanceSynthetic Provenance = "synthetic"
)
