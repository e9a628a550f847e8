package model

import "time"

// Event statuses.  Staff set the status explicitly; nothing in the
// service moves an event between statuses on its own.
const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventPast      = "past"
	EventCancelled = "cancelled"
)

// Event represents a scheduled watch-party.  It corresponds to a row
// in the `events` table.
//
// Fields:
//	ID               – opaque storage identifier (UUID).
//	Title            – short display title.
//	Description      – long description.
//	ShortDescription – one line summary used on listing cards.
//	Date             – calendar day "YYYY-MM-DD"; no time zone conversion.
//	StartTime        – 24-hour "HH:MM".
//	EndTime          – 24-hour "HH:MM".
//	Location         – venue name or address.
//	ImageURL         – externally hosted poster image.
//	Price            – price per seat in integer currency units.
//	MaxCapacity      – number of seats; always positive.
//	BYOB             – display-only flag.
//	Status           – one of upcoming, ongoing, past, cancelled.
//	CreatedAt        – creation timestamp (UTC).
//	UpdatedAt        – last update timestamp (UTC).
type Event struct {
	ID               string    // events.id
	Title            string    // events.title
	Description      string    // events.description
	ShortDescription string    // events.short_description
	Date             string    // events.event_date
	StartTime        string    // events.start_time
	EndTime          string    // events.end_time
	Location         string    // events.location
	ImageURL         string    // events.image_url
	Price            int64     // events.price
	MaxCapacity      int       // events.max_capacity
	BYOB             bool      // events.byob
	Status           string    // events.status
	CreatedAt        time.Time // events.created_at
	UpdatedAt        time.Time // events.updated_at
}

// Bookable reports whether new tickets may be reserved for the event.
func (e *Event) Bookable() bool {
	return e.Status == EventUpcoming || e.Status == EventOngoing
}

// ValidEventStatus reports whether s is a known event status.
func ValidEventStatus(s string) bool {
	switch s {
	case EventUpcoming, EventOngoing, EventPast, EventCancelled:
		return true
	}
	return false
}

// DetermineEventStatus derives a status from the event's calendar day
// relative to now: earlier days are past, later days upcoming and the
// same day ongoing.  Only the date part is compared.  It returns
// "upcoming" when date cannot be parsed.
func DetermineEventStatus(date string, now time.Time) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return EventUpcoming
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case d.Before(today):
		return EventPast
	case d.After(today):
		return EventUpcoming
	default:
		return EventOngoing
	}
}
