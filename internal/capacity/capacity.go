// Package capacity derives seat availability for an event from its
// tickets.  Only confirmed and checked-in tickets occupy seats; pending
// and cancelled tickets are ignored.  Every function is pure so callers
// recompute availability on each read instead of trusting a stored
// counter.
package capacity

import (
	"math"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// Availability summarises the occupancy of one event.
type Availability struct {
	MaxCapacity int  `json:"max_capacity"`
	Occupied    int  `json:"occupied"`
	Remaining   int  `json:"remaining"`
	Percentage  int  `json:"percentage"`
	SoldOut     bool `json:"sold_out"`
}

// Counts reports whether a ticket in the given status occupies seats.
func Counts(status string) bool {
	return status == model.TicketConfirmed || status == model.TicketCheckedIn
}

// Occupied sums the quantity of tickets that occupy seats.
func Occupied(tickets []model.Ticket) int {
	n := 0
	for _, t := range tickets {
		if Counts(t.Status) {
			n += t.Quantity
		}
	}
	return n
}

// Remaining returns the free seats, never negative.
func Remaining(maxCapacity, occupied int) int {
	if r := maxCapacity - occupied; r > 0 {
		return r
	}
	return 0
}

// Percentage returns occupancy as a rounded integer in 0..100.  A
// non-positive capacity is reported as fully occupied.
func Percentage(maxCapacity, occupied int) int {
	if maxCapacity <= 0 {
		return 100
	}
	if occupied <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(occupied) / float64(maxCapacity)))
	if p > 100 {
		return 100
	}
	return p
}

// For builds the Availability of an event given its occupied seats.
func For(e *model.Event, occupied int) Availability {
	rem := Remaining(e.MaxCapacity, occupied)
	return Availability{
		MaxCapacity: e.MaxCapacity,
		Occupied:    occupied,
		Remaining:   rem,
		Percentage:  Percentage(e.MaxCapacity, occupied),
		SoldOut:     rem == 0,
	}
}
