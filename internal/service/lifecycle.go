package service

import (
	"slices"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// transitions lists the allowed next statuses for each ticket status.
// checked-in and cancelled are terminal.
var transitions = map[string][]string{
	model.TicketPending:   {model.TicketConfirmed, model.TicketCancelled},
	model.TicketConfirmed: {model.TicketCheckedIn, model.TicketCancelled},
}

// CanTransition reports whether a ticket may move from one status to
// another.  Self transitions are never allowed.
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// NextStatuses returns the statuses a ticket in status from may move to.
func NextStatuses(from string) []string {
	return slices.Clone(transitions[from])
}
