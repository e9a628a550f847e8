// Package queue defines the ticket messages exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import (
	"time"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// Queue names.  Each message type has its own durable queue that is
// also used as the routing key on the default exchange.
const (
	TicketReservedQueue      = "ticket.reserved"
	TicketStatusChangedQueue = "ticket.status_changed"
)

// TicketReservedEvent is published after a new pending ticket has been
// stored.  It carries what staff need to reconcile the manual payment
// without querying the database.
type TicketReservedEvent struct {
	TicketID   string `json:"ticket_id"`
	Code       string `json:"code"`
	EventID    string `json:"event_id"`
	EventTitle string `json:"event_title"`
	EventDate  string `json:"event_date"`
	StartTime  string `json:"start_time"`
	Email      string `json:"email"`
	MpesaPhone string `json:"mpesa_phone,omitempty"`
	Quantity   int    `json:"quantity"`
	Amount     int64  `json:"amount"`
	ReservedAt string `json:"reserved_at"`
}

// TicketStatusChangedEvent is published after a ticket moved to a new
// status.
type TicketStatusChangedEvent struct {
	TicketID  string `json:"ticket_id"`
	Code      string `json:"code"`
	EventID   string `json:"event_id"`
	Email     string `json:"email"`
	Quantity  int    `json:"quantity"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedAt string `json:"changed_at"`
}

// NewTicketReservedEvent builds the message for a freshly reserved
// ticket.
func NewTicketReservedEvent(t model.Ticket, e model.Event) TicketReservedEvent {
	ev := TicketReservedEvent{
		TicketID:   t.ID,
		Code:       t.Code,
		EventID:    e.ID,
		EventTitle: e.Title,
		EventDate:  e.Date,
		StartTime:  e.StartTime,
		Email:      t.Email,
		Quantity:   t.Quantity,
		Amount:     t.Amount,
		ReservedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.MpesaPhone != nil {
		ev.MpesaPhone = *t.MpesaPhone
	}
	return ev
}

// NewTicketStatusChangedEvent builds the message for a status change
// from the given previous status.
func NewTicketStatusChangedEvent(t model.Ticket, from string) TicketStatusChangedEvent {
	return TicketStatusChangedEvent{
		TicketID:  t.ID,
		Code:      t.Code,
		EventID:   t.EventID,
		Email:     t.Email,
		Quantity:  t.Quantity,
		From:      from,
		To:        t.Status,
		ChangedAt: t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
