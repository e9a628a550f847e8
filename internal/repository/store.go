package repository

import (
	"context"
	"time"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// Tx is the set of operations available inside a store transaction.
// Lock methods take a write lock on the returned record that is held
// until the transaction ends, so a read-check-write sequence on the
// same event or ticket cannot interleave with another transaction.
type Tx interface {
	LockEvent(ctx context.Context, id string) (*model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	OccupiedSeats(ctx context.Context, eventID string) (int, error)
	CountTickets(ctx context.Context, eventID string) (int, error)
	InsertTicket(ctx context.Context, t *model.Ticket) error
	LockTicketByCode(ctx context.Context, code string) (*model.Ticket, error)
	UpdateTicketStatus(ctx context.Context, id, status string, at time.Time) error
	DeleteEvent(ctx context.Context, id string) error
}

// Store is the document store holding events, tickets and staff users.
// SQLStore backs it with MySQL and MemStore keeps everything in memory.
type Store interface {
	// WithinTx runs fn inside a transaction.  The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	// ListEvents returns events ordered by date; an empty status lists all.
	ListEvents(ctx context.Context, status string) ([]model.Event, error)
	// SearchEvents matches text case-insensitively against title,
	// description and short description.
	SearchEvents(ctx context.Context, text string) ([]model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) error

	OccupiedSeats(ctx context.Context, eventID string) (int, error)
	// OccupiedSeatsByEvent returns occupied seats keyed by event id.
	// Events without occupying tickets are absent from the map.
	OccupiedSeatsByEvent(ctx context.Context) (map[string]int, error)

	GetTicketByCode(ctx context.Context, code string) (*model.Ticket, error)
	GetTicketByID(ctx context.Context, id string) (*model.Ticket, error)
	// ListTicketsByEmail returns tickets for a normalized email ordered
	// by creation time, oldest first.
	ListTicketsByEmail(ctx context.Context, email string) ([]model.Ticket, error)
	// ListTicketsByEvent returns tickets of an event, oldest first.
	ListTicketsByEvent(ctx context.Context, eventID string) ([]model.Ticket, error)
	// ListTickets returns all tickets, newest first; an empty status lists all.
	ListTickets(ctx context.Context, status string) ([]model.Ticket, error)

	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
}
