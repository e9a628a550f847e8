package service

import (
	"context"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// Notifier receives ticket events after the transaction that produced
// them has committed.  Delivery is best effort: a failing notifier is
// logged and never fails the request.
type Notifier interface {
	TicketReserved(ctx context.Context, t model.Ticket, e model.Event) error
	TicketStatusChanged(ctx context.Context, t model.Ticket, from string) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) TicketReserved(context.Context, model.Ticket, model.Event) error { return nil }

func (NopNotifier) TicketStatusChanged(context.Context, model.Ticket, string) error { return nil }
