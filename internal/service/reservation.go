package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/watchparty-tickets/internal/capacity"
	"github.com/iliyamo/watchparty-tickets/internal/metrics"
	"github.com/iliyamo/watchparty-tickets/internal/model"
	"github.com/iliyamo/watchparty-tickets/internal/repository"
)

// ReserveInput is the request to reserve seats for an event.
type ReserveInput struct {
	EventID    string `json:"event_id" validate:"required"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Quantity   int    `json:"quantity" validate:"min=1,max=10"`
	MpesaPhone string `json:"mpesa_phone" validate:"omitempty,max=20,printascii"`
}

// Reservations creates tickets and drives them through their
// lifecycle.  Capacity is read and written inside one store
// transaction holding the event row lock, so concurrent reservations
// and confirmations for the same event are serialized.
type Reservations struct {
	store    repository.Store
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	newCode  func(time.Time) (string, error)
}

// NewReservations wires a Reservations service.  A nil notifier or
// logger disables the respective side channel.
func NewReservations(store repository.Store, notifier Notifier, log *zap.Logger) *Reservations {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reservations{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		newCode:  NewTicketCode,
	}
}

// Reserve creates a pending ticket for in.EventID.
//
// The remaining capacity is checked against confirmed and checked-in
// tickets only; pending tickets do not hold seats until they are
// confirmed, and confirmation re-checks capacity.  A failed insert
// leaves no ticket behind.
func (r *Reservations) Reserve(ctx context.Context, in ReserveInput) (*model.Ticket, error) {
	in.EventID = strings.TrimSpace(in.EventID)
	in.Email = normalizeEmail(in.Email)
	in.MpesaPhone = strings.TrimSpace(in.MpesaPhone)
	if err := validateStruct(in); err != nil {
		metrics.RecordReservation("invalid", 0)
		return nil, err
	}

	now := r.now().UTC()
	code, err := r.newCode(now)
	if err != nil {
		return nil, infraErr("generate ticket code", err)
	}

	var (
		ticket model.Ticket
		event  model.Event
	)
	err = r.store.WithinTx(ctx, func(tx repository.Tx) error {
		e, err := tx.LockEvent(ctx, in.EventID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return infraErr("lock event", err)
		}
		occupied, err := tx.OccupiedSeats(ctx, e.ID)
		if err != nil {
			return infraErr("count occupied seats", err)
		}
		remaining := capacity.Remaining(e.MaxCapacity, occupied)
		if remaining == 0 {
			return ErrSoldOut
		}
		if in.Quantity > remaining {
			return &CapacityError{Requested: in.Quantity, Remaining: remaining}
		}
		if !e.Bookable() {
			return ErrEventNotBookable
		}

		t := model.Ticket{
			ID:        uuid.NewString(),
			Code:      code,
			EventID:   e.ID,
			Email:     in.Email,
			Quantity:  in.Quantity,
			Status:    model.TicketPending,
			Amount:    e.Price * int64(in.Quantity),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if in.MpesaPhone != "" {
			phone := in.MpesaPhone
			t.MpesaPhone = &phone
		}
		if err := tx.InsertTicket(ctx, &t); err != nil {
			return infraErr("insert ticket", err)
		}
		ticket, event = t, *e
		return nil
	})
	outcome := reservationOutcome(err)
	metrics.RecordReservation(outcome, in.Quantity)
	if err != nil {
		if errors.Is(err, ErrInfrastructure) {
			r.log.Error("reservation failed", zap.String("event_id", in.EventID), zap.Error(err))
		} else {
			r.log.Info("reservation rejected",
				zap.String("event_id", in.EventID),
				zap.Int("quantity", in.Quantity),
				zap.String("reason", outcome))
		}
		return nil, err
	}

	r.log.Info("ticket reserved",
		zap.String("code", ticket.Code),
		zap.String("event_id", ticket.EventID),
		zap.Int("quantity", ticket.Quantity))
	if err := r.notifier.TicketReserved(ctx, ticket, event); err != nil {
		r.log.Warn("publish ticket.reserved failed", zap.String("code", ticket.Code), zap.Error(err))
	}
	return &ticket, nil
}

// SetStatus moves the ticket identified by its human code to status.
// Confirming a pending ticket takes its seats and fails with a
// *CapacityError when the event no longer has room for them.
func (r *Reservations) SetStatus(ctx context.Context, code, status string) (*model.Ticket, error) {
	return r.transition(ctx, code, status, false)
}

// CheckIn marks a confirmed ticket as checked in.  Checking in a
// ticket that is already checked in succeeds without writing, so
// repeated scans are harmless.
func (r *Reservations) CheckIn(ctx context.Context, code string) (*model.Ticket, error) {
	t, err := r.transition(ctx, code, model.TicketCheckedIn, true)
	if err != nil {
		metrics.CheckIns.WithLabelValues("rejected").Inc()
	}
	return t, err
}

func (r *Reservations) transition(ctx context.Context, code, status string, idempotent bool) (*model.Ticket, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	status = strings.TrimSpace(status)
	if !model.ValidTicketStatus(status) {
		return nil, &ValidationError{Field: "status", Msg: "must be one of pending, confirmed, checked-in, cancelled"}
	}
	if code == "" {
		return nil, ErrTicketNotFound
	}

	var (
		ticket  model.Ticket
		from    string
		changed bool
	)
	err := r.store.WithinTx(ctx, func(tx repository.Tx) error {
		t, err := tx.LockTicketByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTicketNotFound
		}
		if err != nil {
			return infraErr("lock ticket", err)
		}
		if idempotent && t.Status == status {
			ticket = *t
			return nil
		}
		if !CanTransition(t.Status, status) {
			return &TransitionError{From: t.Status, To: status}
		}
		if t.Status == model.TicketPending && status == model.TicketConfirmed {
			if err := r.ensureRoom(ctx, tx, t); err != nil {
				return err
			}
		}
		now := r.now().UTC()
		if err := tx.UpdateTicketStatus(ctx, t.ID, status, now); err != nil {
			return infraErr("update ticket status", err)
		}
		from = t.Status
		t.Status = status
		t.UpdatedAt = now
		ticket = *t
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInfrastructure) {
			r.log.Error("status change failed", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	if idempotent {
		outcome := "checked_in"
		if !changed {
			outcome = "already_checked_in"
		}
		metrics.CheckIns.WithLabelValues(outcome).Inc()
	}
	if changed {
		metrics.StatusTransitions.WithLabelValues(from, status).Inc()
		r.log.Info("ticket status changed",
			zap.String("code", ticket.Code),
			zap.String("from", from),
			zap.String("to", status))
		if err := r.notifier.TicketStatusChanged(ctx, ticket, from); err != nil {
			r.log.Warn("publish ticket.status_changed failed", zap.String("code", ticket.Code), zap.Error(err))
		}
	}
	return &ticket, nil
}

// ensureRoom locks the ticket's event and verifies that confirming t
// keeps the event within capacity.
func (r *Reservations) ensureRoom(ctx context.Context, tx repository.Tx, t *model.Ticket) error {
	e, err := tx.LockEvent(ctx, t.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEventNotFound
	}
	if err != nil {
		return infraErr("lock event", err)
	}
	occupied, err := tx.OccupiedSeats(ctx, e.ID)
	if err != nil {
		return infraErr("count occupied seats", err)
	}
	if remaining := capacity.Remaining(e.MaxCapacity, occupied); t.Quantity > remaining {
		return &CapacityError{Requested: t.Quantity, Remaining: remaining}
	}
	return nil
}

// GetTicket resolves id as a human ticket code first and as a storage
// id second.
func (r *Reservations) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrTicketNotFound
	}
	t, err := r.store.GetTicketByCode(ctx, strings.ToUpper(id))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, infraErr("get ticket by code", err)
	}
	t, err = r.store.GetTicketByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, infraErr("get ticket by id", err)
	}
	return t, nil
}

// TicketsByEmail returns the tickets booked with email, ignoring case,
// oldest first.
func (r *Reservations) TicketsByEmail(ctx context.Context, email string) ([]model.Ticket, error) {
	email = normalizeEmail(email)
	if email == "" {
		return []model.Ticket{}, nil
	}
	out, err := r.store.ListTicketsByEmail(ctx, email)
	if err != nil {
		return nil, infraErr("list tickets by email", err)
	}
	return out, nil
}

// TicketsForEvent returns every ticket of an event, oldest first.
func (r *Reservations) TicketsForEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	if _, err := r.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, infraErr("get event", err)
	}
	out, err := r.store.ListTicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, infraErr("list tickets by event", err)
	}
	return out, nil
}

// TicketFilter narrows the admin ticket list.  Empty fields match
// everything.  Query is a case-insensitive substring matched against
// email, code and payment phone.
type TicketFilter struct {
	Status  string
	EventID string
	Query   string
}

// ListTickets returns tickets across all events, newest first.
func (r *Reservations) ListTickets(ctx context.Context, f TicketFilter) ([]model.Ticket, error) {
	f.Status = strings.TrimSpace(f.Status)
	if f.Status != "" && !model.ValidTicketStatus(f.Status) {
		return nil, &ValidationError{Field: "status", Msg: "must be one of pending, confirmed, checked-in, cancelled"}
	}
	all, err := r.store.ListTickets(ctx, f.Status)
	if err != nil {
		return nil, infraErr("list tickets", err)
	}
	out := make([]model.Ticket, 0, len(all))
	for _, t := range all {
		if f.EventID != "" && t.EventID != f.EventID {
			continue
		}
		if !matchesQuery(t, f.Query) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// CheckInSheet is the door list of an event.
type CheckInSheet struct {
	Event     model.Event
	Tickets   []model.Ticket
	ToCheckIn int
	CheckedIn int
}

// CheckInList returns the confirmed tickets of an event that match
// query, together with the number of tickets still to check in and
// already checked in.  Counts ignore the query.
func (r *Reservations) CheckInList(ctx context.Context, eventID, query string) (*CheckInSheet, error) {
	e, err := r.store.GetEvent(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, infraErr("get event", err)
	}
	all, err := r.store.ListTicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, infraErr("list tickets by event", err)
	}
	list := &CheckInSheet{Event: *e, Tickets: []model.Ticket{}}
	for _, t := range all {
		switch t.Status {
		case model.TicketConfirmed:
			list.ToCheckIn++
			if matchesQuery(t, query) {
				list.Tickets = append(list.Tickets, t)
			}
		case model.TicketCheckedIn:
			list.CheckedIn++
		}
	}
	return list, nil
}

func matchesQuery(t model.Ticket, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(t.Email, q) || strings.Contains(strings.ToLower(t.Code), q) {
		return true
	}
	return t.MpesaPhone != nil && strings.Contains(strings.ToLower(*t.MpesaPhone), q)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func reservationOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrSoldOut):
		return "sold_out"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrEventNotBookable):
		return "not_bookable"
	case errors.Is(err, ErrEventNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	}
	return "error"
}
