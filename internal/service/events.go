package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/watchparty-tickets/internal/capacity"
	"github.com/iliyamo/watchparty-tickets/internal/model"
	"github.com/iliyamo/watchparty-tickets/internal/repository"
)

// EventInput carries every staff editable field of an event.
type EventInput struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=5000"`
	ShortDescription string `json:"short_description" validate:"max=300"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime        string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string `json:"end_time" validate:"required,datetime=15:04"`
	Location         string `json:"location" validate:"max=300"`
	ImageURL         string `json:"image_url" validate:"omitempty,url,max=1000"`
	Price            int64  `json:"price" validate:"gte=0"`
	MaxCapacity      int    `json:"max_capacity" validate:"gt=0"`
	BYOB             bool   `json:"byob"`
	Status           string `json:"status" validate:"omitempty,oneof=upcoming ongoing past cancelled"`
}

// EventPatch is a partial update.  Nil fields keep their stored value.
type EventPatch struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	ShortDescription *string `json:"short_description"`
	Date             *string `json:"date"`
	StartTime        *string `json:"start_time"`
	EndTime          *string `json:"end_time"`
	Location         *string `json:"location"`
	ImageURL         *string `json:"image_url"`
	Price            *int64  `json:"price"`
	MaxCapacity      *int    `json:"max_capacity"`
	BYOB             *bool   `json:"byob"`
	Status           *string `json:"status"`
}

// EventAvailability pairs an event with its capacity as computed from
// the current tickets.
type EventAvailability struct {
	Event        model.Event
	Availability capacity.Availability
}

// Events manages the event catalogue.
type Events struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewEvents wires an Events service.
func NewEvents(store repository.Store, log *zap.Logger) *Events {
	if log == nil {
		log = zap.NewNop()
	}
	return &Events{store: store, log: log, now: time.Now}
}

// List returns events ordered by date.  An empty status lists every
// event.
func (s *Events) List(ctx context.Context, status string) ([]EventAvailability, error) {
	status = strings.TrimSpace(status)
	if status != "" && !model.ValidEventStatus(status) {
		return nil, &ValidationError{Field: "status", Msg: "must be one of upcoming, ongoing, past, cancelled"}
	}
	events, err := s.store.ListEvents(ctx, status)
	if err != nil {
		return nil, infraErr("list events", err)
	}
	return s.withAvailability(ctx, events)
}

// Search returns events whose title or descriptions contain text,
// ignoring case.  Blank text lists every event.
func (s *Events) Search(ctx context.Context, text string) ([]EventAvailability, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.List(ctx, "")
	}
	events, err := s.store.SearchEvents(ctx, text)
	if err != nil {
		return nil, infraErr("search events", err)
	}
	return s.withAvailability(ctx, events)
}

// Get returns a single event with its availability.
func (s *Events) Get(ctx context.Context, id string) (*EventAvailability, error) {
	e, err := s.store.GetEvent(ctx, strings.TrimSpace(id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, infraErr("get event", err)
	}
	occupied, err := s.store.OccupiedSeats(ctx, e.ID)
	if err != nil {
		return nil, infraErr("count occupied seats", err)
	}
	return &EventAvailability{Event: *e, Availability: capacity.For(e, occupied)}, nil
}

// Create validates in and stores a new event.  An omitted status is
// derived from the event date.
func (s *Events) Create(ctx context.Context, in EventInput) (*EventAvailability, error) {
	in = in.trimmed()
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	e := model.Event{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	in.apply(&e)
	if e.Status == "" {
		e.Status = model.DetermineEventStatus(e.Date, now)
	}
	if err := s.store.CreateEvent(ctx, &e); err != nil {
		return nil, infraErr("create event", err)
	}
	s.log.Info("event created", zap.String("event_id", e.ID), zap.String("title", e.Title))
	return &EventAvailability{Event: e, Availability: capacity.For(&e, 0)}, nil
}

// Update applies patch to the stored event.  MaxCapacity may not drop
// below the seats already held by confirmed and checked-in tickets.
func (s *Events) Update(ctx context.Context, id string, patch EventPatch) (*EventAvailability, error) {
	var (
		updated  model.Event
		occupied int
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		e, err := tx.LockEvent(ctx, strings.TrimSpace(id))
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return infraErr("lock event", err)
		}
		in := inputFrom(e)
		patch.applyTo(&in)
		in = in.trimmed()
		if err := validateStruct(in); err != nil {
			return err
		}
		if occupied, err = tx.OccupiedSeats(ctx, e.ID); err != nil {
			return infraErr("count occupied seats", err)
		}
		if in.MaxCapacity < occupied {
			return &ValidationError{Field: "max_capacity", Msg: "is below the seats already taken"}
		}
		if in.Status == "" {
			in.Status = e.Status
		}
		in.apply(e)
		e.UpdatedAt = s.now().UTC()
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return infraErr("update event", err)
		}
		updated = *e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("event updated", zap.String("event_id", updated.ID))
	return &EventAvailability{Event: updated, Availability: capacity.For(&updated, occupied)}, nil
}

// Delete removes an event.  It reports false without deleting anything
// when tickets still reference the event.
func (s *Events) Delete(ctx context.Context, id string) (bool, error) {
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockEvent(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountTickets(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return repository.ErrConflict
		}
		return tx.DeleteEvent(ctx, id)
	})
	switch {
	case err == nil:
		s.log.Info("event deleted", zap.String("event_id", id))
		return true, nil
	case errors.Is(err, repository.ErrConflict):
		return false, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, ErrEventNotFound
	}
	return false, infraErr("delete event", err)
}

// Dashboard summarises the catalogue and recent sales for staff.
type Dashboard struct {
	UpcomingEvents   int
	PastEvents       int
	PendingTickets   int
	ConfirmedTickets int
	CheckedInTickets int
	NextEvent        *EventAvailability
	RecentTickets    []model.Ticket
}

// recentTicketLimit is the number of tickets shown on the dashboard.
const recentTicketLimit = 5

// Dashboard returns event and ticket counts, the next upcoming event
// and the most recent tickets.
func (s *Events) Dashboard(ctx context.Context) (*Dashboard, error) {
	events, err := s.store.ListEvents(ctx, "")
	if err != nil {
		return nil, infraErr("list events", err)
	}
	tickets, err := s.store.ListTickets(ctx, "")
	if err != nil {
		return nil, infraErr("list tickets", err)
	}

	d := &Dashboard{RecentTickets: tickets[:min(len(tickets), recentTicketLimit)]}
	var upcoming []model.Event
	for _, e := range events {
		switch e.Status {
		case model.EventUpcoming:
			d.UpcomingEvents++
			upcoming = append(upcoming, e)
		case model.EventPast:
			d.PastEvents++
		}
	}
	for _, t := range tickets {
		switch t.Status {
		case model.TicketPending:
			d.PendingTickets++
		case model.TicketConfirmed:
			d.ConfirmedTickets++
		case model.TicketCheckedIn:
			d.CheckedInTickets++
		}
	}
	if len(upcoming) > 0 {
		next := slices.MinFunc(upcoming, func(a, b model.Event) int {
			return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.StartTime, b.StartTime))
		})
		occupied, err := s.store.OccupiedSeats(ctx, next.ID)
		if err != nil {
			return nil, infraErr("count occupied seats", err)
		}
		d.NextEvent = &EventAvailability{Event: next, Availability: capacity.For(&next, occupied)}
	}
	return d, nil
}

func (s *Events) withAvailability(ctx context.Context, events []model.Event) ([]EventAvailability, error) {
	occupied, err := s.store.OccupiedSeatsByEvent(ctx)
	if err != nil {
		return nil, infraErr("count occupied seats", err)
	}
	out := make([]EventAvailability, 0, len(events))
	for i := range events {
		out = append(out, EventAvailability{Event: events[i], Availability: capacity.For(&events[i], occupied[events[i].ID])})
	}
	return out, nil
}

// Patch converts a full replacement into a patch that sets every field.
func (in EventInput) Patch() EventPatch {
	return EventPatch{
		Title:            &in.Title,
		Description:      &in.Description,
		ShortDescription: &in.ShortDescription,
		Date:             &in.Date,
		StartTime:        &in.StartTime,
		EndTime:          &in.EndTime,
		Location:         &in.Location,
		ImageURL:         &in.ImageURL,
		Price:            &in.Price,
		MaxCapacity:      &in.MaxCapacity,
		BYOB:             &in.BYOB,
		Status:           &in.Status,
	}
}

func inputFrom(e *model.Event) EventInput {
	return EventInput{
		Title:            e.Title,
		Description:      e.Description,
		ShortDescription: e.ShortDescription,
		Date:             e.Date,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		Location:         e.Location,
		ImageURL:         e.ImageURL,
		Price:            e.Price,
		MaxCapacity:      e.MaxCapacity,
		BYOB:             e.BYOB,
		Status:           e.Status,
	}
}

func (in EventInput) trimmed() EventInput {
	in.Title = strings.TrimSpace(in.Title)
	in.ShortDescription = strings.TrimSpace(in.ShortDescription)
	in.Date = strings.TrimSpace(in.Date)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	in.Location = strings.TrimSpace(in.Location)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Status = strings.TrimSpace(in.Status)
	return in
}

func (in EventInput) apply(e *model.Event) {
	e.Title = in.Title
	e.Description = in.Description
	e.ShortDescription = in.ShortDescription
	e.Date = in.Date
	e.StartTime = in.StartTime
	e.EndTime = in.EndTime
	e.Location = in.Location
	e.ImageURL = in.ImageURL
	e.Price = in.Price
	e.MaxCapacity = in.MaxCapacity
	e.BYOB = in.BYOB
	e.Status = in.Status
}

func (p EventPatch) applyTo(in *EventInput) {
	setIf(&in.Title, p.Title)
	setIf(&in.Description, p.Description)
	setIf(&in.ShortDescription, p.ShortDescription)
	setIf(&in.Date, p.Date)
	setIf(&in.StartTime, p.StartTime)
	setIf(&in.EndTime, p.EndTime)
	setIf(&in.Location, p.Location)
	setIf(&in.ImageURL, p.ImageURL)
	setIf(&in.Price, p.Price)
	setIf(&in.MaxCapacity, p.MaxCapacity)
	setIf(&in.BYOB, p.BYOB)
	setIf(&in.Status, p.Status)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
