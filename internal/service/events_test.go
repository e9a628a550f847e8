package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

func validInput() EventInput {
	return EventInput{
		Title:       " Derby Night ",
		Description: "Big screen, loud crowd",
		Date:        "2026-10-20",
		StartTime:   "18:00",
		EndTime:     "22:30",
		Location:    "Rooftop",
		Price:       500,
		MaxCapacity: 40,
	}
}

func TestEventsCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.events.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, got.Event.ID)
	assert.Equal(t, "Derby Night", got.Event.Title)
	assert.Equal(t, model.EventUpcoming, got.Event.Status, "status derived from a future date")
	assert.Equal(t, 40, got.Availability.Remaining)
	assert.Equal(t, fixedNow, got.Event.CreatedAt)

	today := validInput()
	today.Date = "2026-10-14"
	got, err = f.events.Create(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, model.EventOngoing, got.Event.Status)

	explicit := validInput()
	explicit.Date = "2026-01-01"
	explicit.Status = model.EventCancelled
	got, err = f.events.Create(ctx, explicit)
	require.NoError(t, err)
	assert.Equal(t, model.EventCancelled, got.Event.Status)
}

func TestEventsCreate_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		edit  func(*EventInput)
		field string
	}{
		{"no title", func(in *EventInput) { in.Title = "  " }, "title"},
		{"bad date", func(in *EventInput) { in.Date = "20/10/2026" }, "date"},
		{"bad time", func(in *EventInput) { in.StartTime = "6pm" }, "start_time"},
		{"zero capacity", func(in *EventInput) { in.MaxCapacity = 0 }, "max_capacity"},
		{"negative price", func(in *EventInput) { in.Price = -1 }, "price"},
		{"unknown status", func(in *EventInput) { in.Status = "postponed" }, "status"},
		{"bad image", func(in *EventInput) { in.ImageURL = "poster" }, "image_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.edit(&in)
			_, err := f.events.Create(context.Background(), in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestEventsListGetSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEvent(t, "late", 4, 100, model.EventUpcoming)
	early := f.addEvent(t, "early", 4, 100, model.EventPast)
	early.Date = "2026-09-01"
	early.Description = "Season OPENER"
	require.NoError(t, f.store.UpdateEvent(ctx, &early))

	tk := f.reserve(t, "late", "a@b.com", 3)
	f.confirm(t, tk.Code)

	all, err := f.events.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "early", all[0].Event.ID)
	assert.Equal(t, 3, all[1].Availability.Occupied)
	assert.Equal(t, 75, all[1].Availability.Percentage)

	past, err := f.events.List(ctx, model.EventPast)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, "early", past[0].Event.ID)

	_, err = f.events.List(ctx, "someday")
	assert.ErrorIs(t, err, ErrValidation)

	one, err := f.events.Get(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, 1, one.Availability.Remaining)

	_, err = f.events.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrEventNotFound)

	found, err := f.events.Search(ctx, "season opener")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "early", found[0].Event.ID)

	blank, err := f.events.Search(ctx, " ")
	require.NoError(t, err)
	assert.Len(t, blank, 2)
}

func TestEventsUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEvent(t, "ev-1", 5, 100, model.EventUpcoming)
	tk := f.reserve(t, "ev-1", "a@b.com", 3)
	f.confirm(t, tk.Code)

	title := "Final"
	status := model.EventOngoing
	got, err := f.events.Update(ctx, "ev-1", EventPatch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Event.Title)
	assert.Equal(t, model.EventOngoing, got.Event.Status)
	assert.Equal(t, "2026-10-20", got.Event.Date, "untouched fields are kept")
	assert.Equal(t, 3, got.Availability.Occupied)

	small := 2
	_, err = f.events.Update(ctx, "ev-1", EventPatch{MaxCapacity: &small})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max_capacity", verr.Field)

	zero := 0
	_, err = f.events.Update(ctx, "ev-1", EventPatch{MaxCapacity: &zero})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.events.Update(ctx, "missing", EventPatch{Title: &title})
	assert.ErrorIs(t, err, ErrEventNotFound)

	stored, err := f.store.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.MaxCapacity)

	full := validInput()
	got, err = f.events.Update(ctx, "ev-1", full.Patch())
	require.NoError(t, err)
	assert.Equal(t, "Derby Night", got.Event.Title)
	assert.Equal(t, model.EventOngoing, got.Event.Status, "empty status keeps the stored one")
	assert.Equal(t, 40, got.Event.MaxCapacity)
}

func TestEventsDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEvent(t, "busy", 5, 100, model.EventUpcoming)
	f.addEvent(t, "empty", 5, 100, model.EventUpcoming)
	tk := f.reserve(t, "busy", "a@b.com", 1)
	_, err := f.res.SetStatus(ctx, tk.Code, model.TicketCancelled)
	require.NoError(t, err)

	ok, err := f.events.Delete(ctx, "busy")
	require.NoError(t, err)
	assert.False(t, ok, "cancelled tickets still block deletion")

	ok, err = f.events.Delete(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.events.Delete(ctx, "empty")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	later := f.addEvent(t, "later", 10, 100, model.EventUpcoming)
	later.Date = "2026-11-30"
	require.NoError(t, f.store.UpdateEvent(ctx, &later))
	f.addEvent(t, "soon", 10, 100, model.EventUpcoming)
	f.addEvent(t, "done", 10, 100, model.EventPast)

	var codes []string
	for i := 0; i < 7; i++ {
		codes = append(codes, f.reserve(t, "soon", "a@b.com", 1).Code)
	}
	f.confirm(t, codes[0])
	f.confirm(t, codes[1])
	_, err := f.res.CheckIn(ctx, codes[1])
	require.NoError(t, err)

	d, err := f.events.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.UpcomingEvents)
	assert.Equal(t, 1, d.PastEvents)
	assert.Equal(t, 5, d.PendingTickets)
	assert.Equal(t, 1, d.ConfirmedTickets)
	assert.Equal(t, 1, d.CheckedInTickets)
	require.NotNil(t, d.NextEvent)
	assert.Equal(t, "soon", d.NextEvent.Event.ID)
	assert.Equal(t, 2, d.NextEvent.Availability.Occupied)
	require.Len(t, d.RecentTickets, 5)
	assert.Equal(t, codes[6], d.RecentTickets[0].Code)
}
