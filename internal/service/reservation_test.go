package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/watchparty-tickets/internal/capacity"
	"github.com/iliyamo/watchparty-tickets/internal/model"
)

func TestReserve_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 50, 500, model.EventUpcoming)
	ctx := context.Background()

	tk, err := f.res.Reserve(ctx, ReserveInput{EventID: "ev-1", Email: "  Fan@Example.COM ", Quantity: 3, MpesaPhone: "254712345678"})
	require.NoError(t, err)
	assert.Regexp(t, codePattern, tk.Code)
	assert.NotEqual(t, tk.Code, tk.ID)
	assert.Equal(t, "fan@example.com", tk.Email)
	assert.Equal(t, model.TicketPending, tk.Status)
	assert.EqualValues(t, 1500, tk.Amount)
	require.NotNil(t, tk.MpesaPhone)
	assert.Equal(t, "254712345678", *tk.MpesaPhone)
	assert.Equal(t, fixedNow, tk.CreatedAt)

	byCode, err := f.res.GetTicket(ctx, tk.Code)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, byCode.ID)
	assert.Equal(t, 3, byCode.Quantity)
	assert.EqualValues(t, 1500, byCode.Amount)

	byID, err := f.res.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.Code, byID.Code)

	lower, err := f.res.GetTicket(ctx, " "+strings.ToLower(tk.Code)+" ")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, lower.ID)

	require.Len(t, f.notifier.reserved, 1)
	assert.Equal(t, tk.Code, f.notifier.reserved[0].Code)
}

func TestReserve_Validation(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 50, 500, model.EventUpcoming)

	tests := []struct {
		name  string
		in    ReserveInput
		field string
	}{
		{"bad email", ReserveInput{EventID: "ev-1", Email: "not-an-email", Quantity: 1}, "email"},
		{"missing email", ReserveInput{EventID: "ev-1", Quantity: 1}, "email"},
		{"zero quantity", ReserveInput{EventID: "ev-1", Email: "a@b.com", Quantity: 0}, "quantity"},
		{"too many", ReserveInput{EventID: "ev-1", Email: "a@b.com", Quantity: 11}, "quantity"},
		{"missing event", ReserveInput{Email: "a@b.com", Quantity: 1}, "event_id"},
		{"phone too long", ReserveInput{EventID: "ev-1", Email: "a@b.com", Quantity: 1, MpesaPhone: "+254 712 345 678 999 0"}, "mpesa_phone"},
		{"phone with control characters", ReserveInput{EventID: "ev-1", Email: "a@b.com", Quantity: 1, MpesaPhone: "0712\t345"}, "mpesa_phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.res.Reserve(context.Background(), tt.in)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Equal(t, 0, f.store.TicketCount())
}

func TestReserve_FreeFormPhone(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 50, 500, model.EventUpcoming)

	for _, phone := range []string{"254712345678", "+254712345678", "0712 345 678", "0712-345-678"} {
		t.Run(phone, func(t *testing.T) {
			tk, err := f.res.Reserve(context.Background(), ReserveInput{EventID: "ev-1", Email: "a@b.com", Quantity: 1, MpesaPhone: phone})
			require.NoError(t, err)
			require.NotNil(t, tk.MpesaPhone)
			assert.Equal(t, phone, *tk.MpesaPhone)

			stored, err := f.res.GetTicket(context.Background(), tk.Code)
			require.NoError(t, err)
			assert.Equal(t, phone, *stored.MpesaPhone)
		})
	}
}

func TestReserve_Rejections(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "open", 5, 100, model.EventUpcoming)
	f.addEvent(t, "cancelled", 5, 100, model.EventCancelled)
	f.addEvent(t, "past", 5, 100, model.EventPast)
	f.addEvent(t, "live", 5, 100, model.EventOngoing)
	ctx := context.Background()

	_, err := f.res.Reserve(ctx, ReserveInput{EventID: "missing", Email: "a@b.com", Quantity: 1})
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.res.Reserve(ctx, ReserveInput{EventID: "cancelled", Email: "a@b.com", Quantity: 1})
	assert.ErrorIs(t, err, ErrEventNotBookable)

	_, err = f.res.Reserve(ctx, ReserveInput{EventID: "past", Email: "a@b.com", Quantity: 1})
	assert.ErrorIs(t, err, ErrEventNotBookable)

	_, err = f.res.Reserve(ctx, ReserveInput{EventID: "live", Email: "a@b.com", Quantity: 1})
	assert.NoError(t, err)

	tk := f.reserve(t, "open", "a@b.com", 4)
	f.confirm(t, tk.Code)
	before := f.store.TicketCount()

	_, err = f.res.Reserve(ctx, ReserveInput{EventID: "open", Email: "a@b.com", Quantity: 2})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	var cerr *CapacityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.Remaining)
	assert.Equal(t, 2, cerr.Requested)
	assert.Equal(t, "only 1 spots remaining", cerr.Error())
	assert.Equal(t, before, f.store.TicketCount())
}

func TestReserve_SoldOutScenario(t *testing.T) {
	f := newFixture(t)
	e := f.addEvent(t, "ev-1", 2, 500, model.EventUpcoming)
	ctx := context.Background()

	tk := f.reserve(t, "ev-1", "a@b.com", 2)
	assert.EqualValues(t, 1000, tk.Amount)
	f.confirm(t, tk.Code)

	occupied, err := f.store.OccupiedSeats(ctx, "ev-1")
	require.NoError(t, err)
	av := capacity.For(&e, occupied)
	assert.Equal(t, 2, av.Occupied)
	assert.Equal(t, 0, av.Remaining)
	assert.Equal(t, 100, av.Percentage)
	assert.True(t, av.SoldOut)

	_, err = f.res.Reserve(ctx, ReserveInput{EventID: "ev-1", Email: "c@d.com", Quantity: 1})
	assert.ErrorIs(t, err, ErrSoldOut)
	assert.Equal(t, 1, f.store.TicketCount())
}

func TestReserve_NotifierFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 5, 100, model.EventUpcoming)
	f.notifier.TicketReservedFunc = func(model.Ticket) error { return errors.New("broker down") }

	_, err := f.res.Reserve(context.Background(), ReserveInput{EventID: "ev-1", Email: "a@b.com", Quantity: 1})
	assert.NoError(t, err)
	assert.Equal(t, 1, f.store.TicketCount())
}

func TestReserve_CodeGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 5, 100, model.EventUpcoming)
	f.res.newCode = func(time.Time) (string, error) { return "", errors.New("entropy exhausted") }

	_, err := f.res.Reserve(context.Background(), ReserveInput{EventID: "ev-1", Email: "a@b.com", Quantity: 1})
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.Equal(t, 0, f.store.TicketCount())
}

func TestReserve_DuplicateCodeLeavesNoTicket(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 5, 100, model.EventUpcoming)
	f.res.newCode = func(time.Time) (string, error) { return "RNR-AAAA-BBBBBB", nil }
	f.reserve(t, "ev-1", "a@b.com", 1)

	_, err := f.res.Reserve(context.Background(), ReserveInput{EventID: "ev-1", Email: "c@d.com", Quantity: 1})
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.Equal(t, 1, f.store.TicketCount())
}

func TestSoftHold_ConfirmationEnforcesCapacity(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 2, 500, model.EventUpcoming)
	ctx := context.Background()

	first := f.reserve(t, "ev-1", "a@b.com", 2)
	second := f.reserve(t, "ev-1", "c@d.com", 2)
	f.confirm(t, first.Code)

	_, err := f.res.SetStatus(ctx, second.Code, model.TicketConfirmed)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	got, err := f.res.GetTicket(ctx, second.Code)
	require.NoError(t, err)
	assert.Equal(t, model.TicketPending, got.Status)

	_, err = f.res.SetStatus(ctx, second.Code, model.TicketCancelled)
	assert.NoError(t, err)
}

func TestSetStatus_TransitionTable(t *testing.T) {
	statuses := []string{model.TicketPending, model.TicketConfirmed, model.TicketCheckedIn, model.TicketCancelled}
	allowed := map[string]bool{
		"pending->confirmed":    true,
		"pending->cancelled":    true,
		"confirmed->checked-in": true,
		"confirmed->cancelled":  true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			key := from + "->" + to
			assert.Equal(t, allowed[key], CanTransition(from, to), key)
		}
	}
	assert.ElementsMatch(t, []string{model.TicketConfirmed, model.TicketCancelled}, NextStatuses(model.TicketPending))
	assert.Empty(t, NextStatuses(model.TicketCheckedIn))
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 10, 100, model.EventUpcoming)
	ctx := context.Background()
	tk := f.reserve(t, "ev-1", "a@b.com", 1)

	later := fixedNow.Add(time.Hour)
	f.res.now = func() time.Time { return later }
	got, err := f.res.SetStatus(ctx, tk.Code, model.TicketConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.TicketConfirmed, got.Status)
	assert.Equal(t, later, got.UpdatedAt)

	_, err = f.res.SetStatus(ctx, tk.Code, model.TicketConfirmed)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, model.TicketConfirmed, terr.From)

	_, err = f.res.SetStatus(ctx, tk.Code, model.TicketCheckedIn)
	require.NoError(t, err)

	_, err = f.res.SetStatus(ctx, tk.Code, model.TicketPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.res.SetStatus(ctx, "RNR-NONE-000000", model.TicketConfirmed)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	_, err = f.res.SetStatus(ctx, tk.Code, "refunded")
	assert.ErrorIs(t, err, ErrValidation)

	// setStatus looks tickets up by code only
	_, err = f.res.SetStatus(ctx, tk.ID, model.TicketCancelled)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	assert.Equal(t, []string{"pending->confirmed", "confirmed->checked-in"}, f.notifier.changed)
}

func TestCheckIn_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 10, 100, model.EventUpcoming)
	ctx := context.Background()
	tk := f.reserve(t, "ev-1", "a@b.com", 2)

	_, err := f.res.CheckIn(ctx, tk.Code)
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending tickets cannot be checked in")

	f.confirm(t, tk.Code)
	first, err := f.res.CheckIn(ctx, tk.Code)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCheckedIn, first.Status)

	f.res.now = func() time.Time { return fixedNow.Add(time.Hour) }
	second, err := f.res.CheckIn(ctx, tk.Code)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCheckedIn, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Len(t, f.notifier.changed, 2)

	occupied, err := f.store.OccupiedSeats(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 2, occupied)
}

func TestTicketsByEmail_CaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 10, 100, model.EventUpcoming)
	ctx := context.Background()
	tk := f.reserve(t, "ev-1", "A@B.com", 1)
	f.reserve(t, "ev-1", "other@b.com", 1)

	for _, email := range []string{"a@b.com", "A@B.com", " a@B.COM "} {
		got, err := f.res.TicketsByEmail(ctx, email)
		require.NoError(t, err)
		require.Len(t, got, 1, email)
		assert.Equal(t, tk.ID, got[0].ID)
	}

	none, err := f.res.TicketsByEmail(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTicketsForEvent(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 10, 100, model.EventUpcoming)
	f.addEvent(t, "ev-2", 10, 100, model.EventUpcoming)
	ctx := context.Background()
	a := f.reserve(t, "ev-1", "a@b.com", 1)
	f.reserve(t, "ev-2", "a@b.com", 1)
	b := f.reserve(t, "ev-1", "c@d.com", 1)

	got, err := f.res.TicketsForEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)

	_, err = f.res.TicketsForEvent(ctx, "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListTickets_Filters(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 10, 100, model.EventUpcoming)
	f.addEvent(t, "ev-2", 10, 100, model.EventUpcoming)
	ctx := context.Background()
	a := f.reserve(t, "ev-1", "alice@example.com", 1)
	b := f.reserve(t, "ev-2", "bob@example.com", 1)
	f.confirm(t, b.Code)

	all, err := f.res.ListTickets(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	confirmed, err := f.res.ListTickets(ctx, TicketFilter{Status: model.TicketConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, b.ID, confirmed[0].ID)

	byEvent, err := f.res.ListTickets(ctx, TicketFilter{EventID: "ev-1"})
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	assert.Equal(t, a.ID, byEvent[0].ID)

	byQuery, err := f.res.ListTickets(ctx, TicketFilter{Query: "ALICE"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, a.ID, byQuery[0].ID)

	_, err = f.res.ListTickets(ctx, TicketFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckInList(t *testing.T) {
	f := newFixture(t)
	f.addEvent(t, "ev-1", 10, 100, model.EventUpcoming)
	ctx := context.Background()
	phone := "254700000001"
	withPhone, err := f.res.Reserve(ctx, ReserveInput{EventID: "ev-1", Email: "x@y.com", Quantity: 1, MpesaPhone: phone})
	require.NoError(t, err)
	plain := f.reserve(t, "ev-1", "z@y.com", 1)
	done := f.reserve(t, "ev-1", "w@y.com", 1)
	f.reserve(t, "ev-1", "pending@y.com", 1)
	for _, tk := range []*model.Ticket{withPhone, plain, done} {
		f.confirm(t, tk.Code)
	}
	_, err = f.res.CheckIn(ctx, done.Code)
	require.NoError(t, err)

	sheet, err := f.res.CheckInList(ctx, "ev-1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, sheet.ToCheckIn)
	assert.Equal(t, 1, sheet.CheckedIn)
	assert.Len(t, sheet.Tickets, 2)

	sheet, err = f.res.CheckInList(ctx, "ev-1", "0001")
	require.NoError(t, err)
	require.Len(t, sheet.Tickets, 1)
	assert.Equal(t, withPhone.ID, sheet.Tickets[0].ID)
	assert.Equal(t, 2, sheet.ToCheckIn)

	_, err = f.res.CheckInList(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestConcurrentReservationsNeverOverbook(t *testing.T) {
	f := newFixture(t)
	const seats = 5
	f.addEvent(t, "ev-1", seats, 100, model.EventUpcoming)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk, err := f.res.Reserve(ctx, ReserveInput{EventID: "ev-1", Email: fmt.Sprintf("fan%d@example.com", i), Quantity: 1 + i%2})
			if err != nil {
				return
			}
			_, _ = f.res.SetStatus(ctx, tk.Code, model.TicketConfirmed)
		}(i)
	}
	wg.Wait()

	occupied, err := f.store.OccupiedSeats(ctx, "ev-1")
	require.NoError(t, err)
	assert.LessOrEqual(t, occupied, seats)
}
