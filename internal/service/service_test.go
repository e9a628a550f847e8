package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/watchparty-tickets/internal/model"
	"github.com/iliyamo/watchparty-tickets/internal/repository"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

// mockNotifier records notifications.  Set the Func fields to make a
// call fail.
type mockNotifier struct {
	mu                      sync.Mutex
	reserved                []model.Ticket
	changed                 []string
	TicketReservedFunc      func(t model.Ticket) error
	TicketStatusChangedFunc func(t model.Ticket, from string) error
}

func (m *mockNotifier) TicketReserved(_ context.Context, t model.Ticket, _ model.Event) error {
	m.mu.Lock()
	m.reserved = append(m.reserved, t)
	m.mu.Unlock()
	if m.TicketReservedFunc != nil {
		return m.TicketReservedFunc(t)
	}
	return nil
}

func (m *mockNotifier) TicketStatusChanged(_ context.Context, t model.Ticket, from string) error {
	m.mu.Lock()
	m.changed = append(m.changed, from+"->"+t.Status)
	m.mu.Unlock()
	if m.TicketStatusChangedFunc != nil {
		return m.TicketStatusChangedFunc(t, from)
	}
	return nil
}

type fixture struct {
	store    *repository.MemStore
	notifier *mockNotifier
	res      *Reservations
	events   *Events
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemStore()
	n := &mockNotifier{}
	res := NewReservations(store, n, nil)
	res.now = func() time.Time { return fixedNow }
	ev := NewEvents(store, nil)
	ev.now = func() time.Time { return fixedNow }
	return &fixture{store: store, notifier: n, res: res, events: ev}
}

// addEvent stores an event directly, bypassing validation.
func (f *fixture) addEvent(t *testing.T, id string, maxCapacity int, price int64, status string) model.Event {
	t.Helper()
	e := model.Event{
		ID: id, Title: "Match " + id, Date: "2026-10-20", StartTime: "18:00", EndTime: "21:00",
		Price: price, MaxCapacity: maxCapacity, Status: status, CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
	require.NoError(t, f.store.CreateEvent(context.Background(), &e))
	return e
}

func (f *fixture) reserve(t *testing.T, eventID, email string, qty int) *model.Ticket {
	t.Helper()
	tk, err := f.res.Reserve(context.Background(), ReserveInput{EventID: eventID, Email: email, Quantity: qty})
	require.NoError(t, err)
	return tk
}

func (f *fixture) confirm(t *testing.T, code string) {
	t.Helper()
	_, err := f.res.SetStatus(context.Background(), code, model.TicketConfirmed)
	require.NoError(t, err)
}
