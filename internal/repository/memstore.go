package repository

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// MemStore is an in-memory Store used for local development
// (STORE_DRIVER=memory) and as the test double of the service and
// handler packages.  Transactions hold an exclusive lock for their whole
// duration and work on a copy of the data that replaces the live state
// only when the transaction function succeeds.
type MemStore struct {
	mu sync.RWMutex
	memState
}

type memState struct {
	events  map[string]model.Event
	tickets map[string]model.Ticket
	codes   map[string]string // ticket code -> ticket id
	seq     map[string]uint64 // ticket id -> insertion order
	next    uint64
	users   map[string]model.User // username -> user
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{memState: memState{
		events:  map[string]model.Event{},
		tickets: map[string]model.Ticket{},
		codes:   map[string]string{},
		seq:     map[string]uint64{},
		users:   map[string]model.User{},
	}}
}

func (s memState) clone() memState {
	return memState{
		events:  maps.Clone(s.events),
		tickets: maps.Clone(s.tickets),
		codes:   maps.Clone(s.codes),
		seq:     maps.Clone(s.seq),
		next:    s.next,
		users:   s.users,
	}
}

// TicketCount returns the number of stored tickets.
func (s *MemStore) TicketCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}

func (s *MemStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{st: s.memState.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.memState = tx.st
	return nil
}

func (s *MemStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return ErrConflict
	}
	s.events[e.ID] = *e
	return nil
}

func (s *MemStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemStore) ListEvents(_ context.Context, status string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Event{}
	for _, e := range s.events {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *MemStore) SearchEvents(_ context.Context, text string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(text)
	out := []model.Event{}
	for _, e := range s.events {
		if strings.Contains(strings.ToLower(e.Title), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle) ||
			strings.Contains(strings.ToLower(e.ShortDescription), needle) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *MemStore) UpdateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memState.updateEvent(e)
}

func (s memState) updateEvent(e *model.Event) error {
	cur, ok := s.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	next := *e
	next.CreatedAt = cur.CreatedAt
	s.events[e.ID] = next
	return nil
}

func (s *MemStore) OccupiedSeats(_ context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occupied(eventID), nil
}

func (s *MemStore) OccupiedSeatsByEvent(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]int{}
	for _, t := range s.tickets {
		if t.Status == model.TicketConfirmed || t.Status == model.TicketCheckedIn {
			out[t.EventID] += t.Quantity
		}
	}
	return out, nil
}

func (s *MemStore) GetTicketByCode(_ context.Context, code string) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticketByCode(code)
}

func (s *MemStore) GetTicketByID(_ context.Context, id string) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemStore) ListTicketsByEmail(_ context.Context, email string) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTickets(func(t model.Ticket) bool { return t.Email == email }, false), nil
}

func (s *MemStore) ListTicketsByEvent(_ context.Context, eventID string) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTickets(func(t model.Ticket) bool { return t.EventID == eventID }, false), nil
}

func (s *MemStore) ListTickets(_ context.Context, status string) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTickets(func(t model.Ticket) bool { return status == "" || t.Status == status }, true), nil
}

func (s *MemStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.TrimSpace(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Username = strings.TrimSpace(u.Username)
	if _, ok := s.users[u.Username]; ok {
		return ErrUsernameExists
	}
	s.users[u.Username] = *u
	return nil
}

func (s memState) occupied(eventID string) int {
	n := 0
	for _, t := range s.tickets {
		if t.EventID == eventID && (t.Status == model.TicketConfirmed || t.Status == model.TicketCheckedIn) {
			n += t.Quantity
		}
	}
	return n
}

func (s memState) ticketByCode(code string) (*model.Ticket, error) {
	id, ok := s.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	t := s.tickets[id]
	return &t, nil
}

// filterTickets returns matching tickets ordered by creation time and
// insertion order, reversed when newestFirst is set.
func (s memState) filterTickets(keep func(model.Ticket) bool, newestFirst bool) []model.Ticket {
	out := []model.Ticket{}
	for _, t := range s.tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b model.Ticket) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = cmp.Compare(s.seq[a.ID], s.seq[b.ID])
		}
		if newestFirst {
			return -c
		}
		return c
	})
	return out
}

func sortEvents(events []model.Event) {
	slices.SortFunc(events, func(a, b model.Event) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

// memTx operates on a private copy of the store state.
type memTx struct {
	st memState
}

func (t *memTx) LockEvent(_ context.Context, id string) (*model.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (t *memTx) UpdateEvent(_ context.Context, e *model.Event) error {
	return t.st.updateEvent(e)
}

func (t *memTx) OccupiedSeats(_ context.Context, eventID string) (int, error) {
	return t.st.occupied(eventID), nil
}

func (t *memTx) CountTickets(_ context.Context, eventID string) (int, error) {
	n := 0
	for _, tk := range t.st.tickets {
		if tk.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertTicket(_ context.Context, tk *model.Ticket) error {
	if _, ok := t.st.tickets[tk.ID]; ok {
		return ErrConflict
	}
	if _, ok := t.st.codes[tk.Code]; ok {
		return ErrConflict
	}
	if _, ok := t.st.events[tk.EventID]; !ok {
		return ErrConflict
	}
	t.st.tickets[tk.ID] = *tk
	t.st.codes[tk.Code] = tk.ID
	t.st.next++
	t.st.seq[tk.ID] = t.st.next
	return nil
}

func (t *memTx) LockTicketByCode(_ context.Context, code string) (*model.Ticket, error) {
	return t.st.ticketByCode(code)
}

func (t *memTx) UpdateTicketStatus(_ context.Context, id, status string, at time.Time) error {
	tk, ok := t.st.tickets[id]
	if !ok {
		return ErrNotFound
	}
	tk.Status = status
	tk.UpdatedAt = at
	t.st.tickets[id] = tk
	return nil
}

func (t *memTx) DeleteEvent(ctx context.Context, id string) error {
	if _, ok := t.st.events[id]; !ok {
		return ErrNotFound
	}
	if n, _ := t.CountTickets(ctx, id); n > 0 {
		return ErrConflict
	}
	delete(t.st.events, id)
	return nil
}
