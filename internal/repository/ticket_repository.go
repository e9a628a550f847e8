package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// TicketRepo provides data access to the tickets table.  Tickets are
// never deleted; they only move between statuses.  All timestamps are
// stored in UTC.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, code, event_id, email, mpesa_phone, quantity, status, amount, created_at, updated_at`

func scanTicket(s rowScanner, t *model.Ticket) error {
	var phone sql.NullString
	if err := s.Scan(&t.ID, &t.Code, &t.EventID, &t.Email, &phone, &t.Quantity, &t.Status, &t.Amount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	if phone.Valid {
		p := phone.String
		t.MpesaPhone = &p
	}
	return nil
}

// insert writes a new ticket row.  A duplicate id or code yields
// ErrConflict.
func (r *TicketRepo) insert(ctx context.Context, q querier, t *model.Ticket) error {
	const stmt = `INSERT INTO tickets (` + ticketColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var phone sql.NullString
	if t.MpesaPhone != nil {
		phone = sql.NullString{String: *t.MpesaPhone, Valid: true}
	}
	_, err := q.ExecContext(ctx, stmt,
		t.ID, t.Code, t.EventID, t.Email, phone, t.Quantity, t.Status, t.Amount, t.CreatedAt, t.UpdatedAt,
	)
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// GetByCode returns the ticket with the given human readable code.
func (r *TicketRepo) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	return r.getOne(ctx, r.db, `SELECT `+ticketColumns+` FROM tickets WHERE code = ?`, code)
}

// GetByID returns the ticket with the given storage id.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	return r.getOne(ctx, r.db, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
}

// getByCodeForUpdate loads a ticket inside tx and locks its row.
func (r *TicketRepo) getByCodeForUpdate(ctx context.Context, tx *sql.Tx, code string) (*model.Ticket, error) {
	return r.getOne(ctx, tx, `SELECT `+ticketColumns+` FROM tickets WHERE code = ? FOR UPDATE`, code)
}

func (r *TicketRepo) getOne(ctx context.Context, q querier, query string, arg any) (*model.Ticket, error) {
	var t model.Ticket
	if err := scanTicket(q.QueryRowContext(ctx, query, arg), &t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByEmail returns every ticket booked with the normalized email,
// oldest first.
func (r *TicketRepo) ListByEmail(ctx context.Context, email string) ([]model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE email = ? ORDER BY created_at ASC, id ASC`, email)
}

// ListByEvent returns every ticket of an event, oldest first.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE event_id = ? ORDER BY created_at ASC, id ASC`, eventID)
}

// List returns all tickets, newest first, optionally filtered by status.
func (r *TicketRepo) List(ctx context.Context, status string) ([]model.Ticket, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at DESC, id DESC`)
	}
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE status = ? ORDER BY created_at DESC, id DESC`, status)
}

func (r *TicketRepo) list(ctx context.Context, query string, args ...any) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		var t model.Ticket
		if err := scanTicket(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// occupiedSeats sums the quantity of confirmed and checked-in tickets of
// an event.  Pending and cancelled tickets do not hold seats.
func (r *TicketRepo) occupiedSeats(ctx context.Context, q querier, eventID string) (int, error) {
	const stmt = `SELECT COALESCE(SUM(quantity), 0) FROM tickets
		WHERE event_id = ? AND status IN ('confirmed', 'checked-in')`
	var n int
	if err := q.QueryRowContext(ctx, stmt, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// OccupiedSeats returns the seats currently held by an event's tickets.
func (r *TicketRepo) OccupiedSeats(ctx context.Context, eventID string) (int, error) {
	return r.occupiedSeats(ctx, r.db, eventID)
}

// OccupiedSeatsByEvent aggregates occupied seats for all events in one
// query.
func (r *TicketRepo) OccupiedSeatsByEvent(ctx context.Context) (map[string]int, error) {
	const stmt = `SELECT event_id, SUM(quantity) FROM tickets
		WHERE status IN ('confirmed', 'checked-in') GROUP BY event_id`
	rows, err := r.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *TicketRepo) countByEvent(ctx context.Context, q querier, eventID string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE event_id = ?`, eventID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *TicketRepo) updateStatus(ctx context.Context, q querier, id, status string, at time.Time) error {
	res, err := q.ExecContext(ctx, `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
