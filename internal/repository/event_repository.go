package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so that repository
// methods can run either standalone or inside a caller's transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, description, short_description, event_date, start_time, end_time,
	location, image_url, price, max_capacity, byob, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner, e *model.Event) error {
	return s.Scan(
		&e.ID, &e.Title, &e.Description, &e.ShortDescription, &e.Date, &e.StartTime, &e.EndTime,
		&e.Location, &e.ImageURL, &e.Price, &e.MaxCapacity, &e.BYOB, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
}

// Create inserts a new event.  The caller assigns ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.Title, e.Description, e.ShortDescription, e.Date, e.StartTime, e.EndTime,
		e.Location, e.ImageURL, e.Price, e.MaxCapacity, e.BYOB, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// GetByID returns the event with the given id or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return r.getByID(ctx, r.db, id, false)
}

// getByIDForUpdate loads an event inside tx and locks its row until the
// transaction ends.
func (r *EventRepo) getByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Event, error) {
	return r.getByID(ctx, tx, id, true)
}

func (r *EventRepo) getByID(ctx context.Context, q querier, id string, lock bool) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	var e model.Event
	if err := scanEvent(q.QueryRowContext(ctx, query, id), &e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns events ordered by date and start time.  An empty status
// returns every event.
func (r *EventRepo) List(ctx context.Context, status string) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY event_date ASC, start_time ASC`
	return r.query(ctx, query, args...)
}

// Search performs a case-insensitive substring match over title,
// description and short description.  There is no ranking; results keep
// the date ordering used by List.
func (r *EventRepo) Search(ctx context.Context, text string) ([]model.Event, error) {
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	const q = `SELECT ` + eventColumns + ` FROM events
		WHERE LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(short_description) LIKE ?
		ORDER BY event_date ASC, start_time ASC`
	return r.query(ctx, q, pattern, pattern, pattern)
}

func (r *EventRepo) query(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes every mutable column of e.  It returns ErrNotFound when
// no row has the event's id.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	return r.update(ctx, r.db, e)
}

func (r *EventRepo) update(ctx context.Context, q querier, e *model.Event) error {
	const stmt = `UPDATE events SET title = ?, description = ?, short_description = ?, event_date = ?,
		start_time = ?, end_time = ?, location = ?, image_url = ?, price = ?, max_capacity = ?,
		byob = ?, status = ?, updated_at = ?
		WHERE id = ?`
	res, err := q.ExecContext(ctx, stmt,
		e.Title, e.Description, e.ShortDescription, e.Date, e.StartTime, e.EndTime,
		e.Location, e.ImageURL, e.Price, e.MaxCapacity, e.BYOB, e.Status, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 affected rows when values are unchanged, so
		// confirm the row exists before calling it missing.
		if _, err := r.getByID(ctx, q, e.ID, false); err != nil {
			return err
		}
	}
	return nil
}

// deleteTx removes an event inside tx.  Callers check for referencing
// tickets first; the foreign key rejects the delete otherwise.
func (r *EventRepo) deleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
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

// escapeLike escapes the LIKE wildcards in s using MySQL's default
// backslash escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
