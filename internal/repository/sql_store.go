package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/watchparty-tickets/internal/model"
)

// MySQL error numbers used to classify write failures.
const (
	mysqlErrDupEntry        = 1062
	mysqlErrRowIsReferenced = 1451
)

// SQLStore implements Store on top of MySQL.  Transactions rely on
// InnoDB row locks (SELECT ... FOR UPDATE) to serialize writers of the
// same event.
type SQLStore struct {
	db      *sql.DB
	Events  *EventRepo
	Tickets *TicketRepo
	Users   *UserRepo
}

// NewSQLStore wires the MySQL repositories around db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:      db,
		Events:  NewEventRepo(db),
		Tickets: NewTicketRepo(db),
		Users:   NewUserRepo(db),
	}
}

// DB exposes the underlying sql.DB.
func (s *SQLStore) DB() *sql.DB { return s.db }

// WithinTx begins a transaction, runs fn and commits when fn succeeds.
// Any error from fn or from the commit rolls the transaction back.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *SQLStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return s.Events.Create(ctx, e)
}

func (s *SQLStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.Events.GetByID(ctx, id)
}

func (s *SQLStore) ListEvents(ctx context.Context, status string) ([]model.Event, error) {
	return s.Events.List(ctx, status)
}

func (s *SQLStore) SearchEvents(ctx context.Context, text string) ([]model.Event, error) {
	return s.Events.Search(ctx, text)
}

func (s *SQLStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	return s.Events.Update(ctx, e)
}

func (s *SQLStore) OccupiedSeats(ctx context.Context, eventID string) (int, error) {
	return s.Tickets.OccupiedSeats(ctx, eventID)
}

func (s *SQLStore) OccupiedSeatsByEvent(ctx context.Context) (map[string]int, error) {
	return s.Tickets.OccupiedSeatsByEvent(ctx)
}

func (s *SQLStore) GetTicketByCode(ctx context.Context, code string) (*model.Ticket, error) {
	return s.Tickets.GetByCode(ctx, code)
}

func (s *SQLStore) GetTicketByID(ctx context.Context, id string) (*model.Ticket, error) {
	return s.Tickets.GetByID(ctx, id)
}

func (s *SQLStore) ListTicketsByEmail(ctx context.Context, email string) ([]model.Ticket, error) {
	return s.Tickets.ListByEmail(ctx, email)
}

func (s *SQLStore) ListTicketsByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	return s.Tickets.ListByEvent(ctx, eventID)
}

func (s *SQLStore) ListTickets(ctx context.Context, status string) ([]model.Ticket, error) {
	return s.Tickets.List(ctx, status)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.Users.GetByUsername(ctx, username)
}

func (s *SQLStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.Users.Create(ctx, u)
}

// sqlTx adapts *sql.Tx to the Tx interface.
type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) LockEvent(ctx context.Context, id string) (*model.Event, error) {
	return t.s.Events.getByIDForUpdate(ctx, t.tx, id)
}

func (t *sqlTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	return t.s.Events.update(ctx, t.tx, e)
}

func (t *sqlTx) OccupiedSeats(ctx context.Context, eventID string) (int, error) {
	return t.s.Tickets.occupiedSeats(ctx, t.tx, eventID)
}

func (t *sqlTx) CountTickets(ctx context.Context, eventID string) (int, error) {
	return t.s.Tickets.countByEvent(ctx, t.tx, eventID)
}

func (t *sqlTx) InsertTicket(ctx context.Context, tk *model.Ticket) error {
	return t.s.Tickets.insert(ctx, t.tx, tk)
}

func (t *sqlTx) LockTicketByCode(ctx context.Context, code string) (*model.Ticket, error) {
	return t.s.Tickets.getByCodeForUpdate(ctx, t.tx, code)
}

func (t *sqlTx) UpdateTicketStatus(ctx context.Context, id, status string, at time.Time) error {
	return t.s.Tickets.updateStatus(ctx, t.tx, id, status, at)
}

func (t *sqlTx) DeleteEvent(ctx context.Context, id string) error {
	return t.s.Events.deleteTx(ctx, t.tx, id)
}

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateKey(err error) bool {
	return err != nil && mysqlErrNumber(err) == mysqlErrDupEntry
}

func isForeignKeyViolation(err error) bool {
	return err != nil && mysqlErrNumber(err) == mysqlErrRowIsReferenced
}
