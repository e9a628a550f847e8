package model

import "time"

// Ticket statuses.
const (
	TicketPending   = "pending"
	TicketConfirmed = "confirmed"
	TicketCheckedIn = "checked-in"
	TicketCancelled = "cancelled"
)

// Ticket is a reservation for one or more seats at a single event.
// It has two identifiers: ID is assigned by the store and Code is the
// human readable value printed for the customer (RNR-XXXX-YYYYYY).
// Both are unique and both can be used for lookups.
//
// Fields:
//	ID         – storage identifier (UUID).
//	Code       – human readable ticket code.
//	EventID    – event the seats are reserved for.
//	Email      – lower-cased contact email.
//	MpesaPhone – optional phone used for payment reconciliation.
//	Quantity   – number of seats (1..10).
//	Status     – pending, confirmed, checked-in or cancelled.
//	Amount     – price × quantity captured when the ticket was created.
//	CreatedAt  – creation timestamp (UTC).
//	UpdatedAt  – last status change (UTC).
type Ticket struct {
	ID         string    // tickets.id
	Code       string    // tickets.code
	EventID    string    // tickets.event_id
	Email      string    // tickets.email
	MpesaPhone *string   // tickets.mpesa_phone (nullable)
	Quantity   int       // tickets.quantity
	Status     string    // tickets.status
	Amount     int64     // tickets.amount
	CreatedAt  time.Time // tickets.created_at
	UpdatedAt  time.Time // tickets.updated_at
}

// ValidTicketStatus reports whether s is a known ticket status.
func ValidTicketStatus(s string) bool {
	switch s {
	case TicketPending, TicketConfirmed, TicketCheckedIn, TicketCancelled:
		return true
	}
	return false
}
