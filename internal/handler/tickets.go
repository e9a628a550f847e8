package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/watchparty-tickets/internal/service"
)

// TicketHandler serves reservations for guests and the ticket desk for
// staff.
type TicketHandler struct {
	Reservations *service.Reservations
}

func NewTicketHandler(r *service.Reservations) *TicketHandler {
	return &TicketHandler{Reservations: r}
}

// ----- DTOs -----

type reserveReq struct {
	Email      string `json:"email"`
	Quantity   int    `json:"quantity"`
	MpesaPhone string `json:"mpesa_phone"`
}

type statusReq struct {
	Status string `json:"status"`
}

type eventSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	MaxCapacity int    `json:"max_capacity"`
}

type checkInListResp struct {
	Event     eventSummary      `json:"event"`
	ToCheckIn int               `json:"to_check_in"`
	CheckedIn int               `json:"checked_in"`
	Items     []adminTicketResp `json:"items"`
}

// Reserve handles POST /v1/events/:id/tickets.  The new ticket is
// pending until staff confirm the payment.
func (h *TicketHandler) Reserve(c echo.Context) error {
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Reservations.Reserve(ctx, service.ReserveInput{
		EventID:    c.Param("id"),
		Email:      req.Email,
		Quantity:   req.Quantity,
		MpesaPhone: req.MpesaPhone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toTicketResp(*t))
}

// Get handles GET /v1/tickets/:id where id is either the ticket code or
// the storage id.
func (h *TicketHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Reservations.GetTicket(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(*t))
}

// ByEmail handles GET /v1/tickets?email=.
func (h *TicketHandler) ByEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tickets, err := h.Reservations.TicketsByEmail(ctx, c.QueryParam("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toTicketList(tickets)})
}

// ForEvent handles GET /v1/admin/events/:id/tickets.
func (h *TicketHandler) ForEvent(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tickets, err := h.Reservations.TicketsForEvent(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toAdminTicketList(tickets)})
}

// List handles GET /v1/admin/tickets?status=&event_id=&q=.
func (h *TicketHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tickets, err := h.Reservations.ListTickets(ctx, service.TicketFilter{
		Status:  c.QueryParam("status"),
		EventID: c.QueryParam("event_id"),
		Query:   c.QueryParam("q"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toAdminTicketList(tickets)})
}

// SetStatus handles PATCH /v1/admin/tickets/:code/status.
func (h *TicketHandler) SetStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Reservations.SetStatus(ctx, c.Param("code"), req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAdminTicket(*t))
}

// CheckIn handles POST /v1/admin/tickets/:code/check-in.
func (h *TicketHandler) CheckIn(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Reservations.CheckIn(ctx, c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAdminTicket(*t))
}

// CheckInList handles GET /v1/admin/events/:id/check-in?q=.
func (h *TicketHandler) CheckInList(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	sheet, err := h.Reservations.CheckInList(ctx, c.Param("id"), c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	e := sheet.Event
	return c.JSON(http.StatusOK, checkInListResp{
		Event: eventSummary{
			ID:          e.ID,
			Title:       e.Title,
			Date:        e.Date,
			StartTime:   e.StartTime,
			Location:    e.Location,
			Status:      e.Status,
			MaxCapacity: e.MaxCapacity,
		},
		ToCheckIn: sheet.ToCheckIn,
		CheckedIn: sheet.CheckedIn,
		Items:     toAdminTicketList(sheet.Tickets),
	})
}
