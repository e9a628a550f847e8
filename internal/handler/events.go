package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/watchparty-tickets/internal/service"
)

// EventHandler serves the public catalogue and the staff event
// management endpoints.
type EventHandler struct {
	Events *service.Events
}

func NewEventHandler(events *service.Events) *EventHandler {
	return &EventHandler{Events: events}
}

// List handles GET /v1/events?status=.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	events, err := h.Events.List(ctx, c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toEventList(events)})
}

// Search handles GET /v1/search/events?q=.  A blank query lists the
// whole catalogue.
func (h *EventHandler) Search(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	events, err := h.Events.Search(ctx, c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toEventList(events)})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ea, err := h.Events.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResp(*ea))
}

// Create handles POST /v1/admin/events.
func (h *EventHandler) Create(c echo.Context) error {
	var req service.EventInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ea, err := h.Events.Create(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toEventResp(*ea))
}

// Patch handles PATCH /v1/admin/events/:id.  Omitted fields keep their
// stored value.
func (h *EventHandler) Patch(c echo.Context) error {
	var req service.EventPatch
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	return h.update(c, req)
}

// Replace handles PUT /v1/admin/events/:id.  Every field is taken from
// the body.
func (h *EventHandler) Replace(c echo.Context) error {
	var req service.EventInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	return h.update(c, req.Patch())
}

func (h *EventHandler) update(c echo.Context, patch service.EventPatch) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ea, err := h.Events.Update(ctx, c.Param("id"), patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResp(*ea))
}

// Delete handles DELETE /v1/admin/events/:id.  Events that have tickets
// cannot be deleted; staff cancel them instead.
func (h *EventHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	deleted, err := h.Events.Delete(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if !deleted {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "event_has_tickets",
			"message": "this event has tickets; cancel it instead",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

type dashboardResp struct {
	UpcomingEvents   int          `json:"upcoming_events"`
	PastEvents       int          `json:"past_events"`
	PendingTickets   int          `json:"pending_tickets"`
	ConfirmedTickets int          `json:"confirmed_tickets"`
	CheckedInTickets int          `json:"checked_in_tickets"`
	NextEvent        *eventResp   `json:"next_event"`
	RecentTickets    []ticketResp `json:"recent_tickets"`
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *EventHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Events.Dashboard(ctx)
	if err != nil {
		return writeError(c, err)
	}
	resp := dashboardResp{
		UpcomingEvents:   d.UpcomingEvents,
		PastEvents:       d.PastEvents,
		PendingTickets:   d.PendingTickets,
		ConfirmedTickets: d.ConfirmedTickets,
		CheckedInTickets: d.CheckedInTickets,
		RecentTickets:    toTicketList(d.RecentTickets),
	}
	if d.NextEvent != nil {
		next := toEventResp(*d.NextEvent)
		resp.NextEvent = &next
	}
	return c.JSON(http.StatusOK, resp)
}
