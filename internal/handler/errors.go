package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/watchparty-tickets/internal/service"
)

// writeError renders a service error.  Expected conditions get a
// machine readable code and a message fit for end users; anything else
// is an opaque 500; the services have already logged the cause.
func writeError(c echo.Context, err error) error {
	var (
		verr *service.ValidationError
		cerr *service.CapacityError
		terr *service.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": verr.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": err.Error()})
	case errors.Is(err, service.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event_not_found", "message": "event not found"})
	case errors.Is(err, service.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket_not_found", "message": "ticket not found"})
	case errors.Is(err, service.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "sold_out", "message": "this event is sold out", "remaining": 0})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity_exceeded", "message": cerr.Error(), "remaining": cerr.Remaining})
	case errors.Is(err, service.ErrEventNotBookable):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "event_not_bookable", "message": "this event is not open for booking"})
	case errors.As(err, &terr):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid_transition", "message": terr.Error(), "from": terr.From, "to": terr.To})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "something went wrong, please try again"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "request body is not valid JSON"})
}
