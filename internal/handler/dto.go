package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/watchparty-tickets/internal/capacity"
	"github.com/iliyamo/watchparty-tickets/internal/model"
	"github.com/iliyamo/watchparty-tickets/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// ----- DTOs -----

type eventResp struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	ShortDescription string                `json:"short_description"`
	Date             string                `json:"date"`
	StartTime        string                `json:"start_time"`
	EndTime          string                `json:"end_time"`
	Location         string                `json:"location"`
	ImageURL         string                `json:"image_url"`
	Price            int64                 `json:"price"`
	MaxCapacity      int                   `json:"max_capacity"`
	BYOB             bool                  `json:"byob"`
	Status           string                `json:"status"`
	Bookable         bool                  `json:"bookable"`
	Availability     capacity.Availability `json:"availability"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

type ticketResp struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	EventID    string    `json:"event_id"`
	Email      string    `json:"email"`
	MpesaPhone *string   `json:"mpesa_phone"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// adminTicketResp adds the statuses staff may move the ticket to.
type adminTicketResp struct {
	ticketResp
	NextStatuses []string `json:"next_statuses"`
}

func toEventResp(ea service.EventAvailability) eventResp {
	e := ea.Event
	return eventResp{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		ShortDescription: e.ShortDescription,
		Date:             e.Date,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		Location:         e.Location,
		ImageURL:         e.ImageURL,
		Price:            e.Price,
		MaxCapacity:      e.MaxCapacity,
		BYOB:             e.BYOB,
		Status:           e.Status,
		Bookable:         e.Bookable() && !ea.Availability.SoldOut,
		Availability:     ea.Availability,
		CreatedAt:        e.CreatedAt.UTC(),
		UpdatedAt:        e.UpdatedAt.UTC(),
	}
}

func toEventList(in []service.EventAvailability) []eventResp {
	out := make([]eventResp, 0, len(in))
	for _, ea := range in {
		out = append(out, toEventResp(ea))
	}
	return out
}

func toTicketResp(t model.Ticket) ticketResp {
	return ticketResp{
		ID:         t.ID,
		Code:       t.Code,
		EventID:    t.EventID,
		Email:      t.Email,
		MpesaPhone: t.MpesaPhone,
		Quantity:   t.Quantity,
		Status:     t.Status,
		Amount:     t.Amount,
		CreatedAt:  t.CreatedAt.UTC(),
		UpdatedAt:  t.UpdatedAt.UTC(),
	}
}

func toTicketList(in []model.Ticket) []ticketResp {
	out := make([]ticketResp, 0, len(in))
	for _, t := range in {
		out = append(out, toTicketResp(t))
	}
	return out
}

func toAdminTicket(t model.Ticket) adminTicketResp {
	next := service.NextStatuses(t.Status)
	if next == nil {
		next = []string{}
	}
	return adminTicketResp{ticketResp: toTicketResp(t), NextStatuses: next}
}

func toAdminTicketList(in []model.Ticket) []adminTicketResp {
	out := make([]adminTicketResp, 0, len(in))
	for _, t := range in {
		out = append(out, toAdminTicket(t))
	}
	return out
}
