package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
)

const dateLayout = "2006-01-02"

type createSessionRequestReq struct {
	RequesterName  string  `json:"requester_name"`
	RequesterEmail string  `json:"requester_email"`
	RequesterPhone string  `json:"requester_phone"`
	RequestedDate  string  `json:"requested_date"` // YYYY-MM-DD
	RequestedTime  string  `json:"requested_time"` // HH:MM[:SS]
	Hours          uint32  `json:"hours"`
	Notes          *string `json:"notes"`
}

type createBookedSessionReq struct {
	BookedByID    *uint64 `json:"booked_by_id"`
	Start         string  `json:"start"` // RFC3339
	DurationHours uint32  `json:"duration_hours"`
	Status        string  `json:"status"`
	Notes         *string `json:"notes"`
}

type statusReq struct {
	Status string `json:"status"`
}

type startReq struct {
	Start string `json:"start"`
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, model.Invalid("date must be YYYY-MM-DD")
	}
	return t, nil
}

// parseOptionalDate returns nil for an empty string.
func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseStart(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, model.Invalid("start must be RFC3339")
	}
	return t, nil
}

// ----- pending session requests -----

// ListSessionRequests supports ?status= and ?q= (requester name/email).
func (h *AdminHandler) ListSessionRequests(c echo.Context) error {
	f := repository.SessionRequestFilter{Query: c.QueryParam("q")}
	if s := c.QueryParam("status"); s != "" {
		st, err := model.ParseSessionRequestStatus(s)
		if err != nil {
			return apiError(c, h.Log, err)
		}
		f.Status = &st
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.Requests.List(ctx, f)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_requests": out})
}

func (h *AdminHandler) CreateSessionRequest(c echo.Context) error {
	var req createSessionRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date, err := parseDate(req.RequestedDate)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	clock, err := model.ParseClockTime(req.RequestedTime)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	r := model.PendingSessionRequest{
		RequesterName:  strings.TrimSpace(req.RequesterName),
		RequesterEmail: strings.ToLower(strings.TrimSpace(req.RequesterEmail)),
		RequesterPhone: strings.TrimSpace(req.RequesterPhone),
		RequestedDate:  date,
		RequestedTime:  clock,
		Hours:          req.Hours,
		Notes:          req.Notes,
		Status:         model.RequestPending,
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Requests.Create(ctx, &r); err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *AdminHandler) GetSessionRequest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	r, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// UpdateSessionRequestStatus approves or declines a pending request.
func (h *AdminHandler) UpdateSessionRequestStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	next, err := model.ParseSessionRequestStatus(req.Status)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	prev, err := h.Requests.UpdateStatus(ctx, id, next)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	h.notify(c, queue.EventSessionRequestStatus, map[string]any{"id": id, "from": string(prev), "to": string(next)})
	r, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *AdminHandler) DeleteSessionRequest(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Requests.Delete(ctx, id); err != nil {
		return apiError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- booked sessions -----

// ListBookedSessions supports ?status=, ?q= (booker username) and
// ?from=/?to= (YYYY-MM-DD, inclusive).
func (h *AdminHandler) ListBookedSessions(c echo.Context) error {
	f := repository.BookedSessionFilter{Query: c.QueryParam("q")}
	if s := c.QueryParam("status"); s != "" {
		st, err := model.ParseBookedStatus(s)
		if err != nil {
			return apiError(c, h.Log, err)
		}
		f.Status = &st
	}
	var err error
	if f.From, err = parseOptionalDate(c.QueryParam("from")); err != nil {
		return apiError(c, h.Log, err)
	}
	if f.To, err = parseOptionalDate(c.QueryParam("to")); err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.Booked.List(ctx, f)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booked_sessions": out})
}

func (h *AdminHandler) CreateBookedSession(c echo.Context) error {
	var req createBookedSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, err := parseStart(req.Start)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	s := model.BookedSession{
		BookedByID:    req.BookedByID,
		DurationHours: req.DurationHours,
		Status:        model.BookedBooked,
		Notes:         req.Notes,
	}
	if strings.TrimSpace(req.Status) != "" {
		if s.Status, err = model.ParseBookedStatus(req.Status); err != nil {
			return apiError(c, h.Log, err)
		}
	}
	s.SetStart(start)
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Booked.Create(ctx, &s); err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *AdminHandler) GetBookedSession(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	s, err := h.Booked.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// UpdateBookedSessionStatus marks a session paid or canceled.
func (h *AdminHandler) UpdateBookedSessionStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	next, err := model.ParseBookedStatus(req.Status)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	prev, err := h.Booked.UpdateStatus(ctx, id, next)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	h.notify(c, queue.EventBookedSessionStatus, map[string]any{"id": id, "from": string(prev), "to": string(next)})
	s, err := h.Booked.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// RescheduleBookedSession moves a session to a new start time.
func (h *AdminHandler) RescheduleBookedSession(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	var req startReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, err := parseStart(req.Start)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Booked.Reschedule(ctx, id, start); err != nil {
		return apiError(c, h.Log, err)
	}
	s, err := h.Booked.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *AdminHandler) DeleteBookedSession(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Booked.Delete(ctx, id); err != nil {
		return apiError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
