package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
)

type planReq struct {
	Name            string `json:"name"`
	StripeProductID string `json:"stripe_product_id"`
}

type membershipReq struct {
	PlanID               *uint64 `json:"plan_id"`
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date"`
	Active               bool    `json:"active"`
	StripeSubscriptionID *string `json:"stripe_subscription_id"`
	Credits              uint32  `json:"credits"`
	NextBillingDate      string  `json:"next_billing_date"`
	ValidUntil           string  `json:"valid_until"`
}

type inviteReq struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ----- plans -----

func (h *AdminHandler) ListPlans(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	plans, err := h.Plans.List(ctx, c.QueryParam("q"))
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"plans": plans})
}

func (h *AdminHandler) GetPlan(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	p, err := h.Plans.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) CreatePlan(c echo.Context) error {
	var req planReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := model.MembershipPlan{Name: req.Name, StripeProductID: req.StripeProductID}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Plans.Create(ctx, &p); err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminHandler) UpdatePlan(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	var req planReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Plans.Update(ctx, model.MembershipPlan{ID: id, Name: req.Name, StripeProductID: req.StripeProductID}); err != nil {
		return apiError(c, h.Log, err)
	}
	p, err := h.Plans.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) DeletePlan(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Plans.Delete(ctx, id); err != nil {
		return apiError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- memberships -----

// ListMemberships supports ?active=true|false.
func (h *AdminHandler) ListMemberships(c echo.Context) error {
	var active *bool
	if s := strings.TrimSpace(c.QueryParam("active")); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return apiError(c, h.Log, model.Invalid("active must be true or false"))
		}
		active = &b
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.Memberships.List(ctx, active)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"memberships": out})
}

func (h *AdminHandler) GetMembership(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	m, err := h.Memberships.GetByUser(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"membership": m, "status": model.MembershipStatus(&m)})
}

// PutMembership creates or replaces the membership of user :id.
func (h *AdminHandler) PutMembership(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	var req membershipReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	m := model.UserMembership{
		UserID:               id,
		PlanID:               req.PlanID,
		Active:               req.Active,
		StripeSubscriptionID: req.StripeSubscriptionID,
		Credits:              req.Credits,
	}
	if m.StartDate, err = parseDate(req.StartDate); err != nil {
		return apiError(c, h.Log, err)
	}
	if m.EndDate, err = parseOptionalDate(req.EndDate); err != nil {
		return apiError(c, h.Log, err)
	}
	if m.NextBillingDate, err = parseOptionalDate(req.NextBillingDate); err != nil {
		return apiError(c, h.Log, err)
	}
	if m.ValidUntil, err = parseOptionalDate(req.ValidUntil); err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Memberships.Upsert(ctx, &m); err != nil {
		return apiError(c, h.Log, err)
	}
	h.notify(c, queue.EventMembershipUpdated, map[string]any{"user_id": id, "active": m.Active, "status": model.MembershipStatus(&m)})
	return c.JSON(http.StatusOK, echo.Map{"membership": m, "status": model.MembershipStatus(&m)})
}

func (h *AdminHandler) DeleteMembership(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Memberships.Delete(ctx, id); err != nil {
		return apiError(c, h.Log, err)
	}
	h.notify(c, queue.EventMembershipUpdated, map[string]any{"user_id": id, "active": false, "status": model.MembershipUnpaid})
	return c.NoContent(http.StatusNoContent)
}

// ----- invites -----

func (h *AdminHandler) ListInvites(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.Invites.List(ctx, c.QueryParam("q"))
	if err != nil {
		return apiError(c, h.Log, err)
	}
	now := h.Now()
	type row struct {
		model.Invite
		Valid bool `json:"valid"`
	}
	rows := make([]row, 0, len(out))
	for _, inv := range out {
		rows = append(rows, row{Invite: inv, Valid: inv.IsValid(now)})
	}
	return c.JSON(http.StatusOK, echo.Map{"invites": rows})
}

// CreateInvite issues a single-use invite valid for seven days.
func (h *AdminHandler) CreateInvite(c echo.Context) error {
	var req inviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role, err := parseRoleInput(req.Role)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	token, err := h.NewToken()
	if err != nil {
		return apiError(c, h.Log, err)
	}
	inv, err := model.NewInvite(req.Email, role, token, h.Now())
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Invites.Create(ctx, &inv); err != nil {
		return apiError(c, h.Log, err)
	}
	h.notify(c, queue.EventInviteCreated, map[string]any{"invite_id": inv.ID, "email": inv.Email, "role": inv.Role.String()})
	return c.JSON(http.StatusCreated, inv)
}

// UseInvite marks an invite redeemed.  Used or expired invites yield 404.
func (h *AdminHandler) UseInvite(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Invites.MarkUsed(ctx, id, h.Now()); err != nil {
		return apiError(c, h.Log, err)
	}
	inv, err := h.Invites.GetByID(ctx, id)
	if err != nil {
		return apiError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *AdminHandler) DeleteInvite(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return apiError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.Invites.Delete(ctx, id); err != nil {
		return apiError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
