package model

import "time"

// Membership status labels shown on the profile page.
const (
	MembershipPaid   = "Paid"
	MembershipUnpaid = "Unpaid"
)

// DefaultStripeProductID is the placeholder product reference given to plans
// created without one.
const DefaultStripeProductID = "prod_123"

// MembershipPlan mirrors the `membership_plan` table.
type MembershipPlan struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	StripeProductID string `json:"stripe_product_id"`
}

// UserMembership mirrors the `user_membership` table.  A user has at most
// one membership row.  Dates are calendar dates stored without a time part.
//
// Fields:
//
//	ID                   – primary key identifier.
//	UserID               – owning user (unique).
//	PlanID               – plan reference; nil once the plan is deleted.
//	StartDate            – first day of the membership.
//	EndDate              – set when the membership is explicitly ended.
//	Active               – whether the membership currently counts as paid.
//	StripeSubscriptionID – external subscription reference (unique, nullable).
//	Credits              – remaining session credits.
//	NextBillingDate      – next payment due date.
//	ValidUntil           – last day the membership is valid.
type UserMembership struct {
	ID                   uint64     `json:"id"`
	UserID               uint64     `json:"user_id"`
	PlanID               *uint64    `json:"plan_id"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	Active               bool       `json:"active"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id,omitempty"`
	Credits              uint32     `json:"credits"`
	NextBillingDate      *time.Time `json:"next_billing_date,omitempty"`
	ValidUntil           *time.Time `json:"valid_until,omitempty"`
}

// MembershipStatus derives the label for an optional membership row: only
// an existing, active membership counts as paid.
func MembershipStatus(m *UserMembership) string {
	if m != nil && m.Active {
		return MembershipPaid
	}
	return MembershipUnpaid
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
