package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/studio-booking/internal/model"
)

// PlanRepo manages membership plans.
type PlanRepo struct{ DB *sql.DB }

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{DB: db} }

// Create inserts p, defaulting the product reference when empty.
func (r *PlanRepo) Create(ctx context.Context, p *model.MembershipPlan) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return model.Invalid("name is required")
	}
	if strings.TrimSpace(p.StripeProductID) == "" {
		p.StripeProductID = model.DefaultStripeProductID
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO membership_plan (name, stripe_product_id) VALUES (?, ?)", p.Name, p.StripeProductID)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PlanRepo) GetByID(ctx context.Context, id uint64) (model.MembershipPlan, error) {
	var p model.MembershipPlan
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, stripe_product_id FROM membership_plan WHERE id = ? LIMIT 1", id).
		Scan(&p.ID, &p.Name, &p.StripeProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MembershipPlan{}, ErrPlanNotFound
	}
	return p, err
}

// List returns plans by name, optionally filtered by a name substring.
func (r *PlanRepo) List(ctx context.Context, query string) ([]model.MembershipPlan, error) {
	q := "SELECT id, name, stripe_product_id FROM membership_plan"
	var args []any
	if s := strings.TrimSpace(query); s != "" {
		q += " WHERE name LIKE ?"
		args = append(args, likePattern(s))
	}
	q += " ORDER BY name, id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MembershipPlan{}
	for rows.Next() {
		var p model.MembershipPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.StripeProductID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PlanRepo) Update(ctx context.Context, p model.MembershipPlan) error {
	if strings.TrimSpace(p.Name) == "" {
		return model.Invalid("name is required")
	}
	if strings.TrimSpace(p.StripeProductID) == "" {
		p.StripeProductID = model.DefaultStripeProductID
	}
	if _, err := r.GetByID(ctx, p.ID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE membership_plan SET name = ?, stripe_product_id = ? WHERE id = ?",
		strings.TrimSpace(p.Name), p.StripeProductID, p.ID)
	return translate(err)
}

// Delete removes a plan.  Memberships referencing it keep their row with
// plan_id set to NULL.
func (r *PlanRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM membership_plan WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrPlanNotFound)
}
