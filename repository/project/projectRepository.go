package projectrepo

import (
	"context"
	"database/sql"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type Repo interface {
	// GetPlan resolves a plan only when it belongs to the given project;
	// a mismatched pair reads as sql.ErrNoRows.
	GetPlan(ctx context.Context, projectID, planID int64) (*model.Plan, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) GetPlan(ctx context.Context, projectID, planID int64) (*model.Plan, error) {
	const q = `
SELECT id, project_id, name, unit_price_minor, currency
FROM plans
WHERE id=$1 AND project_id=$2`
	p := &model.Plan{}
	err := r.db.QueryRowContext(ctx, q, planID, projectID).
		Scan(&p.ID, &p.ProjectID, &p.Name, &p.UnitPriceMinor, &p.Currency)
	if err != nil {
		return nil, err
	}
	return p, nil
}
