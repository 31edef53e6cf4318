package plan

import (
	"github.com/subsync/subsync/internal/types"
)

// Plan mirrors one processor price together with its product
type Plan struct {
	ID              string `db:"id" json:"id"`
	ProductID       string `db:"product_id" json:"product_id"`
	PriceID         string `db:"price_id" json:"price_id"`
	Name            string `db:"name" json:"name"`
	Description     string `db:"description" json:"description"`
	Interval        string `db:"interval" json:"interval"`
	Amount          int64  `db:"amount" json:"amount"`
	Currency        string `db:"currency" json:"currency"`
	TrialPeriodDays int64  `db:"trial_period_days" json:"trial_period_days"`
	Active          bool   `db:"active" json:"active"`
	Type            string `db:"type" json:"type"`

	types.BaseModel
}
