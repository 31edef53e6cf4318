package dto

import (
	"github.com/shopspring/decimal"
	"github.com/subsync/subsync/internal/domain/plan"
	"github.com/subsync/subsync/internal/types"
)

type PlanResponse struct {
	*plan.Plan
	// DisplayAmount is the price in major units, e.g. "19.99"
	DisplayAmount string `json:"display_amount"`
}

func NewPlanResponse(p *plan.Plan) *PlanResponse {
	return &PlanResponse{
		Plan:          p,
		DisplayAmount: decimal.New(p.Amount, -2).StringFixed(2),
	}
}

// ListPlansResponse represents the response for listing plans
type ListPlansResponse = types.ListResponse[*PlanResponse]

// SyncPlansResponse reports a full price import from the processor
type SyncPlansResponse struct {
	Message string `json:"message"`
	Synced  int    `json:"synced"`
}
