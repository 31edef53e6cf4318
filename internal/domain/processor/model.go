package processor

import (
	"encoding/json"
	"time"

	"github.com/subsync/subsync/internal/types"
)

// The types in this package are processor neutral views of billing objects.
// JSON tags follow the processor's wire names so webhook payloads decode directly.

// ObjectRef is the minimal shape of any nested object
type ObjectRef struct {
	ID string `json:"id"`
}

func (o ObjectRef) GetID() string { return o.ID }

type Customer struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

func (c Customer) GetID() string { return c.ID }

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	Deleted     bool   `json:"deleted"`
}

func (p Product) GetID() string { return p.ID }

type Recurring struct {
	Interval        string `json:"interval"`
	TrialPeriodDays int64  `json:"trial_period_days"`
}

type Price struct {
	ID         string                   `json:"id"`
	Product    types.Reference[Product] `json:"product"`
	UnitAmount int64                    `json:"unit_amount"`
	Currency   string                   `json:"currency"`
	Recurring  *Recurring               `json:"recurring"`
	Active     bool                     `json:"active"`
	Type       string                   `json:"type"`
	Nickname   string                   `json:"nickname"`
	Deleted    bool                     `json:"deleted"`
}

func (p Price) GetID() string { return p.ID }

type SubscriptionItem struct {
	ID                 string
	PriceID            string
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
}

type Subscription struct {
	ID                string
	CustomerID        string
	Status            types.SubscriptionStatus
	Items             []SubscriptionItem
	CancelAtPeriodEnd bool
	Metadata          map[string]string
	StartDate         int64
	EndedAt           int64
	CanceledAt        int64
	// ScheduleID is empty when no schedule manages the subscription
	ScheduleID    string
	LatestInvoice *Invoice
}

// PrimaryItem returns the single line item the service manages
func (s *Subscription) PrimaryItem() (SubscriptionItem, bool) {
	if s == nil || len(s.Items) == 0 {
		return SubscriptionItem{}, false
	}
	return s.Items[0], true
}

// CurrentPeriod returns the billing window of the primary item, zero when unknown
func (s *Subscription) CurrentPeriod() (start, end int64) {
	item, ok := s.PrimaryItem()
	if !ok {
		return 0, 0
	}
	return item.CurrentPeriodStart, item.CurrentPeriodEnd
}

type Invoice struct {
	ID             string
	SubscriptionID string
	CustomerID     string
	Status         types.InvoiceStatus
	AmountPaid     int64
	Currency       string
	PaymentIntent  *PaymentIntent
}

// ChargeID returns the charge that settled the invoice, empty when there is none
func (i *Invoice) ChargeID() string {
	if i == nil || i.PaymentIntent == nil {
		return ""
	}
	return i.PaymentIntent.LatestChargeID
}

type PaymentIntent struct {
	ID             string
	Status         types.PaymentIntentStatus
	ClientSecret   string
	LatestChargeID string
}

type Refund struct {
	ID            string                     `json:"id"`
	Amount        int64                      `json:"amount"`
	Currency      string                     `json:"currency"`
	Charge        types.Reference[ObjectRef] `json:"charge"`
	PaymentIntent types.Reference[ObjectRef] `json:"payment_intent"`
	Reason        string                     `json:"reason"`
	Status        string                     `json:"status"`
	Metadata      map[string]string          `json:"metadata"`
	Created       int64                      `json:"created"`
}

func (r Refund) GetID() string { return r.ID }

// Phase is one entry of a subscription schedule. EndDate zero means open ended.
type Phase struct {
	PriceID           string
	StartDate         int64
	EndDate           int64
	ProrationBehavior types.ProrationBehavior
}

// Contains reports whether t falls in [StartDate, EndDate)
func (p Phase) Contains(t int64) bool {
	if t < p.StartDate {
		return false
	}
	return p.EndDate == 0 || t < p.EndDate
}

type Schedule struct {
	ID             string
	SubscriptionID string
	Status         string
	EndBehavior    types.ScheduleEndBehavior
	Phases         []Phase
}

// CurrentPhase returns the index of the phase containing now
func (s *Schedule) CurrentPhase(now int64) (int, bool) {
	for i, p := range s.Phases {
		if p.Contains(now) {
			return i, true
		}
	}
	return -1, false
}

// Event is a verified webhook delivery
type Event struct {
	ID      string
	Type    string
	Created int64
	// Object is the raw data.object payload
	Object json.RawMessage
}

// Unix converts processor seconds into a UTC time, nil for zero
func Unix(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
