package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/domain/processor"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

var _ processor.Client = (*FakeProcessor)(nil)

const (
	fakePeriod          = 30 * 24 * time.Hour
	fakeDefaultAmount   = 1000
	fakeDefaultCurrency = "usd"
)

// FakeProcessor is a stateful in-memory payment processor. It keeps just enough
// billing state to drive a subscription through its whole lifecycle.
type FakeProcessor struct {
	mu sync.Mutex

	// Now is the processor clock
	Now func() time.Time
	// WebhookSecret is the exact signature ConstructEvent accepts
	WebhookSecret string
	// NextPayment decides how the next CreateSubscription settles; it resets after use
	NextPayment types.PaymentOutcome

	prices        map[string]*processor.Price
	products      map[string]*processor.Product
	customers     map[string]*processor.Customer
	subscriptions map[string]*processor.Subscription
	invoices      map[string]*processor.Invoice
	intents       map[string]*processor.PaymentIntent
	schedules     map[string]*processor.Schedule
	refunds       []*processor.Refund
	keys          map[string]string
	errs          map[string]error
	calls         map[string]int
	seq           int
}

func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{
		Now:           func() time.Time { return time.Now().UTC() },
		WebhookSecret: "whsec_test",
		prices:        make(map[string]*processor.Price),
		products:      make(map[string]*processor.Product),
		customers:     make(map[string]*processor.Customer),
		subscriptions: make(map[string]*processor.Subscription),
		invoices:      make(map[string]*processor.Invoice),
		intents:       make(map[string]*processor.PaymentIntent),
		schedules:     make(map[string]*processor.Schedule),
		keys:          make(map[string]string),
		errs:          make(map[string]error),
		calls:         make(map[string]int),
	}
}

// AddPrice registers a recurring price and its product
func (f *FakeProcessor) AddPrice(priceID, productID string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	product, ok := f.products[productID]
	if !ok {
		product = &processor.Product{ID: productID, Name: productID, Active: true}
		f.products[productID] = product
	}
	f.prices[priceID] = &processor.Price{
		ID:         priceID,
		Product:    types.RefID[processor.Product](productID),
		UnitAmount: amount,
		Currency:   fakeDefaultCurrency,
		Recurring:  &processor.Recurring{Interval: "month"},
		Active:     true,
		Type:       "recurring",
	}
}

// FailOn makes the next call of op return err
func (f *FakeProcessor) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

// Calls returns how many times op was invoked
func (f *FakeProcessor) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Refunds returns every refund issued so far
func (f *FakeProcessor) Refunds() []*processor.Refund {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*processor.Refund(nil), f.refunds...)
}

// SetSubscription lets tests mutate processor state as if changed out of band
func (f *FakeProcessor) SetSubscription(id string, mutate func(sub *processor.Subscription)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subscriptions[id]; ok {
		mutate(sub)
	}
}

// Schedule returns a copy of the stored schedule
func (f *FakeProcessor) Schedule(id string) (*processor.Schedule, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, false
	}
	return copySchedule(s), true
}

func (f *FakeProcessor) begin(op string) error {
	f.calls[op]++
	if err, ok := f.errs[op]; ok {
		delete(f.errs, op)
		return err
	}
	return nil
}

func (f *FakeProcessor) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func fakeError(msg string, mark error) error {
	return ierr.WithError(ierr.NewError(msg).WithHint(msg).Mark(mark)).Mark(ierr.ErrProcessor)
}

func (f *FakeProcessor) CreateCustomer(ctx context.Context, params processor.CreateCustomerParams) (*processor.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateCustomer"); err != nil {
		return nil, err
	}
	if id, ok := f.keys[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		c := *f.customers[id]
		return &c, nil
	}

	c := &processor.Customer{ID: f.nextID("cus"), Email: params.Email, Name: params.Name}
	f.customers[c.ID] = c
	if params.IdempotencyKey != "" {
		f.keys[params.IdempotencyKey] = c.ID
	}
	out := *c
	return &out, nil
}

func (f *FakeProcessor) UpdateCustomer(ctx context.Context, params processor.UpdateCustomerParams) (*processor.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateCustomer"); err != nil {
		return nil, err
	}
	c, ok := f.customers[params.ID]
	if !ok {
		return nil, fakeError("No such customer", ierr.ErrNotFound)
	}
	if params.Email != "" {
		c.Email = params.Email
	}
	if params.Name != "" {
		c.Name = params.Name
	}
	out := *c
	return &out, nil
}

func (f *FakeProcessor) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begin("AttachPaymentMethod")
}

func (f *FakeProcessor) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begin("SetDefaultPaymentMethod")
}

func (f *FakeProcessor) priceAmount(priceID string) (int64, string) {
	if p, ok := f.prices[priceID]; ok {
		return p.UnitAmount, p.Currency
	}
	return fakeDefaultAmount, fakeDefaultCurrency
}

func (f *FakeProcessor) CreateSubscription(ctx context.Context, params processor.CreateSubscriptionParams) (*processor.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateSubscription"); err != nil {
		return nil, err
	}
	if id, ok := f.keys[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		return f.copySubscription(f.subscriptions[id], true), nil
	}

	now := f.Now()
	amount, currency := f.priceAmount(params.PriceID)

	intent := &processor.PaymentIntent{ID: f.nextID("pi")}
	invoice := &processor.Invoice{
		ID:         f.nextID("in"),
		CustomerID: params.CustomerID,
		Currency:   currency,
	}
	sub := &processor.Subscription{
		ID:         f.nextID("sub"),
		CustomerID: params.CustomerID,
		Items: []processor.SubscriptionItem{{
			ID:                 f.nextID("si"),
			PriceID:            params.PriceID,
			CurrentPeriodStart: now.Unix(),
			CurrentPeriodEnd:   now.Add(fakePeriod).Unix(),
		}},
		Metadata:  map[string]string{},
		StartDate: now.Unix(),
	}
	invoice.SubscriptionID = sub.ID

	switch f.NextPayment {
	case types.PaymentOutcomeRequiresAction:
		sub.Status = types.SubscriptionStatusIncomplete
		invoice.Status = types.InvoiceStatusOpen
		intent.Status = types.PaymentIntentStatusRequiresAction
		intent.ClientSecret = intent.ID + "_secret"
	case types.PaymentOutcomeRequiresPaymentMethod:
		sub.Status = types.SubscriptionStatusIncomplete
		invoice.Status = types.InvoiceStatusOpen
		intent.Status = types.PaymentIntentStatusRequiresPaymentMethod
	default:
		sub.Status = types.SubscriptionStatusActive
		invoice.Status = types.InvoiceStatusPaid
		invoice.AmountPaid = amount
		intent.Status = types.PaymentIntentStatusSucceeded
		intent.LatestChargeID = f.nextID("ch")
	}
	f.NextPayment = ""

	invoice.PaymentIntent = intent
	sub.LatestInvoice = invoice
	f.intents[intent.ID] = intent
	f.invoices[invoice.ID] = invoice
	f.subscriptions[sub.ID] = sub
	if params.IdempotencyKey != "" {
		f.keys[params.IdempotencyKey] = sub.ID
	}

	return f.copySubscription(sub, true), nil
}

func (f *FakeProcessor) RetrieveSubscription(ctx context.Context, id string, expandInvoice bool) (*processor.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("RetrieveSubscription"); err != nil {
		return nil, err
	}
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, fakeError("No such subscription: "+id, ierr.ErrNotFound)
	}
	return f.copySubscription(sub, expandInvoice), nil
}

func (f *FakeProcessor) UpdateSubscriptionItem(ctx context.Context, params processor.UpdateSubscriptionItemParams) (*processor.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateSubscriptionItem"); err != nil {
		return nil, err
	}
	sub, ok := f.subscriptions[params.SubscriptionID]
	if !ok {
		return nil, fakeError("No such subscription: "+params.SubscriptionID, ierr.ErrNotFound)
	}
	for i := range sub.Items {
		if sub.Items[i].ID == params.ItemID {
			sub.Items[i].PriceID = params.PriceID
			return f.copySubscription(sub, false), nil
		}
	}
	return nil, fakeError("No such subscription item: "+params.ItemID, ierr.ErrInvalidRequest)
}

func (f *FakeProcessor) CancelSubscription(ctx context.Context, id string) (*processor.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CancelSubscription"); err != nil {
		return nil, err
	}
	sub, ok := f.subscriptions[id]
	if !ok {
		return nil, fakeError("No such subscription: "+id, ierr.ErrNotFound)
	}
	if sub.Status == types.SubscriptionStatusCanceled {
		return nil, fakeError("Subscription is already canceled", ierr.ErrInvalidRequest)
	}

	now := f.Now().Unix()
	sub.Status = types.SubscriptionStatusCanceled
	sub.CanceledAt = now
	sub.EndedAt = now
	if sched, ok := f.schedules[sub.ScheduleID]; ok {
		sched.Status = "canceled"
	}
	sub.ScheduleID = ""
	return f.copySubscription(sub, false), nil
}

func (f *FakeProcessor) RetrieveInvoice(ctx context.Context, id string) (*processor.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("RetrieveInvoice"); err != nil {
		return nil, err
	}
	inv, ok := f.invoices[id]
	if !ok {
		return nil, fakeError("No such invoice: "+id, ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (f *FakeProcessor) RetrievePaymentIntent(ctx context.Context, id string) (*processor.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("RetrievePaymentIntent"); err != nil {
		return nil, err
	}
	pi, ok := f.intents[id]
	if !ok {
		return nil, fakeError("No such payment_intent: "+id, ierr.ErrNotFound)
	}
	out := *pi
	return &out, nil
}

func (f *FakeProcessor) CreateRefund(ctx context.Context, params processor.CreateRefundParams) (*processor.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateRefund"); err != nil {
		return nil, err
	}
	if params.IdempotencyKey != "" {
		if id, ok := f.keys[params.IdempotencyKey]; ok {
			if r, found := lo.Find(f.refunds, func(r *processor.Refund) bool { return r.ID == id }); found {
				out := *r
				return &out, nil
			}
		}
	}
	if params.Amount <= 0 {
		return nil, fakeError("Refund amount must be positive", ierr.ErrInvalidRequest)
	}

	r := &processor.Refund{
		ID:       f.nextID("re"),
		Amount:   params.Amount,
		Currency: fakeDefaultCurrency,
		Charge:   types.RefID[processor.ObjectRef](params.ChargeID),
		Reason:   params.Reason,
		Status:   "succeeded",
		Metadata: params.Metadata,
		Created:  f.Now().Unix(),
	}
	f.refunds = append(f.refunds, r)
	if params.IdempotencyKey != "" {
		f.keys[params.IdempotencyKey] = r.ID
	}
	out := *r
	return &out, nil
}

func (f *FakeProcessor) CreateScheduleFromSubscription(ctx context.Context, subscriptionID string) (*processor.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateScheduleFromSubscription"); err != nil {
		return nil, err
	}
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, fakeError("No such subscription: "+subscriptionID, ierr.ErrNotFound)
	}
	if sub.ScheduleID != "" {
		return nil, fakeError("Subscription is already managed by a schedule", ierr.ErrInvalidRequest)
	}

	item, _ := sub.PrimaryItem()
	sched := &processor.Schedule{
		ID:             f.nextID("sub_sched"),
		SubscriptionID: sub.ID,
		Status:         "active",
		EndBehavior:    types.ScheduleEndBehaviorRelease,
		Phases: []processor.Phase{{
			PriceID:   item.PriceID,
			StartDate: item.CurrentPeriodStart,
			EndDate:   item.CurrentPeriodEnd,
		}},
	}
	f.schedules[sched.ID] = sched
	sub.ScheduleID = sched.ID
	return copySchedule(sched), nil
}

func (f *FakeProcessor) RetrieveSchedule(ctx context.Context, id string) (*processor.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("RetrieveSchedule"); err != nil {
		return nil, err
	}
	sched, ok := f.schedules[id]
	if !ok {
		return nil, fakeError("No such subscription_schedule: "+id, ierr.ErrNotFound)
	}
	return copySchedule(sched), nil
}

func (f *FakeProcessor) UpdateSchedule(ctx context.Context, params processor.UpdateScheduleParams) (*processor.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateSchedule"); err != nil {
		return nil, err
	}
	sched, ok := f.schedules[params.ScheduleID]
	if !ok {
		return nil, fakeError("No such subscription_schedule: "+params.ScheduleID, ierr.ErrNotFound)
	}
	if len(params.Phases) == 0 {
		return nil, fakeError("A schedule needs at least one phase", ierr.ErrInvalidRequest)
	}

	phases := append([]processor.Phase(nil), params.Phases...)
	if params.StartNow {
		phases[0].StartDate = f.Now().Unix()
	}
	for i := 1; i < len(phases); i++ {
		if phases[i].StartDate == 0 {
			phases[i].StartDate = phases[i-1].EndDate
		}
		if phases[i-1].EndDate == 0 {
			phases[i-1].EndDate = phases[i].StartDate
		}
	}
	sched.Phases = phases
	if params.EndBehavior != "" {
		sched.EndBehavior = params.EndBehavior
	}
	return copySchedule(sched), nil
}

func (f *FakeProcessor) ListPrices(ctx context.Context, params processor.ListPricesParams) ([]*processor.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListPrices"); err != nil {
		return nil, err
	}

	prices := make([]*processor.Price, 0, len(f.prices))
	for _, p := range f.prices {
		if params.ActiveOnly && !p.Active {
			continue
		}
		if params.ProductID != "" && p.Product.ID() != params.ProductID {
			continue
		}
		out := *p
		if product, ok := f.products[p.Product.ID()]; ok {
			out.Product = types.RefExpanded(*product)
		}
		prices = append(prices, &out)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].ID < prices[j].ID })
	return prices, nil
}

func (f *FakeProcessor) RetrieveProduct(ctx context.Context, id string) (*processor.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("RetrieveProduct"); err != nil {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, fakeError("No such product: "+id, ierr.ErrNotFound)
	}
	out := *p
	return &out, nil
}

type fakeEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ConstructEvent accepts the payload when signature equals WebhookSecret
func (f *FakeProcessor) ConstructEvent(payload []byte, signature string) (*processor.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ConstructEvent"); err != nil {
		return nil, err
	}
	if signature != f.WebhookSecret {
		return nil, ierr.NewError("signature mismatch").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrInvalidSignature)
	}

	var env fakeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload is not valid JSON").
			Mark(ierr.ErrInvalidSignature)
	}
	return &processor.Event{ID: env.ID, Type: env.Type, Created: env.Created, Object: env.Data.Object}, nil
}

// EventPayload builds a webhook body in the processor's envelope format
func EventPayload(id, eventType string, object any) []byte {
	data, _ := json.Marshal(map[string]any{
		"id":      id,
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]any{"object": object},
	})
	return data
}

func (f *FakeProcessor) copySubscription(sub *processor.Subscription, expandInvoice bool) *processor.Subscription {
	out := *sub
	out.Items = append([]processor.SubscriptionItem(nil), sub.Items...)
	out.Metadata = make(map[string]string, len(sub.Metadata))
	for k, v := range sub.Metadata {
		out.Metadata[k] = v
	}
	if sub.LatestInvoice != nil {
		if expandInvoice {
			out.LatestInvoice = copyInvoice(sub.LatestInvoice)
		} else {
			out.LatestInvoice = &processor.Invoice{ID: sub.LatestInvoice.ID}
		}
	}
	return &out
}

func copyInvoice(inv *processor.Invoice) *processor.Invoice {
	out := *inv
	if inv.PaymentIntent != nil {
		pi := *inv.PaymentIntent
		out.PaymentIntent = &pi
	}
	return &out
}

func copySchedule(s *processor.Schedule) *processor.Schedule {
	out := *s
	out.Phases = append([]processor.Phase(nil), s.Phases...)
	return &out
}
