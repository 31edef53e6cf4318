package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/domain/processor"
)

// invoiceExpansions pull the latest invoice, its payments and their payment intents in one round trip
var invoiceExpansions = []string{
	"latest_invoice",
	"latest_invoice.payments",
	"latest_invoice.payments.data.payment.payment_intent",
}

func (c *Client) CreateSubscription(ctx context.Context, req processor.CreateSubscriptionParams) (*processor.Subscription, error) {
	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(req.PriceID)},
		},
	}
	for _, e := range invoiceExpansions {
		params.AddExpand(e)
	}

	// without an idempotency key a retried create could bill the customer twice
	policy := noRetry
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
		policy = retrySafe
	}

	var out *stripe.Subscription
	err := c.call(ctx, "create_subscription", policy, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Subscriptions.Create(ctx, params)
		return err
	})
	if err != nil {
		return nil, mapError("create_subscription", err, map[string]any{
			"customer_id": req.CustomerID,
			"price_id":    req.PriceID,
		})
	}
	return toSubscription(out), nil
}

func (c *Client) RetrieveSubscription(ctx context.Context, id string, expandInvoice bool) (*processor.Subscription, error) {
	params := &stripe.SubscriptionRetrieveParams{}
	if expandInvoice {
		for _, e := range invoiceExpansions {
			params.AddExpand(e)
		}
	}

	var out *stripe.Subscription
	err := c.call(ctx, "retrieve_subscription", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Subscriptions.Retrieve(ctx, id, params)
		return err
	})
	if err != nil {
		return nil, mapError("retrieve_subscription", err, map[string]any{"subscription_id": id})
	}
	return toSubscription(out), nil
}

func (c *Client) UpdateSubscriptionItem(ctx context.Context, req processor.UpdateSubscriptionItemParams) (*processor.Subscription, error) {
	params := &stripe.SubscriptionUpdateParams{
		Items: []*stripe.SubscriptionUpdateItemParams{
			{
				ID:    stripe.String(req.ItemID),
				Price: stripe.String(req.PriceID),
			},
		},
		ProrationBehavior: stripe.String(string(req.ProrationBehavior)),
	}

	// always_invoice charges immediately, so a blind retry is not safe
	var out *stripe.Subscription
	err := c.call(ctx, "update_subscription_item", noRetry, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Subscriptions.Update(ctx, req.SubscriptionID, params)
		return err
	})
	if err != nil {
		return nil, mapError("update_subscription_item", err, map[string]any{
			"subscription_id": req.SubscriptionID,
			"item_id":         req.ItemID,
			"price_id":        req.PriceID,
		})
	}
	return toSubscription(out), nil
}

func (c *Client) CancelSubscription(ctx context.Context, id string) (*processor.Subscription, error) {
	var out *stripe.Subscription
	err := c.call(ctx, "cancel_subscription", noRetry, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Subscriptions.Cancel(ctx, id, &stripe.SubscriptionCancelParams{})
		return err
	})
	if err != nil {
		return nil, mapError("cancel_subscription", err, map[string]any{"subscription_id": id})
	}
	return toSubscription(out), nil
}
