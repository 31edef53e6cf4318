package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/domain/processor"
)

func (c *Client) RetrieveInvoice(ctx context.Context, id string) (*processor.Invoice, error) {
	params := &stripe.InvoiceRetrieveParams{}
	params.AddExpand("payments")
	params.AddExpand("payments.data.payment.payment_intent")

	var out *stripe.Invoice
	err := c.call(ctx, "retrieve_invoice", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Invoices.Retrieve(ctx, id, params)
		return err
	})
	if err != nil {
		return nil, mapError("retrieve_invoice", err, map[string]any{"invoice_id": id})
	}
	return toInvoice(out), nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*processor.PaymentIntent, error) {
	var out *stripe.PaymentIntent
	err := c.call(ctx, "retrieve_payment_intent", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1PaymentIntents.Retrieve(ctx, id, nil)
		return err
	})
	if err != nil {
		return nil, mapError("retrieve_payment_intent", err, map[string]any{"payment_intent_id": id})
	}
	return toPaymentIntent(out), nil
}

func (c *Client) CreateRefund(ctx context.Context, req processor.CreateRefundParams) (*processor.Refund, error) {
	params := &stripe.RefundCreateParams{
		Charge: stripe.String(req.ChargeID),
		Amount: stripe.Int64(req.Amount),
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	policy := noRetry
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
		policy = retrySafe
	}

	var out *stripe.Refund
	err := c.call(ctx, "create_refund", policy, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Refunds.Create(ctx, params)
		return err
	})
	if err != nil {
		return nil, mapError("create_refund", err, map[string]any{
			"charge_id": req.ChargeID,
			"amount":    req.Amount,
		})
	}
	return toRefund(out), nil
}
