package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/domain/processor"
)

// CreateCustomer creates the processor customer backing a local user
func (c *Client) CreateCustomer(ctx context.Context, req processor.CreateCustomerParams) (*processor.Customer, error) {
	params := &stripe.CustomerCreateParams{
		Email: stripe.String(req.Email),
	}
	if req.Name != "" {
		params.Name = stripe.String(req.Name)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	var out *stripe.Customer
	err := c.call(ctx, "create_customer", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Customers.Create(ctx, params)
		return err
	})
	if err != nil {
		return nil, mapError("create_customer", err, map[string]any{"email": req.Email})
	}
	return toCustomer(out), nil
}

// UpdateCustomer mirrors local profile edits to the processor
func (c *Client) UpdateCustomer(ctx context.Context, req processor.UpdateCustomerParams) (*processor.Customer, error) {
	params := &stripe.CustomerUpdateParams{}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	if req.Name != "" {
		params.Name = stripe.String(req.Name)
	}

	var out *stripe.Customer
	err := c.call(ctx, "update_customer", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Customers.Update(ctx, req.ID, params)
		return err
	})
	if err != nil {
		return nil, mapError("update_customer", err, map[string]any{"customer_id": req.ID})
	}
	return toCustomer(out), nil
}

func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}

	// attaching an already attached method to the same customer succeeds, so retrying is safe
	err := c.call(ctx, "attach_payment_method", retrySafe, func(ctx context.Context) error {
		_, err := c.api.V1PaymentMethods.Attach(ctx, paymentMethodID, params)
		return err
	})
	if err != nil {
		return mapError("attach_payment_method", err, map[string]any{
			"customer_id":       customerID,
			"payment_method_id": paymentMethodID,
		})
	}
	return nil
}

func (c *Client) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerUpdateParams{
		InvoiceSettings: &stripe.CustomerUpdateInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}

	err := c.call(ctx, "set_default_payment_method", retrySafe, func(ctx context.Context) error {
		_, err := c.api.V1Customers.Update(ctx, customerID, params)
		return err
	})
	if err != nil {
		return mapError("set_default_payment_method", err, map[string]any{
			"customer_id":       customerID,
			"payment_method_id": paymentMethodID,
		})
	}
	return nil
}
