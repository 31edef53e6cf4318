package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/domain/processor"
)

// ListPrices pages through every price with its product expanded
func (c *Client) ListPrices(ctx context.Context, req processor.ListPricesParams) ([]*processor.Price, error) {
	params := &stripe.PriceListParams{}
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.product")
	if req.ActiveOnly {
		params.Active = stripe.Bool(true)
	}
	if req.ProductID != "" {
		params.Product = stripe.String(req.ProductID)
	}

	var prices []*processor.Price
	err := c.call(ctx, "list_prices", retrySafe, func(ctx context.Context) error {
		prices = prices[:0]
		for p, err := range c.api.V1Prices.List(ctx, params) {
			if err != nil {
				return err
			}
			prices = append(prices, toPrice(p, true))
		}
		return nil
	})
	if err != nil {
		return nil, mapError("list_prices", err, nil)
	}
	return prices, nil
}

func (c *Client) RetrieveProduct(ctx context.Context, id string) (*processor.Product, error) {
	var out *stripe.Product
	err := c.call(ctx, "retrieve_product", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1Products.Retrieve(ctx, id, nil)
		return err
	})
	if err != nil {
		return nil, mapError("retrieve_product", err, map[string]any{"product_id": id})
	}
	return toProduct(out), nil
}
