package stripe

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/types"
)

func toCustomer(c *stripe.Customer) *processor.Customer {
	if c == nil {
		return nil
	}
	return &processor.Customer{
		ID:      c.ID,
		Email:   c.Email,
		Name:    c.Name,
		Deleted: c.Deleted,
	}
}

func toProduct(p *stripe.Product) *processor.Product {
	if p == nil {
		return nil
	}
	return &processor.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		Deleted:     p.Deleted,
	}
}

// toPrice converts a price; expanded reports whether the product was requested expanded
func toPrice(p *stripe.Price, expanded bool) *processor.Price {
	if p == nil {
		return nil
	}
	out := &processor.Price{
		ID:         p.ID,
		UnitAmount: p.UnitAmount,
		Currency:   string(p.Currency),
		Active:     p.Active,
		Type:       string(p.Type),
		Nickname:   p.Nickname,
		Deleted:    p.Deleted,
	}
	if p.Recurring != nil {
		out.Recurring = &processor.Recurring{
			Interval:        string(p.Recurring.Interval),
			TrialPeriodDays: p.Recurring.TrialPeriodDays,
		}
	}
	if p.Product != nil {
		if expanded {
			out.Product = types.RefExpanded(*toProduct(p.Product))
		} else {
			out.Product = types.RefID[processor.Product](p.Product.ID)
		}
	}
	return out
}

func toPaymentIntent(pi *stripe.PaymentIntent) *processor.PaymentIntent {
	if pi == nil {
		return nil
	}
	out := &processor.PaymentIntent{
		ID:           pi.ID,
		Status:       types.PaymentIntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
	if pi.LatestCharge != nil {
		out.LatestChargeID = pi.LatestCharge.ID
	}
	return out
}

func toInvoice(inv *stripe.Invoice) *processor.Invoice {
	if inv == nil {
		return nil
	}
	out := &processor.Invoice{
		ID:         inv.ID,
		Status:     types.InvoiceStatus(inv.Status),
		AmountPaid: inv.AmountPaid,
		Currency:   string(inv.Currency),
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil && inv.Parent.SubscriptionDetails.Subscription != nil {
		out.SubscriptionID = inv.Parent.SubscriptionDetails.Subscription.ID
	}
	if inv.Payments != nil {
		for _, payment := range inv.Payments.Data {
			if payment == nil || payment.Payment == nil || payment.Payment.PaymentIntent == nil {
				continue
			}
			out.PaymentIntent = toPaymentIntent(payment.Payment.PaymentIntent)
			break
		}
	}
	return out
}

func toSubscription(s *stripe.Subscription) *processor.Subscription {
	if s == nil {
		return nil
	}
	out := &processor.Subscription{
		ID:                s.ID,
		Status:            types.SubscriptionStatus(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Metadata:          s.Metadata,
		StartDate:         s.StartDate,
		EndedAt:           s.EndedAt,
		CanceledAt:        s.CanceledAt,
		LatestInvoice:     toInvoice(s.LatestInvoice),
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Schedule != nil {
		out.ScheduleID = s.Schedule.ID
	}
	if s.Items != nil {
		for _, item := range s.Items.Data {
			if item == nil {
				continue
			}
			converted := processor.SubscriptionItem{
				ID:                 item.ID,
				CurrentPeriodStart: item.CurrentPeriodStart,
				CurrentPeriodEnd:   item.CurrentPeriodEnd,
			}
			if item.Price != nil {
				converted.PriceID = item.Price.ID
			}
			out.Items = append(out.Items, converted)
		}
	}
	return out
}

func toSchedule(s *stripe.SubscriptionSchedule) *processor.Schedule {
	if s == nil {
		return nil
	}
	out := &processor.Schedule{
		ID:          s.ID,
		Status:      string(s.Status),
		EndBehavior: types.ScheduleEndBehavior(s.EndBehavior),
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	for _, phase := range s.Phases {
		if phase == nil {
			continue
		}
		converted := processor.Phase{
			StartDate:         phase.StartDate,
			EndDate:           phase.EndDate,
			ProrationBehavior: types.ProrationBehavior(phase.ProrationBehavior),
		}
		if len(phase.Items) > 0 && phase.Items[0].Price != nil {
			converted.PriceID = phase.Items[0].Price.ID
		}
		out.Phases = append(out.Phases, converted)
	}
	return out
}

func toRefund(r *stripe.Refund) *processor.Refund {
	if r == nil {
		return nil
	}
	out := &processor.Refund{
		ID:       r.ID,
		Amount:   r.Amount,
		Currency: string(r.Currency),
		Reason:   string(r.Reason),
		Status:   string(r.Status),
		Metadata: r.Metadata,
		Created:  r.Created,
	}
	if r.Charge != nil {
		out.Charge = types.RefID[processor.ObjectRef](r.Charge.ID)
	}
	if r.PaymentIntent != nil {
		out.PaymentIntent = types.RefID[processor.ObjectRef](r.PaymentIntent.ID)
	}
	return out
}
