package notification

import (
	"encoding/json"

	ierr "github.com/subsync/subsync/internal/errors"
)

// Notification is one email to send after a lifecycle change
type Notification struct {
	Kind           Kind
	To             string
	Name           string
	SubscriptionID string
}

// payload is the queued form of a Notification
type payload struct {
	Kind           string `json:"kind"`
	To             string `json:"to"`
	Name           string `json:"name"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	RefundAmount   int64  `json:"refund_amount,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

func encode(n Notification) ([]byte, error) {
	p := payload{
		Kind:           n.Kind.Name(),
		To:             n.To,
		Name:           n.Name,
		SubscriptionID: n.SubscriptionID,
	}
	if c, ok := n.Kind.(Cancelled); ok {
		p.RefundAmount = c.RefundAmount
		p.Currency = c.Currency
	}
	return json.Marshal(p)
}

func decode(data []byte) (Notification, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Notification{}, ierr.WithError(err).
			WithHint("Malformed notification payload").
			Mark(ierr.ErrValidation)
	}

	var kind Kind
	switch p.Kind {
	case KindCreated:
		kind = Created{}
	case KindUpgraded:
		kind = Upgraded{}
	case KindDowngradeScheduled:
		kind = DowngradeScheduled{}
	case KindCancelled:
		kind = Cancelled{RefundAmount: p.RefundAmount, Currency: p.Currency}
	default:
		return Notification{}, ierr.NewError("unknown notification kind").
			WithHintf("Unknown notification kind %q", p.Kind).
			Mark(ierr.ErrValidation)
	}

	return Notification{
		Kind:           kind,
		To:             p.To,
		Name:           p.Name,
		SubscriptionID: p.SubscriptionID,
	}, nil
}
