package notification

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the closed set of lifecycle notifications. Each variant owns its template.
type Kind interface {
	Name() string
	Subject() string
	Body(name string) string

	kind()
}

type Created struct{}

type Upgraded struct{}

type DowngradeScheduled struct{}

// Cancelled carries the refunded amount in minor units; zero means nothing was refunded
type Cancelled struct {
	RefundAmount int64
	Currency     string
}

const (
	KindCreated            = "created"
	KindUpgraded           = "upgraded"
	KindDowngradeScheduled = "downgrade_scheduled"
	KindCancelled          = "cancelled"
)

func (Created) Name() string            { return KindCreated }
func (Upgraded) Name() string           { return KindUpgraded }
func (DowngradeScheduled) Name() string { return KindDowngradeScheduled }
func (Cancelled) Name() string          { return KindCancelled }

func (Created) Subject() string            { return "Subscription Created" }
func (Upgraded) Subject() string           { return "Subscription Upgraded" }
func (DowngradeScheduled) Subject() string { return "Subscription Downgrade Scheduled" }
func (Cancelled) Subject() string          { return "Subscription Cancelled" }

func (Created) Body(name string) string {
	return greeting(name) + "<p>Your subscription has been successfully created.</p>"
}

func (Upgraded) Body(name string) string {
	return greeting(name) + "<p>Your subscription has been upgraded.</p>"
}

func (DowngradeScheduled) Body(name string) string {
	return greeting(name) + "<p>Your subscription downgrade has been scheduled.</p>"
}

func (c Cancelled) Body(name string) string {
	body := greeting(name) + "<p>Your subscription has been cancelled.</p>"
	if c.RefundAmount > 0 {
		body += fmt.Sprintf("<p>A refund of %s %s has been issued to your original payment method.</p>",
			FormatAmount(c.RefundAmount), strings.ToUpper(c.Currency))
	}
	return body
}

func (Created) kind()            {}
func (Upgraded) kind()           {}
func (DowngradeScheduled) kind() {}
func (Cancelled) kind()          {}

func greeting(name string) string {
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("<p>Hello %s,</p>", name)
}

// FormatAmount renders minor currency units as a two decimal major unit string
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
