package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// Processor mutations
	ScopeCreateCustomer     Scope = "create_customer"
	ScopeCreateSubscription Scope = "create_subscription"
	ScopeRefund             Scope = "refund"
)

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	// Sort params for consistent hashing
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:8]))
}

// ValidateKey validates if an idempotency key matches expected parameters
func (g *Generator) ValidateKey(scope Scope, params map[string]interface{}, key string) bool {
	return g.GenerateKey(scope, params) == key
}

// RefundKey is stable per charge, amount and subscription so a replayed cancellation never refunds twice
func (g *Generator) RefundKey(chargeID string, amount int64, subscriptionID string) string {
	return g.GenerateKey(ScopeRefund, map[string]interface{}{
		"charge_id":       chargeID,
		"amount":          amount,
		"subscription_id": subscriptionID,
	})
}

// CreateSubscriptionKey scopes a create to one inbound request
func (g *Generator) CreateSubscriptionKey(customerID, priceID, requestID string) string {
	return g.GenerateKey(ScopeCreateSubscription, map[string]interface{}{
		"customer_id": customerID,
		"price_id":    priceID,
		"request_id":  requestID,
	})
}

func (g *Generator) CreateCustomerKey(email, requestID string) string {
	return g.GenerateKey(ScopeCreateCustomer, map[string]interface{}{
		"email":      strings.ToLower(email),
		"request_id": requestID,
	})
}
