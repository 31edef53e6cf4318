package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey_StableAcrossParamOrder(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateKey(ScopeRefund, map[string]interface{}{"a": 1, "b": "x"})
	b := g.GenerateKey(ScopeRefund, map[string]interface{}{"b": "x", "a": 1})
	assert.Equal(t, a, b)
	assert.True(t, g.ValidateKey(ScopeRefund, map[string]interface{}{"a": 1, "b": "x"}, a))
}

func TestRefundKey(t *testing.T) {
	g := NewGenerator()

	key := g.RefundKey("ch_1", 5000, "sub_1")
	assert.Equal(t, key, g.RefundKey("ch_1", 5000, "sub_1"))
	assert.NotEqual(t, key, g.RefundKey("ch_1", 4999, "sub_1"))
	assert.Contains(t, key, string(ScopeRefund))
}

func TestCreateKeysAreScoped(t *testing.T) {
	g := NewGenerator()

	assert.NotEqual(t, g.CreateSubscriptionKey("cus_1", "price_1", "req_1"), g.CreateSubscriptionKey("cus_1", "price_1", "req_2"))
	assert.Equal(t, g.CreateCustomerKey("Ada@Example.com", "req_1"), g.CreateCustomerKey("ada@example.com", "req_1"))
}
