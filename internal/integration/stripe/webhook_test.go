package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/subsync/subsync/internal/config"
	ierr "github.com/subsync/subsync/internal/errors"
)

const testPayload = `{
  "id": "evt_123",
  "object": "event",
  "type": "customer.subscription.updated",
  "created": 1700000000,
  "data": {"object": {"id": "sub_123", "object": "subscription", "status": "active"}}
}`

func signedHeader(t *testing.T, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(testPayload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestConstructEvent_Valid(t *testing.T) {
	c := newTestClient(config.BreakerConfig{})

	event, err := c.ConstructEvent([]byte(testPayload), signedHeader(t, "whsec_test"))
	require.NoError(t, err)
	assert.Equal(t, "evt_123", event.ID)
	assert.Equal(t, "customer.subscription.updated", event.Type)
	assert.Equal(t, int64(1700000000), event.Created)
	assert.Contains(t, string(event.Object), `"sub_123"`)
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	c := newTestClient(config.BreakerConfig{})

	_, err := c.ConstructEvent([]byte(testPayload), signedHeader(t, "whsec_other"))
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidSignature(err))
}

func TestConstructEvent_TamperedBody(t *testing.T) {
	c := newTestClient(config.BreakerConfig{})

	header := signedHeader(t, "whsec_test")
	_, err := c.ConstructEvent([]byte(testPayload+" "), header)
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidSignature(err))
}

func TestConstructEvent_MissingSecret(t *testing.T) {
	c := newTestClient(config.BreakerConfig{})
	c.config.WebhookSecret = ""

	_, err := c.ConstructEvent([]byte(testPayload), signedHeader(t, "whsec_test"))
	require.Error(t, err)
	assert.True(t, ierr.IsInvalidSignature(err))
}
