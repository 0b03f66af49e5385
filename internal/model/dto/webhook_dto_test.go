package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEvent_Charged(t *testing.T) {
	body := []byte(`{"event":"subscription.charged","payload":{"subscription_id":"gwsub_1","payment_id":"pay_1"}}`)

	evt, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	require.NotNil(t, evt.Renewal)
	assert.Equal(t, EventSubscriptionCharged, evt.Event)
	assert.Equal(t, "gwsub_1", evt.Renewal.GatewaySubscriptionID)
	assert.Equal(t, "pay_1", evt.Renewal.GatewayPaymentID)
	assert.Nil(t, evt.Failure)
	assert.Nil(t, evt.Cancellation)
}

func TestParseWebhookEvent_UnknownEventKeepsName(t *testing.T) {
	evt, err := ParseWebhookEvent([]byte(`{"event":"invoice.created","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "invoice.created", evt.Event)
	assert.Nil(t, evt.Renewal)
	assert.Nil(t, evt.Failure)
	assert.Nil(t, evt.Cancellation)
}

func TestParseWebhookEvent_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"非 JSON", `not json`, ErrWebhookMalformed},
		{"缺少 event", `{"payload":{}}`, ErrWebhookMalformed},
		{"charged 缺 payment_id", `{"event":"subscription.charged","payload":{"subscription_id":"gwsub_1"}}`, ErrWebhookPayload},
		{"failed 缺 subscription_id", `{"event":"subscription.payment_failed","payload":{}}`, ErrWebhookPayload},
		{"cancelled payload 非法", `{"event":"subscription.cancelled","payload":"x"}`, ErrWebhookPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt, err := ParseWebhookEvent([]byte(tc.body))
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, evt)
		})
	}
}
