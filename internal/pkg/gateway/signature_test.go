package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "key_secret_for_tests"

func TestVerifyPaymentSignature(t *testing.T) {
	sig := Sign("order_1", "pay_1", testSecret)
	assert.NotEmpty(t, sig)

	assert.True(t, VerifyPaymentSignature("order_1", "pay_1", sig, testSecret))

	// 任何一个输入变了都不通过
	assert.False(t, VerifyPaymentSignature("order_2", "pay_1", sig, testSecret))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_2", sig, testSecret))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", sig, "other_secret"))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", "", testSecret))
	assert.False(t, VerifyPaymentSignature("order_1", "pay_1", "not-hex", testSecret))
}

func TestSign_Deterministic(t *testing.T) {
	assert.Equal(t, Sign("o", "p", testSecret), Sign("o", "p", testSecret))
	assert.NotEqual(t, Sign("o", "p", testSecret), Sign("o", "q", testSecret))
}

func TestSign_SeparatorMatters(t *testing.T) {
	// "ab"+"c" 和 "a"+"bc" 拼接后必须产生不同签名
	assert.NotEqual(t, Sign("ab", "c", testSecret), Sign("a", "bc", testSecret))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"subscription.charged","payload":{"subscription_id":"s","payment_id":"p"}}`)

	valid := bodySignature(body, testSecret)
	assert.True(t, VerifyWebhookSignature(body, valid, testSecret))

	// 报文被改动一个字节就不通过
	assert.False(t, VerifyWebhookSignature(append(body, ' '), valid, testSecret))
	assert.False(t, VerifyWebhookSignature(body, valid, "other_secret"))
	assert.False(t, VerifyWebhookSignature(body, "", testSecret))
}

func bodySignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
