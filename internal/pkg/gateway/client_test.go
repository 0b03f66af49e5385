package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/billing_go_server/config"
)

func newTestClient(srvURL string) *Client {
	return NewClient(&config.GatewayConfig{
		BaseURL:     srvURL,
		KeyID:       "key_id",
		KeySecret:   "key_secret",
		TimeoutSecs: 5,
	})
}

func TestClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(400), payload["amount"])
		assert.Equal(t, "INR", payload["currency"])

		json.NewEncoder(w).Encode(Order{
			ID:       "order_gw_1",
			Amount:   400,
			Currency: "INR",
			Status:   "created",
		})
	}))
	defer srv.Close()

	order, err := newTestClient(srv.URL).CreateOrder(context.Background(), 400, "INR", "inst_first_u1_p1")
	require.NoError(t, err)
	assert.Equal(t, "order_gw_1", order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestClient_CreateOrder_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "created"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), 400, "INR", "r")
	assert.Error(t, err)
}

func TestClient_CreateSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "plan_7", payload["plan_ref"])
		assert.Equal(t, "user_3", payload["customer_ref"])

		json.NewEncoder(w).Encode(map[string]string{"id": "gwsub_gw_1"})
	}))
	defer srv.Close()

	id, err := newTestClient(srv.URL).CreateSubscription(context.Background(), "plan_7", "pm_1", "user_3")
	require.NoError(t, err)
	assert.Equal(t, "gwsub_gw_1", id)
}

func TestClient_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid amount"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), -1, "INR", "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway api error (400)")
}
