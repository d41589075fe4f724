package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"19.99":  1999,
		"59.97":  5997,
		"10":     1000,
		"0.01":   1,
		"100000": 10000000,
		"1.005":  101, // rounds half away from zero
	}
	for in, want := range cases {
		amt, err := decimal.NewFromString(in)
		require.NoError(t, err)
		assert.Equal(t, want, MinorUnits(amt), "amount %s", in)
	}
}

func TestStripeGateway_Charge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/charges", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1999", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "tok_visa", r.PostForm.Get("source"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ch_1","amount":1999,"status":"succeeded"}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(srv.URL, "sk_test_123", zap.NewNop())
	res, err := g.Charge(context.Background(), ChargeRequest{
		Method: MethodStripe,
		Amount: decimal.RequireFromString("19.99"),
		Token:  "tok_visa",
		UserID: "u1",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "ch_1", res.PaymentID)
	assert.Equal(t, MethodStripe, res.Method)
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "succeeded", res.Status)
}

func TestStripeGateway_Decline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(srv.URL, "sk_test_123", zap.NewNop())
	_, err := g.Charge(context.Background(), ChargeRequest{
		Amount: decimal.RequireFromString("10.00"),
		Token:  "tok_chargeDeclined",
	})

	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, MethodStripe, rej.Provider)
	assert.Equal(t, "Your card was declined.", rej.Reason)
}

func TestStripeGateway_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(srv.URL, "sk_test_123", zap.NewNop())
	_, err := g.Charge(context.Background(), ChargeRequest{
		Amount: decimal.RequireFromString("10.00"),
		Token:  "tok_visa",
	})
	assert.True(t, errors.Is(err, ErrGatewayUnavailable))
}

func TestStripeGateway_MissingToken(t *testing.T) {
	g := NewStripeGateway("http://unused", "sk", zap.NewNop())
	_, err := g.Charge(context.Background(), ChargeRequest{
		Amount: decimal.RequireFromString("10.00"),
	})
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	d := &Dispatcher{}
	_, err := d.Charge(context.Background(), ChargeRequest{Method: "bitcoin"})
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Reason, "unknown payment method")
}
