package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntentSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","client_secret":"cs_123","status":"requires_capture"}`))
	}))
	defer srv.Close()

	client := NewHTTPProcessorClient(srv.URL, "sk_test")
	intent, err := client.CreateIntent(context.Background(), 4500, "usd", "key-abc")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.Ref)
	assert.Equal(t, "cs_123", intent.ClientSecret)
	assert.Equal(t, "key-abc", gotKey)
	assert.Equal(t, "Bearer sk_test", gotAuth)
}

func TestCreateIntentMapsServerErrorToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer srv.Close()

	client := NewHTTPProcessorClient(srv.URL, "sk_test")
	_, err := client.CreateIntent(context.Background(), 4500, "usd", "key-abc")
	require.ErrorIs(t, err, ErrProcessorUnavailable)
}

func TestCreateIntentMapsRateLimitToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewHTTPProcessorClient(srv.URL, "sk_test")
	_, err := client.CreateIntent(context.Background(), 4500, "usd", "key-abc")
	require.ErrorIs(t, err, ErrProcessorUnavailable)
}

func TestCreateIntentMapsDecline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"message":"insufficient funds","code":"card_declined"}`))
	}))
	defer srv.Close()

	client := NewHTTPProcessorClient(srv.URL, "sk_test")
	_, err := client.CreateIntent(context.Background(), 4500, "usd", "key-abc")
	require.ErrorIs(t, err, ErrDeclined)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestCreateIntentNetworkFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewHTTPProcessorClient(srv.URL, "sk_test")
	_, err := client.CreateIntent(context.Background(), 4500, "usd", "key-abc")
	require.ErrorIs(t, err, ErrProcessorUnavailable)
}

func TestCaptureHitsCapturePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewHTTPProcessorClient(srv.URL, "sk_test")
	require.NoError(t, client.Capture(context.Background(), "pi_123"))
	assert.Equal(t, "/v1/payment_intents/pi_123/capture", gotPath)
}

func TestVoidHitsCancelPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewHTTPProcessorClient(srv.URL, "sk_test")
	require.NoError(t, client.Void(context.Background(), "pi_123"))
	assert.Equal(t, "/v1/payment_intents/pi_123/cancel", gotPath)
}
