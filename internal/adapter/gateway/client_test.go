package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/srgjo27/fair_ticket/internal/adapter/gateway"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayServer(t *testing.T, cancelCode int) (*httptest.Server, *[]map[string]any) {
	t.Helper()

	var cancels []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/getToken", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["imp_key"] != "key" || body["imp_secret"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":-1,"message":"bad credentials","response":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"response":{"access_token":"tok"}}`))
	})
	mux.HandleFunc("GET /payments/{imp}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":-1,"message":"unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"response":{"imp_uid":"` + r.PathValue("imp") +
			`","merchant_uid":"m-1","amount":150000,"status":"paid"}}`))
	})
	mux.HandleFunc("GET /payments/find/{merchant}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("merchant") != "m-1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":1,"message":"not found","response":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"response":{"imp_uid":"imp_9","merchant_uid":"m-1","amount":150000,"status":"paid"}}`))
	})
	mux.HandleFunc("POST /payments/cancel", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		cancels = append(cancels, body)
		if cancelCode != 0 {
			_, _ = w.Write([]byte(`{"code":1,"message":"already cancelled"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"response":{}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, &cancels
}

func newClient(url, secret string) *gateway.Client {
	return gateway.NewClient(gateway.Config{
		BaseURL:   url,
		APIKey:    "key",
		APISecret: secret,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Verify(t *testing.T) {
	srv, _ := newGatewayServer(t, 0)

	p, err := newClient(srv.URL, "secret").Verify(context.Background(), "imp_1")
	require.NoError(t, err)

	assert.Equal(t, "imp_1", p.ImpUID)
	assert.Equal(t, "m-1", p.MerchantUID)
	assert.Equal(t, int64(150000), p.Amount)
	assert.True(t, p.IsPaid())
}

func TestClient_VerifyBadCredentials(t *testing.T) {
	srv, _ := newGatewayServer(t, 0)

	_, err := newClient(srv.URL, "wrong").Verify(context.Background(), "imp_1")
	assert.ErrorIs(t, err, gateway.ErrGatewayRejected)
}

func TestClient_FindByMerchantUID(t *testing.T) {
	srv, _ := newGatewayServer(t, 0)
	c := newClient(srv.URL, "secret")

	p, err := c.FindByMerchantUID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "imp_9", p.ImpUID)
	assert.Equal(t, "m-1", p.MerchantUID)
	assert.True(t, p.IsPaid())

	_, err = c.FindByMerchantUID(context.Background(), "m-unknown")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestClient_Cancel(t *testing.T) {
	srv, cancels := newGatewayServer(t, 0)

	err := newClient(srv.URL, "secret").Cancel(context.Background(), "imp_1", 150000, "cancelled by user")
	require.NoError(t, err)

	require.Len(t, *cancels, 1)
	assert.Equal(t, "imp_1", (*cancels)[0]["imp_uid"])
	assert.EqualValues(t, 150000, (*cancels)[0]["amount"])
	assert.Equal(t, "cancelled by user", (*cancels)[0]["reason"])
}

func TestClient_CancelRejected(t *testing.T) {
	srv, _ := newGatewayServer(t, 1)

	err := newClient(srv.URL, "secret").Cancel(context.Background(), "imp_1", 1000, "timeout")
	assert.ErrorIs(t, err, gateway.ErrGatewayRejected)
}
