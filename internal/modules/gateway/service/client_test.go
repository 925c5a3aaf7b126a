package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin_bot/internal/models"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("top-secret"))

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		Key:        "key-1",
		Secret:     testSecret,
		Passphrase: "pass",
		Timeout:    time.Second,
	})
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func expectedSign(method, path, body string) string {
	h := hmac.New(sha256.New, []byte("top-secret"))
	h.Write([]byte("1700000000" + method + path + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func TestClientOrderBook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/BTC-USD/book", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("level"))
		assert.Equal(t, "key-1", r.Header.Get("CB-ACCESS-KEY"))
		assert.Equal(t, "pass", r.Header.Get("CB-ACCESS-PASSPHRASE"))
		assert.Equal(t, "1700000000", r.Header.Get("CB-ACCESS-TIMESTAMP"))
		assert.Equal(t, expectedSign("GET", "/products/BTC-USD/book?level=1", ""), r.Header.Get("CB-ACCESS-SIGN"))

		_, _ = w.Write([]byte(`{"sequence":3,"bids":[["6500.11","0.45",1]],"asks":[["6500.15","0.57",2]]}`))
	})

	book, err := c.OrderBook(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, models.OrderBook{Sequence: 3, Bid: 6500.11, Ask: 6500.15, BidSize: 0.45, AskSize: 0.57}, book)
}

func TestClientOrderBookEmptySide(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sequence":3,"bids":[],"asks":[["1","1",1]]}`))
	})

	_, err := c.OrderBook(context.Background(), "BTC-USD")
	assert.Error(t, err)
}

func TestClientAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid signature"}`))
	})

	_, err := c.AccountBalance(context.Background(), "acc-usd")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid signature", apiErr.Message)
}

func TestClientAccountBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acc-usd", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"acc-usd","currency":"USD","balance":"120.50","available":"100.25","hold":"20.25"}`))
	})

	bal, err := c.AccountBalance(context.Background(), "acc-usd")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{AccountID: "acc-usd", Currency: "USD", Available: 100.25}, bal)
}

func TestClientPlaceMarketOrder(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, expectedSign("POST", "/orders", string(body)), r.Header.Get("CB-ACCESS-SIGN"))
		var m map[string]string
		assert.NoError(t, json.Unmarshal(body, &m))
		got = m
		_, _ = w.Write([]byte(`{"id":"ord-1","status":"pending"}`))
	})

	res, err := c.PlaceMarketOrder(context.Background(), models.OrderRequest{
		ClientOID: "oid-1",
		Side:      models.SideBuy,
		Ticker:    "ETH-USD",
		Funds:     49.004,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderResult{ID: "ord-1", Status: "pending"}, res)
	assert.Equal(t, map[string]string{
		"type":       "market",
		"side":       "buy",
		"product_id": "ETH-USD",
		"funds":      "49.00",
		"client_oid": "oid-1",
	}, got)

	_, err = c.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Side:   models.SideSell,
		Ticker: "ETH-USD",
		Size:   0.12345678,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.12345678", got["size"])
	assert.Empty(t, got["funds"])

	_, err = c.PlaceMarketOrder(context.Background(), models.OrderRequest{Side: "hold"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	price, size, err := parseLevel([]any{"10.5", 2.0, 1.0})
	require.NoError(t, err)
	assert.Equal(t, 10.5, price)
	assert.Equal(t, 2.0, size)

	_, _, err = parseLevel([]any{"10.5"})
	assert.Error(t, err)

	_, _, err = parseLevel([]any{true, "1"})
	assert.Error(t, err)
}
