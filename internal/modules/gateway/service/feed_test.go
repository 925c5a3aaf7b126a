package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFeedCachesTicker(t *testing.T) {
	var subscribed atomic.Value
	srv := mockWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subscribed.Store(string(msg))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"ticker","sequence":42,"product_id":"BTC-USD","best_bid":"100.10","best_ask":"100.20","best_bid_size":"1.5","best_ask_size":"0.5"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	var connected atomic.Bool
	feed := NewFeed(FeedConfig{URL: wsURL(srv), Tickers: []string{"BTC-USD"}, MaxAge: time.Minute}, zap.NewNop())
	feed.OnStatus(connected.Store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	require.Eventually(t, func() bool {
		_, err := feed.OrderBook(ctx, "BTC-USD")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	book, err := feed.OrderBook(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, int64(42), book.Sequence)
	assert.Equal(t, 100.10, book.Bid)
	assert.Equal(t, 100.20, book.Ask)
	assert.True(t, connected.Load())

	sub, _ := subscribed.Load().(string)
	assert.Contains(t, sub, `"ticker"`)
	assert.Contains(t, sub, `"heartbeat"`)
	assert.Contains(t, sub, `"BTC-USD"`)
}

func TestFeedStaleQuote(t *testing.T) {
	feed := NewFeed(FeedConfig{MaxAge: time.Second}, zap.NewNop())
	now := time.Unix(1000, 0)
	feed.now = func() time.Time { return now }

	_, err := feed.OrderBook(context.Background(), "ETH-USD")
	assert.True(t, errors.Is(err, ErrStaleQuote))

	feed.handle([]byte(`{"type":"ticker","product_id":"ETH-USD","best_bid":"10","best_ask":"11"}`))
	_, err = feed.OrderBook(context.Background(), "ETH-USD")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = feed.OrderBook(context.Background(), "ETH-USD")
	assert.True(t, errors.Is(err, ErrStaleQuote))

	// heartbeat продлевает свежесть
	feed.handle([]byte(`{"type":"heartbeat","product_id":"ETH-USD"}`))
	_, err = feed.OrderBook(context.Background(), "ETH-USD")
	assert.NoError(t, err)
}

func TestFeedIgnoresBadFrames(t *testing.T) {
	feed := NewFeed(FeedConfig{}, zap.NewNop())
	feed.handle([]byte(`not json`))
	feed.handle([]byte(`{"type":"ticker","product_id":"ETH-USD","best_bid":"x","best_ask":"11"}`))
	feed.handle([]byte(`{"type":"ticker","product_id":"ETH-USD","best_bid":"0","best_ask":"11"}`))

	_, err := feed.OrderBook(context.Background(), "ETH-USD")
	assert.Error(t, err)
}
