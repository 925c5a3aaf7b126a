package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coin_bot/internal/models"
)

var ErrStaleQuote = errors.New("quote is stale")

type FeedConfig struct {
	URL        string
	Tickers    []string
	MaxAge     time.Duration
	PingPeriod time.Duration
	Reconnect  time.Duration
}

type quote struct {
	book models.OrderBook
	at   time.Time
}

// Feed держит websocket-подписку на ticker+heartbeat и кэширует лучший bid/ask.
type Feed struct {
	cfg    FeedConfig
	log    *zap.Logger
	dialer *websocket.Dialer

	mu     sync.RWMutex
	quotes map[string]quote

	onStatus func(connected bool)
	now      func() time.Time
}

func NewFeed(cfg FeedConfig, log *zap.Logger) *Feed {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * time.Second
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 20 * time.Second
	}
	if cfg.Reconnect <= 0 {
		cfg.Reconnect = time.Second
	}
	return &Feed{
		cfg:    cfg,
		log:    log.Named("feed"),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		quotes: make(map[string]quote),
		now:    time.Now,
	}
}

// OnStatus - колбэк на подключение/обрыв (для health).
func (f *Feed) OnStatus(fn func(connected bool)) { f.onStatus = fn }

// OrderBook отдаёт последнюю котировку из потока, если она не протухла.
func (f *Feed) OrderBook(_ context.Context, ticker string) (models.OrderBook, error) {
	f.mu.RLock()
	q, ok := f.quotes[ticker]
	f.mu.RUnlock()
	if !ok {
		return models.OrderBook{}, fmt.Errorf("%s: no quote yet: %w", ticker, ErrStaleQuote)
	}
	if age := f.now().Sub(q.at); age > f.cfg.MaxAge {
		return models.OrderBook{}, fmt.Errorf("%s: quote age %s: %w", ticker, age.Round(time.Second), ErrStaleQuote)
	}
	return q.book, nil
}

type subscribeMsg struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type frame struct {
	Type        string `json:"type"`
	Sequence    int64  `json:"sequence"`
	ProductID   string `json:"product_id"`
	BestBid     string `json:"best_bid"`
	BestAsk     string `json:"best_ask"`
	BestBidSize string `json:"best_bid_size"`
	BestAskSize string `json:"best_ask_size"`
	Message     string `json:"message"`
}

// Run - цикл подключения с реконнектом, пока жив ctx.
func (f *Feed) Run(ctx context.Context) {
	if len(f.cfg.Tickers) == 0 {
		return
	}
	for {
		if err := f.session(ctx); err != nil {
			f.log.Warn("ws session ended", zap.Error(err))
		}
		f.setStatus(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.Reconnect):
		}
	}
}

func (f *Feed) session(ctx context.Context) error {
	f.log.Info("ws connect", zap.String("url", f.cfg.URL), zap.Strings("tickers", f.cfg.Tickers))
	conn, _, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sub := subscribeMsg{
		Type:       "subscribe",
		ProductIDs: f.cfg.Tickers,
		Channels:   []string{"ticker", "heartbeat"},
	}
	payload, err := sonic.Marshal(sub)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.setStatus(true)

	// keepalive ping, отдельная горутина до конца сессии
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(f.cfg.PingPeriod)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-stopPing:
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		f.handle(msg)
	}
}

func (f *Feed) handle(msg []byte) {
	var fr frame
	if err := sonic.Unmarshal(msg, &fr); err != nil {
		return
	}
	switch fr.Type {
	case "ticker":
		bid, err1 := strconv.ParseFloat(fr.BestBid, 64)
		ask, err2 := strconv.ParseFloat(fr.BestAsk, 64)
		if err1 != nil || err2 != nil || bid <= 0 || ask <= 0 {
			return
		}
		bidSize, _ := strconv.ParseFloat(fr.BestBidSize, 64)
		askSize, _ := strconv.ParseFloat(fr.BestAskSize, 64)

		f.mu.Lock()
		f.quotes[fr.ProductID] = quote{
			book: models.OrderBook{
				Sequence: fr.Sequence,
				Bid:      bid,
				Ask:      ask,
				BidSize:  bidSize,
				AskSize:  askSize,
			},
			at: f.now(),
		}
		f.mu.Unlock()
	case "heartbeat":
		// котировка не меняется, но соединение живо: продлеваем свежесть
		f.mu.Lock()
		if q, ok := f.quotes[fr.ProductID]; ok {
			q.at = f.now()
			f.quotes[fr.ProductID] = q
		}
		f.mu.Unlock()
	case "error":
		f.log.Error("ws error frame", zap.String("message", fr.Message))
	}
}

func (f *Feed) setStatus(connected bool) {
	if f.onStatus != nil {
		f.onStatus(connected)
	}
}
