package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"coin_bot/internal/models"
)

type ClientConfig struct {
	BaseURL    string
	Key        string
	Secret     string
	Passphrase string
	Timeout    time.Duration
}

// Client - REST клиент биржи (Coinbase Exchange API), подписи CB-ACCESS-*.
type Client struct {
	baseURL string
	http    *http.Client

	apiKey    string
	apiSecret []byte
	passph    string

	now func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// секрет у биржи в base64, но сырой тоже принимаем
	secret, err := base64.StdEncoding.DecodeString(cfg.Secret)
	if err != nil {
		secret = []byte(cfg.Secret)
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		apiKey:    cfg.Key,
		apiSecret: secret,
		passph:    cfg.Passphrase,
		now:       time.Now,
	}
}

// APIError - ответ биржи с не-2xx статусом.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

type bookResponse struct {
	Sequence int64   `json:"sequence"`
	Bids     [][]any `json:"bids"`
	Asks     [][]any `json:"asks"`
}

// OrderBook - GET /products/{id}/book?level=1.
func (c *Client) OrderBook(ctx context.Context, ticker string) (models.OrderBook, error) {
	var r bookResponse
	path := "/products/" + url.PathEscape(ticker) + "/book?level=1"
	if err := c.do(ctx, http.MethodGet, path, nil, &r); err != nil {
		return models.OrderBook{}, errors.Wrapf(err, "order book %s", ticker)
	}
	if len(r.Bids) == 0 || len(r.Asks) == 0 {
		return models.OrderBook{}, fmt.Errorf("order book %s: empty side", ticker)
	}

	bid, bidSize, err := parseLevel(r.Bids[0])
	if err != nil {
		return models.OrderBook{}, errors.Wrapf(err, "order book %s bid", ticker)
	}
	ask, askSize, err := parseLevel(r.Asks[0])
	if err != nil {
		return models.OrderBook{}, errors.Wrapf(err, "order book %s ask", ticker)
	}
	return models.OrderBook{
		Sequence: r.Sequence,
		Bid:      bid,
		Ask:      ask,
		BidSize:  bidSize,
		AskSize:  askSize,
	}, nil
}

type accountResponse struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
}

// AccountBalance - GET /accounts/{id}.
func (c *Client) AccountBalance(ctx context.Context, accountID string) (models.Balance, error) {
	var r accountResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID), nil, &r); err != nil {
		return models.Balance{}, errors.Wrapf(err, "account %s", accountID)
	}
	available, err := strconv.ParseFloat(r.Available, 64)
	if err != nil {
		return models.Balance{}, errors.Wrapf(err, "account %s available %q", accountID, r.Available)
	}
	return models.Balance{AccountID: r.ID, Currency: r.Currency, Available: available}, nil
}

type orderRequest struct {
	Type      string `json:"type"`
	Side      string `json:"side"`
	ProductID string `json:"product_id"`
	Funds     string `json:"funds,omitempty"`
	Size      string `json:"size,omitempty"`
	ClientOID string `json:"client_oid,omitempty"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PlaceMarketOrder - POST /orders, покупка на сумму funds, продажа объёмом size.
func (c *Client) PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	body := orderRequest{
		Type:      "market",
		Side:      string(req.Side),
		ProductID: req.Ticker,
		ClientOID: req.ClientOID,
	}
	switch req.Side {
	case models.SideBuy:
		body.Funds = decimal.NewFromFloat(req.Funds).StringFixed(2)
	case models.SideSell:
		body.Size = decimal.NewFromFloat(req.Size).String()
	default:
		return models.OrderResult{}, fmt.Errorf("unknown side %q", req.Side)
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return models.OrderResult{}, errors.Wrap(err, "marshal order")
	}

	var r orderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &r); err != nil {
		return models.OrderResult{}, errors.Wrapf(err, "place %s %s", req.Side, req.Ticker)
	}
	return models.OrderResult{ID: r.ID, Status: r.Status}, nil
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	msg := ts + strings.ToUpper(method) + requestPath + body
	h := hmac.New(sha256.New, c.apiSecret)
	h.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (c *Client) generateRequest(ctx context.Context, method, requestPath string, body []byte) (*http.Request, error) {
	ts := strconv.FormatInt(c.now().Unix(), 10)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "coin_bot")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("CB-ACCESS-KEY", c.apiKey)
		req.Header.Set("CB-ACCESS-SIGN", c.sign(ts, method, requestPath, string(body)))
		req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
		req.Header.Set("CB-ACCESS-PASSPHRASE", c.passph)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, requestPath string, body []byte, out any) error {
	req, err := c.generateRequest(ctx, method, requestPath, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiMessage(rb)}
	}
	return sonic.Unmarshal(rb, out)
}

func apiMessage(body []byte) string {
	var r struct {
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(body, &r); err == nil && r.Message != "" {
		return r.Message
	}
	return string(body)
}

// parseLevel: ["price", "size", num-orders]; цена и объём приходят строками.
func parseLevel(row []any) (price, size float64, err error) {
	if len(row) < 2 {
		return 0, 0, fmt.Errorf("short level %v", row)
	}
	if price, err = toFloat(row[0]); err != nil {
		return 0, 0, err
	}
	if size, err = toFloat(row[1]); err != nil {
		return 0, 0, err
	}
	return price, size, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
