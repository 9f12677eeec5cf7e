// Package venueb implements the USDT-quoted external venue client: an
// HMAC query-string signed REST API. Every private request appends a
// timestamp and recvWindow, URL-encodes the parameters, signs them with
// HMAC-SHA256, appends the signature, and carries the API key in a
// header.
package venueb

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trading-core/pkg/exchanges/common"
)

// Config holds venue B credentials.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string // defaults to the production REST host
	RecvWindow int64  // ms, defaults to 5000
}

// Client is the venue B REST client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	timeSync   *common.TimeSync
	throttle   *common.Throttle
}

// New builds a venue B client. APIKey/APISecret may be empty for clients
// that only call the public market-data endpoints.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.venueb.example.com"
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		throttle:   common.NewThrottle(50 * time.Millisecond),
	}
	c.timeSync = common.NewTimeSync(c.serverTimeMs)
	return c
}

func (c *Client) Venue() common.Venue { return common.VenueB }

// StartTimeSync begins the background clock-drift correction against
// this venue's server-time endpoint; call once per client and let ctx
// cancellation stop it.
func (c *Client) StartTimeSync(ctx context.Context) {
	c.timeSync.Start(ctx)
}

func (c *Client) serverTimeMs() (int64, error) {
	resp, err := c.httpClient.Get(c.cfg.BaseURL + "/api/v3/time")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return 0, &common.VenueError{Venue: common.VenueB, StatusCode: resp.StatusCode, Body: string(body)}
	}
	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode server time: %w", err)
	}
	return out.ServerTime, nil
}

func (c *Client) timestamp() int64 {
	if c.timeSync != nil && c.timeSync.Offset() != 0 {
		return c.timeSync.Now()
	}
	return time.Now().UnixMilli()
}

// GetCandles fetches public kline data; no signing required.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]common.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	c.throttle.Wait()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/v3/klines?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, &common.VenueError{Venue: common.VenueB, StatusCode: status, Body: string(body)}
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	out := make([]common.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		openMs, _ := row[0].(float64)
		out = append(out, common.Candle{
			OpenTime: time.UnixMilli(int64(openMs)),
			Open:     parseStrAny(row[1]),
			High:     parseStrAny(row[2]),
			Low:      parseStrAny(row[3]),
			Close:    parseStrAny(row[4]),
			Volume:   parseStrAny(row[5]),
		})
	}
	return out, nil
}

func (c *Client) GetAccounts(ctx context.Context) ([]common.AccountBalance, error) {
	params := url.Values{}
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", params)
	if err != nil {
		return nil, err
	}
	var info struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	out := make([]common.AccountBalance, 0, len(info.Balances))
	for _, b := range info.Balances {
		out = append(out, common.AccountBalance{
			Asset:     b.Asset,
			Available: parseStr(b.Free),
			Locked:    parseStr(b.Locked),
		})
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context, asset string) (common.AccountBalance, error) {
	all, err := c.GetAccounts(ctx)
	if err != nil {
		return common.AccountBalance{}, err
	}
	for _, b := range all {
		if strings.EqualFold(b.Asset, asset) {
			return b, nil
		}
	}
	return common.AccountBalance{Asset: asset}, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req common.OrderRequest) (common.OrderAck, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", formatFloat(req.Quantity))
	if req.Type == common.OrderTypeLimit {
		params.Set("price", formatFloat(req.Price))
		params.Set("timeInForce", "GTC")
	}
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return common.OrderAck{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderAck{}, fmt.Errorf("decode order response: %w", err)
	}
	return common.OrderAck{
		ExchangeOrderID: strconv.FormatInt(resp.OrderID, 10),
		Status:          mapStatus(resp.Status),
		FilledQty:       parseStr(resp.ExecutedQty),
		FilledPrice:     parseStr(resp.Price),
	}, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", exchangeOrderID)
	_, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/order", params)
	return err
}

func (c *Client) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (common.OrderAck, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", exchangeOrderID)
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/order", params)
	if err != nil {
		return common.OrderAck{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderAck{}, fmt.Errorf("decode order: %w", err)
	}
	return common.OrderAck{
		ExchangeOrderID: strconv.FormatInt(resp.OrderID, 10),
		Status:          mapStatus(resp.Status),
		FilledQty:       parseStr(resp.ExecutedQty),
		FilledPrice:     parseStr(resp.Price),
	}, nil
}

func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]common.OrderAck, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/openOrders", params)
	if err != nil {
		return nil, err
	}
	var resp []orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	out := make([]common.OrderAck, 0, len(resp))
	for _, r := range resp {
		out = append(out, common.OrderAck{
			ExchangeOrderID: strconv.FormatInt(r.OrderID, 10),
			Status:          mapStatus(r.Status),
			FilledQty:       parseStr(r.ExecutedQty),
			FilledPrice:     parseStr(r.Price),
		})
	}
	return out, nil
}

// doSigned appends timestamp+recvWindow, signs with HMAC-SHA256, and sends
// the request carrying X-MBX-APIKEY. Only HTTP 200 counts as success.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(c.timestamp(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))

	encoded := params.Encode()
	sig := sign(encoded, c.cfg.APISecret)
	fullQuery := encoded + "&signature=" + sig

	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodGet, http.MethodDelete:
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path+"?"+fullQuery, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, strings.NewReader(fullQuery))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, &common.VenueError{Venue: common.VenueB, StatusCode: status, Body: string(body)}
	}
	return body, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	c.throttle.Wait()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return body, res.StatusCode, nil
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	ExecutedQty   string `json:"executedQty"`
}

func mapStatus(s string) common.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return common.StatusSubmitted
	case "PARTIALLY_FILLED":
		return common.StatusPartial
	case "FILLED":
		return common.StatusFilled
	case "CANCELED", "CANCELLED":
		return common.StatusCancelled
	default:
		return common.StatusUnknown
	}
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseStr(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseStrAny(v any) float64 {
	switch t := v.(type) {
	case string:
		return parseStr(t)
	case float64:
		return t
	default:
		return 0
	}
}
