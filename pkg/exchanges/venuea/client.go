// Package venuea implements the KRW-quoted external venue client: JWT
// bearer auth where the claims carry a SHA-512 hash of the query string,
// signed with golang-jwt/jwt/v5.
package venuea

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trading-core/pkg/exchanges/common"
)

// Config holds venue A credentials.
type Config struct {
	AccessKey string
	SecretKey string
	BaseURL   string // defaults to the production REST host
}

// Client is the venue A REST client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	throttle   *common.Throttle
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.venuea.example.com"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		throttle:   common.NewThrottle(100 * time.Millisecond),
	}
}

func (c *Client) Venue() common.Venue { return common.VenueA }

// authHeader builds the Authorization: Bearer <jwt> header for a request.
// When params is non-empty, claims carry a SHA-512 query_hash over the
// URL-encoded params.
func (c *Client) authHeader(params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.cfg.AccessKey,
		"nonce":      fmt.Sprintf("%d", time.Now().UnixNano()),
	}
	if len(params) > 0 {
		sum := sha512.Sum512([]byte(params.Encode()))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign venue a token: %w", err)
	}
	return "Bearer " + signed, nil
}

func (c *Client) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	header, err := c.authHeader(params)
	if err != nil {
		return nil, err
	}

	full := c.cfg.BaseURL + path
	var req *http.Request
	if method == http.MethodGet || method == http.MethodDelete {
		if len(params) > 0 {
			full += "?" + params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, full, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, full, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)

	c.throttle.Wait()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, &common.VenueError{Venue: common.VenueA, StatusCode: res.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetCandles fetches public candle data; no auth header required.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]common.Candle, error) {
	params := url.Values{}
	params.Set("market", symbol)
	params.Set("count", strconv.Itoa(limit))

	c.throttle.Wait()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/candles/"+interval+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return nil, &common.VenueError{Venue: common.VenueA, StatusCode: res.StatusCode, Body: string(body)}
	}

	var raw []struct {
		Timestamp  int64   `json:"timestamp"`
		OpeningPr  float64 `json:"opening_price"`
		HighPr     float64 `json:"high_price"`
		LowPr      float64 `json:"low_price"`
		TradePrice float64 `json:"trade_price"`
		Volume     float64 `json:"candle_acc_trade_volume"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	out := make([]common.Candle, 0, len(raw))
	for _, r := range raw {
		out = append(out, common.Candle{
			OpenTime: time.UnixMilli(r.Timestamp),
			Open:     r.OpeningPr,
			High:     r.HighPr,
			Low:      r.LowPr,
			Close:    r.TradePrice,
			Volume:   r.Volume,
		})
	}
	return out, nil
}

func (c *Client) GetAccounts(ctx context.Context) ([]common.AccountBalance, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, "/v1/accounts", nil)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
		Locked   string `json:"locked"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]common.AccountBalance, 0, len(raw))
	for _, r := range raw {
		out = append(out, common.AccountBalance{
			Asset:     r.Currency,
			Available: parseStr(r.Balance),
			Locked:    parseStr(r.Locked),
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

// PlaceOrder translates the common OrderRequest into venue A's parameter
// names: side "bid"/"ask", a market order uses "price" for a market buy
// (notional) and "market" for a market sell (quantity only).
func (c *Client) PlaceOrder(ctx context.Context, req common.OrderRequest) (common.OrderAck, error) {
	params := url.Values{}
	params.Set("market", req.Symbol)

	switch req.Side {
	case common.SideBuy:
		params.Set("side", "bid")
	case common.SideSell:
		params.Set("side", "ask")
	}

	switch {
	case req.Type == common.OrderTypeLimit:
		params.Set("ord_type", "limit")
		params.Set("price", formatFloat(req.Price))
		params.Set("volume", formatFloat(req.Quantity))
	case req.Type == common.OrderTypeMarket && req.Side == common.SideBuy:
		params.Set("ord_type", "price")
		params.Set("price", formatFloat(req.Price))
	default: // market sell
		params.Set("ord_type", "market")
		params.Set("volume", formatFloat(req.Quantity))
	}
	if req.ClientID != "" {
		params.Set("identifier", req.ClientID)
	}

	body, err := c.signedRequest(ctx, http.MethodPost, "/v1/orders", params)
	if err != nil {
		return common.OrderAck{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderAck{}, fmt.Errorf("decode order response: %w", err)
	}
	return ackFromResponse(resp), nil
}

func (c *Client) CancelOrder(ctx context.Context, _ string, exchangeOrderID string) error {
	params := url.Values{}
	params.Set("uuid", exchangeOrderID)
	_, err := c.signedRequest(ctx, http.MethodDelete, "/v1/order", params)
	return err
}

func (c *Client) GetOrder(ctx context.Context, _ string, exchangeOrderID string) (common.OrderAck, error) {
	params := url.Values{}
	params.Set("uuid", exchangeOrderID)
	body, err := c.signedRequest(ctx, http.MethodGet, "/v1/order", params)
	if err != nil {
		return common.OrderAck{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderAck{}, fmt.Errorf("decode order: %w", err)
	}
	return ackFromResponse(resp), nil
}

func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]common.OrderAck, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("market", symbol)
	}
	params.Set("state", "wait")
	body, err := c.signedRequest(ctx, http.MethodGet, "/v1/orders", params)
	if err != nil {
		return nil, err
	}
	var resp []orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	out := make([]common.OrderAck, 0, len(resp))
	for _, r := range resp {
		out = append(out, ackFromResponse(r))
	}
	return out, nil
}

type orderResponse struct {
	UUID            string `json:"uuid"`
	State           string `json:"state"`
	ExecutedVolume  string `json:"executed_volume"`
	Price           string `json:"price"`
}

func ackFromResponse(r orderResponse) common.OrderAck {
	return common.OrderAck{
		ExchangeOrderID: r.UUID,
		Status:          mapStatus(r.State),
		FilledQty:       parseStr(r.ExecutedVolume),
		FilledPrice:     parseStr(r.Price),
	}
}

func mapStatus(s string) common.OrderStatus {
	switch s {
	case "wait":
		return common.StatusSubmitted
	case "done":
		return common.StatusFilled
	case "cancel":
		return common.StatusCancelled
	default:
		return common.StatusUnknown
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseStr(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
