package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trading-core/internal/auth"
	"trading-core/internal/dex"
	"trading-core/internal/events"
	"trading-core/internal/executor"
	"trading-core/internal/gateway"
	"trading-core/internal/risk"
	"trading-core/pkg/crypto"
	"trading-core/pkg/db"
	"trading-core/pkg/exchanges/common"
)

// fakeVenueClient satisfies common.Client with canned, instant responses so
// tests exercising market/ai routes never reach out over the network.
type fakeVenueClient struct{}

func (fakeVenueClient) Venue() common.Venue { return common.VenueA }

func (fakeVenueClient) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]common.Candle, error) {
	return []common.Candle{{OpenTime: time.Now(), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}}, nil
}

func (fakeVenueClient) GetAccounts(ctx context.Context) ([]common.AccountBalance, error) {
	return []common.AccountBalance{{Asset: "USDT", Available: 1000}}, nil
}

func (fakeVenueClient) GetAccount(ctx context.Context, asset string) (common.AccountBalance, error) {
	return common.AccountBalance{Asset: asset, Available: 1000}, nil
}

func (fakeVenueClient) PlaceOrder(ctx context.Context, req common.OrderRequest) (common.OrderAck, error) {
	return common.OrderAck{ExchangeOrderID: "fake-1", Status: common.StatusFilled, FilledQty: req.Quantity, FilledPrice: req.Price}, nil
}

func (fakeVenueClient) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	return nil
}

func (fakeVenueClient) GetOrder(ctx context.Context, symbol, exchangeOrderID string) (common.OrderAck, error) {
	return common.OrderAck{ExchangeOrderID: exchangeOrderID, Status: common.StatusFilled}, nil
}

func (fakeVenueClient) GetOpenOrders(ctx context.Context, symbol string) ([]common.OrderAck, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *db.Database, *auth.Service) {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}

	vault, err := crypto.NewVault("test-password", "deadbeefdeadbeefdeadbeefdeadbeef")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	bus := events.NewBus()
	engine := dex.NewEngine()
	pool, _ := engine.PoolForPair("CRWN", "USDT")
	if _, err := pool.AddLiquidity("system", 10_000_000, 1_250_000); err != nil {
		t.Fatalf("seeding pool liquidity: %v", err)
	}
	riskMT := risk.NewMultiTenant(risk.DefaultConfig())
	exec := executor.NewExecutor(database, bus, vault, nil)
	venues := map[string]common.Client{
		string(common.VenueA): fakeVenueClient{},
	}

	gw := gateway.New(database, bus, engine, riskMT, exec, vault, venues)
	authSvc := auth.New(database, "test-secret")
	server := NewServer(gw, authSvc)

	httpServer := httptest.NewServer(server.Router)
	t.Cleanup(httpServer.Close)
	return httpServer, database, authSvc
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any, token string) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRegisterThenLoginHTTPFlow(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv, "/api/auth/register", registerRequest{
		Email: "a@a.com", Username: "a", Password: "abcdef",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var registerBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&registerBody); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	token, _ := registerBody["token"].(string)
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	loginResp := postJSON(t, srv, "/api/auth/login", loginRequest{
		EmailOrUsername: "a@a.com", Password: "abcdef",
	}, "")
	defer loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", loginResp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/dex/balances", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	balancesResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("balances request: %v", err)
	}
	defer balancesResp.Body.Close()
	if balancesResp.StatusCode != http.StatusOK {
		t.Fatalf("balances: expected 200, got %d", balancesResp.StatusCode)
	}
}

func TestDexBalancesRejectsMissingToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/dex/balances")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestDexPoolsIsPublic(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/dex/pools")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func registerUser(t *testing.T, srv *httptest.Server, email, username string) string {
	t.Helper()
	resp := postJSON(t, srv, "/api/auth/register", registerRequest{
		Email: email, Username: username, Password: "abcdef",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	return token
}

func TestDexBalancesRejectsGarbageToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/dex/balances", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestDexBalancesRejectsRevokedToken(t *testing.T) {
	srv, _, authSvc := newTestServer(t)
	token := registerUser(t, srv, "revoked@a.com", "revoked")

	if err := authSvc.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/dex/balances", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after revocation, got %d", resp.StatusCode)
	}
}

func TestDexSwapRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	token := registerUser(t, srv, "swapper@a.com", "swapper")

	resp := postJSON(t, srv, "/api/dex/swap", swapRequest{
		PoolID: dex.PoolID("CRWN", "USDT"), TokenIn: "CRWN", Amount: 100,
	}, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("swap: expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode swap response: %v", err)
	}
	if amountOut, _ := body["amountOut"].(float64); amountOut <= 0 {
		t.Errorf("expected a positive amountOut, got %v", body["amountOut"])
	}
}

func TestDexSwapRejectsUnknownPool(t *testing.T) {
	srv, _, _ := newTestServer(t)
	token := registerUser(t, srv, "badpool@a.com", "badpool")

	resp := postJSON(t, srv, "/api/dex/swap", swapRequest{
		PoolID: "NOPE-NOPE", TokenIn: "CRWN", Amount: 100,
	}, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown pool, got %d", resp.StatusCode)
	}
}

func wsDial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func TestWebsocketConnectAndSubscribePrices(t *testing.T) {
	srv, _, _ := newTestServer(t)
	conn := wsDial(t, srv, "")
	defer conn.Close()

	var connected wsOutbound
	if err := conn.ReadJSON(&connected); err != nil {
		t.Fatalf("reading connected frame: %v", err)
	}
	if connected.Type != "connected" {
		t.Fatalf("expected a connected frame, got %q", connected.Type)
	}

	sub := map[string]string{
		"type": "subscribe_prices", "exchange": string(common.VenueA),
		"symbol": "BTC-USDT", "interval": "1h",
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON subscribe: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg wsOutbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("reading price frame: %v", err)
		}
		if msg.Type == "price" {
			break
		}
	}
}

func TestWebsocketAuthFrame(t *testing.T) {
	srv, _, _ := newTestServer(t)
	token := registerUser(t, srv, "wsauth@a.com", "wsauth")

	conn := wsDial(t, srv, "")
	defer conn.Close()

	var connected wsOutbound
	if err := conn.ReadJSON(&connected); err != nil {
		t.Fatalf("reading connected frame: %v", err)
	}
	if authed, _ := connected.Data.(map[string]any)["authenticated"].(bool); authed {
		t.Fatal("expected unauthenticated before the auth frame")
	}

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": token}); err != nil {
		t.Fatalf("WriteJSON auth: %v", err)
	}

	var after wsOutbound
	if err := conn.ReadJSON(&after); err != nil {
		t.Fatalf("reading post-auth frame: %v", err)
	}
	if after.Type != "connected" {
		t.Fatalf("expected a connected frame after auth, got %q", after.Type)
	}
}
