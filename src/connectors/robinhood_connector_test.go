package connectors

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, baseURL string) *RobinhoodClient {
	t.Helper()

	cfg := Config{
		BaseURL:            baseURL,
		QuantityDecimals:   6,
		MinOrderQuantity:   decimal.RequireFromString("0.000001"),
		MinRequestInterval: time.Millisecond,
	}

	client, err := NewRobinhoodClient(testAPIKey, testSeedB64, cfg)
	if err != nil {
		t.Fatalf("NewRobinhoodClient failed: %v", err)
	}
	return client
}

// verifySignedRequest checks the three auth headers against the request
// exactly as received, including query string and raw body bytes.
func verifySignedRequest(t *testing.T, r *http.Request, body []byte) {
	t.Helper()

	apiKey := r.Header.Get("x-api-key")
	if apiKey != testAPIKey {
		t.Errorf("unexpected x-api-key: %s", apiKey)
	}
	timestamp := r.Header.Get("x-timestamp")
	if timestamp == "" {
		t.Errorf("missing x-timestamp header")
	}

	sig, err := base64.StdEncoding.DecodeString(r.Header.Get("x-signature"))
	if err != nil {
		t.Errorf("x-signature is not valid base64: %v", err)
		return
	}

	seed, _ := base64.StdEncoding.DecodeString(testSeedB64)
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	message := apiKey + timestamp + r.URL.RequestURI() + r.Method + string(body)
	if !ed25519.Verify(pub, []byte(message), sig) {
		t.Errorf("signature does not verify for %s %s", r.Method, r.URL.RequestURI())
	}
}

func TestGetBestBidAskSignsRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/crypto/marketdata/best_bid_ask/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "DOGE-USD" {
			t.Errorf("unexpected symbol %q", got)
		}
		verifySignedRequest(t, r, nil)

		_, _ = w.Write([]byte(`{"results":[{"symbol":"DOGE-USD","bid_price":"0.12341","ask_price":"0.12345"}]}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	quote, err := client.GetBestBidAsk(context.Background(), "DOGE-USD")
	if err != nil {
		t.Fatalf("GetBestBidAsk failed: %v", err)
	}
	if !quote.AskPrice.Equal(decimal.RequireFromString("0.12345")) {
		t.Fatalf("unexpected ask: %s", quote.AskPrice)
	}
	if !quote.BidPrice.Equal(decimal.RequireFromString("0.12341")) {
		t.Fatalf("unexpected bid: %s", quote.BidPrice)
	}
}

func TestGetHoldingsEmptyResultSet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifySignedRequest(t, r, nil)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	holdings, err := client.GetHoldings(context.Background(), "DOGE")
	if err != nil {
		t.Fatalf("GetHoldings failed: %v", err)
	}
	if !holdings.TotalQuantity.IsZero() || !holdings.QuantityAvailableForTrading.IsZero() {
		t.Fatalf("expected zero holdings for never-held asset, got %+v", holdings)
	}
}

func TestBuyMarketNotionalQuantityRounding(t *testing.T) {
	var orderBody atomic.Pointer[[]byte]

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v1/crypto/marketdata/best_bid_ask/"):
			verifySignedRequest(t, r, nil)
			_, _ = w.Write([]byte(`{"results":[{"symbol":"BTC-USD","bid_price":"49999","ask_price":"50000"}]}`))

		case r.URL.Path == "/api/v1/crypto/trading/orders/" && r.Method == "POST":
			body, _ := io.ReadAll(r.Body)
			verifySignedRequest(t, r, body)
			orderBody.Store(&body)

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"order-1","client_order_id":"x","side":"buy","symbol":"BTC-USD","type":"market","state":"open"}`))

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	order, err := client.BuyMarketNotional(context.Background(), "BTC-USD", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("BuyMarketNotional failed: %v", err)
	}
	if order.ID != "order-1" {
		t.Fatalf("unexpected order id %s", order.ID)
	}

	bodyPtr := orderBody.Load()
	if bodyPtr == nil {
		t.Fatalf("order POST was never made")
	}

	var sent OrderRequest
	if err := json.Unmarshal(*bodyPtr, &sent); err != nil {
		t.Fatalf("failed to decode sent order body: %v", err)
	}
	if sent.ClientOrderID == "" {
		t.Fatalf("client_order_id must be set")
	}
	if sent.MarketOrderConfig == nil {
		t.Fatalf("market_order_config must be set")
	}
	// $10 at ask 50000 is exactly 0.0002, already within the 6dp increment.
	if !sent.MarketOrderConfig.AssetQuantity.Equal(decimal.RequireFromString("0.0002")) {
		t.Fatalf("unexpected asset quantity %s", sent.MarketOrderConfig.AssetQuantity)
	}
}

func TestBuyMarketNotionalRejectsBelowMinimum(t *testing.T) {
	var orderCalls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			orderCalls.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"symbol":"BTC-USD","bid_price":"49999","ask_price":"50000"}]}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	// $0.01 at ask 50000 truncates to zero at 6 decimal places.
	_, err := client.BuyMarketNotional(context.Background(), "BTC-USD", decimal.RequireFromString("0.01"))
	if err == nil {
		t.Fatalf("expected rejection for quantity below minimum order size")
	}
	if orderCalls.Load() != 0 {
		t.Fatalf("order POST must not be made for a guaranteed-reject quantity")
	}
}

func TestSellMarketAllUsesAvailableQuantity(t *testing.T) {
	var orderBody atomic.Pointer[[]byte]

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v1/crypto/trading/holdings/"):
			verifySignedRequest(t, r, nil)
			// 2 of 5 held for open orders. The endpoint reports the
			// available figure; the client must consume it directly.
			_, _ = w.Write([]byte(`{"results":[{"asset_code":"DOGE","total_quantity":"5","quantity_held_for_orders":"2","quantity_available_for_trading":"3"}]}`))

		case r.URL.Path == "/api/v1/crypto/trading/orders/" && r.Method == "POST":
			body, _ := io.ReadAll(r.Body)
			verifySignedRequest(t, r, body)
			orderBody.Store(&body)

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"order-2","side":"sell","symbol":"DOGE-USD","type":"market","state":"open"}`))

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	order, err := client.SellMarketAll(context.Background(), "DOGE-USD")
	if err != nil {
		t.Fatalf("SellMarketAll failed: %v", err)
	}
	if order == nil || order.ID != "order-2" {
		t.Fatalf("unexpected order result: %+v", order)
	}

	var sent OrderRequest
	if err := json.Unmarshal(*orderBody.Load(), &sent); err != nil {
		t.Fatalf("failed to decode sent order body: %v", err)
	}
	if sent.Side != OrderSideSell {
		t.Fatalf("unexpected side %s", sent.Side)
	}
	if !sent.MarketOrderConfig.AssetQuantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("sell must use quantity_available_for_trading, got %s", sent.MarketOrderConfig.AssetQuantity)
	}
}

func TestSellMarketAllNothingHeldIsNoop(t *testing.T) {
	var orderCalls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			orderCalls.Add(1)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"asset_code":"DOGE","total_quantity":"0","quantity_available_for_trading":"0"}]}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	order, err := client.SellMarketAll(context.Background(), "DOGE-USD")
	if err != nil {
		t.Fatalf("selling nothing must be a no-op success, got %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil order for no-op sell, got %+v", order)
	}
	if orderCalls.Load() != 0 {
		t.Fatalf("no order POST expected when nothing is available")
	}
}

func TestRemoteRejectionSurfacesAsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"Insufficient buying power."}]}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	_, err := client.GetAccount(context.Background())
	if err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "HTTP 400") {
		t.Fatalf("error should carry the status and body, got: %v", err)
	}
}

func TestPlaceOrderValidatesConfigUnion(t *testing.T) {
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)

	cases := []struct {
		name string
		req  OrderRequest
	}{
		{"no config", OrderRequest{ClientOrderID: "a", Side: OrderSideBuy, Symbol: "DOGE-USD", Type: OrderTypeMarket}},
		{"mismatched config", OrderRequest{
			ClientOrderID:     "a",
			Side:              OrderSideBuy,
			Symbol:            "DOGE-USD",
			Type:              OrderTypeLimit,
			MarketOrderConfig: &MarketOrderConfig{AssetQuantity: decimal.NewFromInt(1)},
		}},
		{"two configs", OrderRequest{
			ClientOrderID:     "a",
			Side:              OrderSideBuy,
			Symbol:            "DOGE-USD",
			Type:              OrderTypeMarket,
			MarketOrderConfig: &MarketOrderConfig{AssetQuantity: decimal.NewFromInt(1)},
			LimitOrderConfig:  &LimitOrderConfig{AssetQuantity: decimal.NewFromInt(1), LimitPrice: decimal.NewFromInt(1)},
		}},
		{"bad side", OrderRequest{ClientOrderID: "a", Side: "hold", Symbol: "DOGE-USD", Type: OrderTypeMarket,
			MarketOrderConfig: &MarketOrderConfig{AssetQuantity: decimal.NewFromInt(1)}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := client.PlaceOrder(context.Background(), tc.req); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if calls.Load() != 0 {
		t.Fatalf("invalid requests must never reach the API")
	}
}
