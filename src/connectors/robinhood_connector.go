package connectors

// REST API CLIENT FOR ROBINHOOD CRYPTO TRADING
// RESTY ONLY, NO TRANSPORT RETRY

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRobinhoodBaseURL = "https://trading.robinhood.com"
	robinhoodHTTPTimeout    = 10 * time.Second
)

// Every order attempt carries a fresh client_order_id, so a blind transport
// retry of a POST would be a new order, not a replay. Submission is therefore
// at-least-once. The client deliberately carries no resty retry policy.

// -----------------------------
// ORDER TYPES
// -----------------------------

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStopLoss  OrderType = "stop_loss"
	OrderTypeStopLimit OrderType = "stop_limit"
)

type MarketOrderConfig struct {
	AssetQuantity decimal.Decimal `json:"asset_quantity"`
}

type LimitOrderConfig struct {
	AssetQuantity decimal.Decimal `json:"asset_quantity"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	TimeInForce   string          `json:"time_in_force,omitempty"`
}

type StopLossOrderConfig struct {
	AssetQuantity decimal.Decimal `json:"asset_quantity"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	TimeInForce   string          `json:"time_in_force,omitempty"`
}

type StopLimitOrderConfig struct {
	AssetQuantity decimal.Decimal `json:"asset_quantity"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	TimeInForce   string          `json:"time_in_force,omitempty"`
}

// OrderRequest is the POST body for /api/v1/crypto/trading/orders/. Exactly
// one of the config fields must be set, and it must match Type.
type OrderRequest struct {
	ClientOrderID string    `json:"client_order_id"`
	Side          OrderSide `json:"side"`
	Symbol        string    `json:"symbol"`
	Type          OrderType `json:"type"`

	MarketOrderConfig    *MarketOrderConfig    `json:"market_order_config,omitempty"`
	LimitOrderConfig     *LimitOrderConfig     `json:"limit_order_config,omitempty"`
	StopLossOrderConfig  *StopLossOrderConfig  `json:"stop_loss_order_config,omitempty"`
	StopLimitOrderConfig *StopLimitOrderConfig `json:"stop_limit_order_config,omitempty"`
}

func (r OrderRequest) validate() error {
	if r.ClientOrderID == "" {
		return errors.New("client_order_id is required")
	}
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return fmt.Errorf("invalid side %q", r.Side)
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return errors.New("symbol is required")
	}

	set := 0
	if r.MarketOrderConfig != nil {
		set++
	}
	if r.LimitOrderConfig != nil {
		set++
	}
	if r.StopLossOrderConfig != nil {
		set++
	}
	if r.StopLimitOrderConfig != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one order config must be set, got %d", set)
	}

	ok := false
	switch r.Type {
	case OrderTypeMarket:
		ok = r.MarketOrderConfig != nil
	case OrderTypeLimit:
		ok = r.LimitOrderConfig != nil
	case OrderTypeStopLoss:
		ok = r.StopLossOrderConfig != nil
	case OrderTypeStopLimit:
		ok = r.StopLimitOrderConfig != nil
	default:
		return fmt.Errorf("invalid order type %q", r.Type)
	}
	if !ok {
		return fmt.Errorf("order config does not match type %q", r.Type)
	}
	return nil
}

// -----------------------------
// RESPONSE TYPES
// -----------------------------

type BestBidAsk struct {
	Symbol   string          `json:"symbol"`
	BidPrice decimal.Decimal `json:"bid_price"`
	AskPrice decimal.Decimal `json:"ask_price"`
}

type bestBidAskResponse struct {
	Results []BestBidAsk `json:"results"`
}

type Holdings struct {
	AssetCode                   string          `json:"asset_code"`
	TotalQuantity               decimal.Decimal `json:"total_quantity"`
	QuantityHeldForOrders       decimal.Decimal `json:"quantity_held_for_orders"`
	QuantityAvailableForTrading decimal.Decimal `json:"quantity_available_for_trading"`
}

type holdingsResponse struct {
	Results []Holdings `json:"results"`
}

type Account struct {
	AccountNumber       string          `json:"account_number"`
	Status              string          `json:"status"`
	BuyingPower         decimal.Decimal `json:"buying_power"`
	BuyingPowerCurrency string          `json:"buying_power_currency"`
}

type Order struct {
	ID             string           `json:"id"`
	AccountNumber  string           `json:"account_number"`
	ClientOrderID  string           `json:"client_order_id"`
	Side           OrderSide        `json:"side"`
	Symbol         string           `json:"symbol"`
	Type           OrderType        `json:"type"`
	State          string           `json:"state"`
	AveragePrice   *decimal.Decimal `json:"average_price,omitempty"`
	FilledQuantity decimal.Decimal  `json:"filled_asset_quantity"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`

	MarketOrderConfig    *MarketOrderConfig    `json:"market_order_config,omitempty"`
	LimitOrderConfig     *LimitOrderConfig     `json:"limit_order_config,omitempty"`
	StopLossOrderConfig  *StopLossOrderConfig  `json:"stop_loss_order_config,omitempty"`
	StopLimitOrderConfig *StopLimitOrderConfig `json:"stop_limit_order_config,omitempty"`
}

type ordersResponse struct {
	Next     string  `json:"next"`
	Previous string  `json:"previous"`
	Results  []Order `json:"results"`
}

// OrderFilters narrows ListOrders. Zero values mean no filter.
type OrderFilters struct {
	Symbol string
	Side   OrderSide
	State  string
}

// -----------------------------
// CLIENT
// -----------------------------

type RobinhoodClient struct {
	signer  *Signer
	baseURL string
	http    *resty.Client
	limiter *rate.Limiter

	quantityDecimals int32
	minOrderQuantity decimal.Decimal

	now func() time.Time
}

func NewRobinhoodClient(apiKey, privateKeySeedB64 string, cfg Config) (*RobinhoodClient, error) {
	signer, err := NewSigner(apiKey, privateKeySeedB64)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultRobinhoodBaseURL
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(robinhoodHTTPTimeout)

	interval := cfg.MinRequestInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	return &RobinhoodClient{
		signer:           signer,
		baseURL:          baseURL,
		http:             httpClient,
		limiter:          rate.NewLimiter(rate.Every(interval), 1),
		quantityDecimals: cfg.QuantityDecimals,
		minOrderQuantity: cfg.MinOrderQuantity,
		now:              time.Now,
	}, nil
}

// -----------------------------
// LOW-LEVEL REQUEST
// -----------------------------

// doRequest performs one signed call. The path must include the query string,
// because the signature covers the path exactly as sent. The body bytes are
// signed and transmitted unmodified; re-serialization after signing would
// invalidate the signature.
func (c *RobinhoodClient) doRequest(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	timestamp := c.now().UTC().Unix()
	headers := c.signer.Headers(method, path, string(body), timestamp)

	req := c.http.R().
		SetContext(ctx).
		SetHeaders(headers)

	if body != nil {
		req = req.
			SetHeader("Content-Type", "application/json").
			SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"method": method,
			"path":   path,
		}).Error("robinhood - request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	raw := resp.Body()
	code := resp.StatusCode()
	if code != 200 && code != 201 {
		logger.WithFields(logger.Fields{
			"method": method,
			"path":   path,
			"status": code,
			"body":   string(raw),
		}).Error("robinhood - unexpected status")
		return fmt.Errorf("HTTP %d: %s", code, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("json unmarshal failed: %w. raw=%s", err, string(raw))
		}
	}
	return nil
}

// -----------------------------
// MARKET DATA
// -----------------------------

func (c *RobinhoodClient) GetBestBidAsk(ctx context.Context, symbol string) (*BestBidAsk, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New("symbol is required")
	}

	path := "/api/v1/crypto/marketdata/best_bid_ask/?symbol=" + url.QueryEscape(symbol)

	var out bestBidAskResponse
	if err := c.doRequest(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("no best bid/ask returned for %s", symbol)
	}
	return &out.Results[0], nil
}

// -----------------------------
// ACCOUNT & HOLDINGS
// -----------------------------

func (c *RobinhoodClient) GetAccount(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.doRequest(ctx, "GET", "/api/v1/crypto/trading/accounts/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RobinhoodClient) GetBuyingPower(ctx context.Context) (decimal.Decimal, error) {
	account, err := c.GetAccount(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return account.BuyingPower, nil
}

// GetHoldings returns the holdings for one asset code. An empty result set
// means the asset was never held and maps to zero quantities, not an error.
func (c *RobinhoodClient) GetHoldings(ctx context.Context, assetCode string) (*Holdings, error) {
	if strings.TrimSpace(assetCode) == "" {
		return nil, errors.New("asset code is required")
	}

	path := "/api/v1/crypto/trading/holdings/?asset_code=" + url.QueryEscape(assetCode)

	var out holdingsResponse
	if err := c.doRequest(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return &Holdings{AssetCode: assetCode}, nil
	}
	return &out.Results[0], nil
}

// -----------------------------
// ORDERS
// -----------------------------

func (c *RobinhoodClient) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	var out Order
	if err := c.doRequest(ctx, "POST", "/api/v1/crypto/trading/orders/", body, &out); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"symbol":          req.Symbol,
		"side":            req.Side,
		"type":            req.Type,
		"client_order_id": req.ClientOrderID,
		"order_id":        out.ID,
		"state":           out.State,
	}).Info("robinhood - order placed")

	return &out, nil
}

func (c *RobinhoodClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.New("order id is required")
	}

	var out Order
	path := "/api/v1/crypto/trading/orders/" + url.PathEscape(orderID) + "/"
	if err := c.doRequest(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RobinhoodClient) CancelOrder(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return errors.New("order id is required")
	}

	path := "/api/v1/crypto/trading/orders/" + url.PathEscape(orderID) + "/cancel/"
	return c.doRequest(ctx, "POST", path, nil, nil)
}

func (c *RobinhoodClient) ListOrders(ctx context.Context, filters OrderFilters) ([]Order, error) {
	q := url.Values{}
	if filters.Symbol != "" {
		q.Set("symbol", filters.Symbol)
	}
	if filters.Side != "" {
		q.Set("side", string(filters.Side))
	}
	if filters.State != "" {
		q.Set("state", filters.State)
	}

	path := "/api/v1/crypto/trading/orders/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ordersResponse
	if err := c.doRequest(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// -----------------------------
// HIGH-LEVEL TRADING
// -----------------------------

// BuyMarketNotional converts a dollar notional into an asset quantity at the
// current ask, truncated to the instrument increment. Quantities below the
// minimum order size are rejected locally: the remote would reject them
// anyway, so the call is never made.
func (c *RobinhoodClient) BuyMarketNotional(ctx context.Context, symbol string, notional decimal.Decimal) (*Order, error) {
	if notional.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("notional must be > 0")
	}

	quote, err := c.GetBestBidAsk(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch ask price: %w", err)
	}
	if quote.AskPrice.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("invalid ask price %s for %s", quote.AskPrice, symbol)
	}

	quantity := notional.DivRound(quote.AskPrice, c.quantityDecimals+4).Truncate(c.quantityDecimals)
	if quantity.LessThan(c.minOrderQuantity) || quantity.IsZero() {
		logger.WithFields(logger.Fields{
			"symbol":   symbol,
			"notional": notional.String(),
			"ask":      quote.AskPrice.String(),
			"quantity": quantity.String(),
			"min":      c.minOrderQuantity.String(),
		}).Error("robinhood - derived quantity below minimum order size, not submitting")
		return nil, fmt.Errorf("derived quantity %s below minimum order size %s", quantity, c.minOrderQuantity)
	}

	return c.PlaceOrder(ctx, OrderRequest{
		ClientOrderID:     uuid.NewString(),
		Side:              OrderSideBuy,
		Symbol:            symbol,
		Type:              OrderTypeMarket,
		MarketOrderConfig: &MarketOrderConfig{AssetQuantity: quantity},
	})
}

// SellMarketAll liquidates the entire quantity available for trading, as
// reported by the holdings endpoint. Amounts reserved by open orders are
// excluded by the exchange, not derived here. Selling nothing is a no-op
// success and returns (nil, nil).
func (c *RobinhoodClient) SellMarketAll(ctx context.Context, symbol string) (*Order, error) {
	holdings, err := c.GetHoldings(ctx, AssetCodeFromSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}

	quantity := holdings.QuantityAvailableForTrading
	if quantity.LessThanOrEqual(decimal.Zero) {
		logger.WithField("symbol", symbol).Info("robinhood - nothing available to sell")
		return nil, nil
	}

	return c.PlaceOrder(ctx, OrderRequest{
		ClientOrderID:     uuid.NewString(),
		Side:              OrderSideSell,
		Symbol:            symbol,
		Type:              OrderTypeMarket,
		MarketOrderConfig: &MarketOrderConfig{AssetQuantity: quantity},
	})
}

// AssetCodeFromSymbol maps a trading pair like DOGE-USD to its asset code.
func AssetCodeFromSymbol(symbol string) string {
	if i := strings.Index(symbol, "-"); i > 0 {
		return symbol[:i]
	}
	return symbol
}
