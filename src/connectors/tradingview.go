package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradebot/src/model"
)

// TradingView scanner client. One POST per poll returns the latest close,
// SMA10 and the aggregate recommendation for a ticker; the trend signal is
// derived from those three values. The indicator is stateless per poll,
// which is exactly why the trading loop needs a bootstrap phase.

const tradingViewScanBaseURL = "https://scanner.tradingview.com"

// Recommend.All thresholds used by TradingView's own rating buckets.
const recommendBuyThreshold = 0.1

type ClientTV struct {
	httpClient *http.Client
	baseURL    string
	screener   string
	exchange   string
}

func NewClientTV(httpClient *http.Client, screener, exchange string) *ClientTV {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if screener == "" {
		screener = "crypto"
	}
	if exchange == "" {
		exchange = "BINANCE"
	}
	return &ClientTV{
		httpClient: httpClient,
		baseURL:    tradingViewScanBaseURL,
		screener:   screener,
		exchange:   exchange,
	}
}

type scanRequest struct {
	Symbols struct {
		Tickers []string `json:"tickers"`
		Query   struct {
			Types []string `json:"types"`
		} `json:"query"`
	} `json:"symbols"`
	Columns []string `json:"columns"`
}

type scanResponse struct {
	TotalCount int `json:"totalCount"`
	Data       []struct {
		Symbol string    `json:"s"`
		Values []float64 `json:"d"`
	} `json:"data"`
}

// FetchSignal evaluates the trend for one ticker (e.g. DOGEUSDT). BUY when
// price is above SMA10 and the overall recommendation is buy or strong buy,
// SELL otherwise. Any transport or payload failure maps to SignalUnknown
// with a non-nil error.
func (c *ClientTV) FetchSignal(ctx context.Context, ticker string) (model.Signal, error) {
	payload := scanRequest{
		Columns: []string{"close", "SMA10", "Recommend.All"},
	}
	payload.Symbols.Tickers = []string{c.exchange + ":" + ticker}
	payload.Symbols.Query.Types = []string{}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.SignalUnknown, fmt.Errorf("marshal scan request: %w", err)
	}

	u := fmt.Sprintf("%s/%s/scan", c.baseURL, c.screener)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return model.SignalUnknown, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", "tradebot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.SignalUnknown, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return model.SignalUnknown, fmt.Errorf("unexpected status %d. body: %s", resp.StatusCode, string(b))
	}

	var decoded scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return model.SignalUnknown, fmt.Errorf("decode json: %w", err)
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Values) < 3 {
		return model.SignalUnknown, fmt.Errorf("scan returned no data for %s", ticker)
	}

	close_ := decoded.Data[0].Values[0]
	sma10 := decoded.Data[0].Values[1]
	recommend := decoded.Data[0].Values[2]

	signal := model.SignalSell
	if close_ > sma10 && recommend >= recommendBuyThreshold {
		signal = model.SignalBuy
	}

	logger.WithFields(logger.Fields{
		"ticker":    ticker,
		"close":     close_,
		"sma10":     sma10,
		"recommend": recommend,
		"signal":    signal,
	}).Debug("tradingview - signal evaluated")

	return signal, nil
}
